// Package auth implements account and session management for the hotel desk
// platform: transactional signup, credential login, a three family JWT token
// service, refresh and logout over a single stored refresh token, email
// verification, password reset, role gated route middleware, and a retained
// audit trail.
//
// The package is storage backed by bun and exposes its HTTP surface as fiber
// handlers. Processes wire it together roughly like this:
//
//	users := auth.NewUsersRepository(db)
//	logs := auth.NewAuditLogsRepository(db)
//	tokens := auth.NewTokenService(cfg, logger)
//	sink := auth.NewAuditLogSink(logs)
//
//	provider := auth.NewUserProvider(users).
//		WithRequireVerified(cfg.GetRequireEmailVerification())
//	auther := auth.NewAuthenticator(provider, users, tokens).
//		WithActivitySink(sink)
//
// Each flow (registration, verification, reset) lives in its own message and
// handler pair so callers can dispatch them through whatever command bus they
// already run.
package auth
