package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenService mints and validates the three signed token families. Each
// family uses its own secret: a leaked email action secret must not be able
// to forge API credentials.
type TokenService interface {
	IssueAccessToken(identity Identity) (string, error)
	IssueRefreshToken(identity Identity) (string, time.Time, error)
	IssueEmailActionToken(identity Identity, purpose TokenPurpose) (string, error)

	ValidateAccessToken(raw string) (*AccessClaims, error)
	ValidateRefreshToken(raw string) (*RefreshClaims, error)
	ValidateEmailActionToken(raw string, purpose TokenPurpose) (*EmailActionClaims, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	accessKey  []byte
	refreshKey []byte
	emailKey   []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	emailTTL   time.Duration
	issuer     string
	logger     Logger
}

var _ TokenService = (*TokenServiceImpl)(nil)

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg Config, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		accessKey:  []byte(cfg.GetAccessTokenSecret()),
		refreshKey: []byte(cfg.GetRefreshTokenSecret()),
		emailKey:   []byte(cfg.GetEmailTokenSecret()),
		accessTTL:  cfg.GetAccessTokenTTL(),
		refreshTTL: cfg.GetRefreshTokenTTL(),
		emailTTL:   cfg.GetEmailTokenTTL(),
		issuer:     cfg.GetIssuer(),
		logger:     logger,
	}
}

// IssueAccessToken mints a short lived access token carrying the identity's
// roles
func (ts *TokenServiceImpl) IssueAccessToken(identity Identity) (string, error) {
	now := time.Now()
	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.accessTTL)),
		},
		UID:   identity.ID(),
		Roles: identity.Roles().Strings(),
	}

	return ts.sign(claims, ts.accessKey)
}

// IssueRefreshToken mints a refresh token and reports its expiry so callers
// can align the cookie lifetime with it
func (ts *TokenServiceImpl) IssueRefreshToken(identity Identity) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ts.refreshTTL)
	claims := &RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID: identity.ID(),
	}

	token, err := ts.sign(claims, ts.refreshKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

// IssueEmailActionToken mints a purpose bound token for an emailed link
func (ts *TokenServiceImpl) IssueEmailActionToken(identity Identity, purpose TokenPurpose) (string, error) {
	now := time.Now()
	claims := &EmailActionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.emailTTL)),
		},
		Email:   identity.Email(),
		Purpose: purpose,
	}

	return ts.sign(claims, ts.emailKey)
}

// ValidateAccessToken parses and validates an access token
func (ts *TokenServiceImpl) ValidateAccessToken(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := ts.parse(raw, claims, ts.accessKey); err != nil {
		return nil, err
	}
	return claims, nil
}

// ValidateRefreshToken parses and validates a refresh token
func (ts *TokenServiceImpl) ValidateRefreshToken(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := ts.parse(raw, claims, ts.refreshKey); err != nil {
		return nil, err
	}
	return claims, nil
}

// ValidateEmailActionToken parses an email action token and checks it was
// minted for the expected purpose. A purpose mismatch is reported the same
// way as a malformed token.
func (ts *TokenServiceImpl) ValidateEmailActionToken(raw string, purpose TokenPurpose) (*EmailActionClaims, error) {
	claims := &EmailActionClaims{}
	if err := ts.parse(raw, claims, ts.emailKey); err != nil {
		return nil, err
	}

	if claims.Purpose != purpose {
		ts.logger.Error("email action token purpose mismatch: got %q want %q", claims.Purpose, purpose)
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

func (ts *TokenServiceImpl) sign(claims jwt.Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(key)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

// parse maps every verification failure onto the structured taxonomy:
// expired tokens keep their own text code so flows can distinguish
// "resend the link" from "contact support".
func (ts *TokenServiceImpl) parse(raw string, claims jwt.Claims, key []byte) error {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	if !token.Valid {
		ts.logger.Error("token validate could not decode or validate claims")
		return ErrTokenMalformed
	}

	return nil
}
