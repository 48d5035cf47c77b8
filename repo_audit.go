package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AuditRetentionPeriod is the rolling window audit entries are kept for
var AuditRetentionPeriod = 30 * 24 * time.Hour

// AuditLogs is the append only audit trail store
type AuditLogs interface {
	repository.Repository[*AuditLog]

	Record(ctx context.Context, category, message string, detail map[string]any) error
	PurgeExpired(ctx context.Context) (int64, error)
}

type auditLogs struct {
	repository.Repository[*AuditLog]
	db *bun.DB
}

var _ AuditLogs = (*auditLogs)(nil)

func NewAuditLogsRepository(db *bun.DB) AuditLogs {
	repo := repository.NewRepository[*AuditLog](db, repository.ModelHandlers[*AuditLog]{
		NewRecord: func() *AuditLog { return &AuditLog{} },
		GetID: func(l *AuditLog) uuid.UUID {
			if l == nil {
				return uuid.Nil
			}
			return l.ID
		},
		SetID: func(l *AuditLog, id uuid.UUID) {
			if l != nil {
				l.ID = id
			}
		},
	})

	return &auditLogs{
		Repository: repo,
		db:         db,
	}
}

// Record appends a single audit entry
func (a *auditLogs) Record(ctx context.Context, category, message string, detail map[string]any) error {
	entry := &AuditLog{
		ID:       uuid.New(),
		Category: category,
		Message:  message,
		Detail:   detail,
	}

	_, err := a.Repository.Create(ctx, entry)
	return err
}

// PurgeExpired deletes entries older than the retention window and reports
// how many went away
func (a *auditLogs) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-AuditRetentionPeriod)

	res, err := a.db.NewDelete().
		Model((*AuditLog)(nil)).
		Where("created_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
