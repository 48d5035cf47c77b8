package auth_test

import (
	"context"
	"testing"
	"time"

	auth "github.com/hoteldesk/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestActivitySinkFunc(t *testing.T) {
	var got auth.ActivityEvent

	sink := auth.ActivitySinkFunc(func(_ context.Context, event auth.ActivityEvent) error {
		got = event
		return nil
	})

	err := sink.Record(context.Background(), auth.ActivityEvent{
		EventType: auth.ActivityEventLogout,
		UserID:    "u-1",
	})
	require.NoError(t, err)
	assert.Equal(t, auth.ActivityEventLogout, got.EventType)

	var nilSink auth.ActivitySinkFunc
	assert.NoError(t, nilSink.Record(context.Background(), auth.ActivityEvent{}))
}

func TestAuditLogSinkPersistsEvents(t *testing.T) {
	logs := new(MockAuditLogs)
	logs.On("Record",
		mock.Anything,
		"auth.login.success",
		"user logged in",
		mock.MatchedBy(func(detail map[string]any) bool {
			return detail["user_id"] == "u-42" && detail["email"] == "g@example.com"
		}),
	).Return(nil)

	sink := auth.NewAuditLogSink(logs)

	err := sink.Record(context.Background(), auth.ActivityEvent{
		EventType:  auth.ActivityEventLoginSuccess,
		UserID:     "u-42",
		Message:    "user logged in",
		Metadata:   map[string]any{"email": "g@example.com"},
		OccurredAt: time.Now(),
	})
	require.NoError(t, err)

	logs.AssertExpectations(t)
}
