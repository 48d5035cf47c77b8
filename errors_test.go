package auth_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/hoteldesk/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTokenExpiredError(t *testing.T) {
	assert.True(t, auth.IsTokenExpiredError(auth.ErrTokenExpired))
	assert.True(t, auth.IsTokenExpiredError(errors.New("token is expired by 3h")))

	assert.False(t, auth.IsTokenExpiredError(nil))
	assert.False(t, auth.IsTokenExpiredError(auth.ErrTokenMalformed))
	assert.False(t, auth.IsTokenExpiredError(errors.New("some other failure")))
}

func TestIsMalformedError(t *testing.T) {
	assert.True(t, auth.IsMalformedError(auth.ErrTokenMalformed))
	assert.True(t, auth.IsMalformedError(errors.New("token is malformed: bad segment")))
	assert.True(t, auth.IsMalformedError(errors.New("missing or malformed JWT")))

	assert.False(t, auth.IsMalformedError(nil))
	assert.False(t, auth.IsMalformedError(auth.ErrTokenExpired))
}

func TestSharedErrorVarsStayImmutable(t *testing.T) {
	e1 := auth.RoleList{"ghost"}.Validate()
	e2 := auth.RoleList{"phantom"}.Validate()

	require.ErrorIs(t, e1, auth.ErrInvalidRole)
	require.ErrorIs(t, e2, auth.ErrInvalidRole)
	require.NotSame(t, e1, e2)

	var r1, r2 *goerrors.Error
	require.True(t, goerrors.As(e1, &r1))
	require.True(t, goerrors.As(e2, &r2))

	// each call carries only its own metadata
	assert.Equal(t, "ghost", r1.Metadata["role"])
	assert.Equal(t, "phantom", r2.Metadata["role"])

	// the package-level var never accumulates request data
	assert.Empty(t, auth.ErrInvalidRole.Metadata)
}

func TestErrorMetadataConcurrentAttachment(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				err := auth.RoleList{auth.Role(fmt.Sprintf("bogus-%d-%d", i, j))}.Validate()
				assert.ErrorIs(t, err, auth.ErrInvalidRole)
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, auth.ErrInvalidRole.Metadata)
}

func TestErrorTextCodes(t *testing.T) {
	assert.Equal(t, auth.TextCodeInvalidCreds, auth.ErrMismatchedHashAndPassword.TextCode)
	assert.Equal(t, auth.TextCodeEmailNotVerified, auth.ErrEmailNotVerified.TextCode)
	assert.Equal(t, auth.TextCodeSessionRevoked, auth.ErrSessionRevoked.TextCode)
	assert.Equal(t, auth.TextCodeDuplicateIdentity, auth.ErrDuplicateIdentity.TextCode)
}
