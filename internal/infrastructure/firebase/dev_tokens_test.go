package firebase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsync/pkg/errors"
)

func TestDevAuthClient(t *testing.T) {
	ctx := context.Background()
	dev := NewDevAuthClient()

	uid, err := dev.CreateUser(ctx, "ann@example.com", "secret1", "Ann")
	require.NoError(t, err)

	_, err = dev.CreateUser(ctx, "ANN@example.com", "secret2", "Ann again")
	assert.True(t, errors.Is(err, errors.CodeConflict))

	_, err = dev.CreateUser(ctx, "ben@example.com", "123", "Ben")
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	token, err := dev.GenerateToken(ctx, uid)
	require.NoError(t, err)

	got, expires, err := dev.VerifyToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, uid, got)
	assert.True(t, expires.IsZero())

	_, _, err = dev.VerifyToken(ctx, DevTokenPrefix+"stranger")
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))

	_, _, err = dev.VerifyToken(ctx, uid)
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))
}
