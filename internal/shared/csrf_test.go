package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSRFEnsureTokenIsStable(t *testing.T) {
	m := NewCSRFManager("secret")
	sess := &Session{ID: "abc"}

	first, err := m.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := m.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestCSRFVerifyToken(t *testing.T) {
	m := NewCSRFManager("secret")
	sess := &Session{ID: "abc"}
	ctx := context.Background()

	require.ErrorIs(t, m.VerifyToken(ctx, sess, "anything"), ErrCSRFTokenMissing)

	token, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)

	require.NoError(t, m.VerifyToken(ctx, sess, token))
	require.ErrorIs(t, m.VerifyToken(ctx, sess, ""), ErrCSRFTokenMissing)
	require.ErrorIs(t, m.VerifyToken(ctx, sess, token+"x"), ErrCSRFTokenMismatch)
	require.ErrorIs(t, m.VerifyToken(ctx, nil, token), ErrCSRFTokenMissing)
}

func TestCSRFEnsureTokenRequiresSession(t *testing.T) {
	_, err := NewCSRFManager("secret").EnsureToken(context.Background(), nil)
	require.Error(t, err)
}

func TestAuditLogValidate(t *testing.T) {
	require.Error(t, AuditLog{Action: "user.register"}.validate())
	require.NoError(t, AuditLog{Action: "user.register", Entity: "user", EntityID: "u-1"}.validate())

	var nilLogger *AuditLogger
	require.Error(t, nilLogger.Record(context.Background(), AuditLog{}))
}
