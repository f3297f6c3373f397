package sessionctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	ctx := WithSession(context.Background(), Session{UserID: "u-1", IPAddress: "10.0.0.1"})

	session, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "u-1", session.UserID)
	require.Nil(t, session.TenantID)

	scoped := WithTenant(ctx, "t-1")
	session, ok = FromContext(scoped)
	require.True(t, ok)
	require.Equal(t, "t-1", *session.TenantID)

	original, _ := FromContext(ctx)
	require.Nil(t, original.TenantID)
}

func TestFromContextWithoutIdentity(t *testing.T) {
	_, ok := FromContext(context.Background())
	require.False(t, ok)

	//nolint:staticcheck // nil context is tolerated
	_, ok = FromContext(nil)
	require.False(t, ok)

	_, ok = FromContext(WithSession(context.Background(), Session{}))
	require.False(t, ok)

	require.Equal(t, context.Background(), WithTenant(context.Background(), "t-1"))
}
