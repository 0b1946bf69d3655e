package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	id "firledger/pkg/domain"
)

func TestZeroValuesWhenAbsent(t *testing.T) {
	ctx := context.Background()

	assert.True(t, UserID(ctx).IsNil())
	assert.Empty(t, ClientIP(ctx))
	assert.Empty(t, ClientAgent(ctx))
	assert.Empty(t, RequestID(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}

func TestClientAgentPrefersSummary(t *testing.T) {
	ctx := WithClientMetadata(context.Background(), "10.1.2.3", "Mozilla/5.0 (X11; Linux x86_64)")
	assert.Equal(t, "10.1.2.3", ClientIP(ctx))
	assert.Equal(t, "Mozilla/5.0 (X11; Linux x86_64)", ClientAgent(ctx))

	ctx = WithClientAgent(ctx, "Firefox 128 / Linux")
	assert.Equal(t, "Firefox 128 / Linux", ClientAgent(ctx))
}

func TestRoundTrips(t *testing.T) {
	user := id.UserID(uuid.New())
	fixed := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	ctx := WithUserID(context.Background(), user)
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithTime(ctx, fixed)

	assert.Equal(t, user, UserID(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, fixed, Now(ctx))
}
