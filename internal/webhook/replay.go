package webhook

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-billing/internal/common"
)

// ReplayGuard suppresses duplicate notification deliveries within a TTL
// window using a Redis SetNX over the body hash. A zero TTL disables the
// guard, in which case duplicate deliveries produce duplicate records.
type ReplayGuard struct {
	Client *redis.Client
	TTL    time.Duration
}

// Enabled reports whether the guard will actually deduplicate.
func (g *ReplayGuard) Enabled() bool {
	return g != nil && g.Client != nil && g.TTL > 0
}

// Seen marks the body as processed and reports whether it was already seen
// within the TTL window.
func (g *ReplayGuard) Seen(ctx context.Context, body []byte) (bool, error) {
	if !g.Enabled() {
		return false, nil
	}
	key := fmt.Sprintf("wh:stripe:%s", common.Sha256Hex(string(body)))
	fresh, err := g.Client.SetNX(ctx, key, "1", g.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("webhook: replay store: %w", err)
	}
	return !fresh, nil
}
