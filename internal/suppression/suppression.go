// internal/suppression/suppression.go
package suppression

import (
    "context"
    "fmt"

    "github.com/redis/go-redis/v9"
)

// List answers "may we message this identity for this tenant". A hit is a
// permanent failure; suppressed identities are never retried.
type List interface {
    IsSuppressed(ctx context.Context, companyID, identity string) (bool, error)
    Suppress(ctx context.Context, companyID, identity string) error
}

// RedisList keeps one opt-out set per tenant.
type RedisList struct {
    Client *redis.Client
}

func NewRedisList(client *redis.Client) *RedisList {
    return &RedisList{Client: client}
}

func key(companyID string) string {
    return fmt.Sprintf("suppression:%s", companyID)
}

func (l *RedisList) IsSuppressed(ctx context.Context, companyID, identity string) (bool, error) {
    return l.Client.SIsMember(ctx, key(companyID), identity).Result()
}

func (l *RedisList) Suppress(ctx context.Context, companyID, identity string) error {
    return l.Client.SAdd(ctx, key(companyID), identity).Err()
}

var _ List = (*RedisList)(nil)
