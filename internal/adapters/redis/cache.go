// Package redis caches computed broker health audits under a short TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"leadmarket/internal/domain"
)

type HealthCache struct {
	client *redis.Client
}

func NewHealthCache(url string) (*HealthCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &HealthCache{client: redis.NewClient(opts)}, nil
}

func (c *HealthCache) Close() error { return c.client.Close() }

func auditKey(brokerID string) string { return "broker_health_audit:" + brokerID }

func (c *HealthCache) GetAudit(ctx context.Context, brokerID string) (domain.BrokerHealthAudit, bool, error) {
	raw, err := c.client.Get(ctx, auditKey(brokerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.BrokerHealthAudit{}, false, nil
	}
	if err != nil {
		return domain.BrokerHealthAudit{}, false, err
	}
	var audit domain.BrokerHealthAudit
	if err := json.Unmarshal(raw, &audit); err != nil {
		return domain.BrokerHealthAudit{}, false, err
	}
	return audit, true, nil
}

func (c *HealthCache) SetAudit(ctx context.Context, audit domain.BrokerHealthAudit, ttl time.Duration) error {
	raw, err := json.Marshal(audit)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, auditKey(audit.BrokerID), raw, ttl).Err()
}
