package cache

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/buildersacademyai/prompto-sub000/internal/monitoring"
	"github.com/buildersacademyai/prompto-sub000/internal/reward"
	"github.com/buildersacademyai/prompto-sub000/internal/settlement"
)

// ConfigCache fronts a settlement.ConfigSource. Only explicit versions are cached since a
// version never changes once published; "latest" always goes to the source.
type ConfigCache struct {
	source  settlement.ConfigSource
	cache   *Cache
	metrics *monitoring.Metrics
}

// NewConfigCache wraps source with c
func NewConfigCache(source settlement.ConfigSource, c *Cache, metrics *monitoring.Metrics) *ConfigCache {
	return &ConfigCache{source: source, cache: c, metrics: metrics}
}

// ResolveConfig implements settlement.ConfigSource
func (cc *ConfigCache) ResolveConfig(ctx context.Context, campaignID string, version int) (reward.CampaignRewardConfig, error) {
	if version > 0 {
		if raw, ok := cc.cache.Get(configKey(campaignID, version)); ok {
			var config reward.CampaignRewardConfig
			if err := json.Unmarshal(raw, &config); err == nil {
				cc.metrics.IncrementCacheHit()
				return config, nil
			}
		}
		cc.metrics.IncrementCacheMiss()
	}

	config, err := cc.source.ResolveConfig(ctx, campaignID, version)
	if err != nil {
		return config, err
	}

	if raw, err := json.Marshal(config); err == nil {
		cc.cache.Set(configKey(campaignID, config.Version), raw)
	}
	return config, nil
}

func configKey(campaignID string, version int) string {
	return "config:" + campaignID + "@" + strconv.Itoa(version)
}
