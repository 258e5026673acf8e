package settlement

import (
	"context"
	"fmt"

	"github.com/buildersacademyai/prompto-sub000/internal/reward"
)

// StaticSource serves configs held in memory, as loaded from a campaign file
type StaticSource map[string][]reward.CampaignRewardConfig

// NewStaticSource indexes configs by campaign. A config without a version is numbered by position.
func NewStaticSource(configs ...reward.CampaignRewardConfig) StaticSource {
	src := make(StaticSource)
	for _, c := range configs {
		if c.Version == 0 {
			c.Version = len(src[c.CampaignID]) + 1
		}
		src[c.CampaignID] = append(src[c.CampaignID], c)
	}
	return src
}

// ResolveConfig implements ConfigSource
func (s StaticSource) ResolveConfig(_ context.Context, campaignID string, version int) (reward.CampaignRewardConfig, error) {
	versions := s[campaignID]
	if len(versions) == 0 {
		return reward.CampaignRewardConfig{}, fmt.Errorf("%w: campaign %q", ErrConfigNotFound, campaignID)
	}

	if version == 0 {
		latest := versions[0]
		for _, c := range versions[1:] {
			if c.Version > latest.Version {
				latest = c
			}
		}
		return latest, nil
	}

	for _, c := range versions {
		if c.Version == version {
			return c, nil
		}
	}
	return reward.CampaignRewardConfig{}, fmt.Errorf("%w: campaign %q version %d", ErrConfigNotFound, campaignID, version)
}
