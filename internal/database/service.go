package database

import (
	"context"
	"strings"

	"github.com/buildersacademyai/prompto-sub000/internal/reward"
)

// ConfigService guards config publication so that only valid configs become versions
type ConfigService struct {
	repo *Repository
}

// NewConfigService creates a new config service
func NewConfigService(repo *Repository) *ConfigService {
	return &ConfigService{repo: repo}
}

// Publish validates config and stores it as the campaign's next version
func (s *ConfigService) Publish(ctx context.Context, campaignID string, config reward.CampaignRewardConfig) (*ConfigVersion, error) {
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return nil, &reward.Error{Kind: reward.KindInvalidConfig, Field: "campaign_id", Message: "must not be empty"}
	}

	if err := reward.ValidateConfig(config); err != nil {
		return nil, err
	}

	return s.repo.CreateConfigVersion(ctx, campaignID, config)
}

// Latest returns the campaign's current config
func (s *ConfigService) Latest(ctx context.Context, campaignID string) (*ConfigVersion, error) {
	return s.repo.GetLatestConfig(ctx, campaignID)
}

// Version returns one historical config of the campaign
func (s *ConfigService) Version(ctx context.Context, campaignID string, version int) (*ConfigVersion, error) {
	return s.repo.GetConfigVersion(ctx, campaignID, version)
}

// History returns every config the campaign has had
func (s *ConfigService) History(ctx context.Context, campaignID string) ([]ConfigVersion, error) {
	return s.repo.ListConfigVersions(ctx, campaignID)
}
