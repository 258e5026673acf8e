package database

import (
	"time"

	"github.com/buildersacademyai/prompto-sub000/internal/reward"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConfigVersion is one immutable revision of a campaign's reward config
type ConfigVersion struct {
	CampaignID string                      `json:"campaign_id" db:"campaign_id"`
	Version    int                         `json:"version" db:"version"`
	Config     reward.CampaignRewardConfig `json:"config" db:"config_json"`
	CreatedAt  time.Time                   `json:"created_at" db:"created_at"`
}

// Settlement is the persisted outcome of settling one record
type Settlement struct {
	ID            string                  `json:"id" db:"id"`
	BatchID       string                  `json:"batch_id" db:"batch_id"`
	RecordID      string                  `json:"record_id" db:"record_id"`
	CampaignID    string                  `json:"campaign_id" db:"campaign_id"`
	ConfigVersion int                     `json:"config_version" db:"config_version"`
	Status        string                  `json:"status" db:"status"`
	TotalReward   float64                 `json:"total_reward" db:"total_reward"`
	Payout        decimal.Decimal         `json:"payout" db:"payout"`
	Breakdown     *reward.RewardBreakdown `json:"breakdown,omitempty" db:"breakdown_json"`
	ErrorKind     string                  `json:"error_kind,omitempty" db:"error_kind"`
	ErrorField    string                  `json:"error_field,omitempty" db:"error_field"`
	ErrorMessage  string                  `json:"error_message,omitempty" db:"error_message"`
	CreatedAt     time.Time               `json:"created_at" db:"created_at"`
}

// NewSettlement creates a settlement row with a generated ID
func NewSettlement(batchID, recordID, campaignID string, configVersion int, status string) *Settlement {
	return &Settlement{
		ID:            uuid.New().String(),
		BatchID:       batchID,
		RecordID:      recordID,
		CampaignID:    campaignID,
		ConfigVersion: configVersion,
		Status:        status,
		Payout:        decimal.Zero,
		CreatedAt:     time.Now().UTC(),
	}
}

// BatchSummary aggregates the settlements of one batch
type BatchSummary struct {
	BatchID     string          `json:"batch_id"`
	Settled     int             `json:"settled"`
	Rejected    int             `json:"rejected"`
	NeedsReview int             `json:"needs_review"`
	TotalPayout decimal.Decimal `json:"total_payout"`
}
