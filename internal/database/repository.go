package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/buildersacademyai/prompto-sub000/internal/resilience"
	"github.com/buildersacademyai/prompto-sub000/internal/reward"
	"github.com/buildersacademyai/prompto-sub000/internal/settlement"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a config version or settlement does not exist
var ErrNotFound = errors.New("not found")

// Repository handles database operations
type Repository struct {
	db    *DB
	retry resilience.RetryConfig
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	retry := resilience.DefaultRetryConfig()
	retry.RetryableErrors = IsBusy
	return &Repository{db: db, retry: retry}
}

// IsBusy reports whether err is SQLite refusing a write because another connection holds the lock
func IsBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}

// CreateConfigVersion appends the next version of a campaign's config. Earlier versions are never touched.
func (r *Repository) CreateConfigVersion(ctx context.Context, campaignID string, config reward.CampaignRewardConfig) (*ConfigVersion, error) {
	config.CampaignID = campaignID
	config.Version = 0

	raw, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	stmt, err := r.db.GetPreparedStatement("insert_config_version")
	if err != nil {
		return nil, err
	}

	// The write lock is taken up front so concurrent publishes queue on busy_timeout
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin config transaction: %w", err)
	}
	defer tx.Rollback()

	createdAt := time.Now().UTC()
	var version int
	if err := tx.StmtContext(ctx, stmt).QueryRowContext(ctx, campaignID, string(raw), createdAt, campaignID).Scan(&version); err != nil {
		return nil, fmt.Errorf("failed to create config version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit config version: %w", err)
	}

	config.Version = version
	return &ConfigVersion{
		CampaignID: campaignID,
		Version:    version,
		Config:     config,
		CreatedAt:  createdAt,
	}, nil
}

// GetConfigVersion loads one version of a campaign's config
func (r *Repository) GetConfigVersion(ctx context.Context, campaignID string, version int) (*ConfigVersion, error) {
	stmt, err := r.db.GetPreparedStatement("get_config_version")
	if err != nil {
		return nil, err
	}
	return scanConfigVersion(stmt.QueryRowContext(ctx, campaignID, version), campaignID)
}

// GetLatestConfig loads the highest version of a campaign's config
func (r *Repository) GetLatestConfig(ctx context.Context, campaignID string) (*ConfigVersion, error) {
	stmt, err := r.db.GetPreparedStatement("get_latest_config")
	if err != nil {
		return nil, err
	}
	return scanConfigVersion(stmt.QueryRowContext(ctx, campaignID), campaignID)
}

// ListConfigVersions returns every version of a campaign's config, oldest first
func (r *Repository) ListConfigVersions(ctx context.Context, campaignID string) ([]ConfigVersion, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT campaign_id, version, config_json, created_at
		FROM campaign_configs
		WHERE campaign_id = ?
		ORDER BY version ASC
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query config versions: %w", err)
	}
	defer rows.Close()

	var versions []ConfigVersion
	for rows.Next() {
		cv, err := scanConfigVersion(rows, campaignID)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *cv)
	}

	return versions, rows.Err()
}

// ResolveConfig implements settlement.ConfigSource. Version 0 resolves the latest.
func (r *Repository) ResolveConfig(ctx context.Context, campaignID string, version int) (reward.CampaignRewardConfig, error) {
	var (
		cv  *ConfigVersion
		err error
	)
	if version == 0 {
		cv, err = r.GetLatestConfig(ctx, campaignID)
	} else {
		cv, err = r.GetConfigVersion(ctx, campaignID, version)
	}

	if errors.Is(err, ErrNotFound) {
		return reward.CampaignRewardConfig{}, fmt.Errorf("%w: %w", settlement.ErrConfigNotFound, err)
	}
	if err != nil {
		return reward.CampaignRewardConfig{}, err
	}
	return cv.Config, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfigVersion(row rowScanner, campaignID string) (*ConfigVersion, error) {
	var (
		cv  ConfigVersion
		raw string
	)
	err := row.Scan(&cv.CampaignID, &cv.Version, &raw, &cv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("config for campaign %q: %w", campaignID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query config: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &cv.Config); err != nil {
		return nil, fmt.Errorf("failed to decode config %s v%d: %w", cv.CampaignID, cv.Version, err)
	}
	cv.Config.CampaignID = cv.CampaignID
	cv.Config.Version = cv.Version

	return &cv, nil
}

// SaveSettlement stores one settled record
func (r *Repository) SaveSettlement(ctx context.Context, s *Settlement) error {
	var breakdown sql.NullString
	if s.Breakdown != nil {
		raw, err := json.Marshal(s.Breakdown)
		if err != nil {
			return fmt.Errorf("failed to encode breakdown: %w", err)
		}
		breakdown = sql.NullString{String: string(raw), Valid: true}
	}

	stmt, err := r.db.GetPreparedStatement("insert_settlement")
	if err != nil {
		return err
	}

	// Settlement workers write concurrently and can outlast busy_timeout
	err = resilience.RetryWithConfig(ctx, r.retry, func() error {
		_, execErr := stmt.ExecContext(ctx,
			s.ID, s.BatchID, s.RecordID, s.CampaignID, s.ConfigVersion, s.Status,
			s.TotalReward, s.Payout.String(), breakdown,
			nullable(s.ErrorKind), nullable(s.ErrorField), nullable(s.ErrorMessage), s.CreatedAt,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to save settlement: %w", err)
	}

	return nil
}

// RecordItem implements settlement.Recorder
func (r *Repository) RecordItem(ctx context.Context, batchID string, item settlement.ItemResult) error {
	s := NewSettlement(batchID, item.RecordID, item.CampaignID, item.ConfigVersion, string(item.Status))
	s.ErrorKind = item.ErrorKind
	s.ErrorField = item.Field
	s.ErrorMessage = item.Message
	if item.Breakdown != nil {
		s.Breakdown = item.Breakdown
		s.TotalReward = item.Breakdown.TotalReward
		s.Payout = item.Breakdown.Payout
	}

	return r.SaveSettlement(ctx, s)
}

const settlementColumns = `id, batch_id, record_id, campaign_id, config_version, status,
	total_reward, payout, breakdown_json, error_kind, error_field, error_message, created_at`

// GetSettlement loads one settlement by ID
func (r *Repository) GetSettlement(ctx context.Context, id string) (*Settlement, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+settlementColumns+` FROM settlements WHERE id = ?`, id)

	s, err := scanSettlement(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("settlement %q: %w", id, ErrNotFound)
	}
	return s, err
}

// ListSettlementsByBatch returns a batch's settlements in the order they were recorded
func (r *Repository) ListSettlementsByBatch(ctx context.Context, batchID string) ([]Settlement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+settlementColumns+` FROM settlements WHERE batch_id = ? ORDER BY rowid ASC`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query settlements: %w", err)
	}
	defer rows.Close()

	var settlements []Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		settlements = append(settlements, *s)
	}

	return settlements, rows.Err()
}

// BatchExists reports whether any settlement was recorded under batchID
func (r *Repository) BatchExists(ctx context.Context, batchID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM settlements WHERE batch_id = ?)`, batchID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check batch %s: %w", batchID, err)
	}
	return exists, nil
}

// SummarizeBatch totals a stored batch. Only settled rows count toward the payout.
func (r *Repository) SummarizeBatch(ctx context.Context, batchID string) (*BatchSummary, error) {
	settlements, err := r.ListSettlementsByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(settlements) == 0 {
		return nil, fmt.Errorf("batch %q: %w", batchID, ErrNotFound)
	}

	summary := &BatchSummary{BatchID: batchID, TotalPayout: decimal.Zero}
	for _, s := range settlements {
		switch settlement.Status(s.Status) {
		case settlement.StatusSettled:
			summary.Settled++
			summary.TotalPayout = summary.TotalPayout.Add(s.Payout)
		case settlement.StatusRejected:
			summary.Rejected++
		case settlement.StatusNeedsReview:
			summary.NeedsReview++
		}
	}

	return summary, nil
}

func scanSettlement(row rowScanner) (*Settlement, error) {
	var (
		s                              Settlement
		payout                         string
		breakdown, kind, field, errMsg sql.NullString
	)

	err := row.Scan(&s.ID, &s.BatchID, &s.RecordID, &s.CampaignID, &s.ConfigVersion, &s.Status,
		&s.TotalReward, &payout, &breakdown, &kind, &field, &errMsg, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan settlement: %w", err)
	}

	if s.Payout, err = decimal.NewFromString(payout); err != nil {
		return nil, fmt.Errorf("failed to decode payout of settlement %s: %w", s.ID, err)
	}

	if breakdown.Valid {
		s.Breakdown = &reward.RewardBreakdown{}
		if err := json.Unmarshal([]byte(breakdown.String), s.Breakdown); err != nil {
			return nil, fmt.Errorf("failed to decode breakdown of settlement %s: %w", s.ID, err)
		}
	}
	s.ErrorKind = kind.String
	s.ErrorField = field.String
	s.ErrorMessage = errMsg.String

	return &s, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var (
	_ settlement.ConfigSource = (*Repository)(nil)
	_ settlement.Recorder     = (*Repository)(nil)
)
