// Package settlement turns batches of engagement records into itemized payouts.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/buildersacademyai/prompto-sub000/internal/monitoring"
	"github.com/buildersacademyai/prompto-sub000/internal/reward"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Status is the outcome of settling one record
type Status string

const (
	StatusSettled     Status = "settled"
	StatusRejected    Status = "rejected"
	StatusNeedsReview Status = "needs_review"
)

// KindConfigNotFound marks items whose campaign or config version does not exist
const KindConfigNotFound = "ConfigNotFound"

// ErrConfigNotFound is returned by a ConfigSource when no config version matches
var ErrConfigNotFound = errors.New("campaign config not found")

// BatchError lists the records that make a batch unsettleable. Nothing is computed or recorded.
type BatchError struct {
	Problems map[string]string
}

func (e *BatchError) Error() string {
	keys := make([]string, 0, len(e.Problems))
	for k := range e.Problems {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Problems[k]
	}
	return "invalid batch: " + strings.Join(parts, "; ")
}

// BatchExistsError is returned when the recorder already holds items for the batch id
type BatchExistsError struct {
	BatchID string
}

func (e *BatchExistsError) Error() string {
	return fmt.Sprintf("batch %s is already settled", e.BatchID)
}

// BatchChecker is implemented by recorders that can tell whether a batch id is taken
type BatchChecker interface {
	BatchExists(ctx context.Context, batchID string) (bool, error)
}

// DefaultWorkers bounds concurrent computations when Options.Workers is unset
const DefaultWorkers = 8

// ConfigSource resolves the config version a record settles against. Version 0 means latest.
type ConfigSource interface {
	ResolveConfig(ctx context.Context, campaignID string, version int) (reward.CampaignRewardConfig, error)
}

// Recorder persists an item once it has been settled
type Recorder interface {
	RecordItem(ctx context.Context, batchID string, item ItemResult) error
}

// Record is one creator's post to settle
type Record struct {
	RecordID      string                    `json:"record_id" yaml:"record_id"`
	CampaignID    string                    `json:"campaign_id" yaml:"campaign_id"`
	ConfigVersion int                       `json:"config_version,omitempty" yaml:"config_version,omitempty"`
	Snapshot      reward.EngagementSnapshot `json:"snapshot" yaml:"snapshot"`
}

// BatchRequest groups records settled together. An empty BatchID is generated.
type BatchRequest struct {
	BatchID string   `json:"batch_id,omitempty" yaml:"batch_id,omitempty"`
	Records []Record `json:"records" yaml:"records"`
}

// Validate checks what every record of a batch must satisfy before any of it is settled:
// records are present, record ids are set and unique, and config versions are not negative.
func (r BatchRequest) Validate() error {
	if len(r.Records) == 0 {
		return &BatchError{Problems: map[string]string{"records": "batch has no records"}}
	}

	problems := make(map[string]string)
	seen := make(map[string]int, len(r.Records))
	for i, rec := range r.Records {
		key := fmt.Sprintf("records[%d].record_id", i)
		if rec.RecordID == "" {
			problems[key] = "is required"
		} else if first, dup := seen[rec.RecordID]; dup {
			problems[key] = fmt.Sprintf("duplicates records[%d]", first)
		} else {
			seen[rec.RecordID] = i
		}
		if rec.ConfigVersion < 0 {
			problems[fmt.Sprintf("records[%d].config_version", i)] = "must be >= 0"
		}
	}

	if len(problems) > 0 {
		return &BatchError{Problems: problems}
	}
	return nil
}

// ItemResult is the itemized outcome for one record
type ItemResult struct {
	RecordID      string                  `json:"record_id"`
	CampaignID    string                  `json:"campaign_id"`
	ConfigVersion int                     `json:"config_version"`
	Status        Status                  `json:"status"`
	Breakdown     *reward.RewardBreakdown `json:"breakdown,omitempty"`
	ErrorKind     string                  `json:"error_kind,omitempty"`
	Field         string                  `json:"field,omitempty"`
	Message       string                  `json:"message,omitempty"`
}

// Payout returns the rounded payout, or zero when the record produced none
func (i ItemResult) Payout() decimal.Decimal {
	if i.Breakdown == nil {
		return decimal.Zero
	}
	return i.Breakdown.Payout
}

// BatchResult carries the items in request order and the batch totals
type BatchResult struct {
	BatchID       string          `json:"batch_id"`
	Items         []ItemResult    `json:"items"`
	Settled       int             `json:"settled"`
	Rejected      int             `json:"rejected"`
	NeedsReview   int             `json:"needs_review"`
	TotalPayout   decimal.Decimal `json:"total_payout"`
	PendingPayout decimal.Decimal `json:"pending_payout"`
}

// Options tunes a Settler
type Options struct {
	Workers int
	// DurationReviewThreshold holds back records whose duration multiplier exceeds it. Zero disables.
	DurationReviewThreshold float64
}

// Settler computes batches with a bounded worker pool
type Settler struct {
	source   ConfigSource
	recorder Recorder
	opts     Options
	logger   *monitoring.Logger
	metrics  *monitoring.Metrics
}

// NewSettler creates a Settler. recorder may be nil for dry runs.
func NewSettler(source ConfigSource, recorder Recorder, opts Options, logger *monitoring.Logger, metrics *monitoring.Metrics) *Settler {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if logger == nil {
		logger = monitoring.NewLogger()
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}

	return &Settler{
		source:   source,
		recorder: recorder,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
	}
}

// SettleBatch settles every record in req. A record whose snapshot or config is rejected becomes
// a rejected item. The batch fails before anything is recorded when req is malformed or its id
// is taken, and fails midway when ctx is done, a config cannot be read or an item cannot be recorded.
func (s *Settler) SettleBatch(ctx context.Context, req BatchRequest) (BatchResult, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return BatchResult{}, err
	}

	batchID := req.BatchID
	if batchID == "" {
		batchID = uuid.New().String()
	} else if checker, ok := s.recorder.(BatchChecker); ok {
		exists, err := checker.BatchExists(ctx, batchID)
		if err != nil {
			return BatchResult{}, fmt.Errorf("check batch %s: %w", batchID, err)
		}
		if exists {
			return BatchResult{}, &BatchExistsError{BatchID: batchID}
		}
	}

	items := make([]ItemResult, len(req.Records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for i, rec := range req.Records {
		if gctx.Err() != nil {
			break
		}

		i, rec := i, rec
		g.Go(func() error {
			item, err := s.settleRecord(gctx, rec)
			if err != nil {
				return err
			}

			if s.recorder != nil {
				if err := s.recorder.RecordItem(gctx, batchID, item); err != nil {
					return fmt.Errorf("record %s: %w", rec.RecordID, err)
				}
			}

			items[i] = item
			s.metrics.RecordSettlementItem(string(item.Status))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.metrics.RecordBatch(true)
		return BatchResult{}, fmt.Errorf("settle batch %s: %w", batchID, err)
	}
	if err := ctx.Err(); err != nil {
		s.metrics.RecordBatch(true)
		return BatchResult{}, fmt.Errorf("settle batch %s: %w", batchID, err)
	}

	result := summarize(batchID, items)
	s.metrics.RecordBatch(false)
	s.logger.SettlementLogger(batchID, len(items), result.Settled, result.Rejected, result.NeedsReview,
		result.TotalPayout.String(), time.Since(start))

	return result, nil
}

func (s *Settler) settleRecord(ctx context.Context, rec Record) (ItemResult, error) {
	item := ItemResult{
		RecordID:      rec.RecordID,
		CampaignID:    rec.CampaignID,
		ConfigVersion: rec.ConfigVersion,
	}

	config, err := s.source.ResolveConfig(ctx, rec.CampaignID, rec.ConfigVersion)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ItemResult{}, ctxErr
		}
		if errors.Is(err, ErrConfigNotFound) {
			return s.reject(item, KindConfigNotFound, "config_version", err.Error()), nil
		}
		return ItemResult{}, fmt.Errorf("resolve config for record %s: %w", rec.RecordID, err)
	}
	item.ConfigVersion = config.Version

	breakdown, err := reward.ComputeReward(config, rec.Snapshot)
	if err != nil {
		var rerr *reward.Error
		if errors.As(err, &rerr) {
			return s.reject(item, string(rerr.Kind), rerr.Field, rerr.Message), nil
		}
		return s.reject(item, string(reward.KindOf(err)), "", err.Error()), nil
	}

	item.Breakdown = &breakdown
	item.Status = StatusSettled
	if t := s.opts.DurationReviewThreshold; t > 0 && breakdown.DurationMultiplier > t {
		item.Status = StatusNeedsReview
		item.Message = fmt.Sprintf("duration multiplier %.4g exceeds review threshold %.4g", breakdown.DurationMultiplier, t)
	}

	s.metrics.RecordReward("")
	return item, nil
}

func (s *Settler) reject(item ItemResult, kind, field, message string) ItemResult {
	item.Status = StatusRejected
	item.ErrorKind = kind
	item.Field = field
	item.Message = message

	s.metrics.RecordReward(kind)
	s.logger.RewardErrorLogger(item.RecordID, item.CampaignID, kind, field, message)
	return item
}

func summarize(batchID string, items []ItemResult) BatchResult {
	result := BatchResult{
		BatchID:       batchID,
		Items:         items,
		TotalPayout:   decimal.Zero,
		PendingPayout: decimal.Zero,
	}

	for _, item := range items {
		switch item.Status {
		case StatusSettled:
			result.Settled++
			result.TotalPayout = result.TotalPayout.Add(item.Payout())
		case StatusNeedsReview:
			result.NeedsReview++
			result.PendingPayout = result.PendingPayout.Add(item.Payout())
		case StatusRejected:
			result.Rejected++
		}
	}

	return result
}
