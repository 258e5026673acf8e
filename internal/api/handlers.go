package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/buildersacademyai/prompto-sub000/internal/database"
	apperrors "github.com/buildersacademyai/prompto-sub000/internal/errors"
	"github.com/buildersacademyai/prompto-sub000/internal/reward"
	"github.com/buildersacademyai/prompto-sub000/internal/security"
	"github.com/buildersacademyai/prompto-sub000/internal/settlement"
	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// ComputeRequest is a one-off reward computation against an inline config
type ComputeRequest struct {
	RecordID string                      `json:"record_id,omitempty"`
	Config   reward.CampaignRewardConfig `json:"config"`
	Snapshot reward.EngagementSnapshot   `json:"snapshot"`
}

// ComputeResponse carries the full breakdown so a payout can be audited
type ComputeResponse struct {
	RecordID  string                 `json:"record_id,omitempty"`
	Breakdown reward.RewardBreakdown `json:"breakdown"`
}

// BatchReport is a stored batch with its totals
type BatchReport struct {
	Summary *database.BatchSummary `json:"summary"`
	Items   []database.Settlement  `json:"items"`
}

// health godoc
// @Summary Service health
// @Tags ops
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status, code := "ok", http.StatusOK
	checks := gin.H{"database": "ok", "redis": "disabled"}

	if err := s.db.PingContext(ctx); err != nil {
		status, code = "unavailable", http.StatusServiceUnavailable
		checks["database"] = err.Error()
	}

	// Redis only backs rate limiting, which falls back to memory
	if s.redis.IsEnabled() {
		checks["redis"] = "ok"
		if err := s.redis.HealthCheck(ctx); err != nil {
			checks["redis"] = err.Error()
			if code == http.StatusOK {
				status = "degraded"
			}
		}
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"version":   s.opts.Version,
		"checks":    checks,
	})
}

// @Summary Request, reward and rate limit counters
// @Tags ops
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /metrics [get]
func (s *Server) metricsStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.GetStats())
}

// @Summary Response cache statistics
// @Tags ops
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /cache/stats [get]
func (s *Server) cacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.cache.Stats())
}

func (s *Server) compressionStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.compression.Stats().GetStats())
}

func (s *Server) databasePoolStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pool": "database", "stats": s.db.GetPoolStats()})
}

func (s *Server) redisPoolStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pool": "redis", "stats": s.redis.GetPoolStats()})
}

// computeReward godoc
// @Summary Compute a reward
// @Description Pure computation against an inline config. Identical bodies are served from cache.
// @Tags rewards
// @Accept json
// @Produce json
// @Param request body ComputeRequest true "Config and engagement snapshot"
// @Success 200 {object} ComputeResponse
// @Failure 400 {object} apperrors.AppError
// @Failure 422 {object} apperrors.AppError
// @Failure 429 {object} apperrors.AppError
// @Router /v1/rewards/compute [post]
func (s *Server) computeReward(c *gin.Context) {
	start := time.Now()

	var req ComputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, apperrors.NewValidationError("invalid request body", err.Error()))
		return
	}

	breakdown, err := reward.ComputeReward(req.Config, req.Snapshot)
	if err != nil {
		s.metrics.RecordReward(string(reward.KindOf(err)))

		var rerr *reward.Error
		if errors.As(err, &rerr) {
			s.logger.RewardErrorLogger(req.RecordID, req.Config.CampaignID, string(rerr.Kind), rerr.Field, rerr.Message)
			s.fail(c, apperrors.NewRewardError(rerr, req.RecordID))
			return
		}
		s.fail(c, apperrors.ToAppError(err))
		return
	}

	s.metrics.RecordReward("")
	s.logger.RewardLogger(req.Config.CampaignID, req.Config.Version, string(req.Snapshot.Platform),
		breakdown.TotalReward, breakdown.Payout.String(), time.Since(start), false)

	c.JSON(http.StatusOK, ComputeResponse{RecordID: req.RecordID, Breakdown: breakdown})
}

// publishConfig godoc
// @Summary Publish a campaign config version
// @Description Stores the config as the campaign's next version. Earlier versions are never changed.
// @Tags campaigns
// @Accept json
// @Produce json
// @Security OperatorToken
// @Param campaignId path string true "Campaign ID"
// @Param config body reward.CampaignRewardConfig true "Reward config"
// @Success 201 {object} database.ConfigVersion
// @Failure 401 {object} apperrors.AppError
// @Failure 422 {object} apperrors.AppError
// @Router /v1/campaigns/{campaignId}/configs [post]
func (s *Server) publishConfig(c *gin.Context) {
	campaignID, ok := s.campaignParam(c)
	if !ok {
		return
	}

	var config reward.CampaignRewardConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		s.fail(c, apperrors.NewValidationError("invalid config body", err.Error()))
		return
	}

	cv, err := s.configs.Publish(c.Request.Context(), campaignID, config)
	if err != nil {
		s.fail(c, apperrors.ToAppError(err))
		return
	}

	s.logger.Info("Config Published",
		"campaign_id", cv.CampaignID,
		"version", cv.Version,
		"operator", c.GetString(security.OperatorContextKey),
	)
	c.JSON(http.StatusCreated, cv)
}

// listConfigs godoc
// @Summary List every config version of a campaign
// @Tags campaigns
// @Produce json
// @Param campaignId path string true "Campaign ID"
// @Success 200 {array} database.ConfigVersion
// @Failure 404 {object} apperrors.AppError
// @Router /v1/campaigns/{campaignId}/configs [get]
func (s *Server) listConfigs(c *gin.Context) {
	campaignID, ok := s.campaignParam(c)
	if !ok {
		return
	}

	history, err := s.configs.History(c.Request.Context(), campaignID)
	if err != nil {
		s.fail(c, apperrors.ToAppError(err))
		return
	}
	if len(history) == 0 {
		s.fail(c, apperrors.NewNotFoundError("campaign", campaignID))
		return
	}

	c.JSON(http.StatusOK, history)
}

// latestConfig godoc
// @Summary Current config of a campaign
// @Tags campaigns
// @Produce json
// @Param campaignId path string true "Campaign ID"
// @Success 200 {object} database.ConfigVersion
// @Failure 404 {object} apperrors.AppError
// @Router /v1/campaigns/{campaignId}/configs/latest [get]
func (s *Server) latestConfig(c *gin.Context) {
	campaignID, ok := s.campaignParam(c)
	if !ok {
		return
	}

	cv, err := s.configs.Latest(c.Request.Context(), campaignID)
	if errors.Is(err, database.ErrNotFound) {
		s.fail(c, apperrors.NewNotFoundError("campaign", campaignID))
		return
	}
	if err != nil {
		s.fail(c, apperrors.ToAppError(err))
		return
	}

	c.JSON(http.StatusOK, cv)
}

// getConfig godoc
// @Summary One historical config version
// @Tags campaigns
// @Produce json
// @Param campaignId path string true "Campaign ID"
// @Param version path int true "Config version"
// @Success 200 {object} database.ConfigVersion
// @Failure 400 {object} apperrors.AppError
// @Failure 404 {object} apperrors.AppError
// @Router /v1/campaigns/{campaignId}/configs/{version} [get]
func (s *Server) getConfig(c *gin.Context) {
	campaignID, ok := s.campaignParam(c)
	if !ok {
		return
	}

	version, err := strconv.Atoi(c.Param("version"))
	if err != nil || version <= 0 {
		s.fail(c, apperrors.NewValidationError("version must be a positive integer", c.Param("version")))
		return
	}

	cv, err := s.configs.Version(c.Request.Context(), campaignID, version)
	if errors.Is(err, database.ErrNotFound) {
		s.fail(c, apperrors.NewNotFoundError("config", fmt.Sprintf("%s@%d", campaignID, version)))
		return
	}
	if err != nil {
		s.fail(c, apperrors.ToAppError(err))
		return
	}

	c.JSON(http.StatusOK, cv)
}

// settleBatch godoc
// @Summary Settle a batch of engagement records
// @Description Each record settles against its stored campaign config. Invalid records are rejected
// @Description individually; the batch itself only fails on timeout or storage errors.
// @Tags settlements
// @Accept json
// @Produce json
// @Security OperatorToken
// @Param batch body settlement.BatchRequest true "Records to settle"
// @Success 200 {object} settlement.BatchResult
// @Failure 400 {object} apperrors.AppError
// @Failure 401 {object} apperrors.AppError
// @Failure 409 {object} apperrors.AppError
// @Router /v1/settlements [post]
func (s *Server) settleBatch(c *gin.Context) {
	var req settlement.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, apperrors.NewValidationError("invalid batch body", err.Error()))
		return
	}

	if appErr := s.validateBatch(req); appErr != nil {
		s.fail(c, appErr)
		return
	}

	result, err := s.settler.SettleBatch(c.Request.Context(), req)
	if err != nil {
		s.fail(c, apperrors.ToAppError(err))
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) validateBatch(req settlement.BatchRequest) *apperrors.AppError {
	if len(req.Records) == 0 {
		return apperrors.NewValidationError("batch has no records")
	}
	if len(req.Records) > s.opts.MaxBatchRecords {
		return apperrors.NewValidationError(
			fmt.Sprintf("batch has %d records, the limit is %d", len(req.Records), s.opts.MaxBatchRecords))
	}
	if req.BatchID != "" {
		if err := s.security.ValidateIdentifier("batch_id", req.BatchID); err != nil {
			return apperrors.NewValidationError(err.Error())
		}
	}

	invalid := make(map[string]string)
	var batchErr *settlement.BatchError
	if errors.As(req.Validate(), &batchErr) {
		for field, problem := range batchErr.Problems {
			invalid[field] = problem
		}
	}
	for i, rec := range req.Records {
		field := fmt.Sprintf("records[%d].record_id", i)
		if _, ok := invalid[field]; !ok {
			if err := s.security.ValidateIdentifier("record_id", rec.RecordID); err != nil {
				invalid[field] = err.Error()
			}
		}
		if err := s.security.ValidateIdentifier("campaign_id", rec.CampaignID); err != nil {
			invalid[fmt.Sprintf("records[%d].campaign_id", i)] = err.Error()
		}
	}
	if len(invalid) > 0 {
		return apperrors.NewValidationErrorWithMap(invalid)
	}

	return nil
}

// getSettlement godoc
// @Summary Itemized results of a stored batch
// @Tags settlements
// @Produce json
// @Param batchId path string true "Batch ID"
// @Success 200 {object} BatchReport
// @Failure 404 {object} apperrors.AppError
// @Router /v1/settlements/{batchId} [get]
func (s *Server) getSettlement(c *gin.Context) {
	batchID := c.Param("batchId")
	if err := s.security.ValidateIdentifier("batch_id", batchID); err != nil {
		s.fail(c, apperrors.NewValidationError(err.Error()))
		return
	}

	ctx := c.Request.Context()
	summary, err := s.repo.SummarizeBatch(ctx, batchID)
	if errors.Is(err, database.ErrNotFound) {
		s.fail(c, apperrors.NewNotFoundError("batch", batchID))
		return
	}
	if err != nil {
		s.fail(c, apperrors.ToAppError(err))
		return
	}

	items, err := s.repo.ListSettlementsByBatch(ctx, batchID)
	if err != nil {
		s.fail(c, apperrors.ToAppError(err))
		return
	}

	c.JSON(http.StatusOK, BatchReport{Summary: summary, Items: items})
}

func (s *Server) campaignParam(c *gin.Context) (string, bool) {
	campaignID := c.Param("campaignId")
	if err := s.security.ValidateIdentifier("campaign_id", campaignID); err != nil {
		s.fail(c, apperrors.NewValidationError(err.Error()))
		return "", false
	}
	return campaignID, true
}
