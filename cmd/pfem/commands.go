package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/buildersacademyai/prompto-sub000/internal/database"
	apperrors "github.com/buildersacademyai/prompto-sub000/internal/errors"
	"github.com/buildersacademyai/prompto-sub000/internal/monitoring"
	"github.com/buildersacademyai/prompto-sub000/internal/reward"
	"github.com/buildersacademyai/prompto-sub000/internal/security"
	"github.com/buildersacademyai/prompto-sub000/internal/settlement"
	"github.com/urfave/cli/v2"
)

const exitRejected = 3

func logger(c *cli.Context) *monitoring.Logger {
	return monitoring.NewLoggerTo(c.App.ErrWriter, monitoring.ParseLevel(c.String("log-level")))
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func computeAction(c *cli.Context) error {
	config, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	snapshot, err := loadSnapshot(c.String("snapshot"))
	if err != nil {
		return err
	}

	breakdown, err := reward.ComputeReward(config, snapshot)
	if err != nil {
		var rerr *reward.Error
		if errors.As(err, &rerr) {
			return cli.Exit(rerr.Error(), exitRejected)
		}
		return err
	}

	return writeJSON(c.App.Writer, breakdown)
}

func settleAction(c *cli.Context) error {
	batch, err := loadBatch(c.String("records"))
	if err != nil {
		return err
	}
	if id := c.String("batch-id"); id != "" {
		batch.BatchID = id
	}

	var (
		source   settlement.ConfigSource
		recorder settlement.Recorder
	)
	switch {
	case c.String("data-dir") != "":
		db, err := database.NewDB(c.String("data-dir"))
		if err != nil {
			return err
		}
		defer apperrors.SafeClose(db, "database")

		repo := database.NewRepository(db)
		source, recorder = repo, repo
	case c.String("campaigns") != "":
		static, err := loadCampaigns(c.String("campaigns"))
		if err != nil {
			return err
		}
		source = static
	default:
		return cli.Exit("settle needs --campaigns or --data-dir", 1)
	}

	settler := settlement.NewSettler(source, recorder, settlement.Options{
		Workers:                 c.Int("workers"),
		DurationReviewThreshold: c.Float64("review-threshold"),
	}, logger(c), monitoring.NewMetrics())

	result, err := settler.SettleBatch(c.Context, batch)
	if err != nil {
		return err
	}

	if err := writeJSON(c.App.Writer, result); err != nil {
		return err
	}
	if c.Bool("strict") && result.Rejected > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d records rejected", result.Rejected, len(result.Items)), exitRejected)
	}
	return nil
}

func publishAction(c *cli.Context) error {
	config, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}

	db, err := database.NewDB(c.String("data-dir"))
	if err != nil {
		return err
	}
	defer apperrors.SafeClose(db, "database")

	cv, err := database.NewConfigService(database.NewRepository(db)).Publish(c.Context, c.String("campaign-id"), config)
	if err != nil {
		return err
	}

	logger(c).Info("Config Published", "campaign_id", cv.CampaignID, "version", cv.Version)
	return writeJSON(c.App.Writer, cv)
}

func tokenAction(c *cli.Context) error {
	auth, err := security.NewOperatorAuth(c.String("secret"), logger(c))
	if err != nil {
		return err
	}

	token, err := auth.IssueToken(c.String("operator"), c.Duration("ttl"))
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(c.App.Writer, token)
	return err
}
