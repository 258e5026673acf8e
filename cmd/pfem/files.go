package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/buildersacademyai/prompto-sub000/internal/reward"
	"github.com/buildersacademyai/prompto-sub000/internal/settlement"
	"gopkg.in/yaml.v3"
)

// campaignsFile lists every config version a batch may settle against
type campaignsFile struct {
	Campaigns []reward.CampaignRewardConfig `json:"campaigns" yaml:"campaigns"`
}

// decodeFile reads path as YAML or JSON depending on its extension
func decodeFile(path string, v interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, v)
	case ".json":
		err = json.Unmarshal(raw, v)
	default:
		return fmt.Errorf("%s: unsupported file type, use .yaml, .yml or .json", path)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func loadConfig(path string) (reward.CampaignRewardConfig, error) {
	var config reward.CampaignRewardConfig
	err := decodeFile(path, &config)
	return config, err
}

func loadSnapshot(path string) (reward.EngagementSnapshot, error) {
	var snapshot reward.EngagementSnapshot
	err := decodeFile(path, &snapshot)
	return snapshot, err
}

func loadCampaigns(path string) (settlement.StaticSource, error) {
	var file campaignsFile
	if err := decodeFile(path, &file); err != nil {
		return nil, err
	}
	if len(file.Campaigns) == 0 {
		return nil, fmt.Errorf("%s: no campaigns", path)
	}

	for i, c := range file.Campaigns {
		if c.CampaignID == "" {
			return nil, fmt.Errorf("%s: campaigns[%d] has no campaign_id", path, i)
		}
	}
	return settlement.NewStaticSource(file.Campaigns...), nil
}

func loadBatch(path string) (settlement.BatchRequest, error) {
	var batch settlement.BatchRequest
	if err := decodeFile(path, &batch); err != nil {
		return batch, err
	}
	if len(batch.Records) == 0 {
		return batch, fmt.Errorf("%s: no records", path)
	}
	return batch, nil
}
