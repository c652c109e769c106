// Package config loads deployment configuration from PKL or JSON files.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apple/pkl-go/pkl"
)

// Environment variables that override file-based configuration.
const (
	EnvRegion       = "RELISH_REGION"
	EnvAccountID    = "RELISH_ACCOUNT_ID"
	EnvDeployBucket = "RELISH_DEPLOY_BUCKET"
	EnvProfile      = "RELISH_PROFILE"
)

// DefaultRecordDir is where deployment records are kept when no record
// backend is configured.
const DefaultRecordDir = ".relish"

// Config is the top-level deployment configuration.
type Config struct {
	Region       string       `pkl:"region" json:"region"`
	AccountID    string       `pkl:"accountId" json:"account_id"`
	DeployBucket string       `pkl:"deployBucket" json:"deploy_bucket"`
	Profile      string       `pkl:"profile" json:"profile"`
	Record       RecordConfig `pkl:"record" json:"record"`
}

// RecordConfig selects where deployment records are persisted. When
// S3Bucket is set records go to S3, otherwise to a local directory.
type RecordConfig struct {
	Dir      string `pkl:"dir" json:"dir"`
	S3Bucket string `pkl:"s3Bucket" json:"s3_bucket"`
	S3Prefix string `pkl:"s3Prefix" json:"s3_prefix"`
}

// Load reads configuration from path, dispatching on the file extension.
// Environment overrides are applied after the file is parsed.
func Load(ctx context.Context, path string) (*Config, error) {
	var cfg Config

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pkl":
		if err := loadPKL(ctx, path, &cfg); err != nil {
			return nil, err
		}
	case ".json":
		if err := loadJSON(path, &cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (want .pkl or .json)", ext)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadPKL(ctx context.Context, path string, cfg *Config) error {
	evaluator, err := pkl.NewEvaluator(ctx, pkl.PreconfiguredOptions)
	if err != nil {
		return fmt.Errorf("failed to create PKL evaluator: %w", err)
	}
	defer evaluator.Close()

	if err := evaluator.EvaluateModule(ctx, pkl.FileSource(path), cfg); err != nil {
		return fmt.Errorf("failed to evaluate config: %w", err)
	}

	return nil
}

func loadJSON(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	return nil
}

// applyEnv overlays RELISH_* environment variables on the loaded values.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvRegion); v != "" {
		c.Region = v
	}
	if v := os.Getenv(EnvAccountID); v != "" {
		c.AccountID = v
	}
	if v := os.Getenv(EnvDeployBucket); v != "" {
		c.DeployBucket = v
	}
	if v := os.Getenv(EnvProfile); v != "" {
		c.Profile = v
	}
}

// Validate checks that the fields every deployment needs are present.
func (c *Config) Validate() error {
	var missing []string
	if c.Region == "" {
		missing = append(missing, "region")
	}
	if c.AccountID == "" {
		missing = append(missing, "account_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config is missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// RecordDir returns the directory for local record storage.
func (c *Config) RecordDir() string {
	if c.Record.Dir != "" {
		return c.Record.Dir
	}
	return DefaultRecordDir
}
