// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/agora/database/plugin"
	"github.com/blinklabs-io/agora/database/types"
	_ "github.com/blinklabs-io/agora/database/plugin/blob"
	_ "github.com/blinklabs-io/agora/database/plugin/metadata"
	"github.com/blinklabs-io/agora/governance"
	"github.com/blinklabs-io/agora/oracle"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "agora.config"

const DefaultShutdownTimeout = "30s"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"
)

type tempConfig struct {
	Config   *yaml.Node      `yaml:"config,omitempty"`
	Database *databaseConfig `yaml:"database,omitempty"`
}

type databaseConfig struct {
	Blob     *pluginConfig `yaml:"blob,omitempty"`
	Metadata *pluginConfig `yaml:"metadata,omitempty"`
}

type pluginConfig struct {
	Plugin string `yaml:"plugin"`
	Dsn    string `yaml:"dsn"`
}

type OracleConfig struct {
	Url       string `yaml:"url"`
	CacheSize int    `yaml:"cacheSize" split_words:"true"`
	// CacheTtl of "0s" disables response caching
	CacheTtl string `yaml:"cacheTtl"  split_words:"true"`
}

// GovernanceConfig holds the parameters installed on a store that has none.
// An empty authority leaves initialization to the API.
type GovernanceConfig struct {
	Authority         string `yaml:"authority"`
	Quorum            string `yaml:"quorum"`
	VotingPeriod      string `yaml:"votingPeriod"      split_words:"true"`
	VotingDelay       string `yaml:"votingDelay"       split_words:"true"`
	TimelockDelay     string `yaml:"timelockDelay"     split_words:"true"`
	ProposalThreshold uint64 `yaml:"proposalThreshold" split_words:"true"`
}

// Params converts the configured values to governance parameters
func (g GovernanceConfig) Params() (governance.Params, error) {
	var ret governance.Params
	quorum, err := types.Uint256FromDecimal(g.Quorum)
	if err != nil {
		return ret, fmt.Errorf("invalid governance quorum: %w", err)
	}
	ret.Quorum = quorum
	ret.ProposalThreshold = g.ProposalThreshold
	durations := []struct {
		dest  *int64
		name  string
		value string
	}{
		{&ret.VotingPeriod, "votingPeriod", g.VotingPeriod},
		{&ret.VotingDelay, "votingDelay", g.VotingDelay},
		{&ret.TimelockDelay, "timelockDelay", g.TimelockDelay},
	}
	for _, d := range durations {
		val, err := time.ParseDuration(d.value)
		if err != nil {
			return ret, fmt.Errorf("invalid governance %s: %w", d.name, err)
		}
		*d.dest = int64(val / time.Second)
	}
	return ret, nil
}

type Config struct {
	Governance        GovernanceConfig        `yaml:"governance"`
	Oracle            OracleConfig            `yaml:"oracle"`
	Stake             map[string]oracle.Entry `yaml:"stake"                                                    ignored:"true"`
	DatabasePath      string                  `yaml:"databasePath"                                             split_words:"true"`
	BlobPlugin        string                  `yaml:"blobPlugin"        envconfig:"DATABASE_BLOB_PLUGIN"`
	MetadataPlugin    string                  `yaml:"metadataPlugin"    envconfig:"DATABASE_METADATA_PLUGIN"`
	MetadataDsn       string                  `yaml:"metadataDsn"       envconfig:"DATABASE_METADATA_DSN"`
	StakeFile         string                  `yaml:"stakeFile"                                                split_words:"true"`
	BindAddr          string                  `yaml:"bindAddr"                                                 split_words:"true"`
	ShutdownTimeout   string                  `yaml:"shutdownTimeout"                                          split_words:"true"`
	ApiPort           uint                    `yaml:"apiPort"                                                  split_words:"true"`
	MetricsPort       uint                    `yaml:"metricsPort"                                              split_words:"true"`
	VerifierCacheSize int                     `yaml:"verifierCacheSize"                                        split_words:"true"`
	Tracing           bool                    `yaml:"tracing"`
	TracingStdout     bool                    `yaml:"tracingStdout"                                            split_words:"true"`
}

var globalConfig = defaultConfig()

func defaultConfig() *Config {
	return &Config{
		Governance: GovernanceConfig{
			Quorum:        "0",
			VotingPeriod:  "168h",
			VotingDelay:   "0s",
			TimelockDelay: "48h",
		},
		Oracle: OracleConfig{
			CacheSize: oracle.DefaultCacheSize,
			CacheTtl:  oracle.DefaultCacheTTL.String(),
		},
		DatabasePath:    ".agora",
		BlobPlugin:      DefaultBlobPlugin,
		MetadataPlugin:  DefaultMetadataPlugin,
		BindAddr:        "0.0.0.0",
		ShutdownTimeout: DefaultShutdownTimeout,
		ApiPort:         8080,
		MetricsPort:     12799,
	}
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.agora/agora.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".agora", "agora.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/agora/agora.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/agora/agora.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		// First unmarshal into temp config to handle the database section
		var tempCfg tempConfig
		err = yaml.Unmarshal(buf, &tempCfg)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}

		// If config section exists, use it for main config
		if tempCfg.Config != nil {
			// Overlay config values onto existing defaults
			if err := tempCfg.Config.Decode(globalConfig); err != nil {
				return nil, fmt.Errorf("error parsing config section: %w", err)
			}
		} else {
			// Otherwise unmarshal the whole file as main config
			err = yaml.Unmarshal(buf, globalConfig)
			if err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}

		if db := tempCfg.Database; db != nil {
			if db.Blob != nil && db.Blob.Plugin != "" {
				globalConfig.BlobPlugin = db.Blob.Plugin
			}
			if db.Metadata != nil {
				if db.Metadata.Plugin != "" {
					globalConfig.MetadataPlugin = db.Metadata.Plugin
				}
				if db.Metadata.Dsn != "" {
					globalConfig.MetadataDsn = db.Metadata.Dsn
				}
			}
		}
	}
	// Process environment variables
	err := envconfig.Process("agora", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}

	if globalConfig.StakeFile != "" {
		entries, err := LoadStakeFile(globalConfig.StakeFile)
		if err != nil {
			return nil, err
		}
		if globalConfig.Stake == nil {
			globalConfig.Stake = entries
		} else {
			// Inline entries win over the stake file
			for principal, entry := range entries {
				if _, ok := globalConfig.Stake[principal]; !ok {
					globalConfig.Stake[principal] = entry
				}
			}
		}
	}

	if err := globalConfig.Validate(); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

// Validate checks values that can't be expressed through types alone
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdownTimeout: %w", err)
	}
	if c.Oracle.Url != "" {
		if _, err := time.ParseDuration(c.Oracle.CacheTtl); err != nil {
			return fmt.Errorf("invalid oracle cacheTtl: %w", err)
		}
		if len(c.Stake) > 0 {
			return errors.New("oracle url and static stake entries are mutually exclusive")
		}
	}
	if c.Governance.Authority != "" {
		if _, err := c.Governance.Params(); err != nil {
			return err
		}
	}
	if plugin.GetPlugin(plugin.PluginTypeBlob, c.BlobPlugin) == nil {
		return fmt.Errorf("unknown blob plugin: %q", c.BlobPlugin)
	}
	if plugin.GetPlugin(plugin.PluginTypeMetadata, c.MetadataPlugin) == nil {
		return fmt.Errorf("unknown metadata plugin: %q", c.MetadataPlugin)
	}
	if c.ApiPort == 0 {
		return errors.New("apiPort must be set")
	}
	return nil
}

// LoadStakeFile reads a YAML map of principal to stake entry
func LoadStakeFile(path string) (map[string]oracle.Entry, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading stake file: %w", err)
	}
	var entries map[string]oracle.Entry
	if err := yaml.Unmarshal(buf, &entries); err != nil {
		return nil, fmt.Errorf("error parsing stake file: %w", err)
	}
	return entries, nil
}

func GetConfig() *Config {
	return globalConfig
}
