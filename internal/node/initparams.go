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


package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/blinklabs-io/agora/database"
	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/governance"
	"github.com/blinklabs-io/agora/internal/config"
	"github.com/blinklabs-io/agora/oracle"
)

// InitParams installs the configured governance parameters into the
// configured database without starting the service. It fails with
// governance.ErrAlreadyExists if the store already holds parameters.
func InitParams(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (*models.GovernanceParams, error) {
	if cfg.Governance.Authority == "" {
		return nil, errors.New("no governance authority configured")
	}
	params, err := cfg.Governance.Params()
	if err != nil {
		return nil, err
	}
	db, err := database.New(&database.Config{
		DataDir:        cfg.DatabasePath,
		Logger:         logger,
		BlobPlugin:     cfg.BlobPlugin,
		MetadataPlugin: cfg.MetadataPlugin,
		MetadataDSN:    cfg.MetadataDsn,
	})
	if db != nil {
		defer db.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	engine, err := governance.NewEngine(governance.EngineConfig{
		Logger:   logger,
		Database: db,
		Collaborators: governance.Collaborators{
			Stake: oracle.NewStatic(cfg.Stake),
		},
	})
	if err != nil {
		return nil, err
	}
	return engine.InitializeParams(ctx, cfg.Governance.Authority, params)
}
