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


package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/blinklabs-io/agora/internal/config"
	"github.com/blinklabs-io/agora/internal/node"
	"github.com/spf13/cobra"
)

func initParamsRun(cmd *cobra.Command, cfg *config.Config, authority string) error {
	if authority != "" {
		cfg.Governance.Authority = authority
	}
	params, err := node.InitParams(cmd.Context(), cfg, slog.Default())
	if err != nil {
		return err
	}
	fmt.Fprintf(
		cmd.OutOrStdout(),
		"initialized governance parameters: authority=%s quorum=%s proposalThreshold=%d votingPeriod=%ds votingDelay=%ds timelockDelay=%ds\n",
		params.Authority,
		params.Quorum.String(),
		params.ProposalThreshold,
		params.VotingPeriod,
		params.VotingDelay,
		params.TimelockDelay,
	)
	return nil
}

func initParamsCommand() *cobra.Command {
	var authority string
	cmd := &cobra.Command{
		Use:   "init-params",
		Short: "Initialize governance parameters from the config without serving",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			commonRun()
			return initParamsRun(cmd, cfg, authority)
		},
	}
	cmd.Flags().
		StringVar(&authority, "authority", "", "governance authority, overrides governance.authority from the config")
	return cmd
}
