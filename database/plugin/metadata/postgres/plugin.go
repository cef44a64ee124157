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

package postgres

import (
	"github.com/blinklabs-io/agora/database/plugin"
)

// Register plugin
func init() {
	plugin.Register(
		plugin.PluginEntry{
			Type:        plugin.PluginTypeMetadata,
			Name:        "postgres",
			Description: "Postgres relational database",
			NewFunc:     NewFromOptions,
		},
	)
}

// NewFromOptions creates a store from the common plugin options
func NewFromOptions(opts plugin.Options) (plugin.Plugin, error) {
	return NewWithOptions(
		WithDSN(opts.DSN),
		WithLogger(opts.Logger),
		WithPromRegistry(opts.PromRegistry),
	)
}
