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

// Package plugin holds the registry of storage backends. Metadata and blob
// store implementations register themselves from init() and are selected by
// name at startup.
package plugin

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type PluginType int

const (
	PluginTypeMetadata PluginType = 1
	PluginTypeBlob     PluginType = 2
)

func PluginTypeName(pluginType PluginType) string {
	switch pluginType {
	case PluginTypeMetadata:
		return "metadata"
	case PluginTypeBlob:
		return "blob"
	default:
		return "unknown"
	}
}

// Plugin is a started storage backend
type Plugin interface {
	Close() error
}

// Options carries the settings common to every storage backend. Backends
// ignore the fields that don't apply to them.
type Options struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	// DataDir is the on-disk location. An empty value selects an in-memory store
	// where the backend supports it.
	DataDir string
	// DSN is the connection string for network databases
	DSN string
}

type PluginEntry struct {
	NewFunc     func(Options) (Plugin, error)
	Name        string
	Description string
	Type        PluginType
}

var (
	pluginEntries      []PluginEntry
	pluginEntriesMutex sync.RWMutex
)

// Register adds a plugin to the registry, replacing any existing entry with
// the same type and name
func Register(entry PluginEntry) {
	pluginEntriesMutex.Lock()
	defer pluginEntriesMutex.Unlock()
	pluginEntries = slices.DeleteFunc(
		pluginEntries,
		func(p PluginEntry) bool {
			return p.Type == entry.Type && p.Name == entry.Name
		},
	)
	pluginEntries = append(pluginEntries, entry)
}

// GetPlugins returns the registered plugins of a type sorted by name
func GetPlugins(pluginType PluginType) []PluginEntry {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	ret := []PluginEntry{}
	for _, p := range pluginEntries {
		if p.Type == pluginType {
			ret = append(ret, p)
		}
	}
	slices.SortFunc(ret, func(a, b PluginEntry) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		default:
			return 0
		}
	})
	return ret
}

// GetPlugin returns the registered plugin entry with the given type and name, or nil
func GetPlugin(pluginType PluginType, pluginName string) *PluginEntry {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for _, p := range pluginEntries {
		if p.Type == pluginType && p.Name == pluginName {
			tmp := p
			return &tmp
		}
	}
	return nil
}

// StartPlugin looks up a plugin in the registry and creates an instance of it
func StartPlugin(
	pluginType PluginType,
	pluginName string,
	opts Options,
) (Plugin, error) {
	entry := GetPlugin(pluginType, pluginName)
	if entry == nil {
		return nil, fmt.Errorf(
			"%s plugin '%s' not found",
			PluginTypeName(pluginType),
			pluginName,
		)
	}
	p, err := entry.NewFunc(opts)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to start %s plugin '%s': %w",
			PluginTypeName(pluginType),
			pluginName,
			err,
		)
	}
	return p, nil
}
