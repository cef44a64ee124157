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

package oracle

import (
	"context"
	"sync"
)

// Entry is the identity data held for one principal
type Entry struct {
	Stake      uint64 `yaml:"stake"      json:"stake"`
	Reputation uint64 `yaml:"reputation" json:"reputation"`
	Tier       uint8  `yaml:"tier"       json:"tier"`
}

// Static serves stake, reputation and tier from memory. Unknown principals
// have zero stake, zero reputation and tier 0.
type Static struct {
	entries map[string]Entry
	mu      sync.RWMutex
}

// NewStatic creates a Static oracle seeded with entries
func NewStatic(entries map[string]Entry) *Static {
	s := &Static{
		entries: make(map[string]Entry, len(entries)),
	}
	for k, v := range entries {
		s.entries[k] = v
	}
	return s
}

// Set replaces the entry for principal
func (s *Static) Set(principal string, entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[principal] = entry
}

// SetStake updates the stake of principal
func (s *Static) SetStake(principal string, stake uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.entries[principal]
	entry.Stake = stake
	s.entries[principal] = entry
}

func (s *Static) get(principal string) Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[principal]
}

func (s *Static) BalanceOf(_ context.Context, principal string) (uint64, error) {
	return s.get(principal).Stake, nil
}

func (s *Static) ScoreOf(_ context.Context, principal string) (uint64, error) {
	return s.get(principal).Reputation, nil
}

func (s *Static) TierOf(_ context.Context, principal string) (uint8, error) {
	return s.get(principal).Tier, nil
}
