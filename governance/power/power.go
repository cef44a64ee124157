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

// Package power computes voting weight from stake, reputation and tier.
//
// The computation is integer-only so that every node derives the same weight
// for the same inputs:
//
//	base  = isqrt(stake)
//	boost = 1000 + reputation/10            (1.0x .. 2.0x)
//	tier  = {1000, 1000, 2000, 5000, 10000} (1.0x .. 10.0x)
//	raw   = base * boost * tier / 1_000_000
//
// Weight above ConcentrationThreshold grows with the square root of the
// excess.
package power

import (
	"github.com/holiman/uint256"
)

const (
	// MaxReputation is the top of the reputation score scale
	MaxReputation uint64 = 10000
	// MaxTier is the highest staking tier
	MaxTier uint8 = 4
	// ConcentrationThreshold is the raw weight above which returns diminish
	ConcentrationThreshold uint64 = 1_000_000

	fixedPointScale   = 1_000_000
	baseBoost         = 1000
	reputationDivisor = 10
)

var tierMultipliers = [MaxTier + 1]uint64{1000, 1000, 2000, 5000, 10000}

// ISqrt returns floor(sqrt(n)) using Newton's method
func ISqrt(n uint64) uint64 {
	if n < 2 {
		return n
	}
	x := n
	// (n + n/n) / 2 without overflowing at MaxUint64
	y := n/2 + n&1
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}

// ReputationBoost returns the fixed-point reputation multiplier. Scores above
// MaxReputation are clamped.
func ReputationBoost(reputation uint64) uint64 {
	return baseBoost + min(reputation, MaxReputation)/reputationDivisor
}

// TierMultiplier returns the fixed-point tier multiplier. Tiers above MaxTier
// are clamped.
func TierMultiplier(tier uint8) uint64 {
	return tierMultipliers[min(tier, MaxTier)]
}

// Raw returns the weight before diminishing returns are applied
func Raw(stake uint64, reputation uint64, tier uint8) uint64 {
	// The product can exceed 64 bits before the final division
	product := uint256.NewInt(ISqrt(stake))
	product.Mul(product, uint256.NewInt(ReputationBoost(reputation)))
	product.Mul(product, uint256.NewInt(TierMultiplier(tier)))
	product.Div(product, uint256.NewInt(fixedPointScale))
	// isqrt(2^64) * 2000 * 10000 / 10^6 fits easily in 64 bits
	return product.Uint64()
}

// Diminish applies diminishing returns above ConcentrationThreshold
func Diminish(raw uint64) uint64 {
	if raw <= ConcentrationThreshold {
		return raw
	}
	return ConcentrationThreshold + ISqrt(raw-ConcentrationThreshold)
}

// VotingPower returns the effective vote weight for the given inputs
func VotingPower(stake uint64, reputation uint64, tier uint8) uint64 {
	return Diminish(Raw(stake, reputation, tier))
}
