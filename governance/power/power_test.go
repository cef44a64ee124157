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

package power_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/blinklabs-io/agora/governance/power"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkISqrt(t *testing.T, n uint64) {
	t.Helper()
	r := power.ISqrt(n)
	// r^2 <= n
	require.LessOrEqual(t, r, uint64(math.MaxUint32), "n=%d", n)
	require.LessOrEqual(t, r*r, n, "n=%d", n)
	// n < (r+1)^2, which only overflows when r+1 == 2^32
	if r < math.MaxUint32 {
		require.Less(t, n, (r+1)*(r+1), "n=%d", n)
	}
}

func TestISqrt(t *testing.T) {
	assert.Equal(t, uint64(0), power.ISqrt(0))
	assert.Equal(t, uint64(1), power.ISqrt(1))
	assert.Equal(t, uint64(1), power.ISqrt(3))
	assert.Equal(t, uint64(2), power.ISqrt(4))
	assert.Equal(t, uint64(6000), power.ISqrt(36_000_000))
	assert.Equal(t, uint64(math.MaxUint32), power.ISqrt(math.MaxUint64))
	for n := uint64(0); n < 10000; n++ {
		checkISqrt(t, n)
	}
	rng := rand.New(rand.NewSource(1))
	for range 10000 {
		checkISqrt(t, rng.Uint64())
	}
	// Perfect squares and their neighbours
	for _, r := range []uint64{2, 1000, 65535, 65536, 1 << 31, math.MaxUint32} {
		sq := r * r
		assert.Equal(t, r, power.ISqrt(sq))
		assert.Equal(t, r-1, power.ISqrt(sq-1))
		checkISqrt(t, sq+1)
	}
}

func TestMultipliers(t *testing.T) {
	assert.Equal(t, uint64(1000), power.ReputationBoost(0))
	assert.Equal(t, uint64(1500), power.ReputationBoost(5000))
	assert.Equal(t, uint64(2000), power.ReputationBoost(10000))
	assert.Equal(t, uint64(2000), power.ReputationBoost(99999))

	expected := []uint64{1000, 1000, 2000, 5000, 10000}
	for tier, mult := range expected {
		assert.Equal(t, mult, power.TierMultiplier(uint8(tier))) //nolint:gosec
	}
	assert.Equal(t, uint64(10000), power.TierMultiplier(200))
}

func TestVotingPowerExamples(t *testing.T) {
	testDefs := []struct {
		name       string
		stake      uint64
		reputation uint64
		tier       uint8
		expected   uint64
	}{
		{name: "zero stake", stake: 0, reputation: 10000, tier: 4, expected: 0},
		{name: "base only", stake: 36_000_000, expected: 6000},
		{name: "floor sqrt", stake: 99, expected: 9},
		{name: "reputation boost", stake: 1_000_000, reputation: 5000, expected: 1500},
		{name: "tier boost", stake: 1_000_000, tier: 3, expected: 5000},
		{name: "fractional result truncated", stake: 1, reputation: 10, tier: 0, expected: 1},
		{
			// raw = 10^6 * 2000 * 10000 / 10^6 = 2 * 10^7
			name:       "diminished",
			stake:      1_000_000_000_000,
			reputation: 10000,
			tier:       4,
			expected:   1_000_000 + power.ISqrt(19_000_000),
		},
		{
			name:     "at threshold",
			stake:    1_000_000_000_000,
			expected: 1_000_000,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			assert.Equal(
				t,
				testDef.expected,
				power.VotingPower(testDef.stake, testDef.reputation, testDef.tier),
			)
		})
	}
}

func TestVotingPowerNoOverflow(t *testing.T) {
	raw := power.Raw(math.MaxUint64, power.MaxReputation, power.MaxTier)
	// isqrt(MaxUint64) * 2000 * 10000 / 10^6
	assert.Equal(t, uint64(math.MaxUint32)*20, raw)
	assert.Greater(t, power.VotingPower(math.MaxUint64, power.MaxReputation, power.MaxTier), power.ConcentrationThreshold)
}

func TestVotingPowerMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for range 5000 {
		b1 := rng.Uint64() >> rng.Intn(64)
		b2 := rng.Uint64() >> rng.Intn(64)
		if b1 > b2 {
			b1, b2 = b2, b1
		}
		rep := uint64(rng.Intn(10001))
		tier := uint8(rng.Intn(5)) //nolint:gosec
		require.LessOrEqual(
			t,
			power.VotingPower(b1, rep, tier),
			power.VotingPower(b2, rep, tier),
			"b1=%d b2=%d rep=%d tier=%d", b1, b2, rep, tier,
		)
	}
	// Sequential stakes around the threshold
	var prev uint64
	for stake := uint64(999_000_000_000); stake < 999_000_100_000; stake += 7 {
		cur := power.VotingPower(stake, 0, 0)
		require.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestDiminishBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	check := func(raw uint64) {
		d := power.Diminish(raw)
		require.Less(t, d, raw, "raw=%d", raw)
		require.GreaterOrEqual(t, d, power.ConcentrationThreshold, "raw=%d", raw)
	}
	check(power.ConcentrationThreshold + 1)
	check(power.ConcentrationThreshold + 2)
	check(math.MaxUint64)
	for range 5000 {
		raw := power.ConcentrationThreshold + 1 + rng.Uint64()%(math.MaxUint64-power.ConcentrationThreshold)
		check(raw)
	}
	// At or below the threshold the weight is unchanged
	assert.Equal(t, power.ConcentrationThreshold, power.Diminish(power.ConcentrationThreshold))
	assert.Equal(t, uint64(42), power.Diminish(42))
}
