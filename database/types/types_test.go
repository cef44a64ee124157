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

package types_test

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/blinklabs-io/agora/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypesScanValue(t *testing.T) {
	testDefs := []struct {
		origValue     any
		expectedValue any
	}{
		{
			origValue: func(v types.Uint256) *types.Uint256 { return &v }(
				types.NewUint256(18446744073709551615),
			),
			expectedValue: "18446744073709551615",
		},
	}
	var ok bool
	var tmpScanner sql.Scanner
	var tmpValuer driver.Valuer
	for _, testDef := range testDefs {
		tmpValuer, ok = testDef.origValue.(driver.Valuer)
		if !ok {
			t.Fatalf("test original value does not implement driver.Valuer")
		}
		valueOut, err := tmpValuer.Value()
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if !reflect.DeepEqual(valueOut, testDef.expectedValue) {
			t.Fatalf(
				"did not get expected value from Value(): got %#v, expected %#v",
				valueOut,
				testDef.expectedValue,
			)
		}
		tmpScanner, ok = testDef.origValue.(sql.Scanner)
		if !ok {
			t.Fatalf(
				"test original value does not implement sql.Scanner (it must be a pointer)",
			)
		}
		if err := tmpScanner.Scan(valueOut); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if !reflect.DeepEqual(tmpScanner, testDef.origValue) {
			t.Fatalf(
				"did not get expected value after Scan(): got %#v, expected %#v",
				tmpScanner,
				testDef.origValue,
			)
		}
	}
}

func TestUint256CheckedArithmetic(t *testing.T) {
	a := types.NewUint256(^uint64(0))
	b := types.NewUint256(1)
	sum, ok := a.CheckedAdd(b)
	require.True(t, ok)
	assert.Equal(t, "18446744073709551616", sum.String())

	maxVal, err := types.Uint256FromDecimal(
		"115792089237316195423570985008687907853269984665640564039457584007913129639935",
	)
	require.NoError(t, err)
	_, ok = maxVal.CheckedAdd(b)
	assert.False(t, ok, "expected overflow")

	_, ok = b.CheckedSub(types.NewUint256(2))
	assert.False(t, ok, "expected underflow")

	diff, ok := sum.CheckedSub(b)
	require.True(t, ok)
	assert.Equal(t, 0, diff.Cmp(a))
}

func TestUint256JSON(t *testing.T) {
	v := types.NewUint256(42)
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `"42"`, string(data))

	var out types.Uint256
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, 0, out.Cmp(v))
}

func TestBlobKeys(t *testing.T) {
	k1 := types.BallotBlobKey(1, "alice")
	k2 := types.BallotBlobKey(1, "bob")
	assert.NotEqual(t, k1, k2)
	assert.True(t, len(k1) > len(types.BallotBlobPrefix(1)))
	assert.Equal(t, types.BallotBlobPrefix(1), k1[:len(types.BallotBlobPrefix(1))])
	assert.NotEqual(t, types.ShareBlobKey(1, 0), types.ShareBlobKey(1, 1))
}
