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

package types

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

var ErrBlobKeyNotFound = errors.New("blob key not found")

var ErrTxnWrongType = errors.New("invalid transaction type")

var ErrNilTxn = errors.New("nil transaction")

var ErrBlobStoreUnavailable = errors.New("blob store unavailable")

// ErrAlreadyExists is returned by the metadata stores when a create violates
// a uniqueness constraint
var ErrAlreadyExists = errors.New("record already exists")

// ErrRecordNotFound is returned when an update or delete targets a missing record
var ErrRecordNotFound = errors.New("record not found")

type Txn interface {
	Commit() error
	Rollback() error
}

// BlobItem is a key/value pair returned by a BlobIterator
type BlobItem interface {
	Key() []byte
	ValueCopy(dst []byte) ([]byte, error)
}

// BlobIterator walks keys in a blob store transaction
type BlobIterator interface {
	Rewind()
	Seek(prefix []byte)
	Valid() bool
	ValidForPrefix(prefix []byte) bool
	Next()
	Item() BlobItem
	Close()
	Err() error
}

type BlobIteratorOptions struct {
	Prefix  []byte
	Reverse bool
}

// Uint256 is an unsigned 256-bit integer persisted as a decimal string. It is
// used for tallies and other accumulators that must not wrap.
type Uint256 struct {
	uint256.Int
}

// NewUint256 returns a Uint256 holding the given value
func NewUint256(val uint64) Uint256 {
	var ret Uint256
	ret.SetUint64(val)
	return ret
}

// Uint256FromDecimal parses a base-10 string
func Uint256FromDecimal(s string) (Uint256, error) {
	var ret Uint256
	if err := ret.SetFromDecimal(s); err != nil {
		return ret, fmt.Errorf("invalid decimal value %q: %w", s, err)
	}
	return ret, nil
}

// CheckedAdd returns u+v and false if the sum overflowed
func (u Uint256) CheckedAdd(v Uint256) (Uint256, bool) {
	var ret Uint256
	_, overflow := ret.AddOverflow(&u.Int, &v.Int)
	return ret, !overflow
}

// CheckedSub returns u-v and false if the difference underflowed
func (u Uint256) CheckedSub(v Uint256) (Uint256, bool) {
	var ret Uint256
	_, underflow := ret.SubOverflow(&u.Int, &v.Int)
	return ret, !underflow
}

// Cmp compares u and v and returns -1, 0 or +1
func (u Uint256) Cmp(v Uint256) int {
	return u.Int.Cmp(&v.Int)
}

func (u Uint256) String() string {
	return u.Dec()
}

func (u Uint256) Value() (driver.Value, error) {
	return u.Dec(), nil
}

func (u *Uint256) Scan(val any) error {
	var s string
	switch v := val.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("negative value for Uint256: %d", v)
		}
		u.SetUint64(uint64(v))
		return nil
	case nil:
		u.Clear()
		return nil
	default:
		return fmt.Errorf(
			"value was not expected type, wanted string, got %T",
			val,
		)
	}
	if s == "" {
		u.Clear()
		return nil
	}
	return u.SetFromDecimal(s)
}

// GormDataType tells gorm to store the value in a text column
func (Uint256) GormDataType() string {
	return "text"
}

func (u Uint256) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(u.Dec())), nil
}

func (u *Uint256) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		u.Clear()
		return nil
	}
	return u.SetFromDecimal(s)
}
