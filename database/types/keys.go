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
	"encoding/binary"
	"slices"
)

const (
	BallotBlobKeyPrefix = "pb"
	ShareBlobKeyPrefix  = "ds"
)

func BlobKeyUint64ToBytes(input uint64) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, input)
	return ret
}

// BallotBlobKey returns the blob key for a sealed private ballot
func BallotBlobKey(proposalID uint64, voter string) []byte {
	return slices.Concat(
		[]byte(BallotBlobKeyPrefix),
		BlobKeyUint64ToBytes(proposalID),
		[]byte(voter),
	)
}

// BallotBlobPrefix returns the key prefix covering all sealed ballots for a proposal
func BallotBlobPrefix(proposalID uint64) []byte {
	return slices.Concat(
		[]byte(BallotBlobKeyPrefix),
		BlobKeyUint64ToBytes(proposalID),
	)
}

// ShareBlobKey returns the blob key for a committee member's decryption share
func ShareBlobKey(proposalID uint64, committeeIndex uint8) []byte {
	return slices.Concat(
		[]byte(ShareBlobKeyPrefix),
		BlobKeyUint64ToBytes(proposalID),
		[]byte{committeeIndex},
	)
}
