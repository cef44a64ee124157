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

package database

import (
	"fmt"

	"github.com/blinklabs-io/agora/database/types"
	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// SealedBallot is the blob record of an encrypted private ballot. The
// engine stores it without interpreting the ciphertext.
type SealedBallot struct {
	_          struct{} `cbor:",toarray"`
	Voter      string
	Ciphertext []byte
	Proof      []byte
	ProposalID uint64
}

// DecryptionSharePayload is the blob record of a committee member's share
type DecryptionSharePayload struct {
	_              struct{} `cbor:",toarray"`
	Member         string
	Share          []byte
	ProposalID     uint64
	CommitteeIndex uint8
}

var cborEncMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor encoder: %s", err))
	}
	return em
}()

// encodeBlob serializes a blob record and returns it with its blake2b-256 digest
func encodeBlob(v any) ([]byte, []byte, error) {
	data, err := cborEncMode.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("encode blob record: %w", err)
	}
	digest := blake2b.Sum256(data)
	return data, digest[:], nil
}

func decodeBlob(data []byte, v any) error {
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode blob record: %w", err)
	}
	return nil
}

// metadataTxn returns the metadata half of txn, or nil to run outside a transaction
func metadataTxn(txn *Txn) types.Txn {
	if txn == nil {
		return nil
	}
	return txn.Metadata()
}

// blobGet reads a key, opening a short-lived read transaction when txn is nil
func (d *Database) blobGet(key []byte, txn *Txn) ([]byte, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	return d.blob.Get(txn.Blob(), key)
}
