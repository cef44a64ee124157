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
	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/database/types"
)

// CreateVoteRecord records an open ballot
func (d *Database) CreateVoteRecord(
	vote *models.VoteRecord,
	txn *Txn,
) error {
	return d.metadata.CreateVoteRecord(vote, metadataTxn(txn))
}

// CreateSealedBallot records a private ballot. The vote record is written
// first so that a duplicate ballot is rejected before anything reaches the
// blob store. The ballot digest is stored on the vote record.
func (d *Database) CreateSealedBallot(
	vote *models.VoteRecord,
	ballot SealedBallot,
	txn *Txn,
) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	data, digest, err := encodeBlob(&ballot)
	if err != nil {
		return err
	}
	vote.BallotHash = digest
	vote.IsPrivate = true
	if err := d.metadata.CreateVoteRecord(vote, txn.Metadata()); err != nil {
		return err
	}
	return d.blob.Set(
		txn.Blob(),
		types.BallotBlobKey(ballot.ProposalID, ballot.Voter),
		data,
	)
}

// GetSealedBallot returns the stored private ballot of a voter
func (d *Database) GetSealedBallot(
	proposalID uint64,
	voter string,
	txn *Txn,
) (*SealedBallot, error) {
	data, err := d.blobGet(types.BallotBlobKey(proposalID, voter), txn)
	if err != nil {
		return nil, err
	}
	var ret SealedBallot
	if err := decodeBlob(data, &ret); err != nil {
		return nil, err
	}
	return &ret, nil
}

// GetVoteRecord returns the vote of a voter on a proposal
func (d *Database) GetVoteRecord(
	proposalID uint64,
	voter string,
	txn *Txn,
) (*models.VoteRecord, error) {
	ret, err := d.metadata.GetVoteRecord(proposalID, voter, metadataTxn(txn))
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, models.ErrVoteRecordNotFound
	}
	return ret, nil
}

func (d *Database) GetVoteRecords(
	proposalID uint64,
	txn *Txn,
) ([]models.VoteRecord, error) {
	return d.metadata.GetVoteRecords(proposalID, metadataTxn(txn))
}

func (d *Database) SetVoteRecordsRevealed(
	proposalID uint64,
	txn *Txn,
) error {
	return d.metadata.SetVoteRecordsRevealed(proposalID, metadataTxn(txn))
}

// GetSealedBallots returns every sealed ballot stored for a proposal, in
// blob key order
func (d *Database) GetSealedBallots(
	proposalID uint64,
	txn *Txn,
) ([]SealedBallot, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	prefix := types.BallotBlobPrefix(proposalID)
	iter := d.blob.NewIterator(
		txn.Blob(),
		types.BlobIteratorOptions{Prefix: prefix},
	)
	defer iter.Close()
	var ret []SealedBallot
	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		data, err := iter.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		var ballot SealedBallot
		if err := decodeBlob(data, &ballot); err != nil {
			return nil, err
		}
		ret = append(ret, ballot)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}
