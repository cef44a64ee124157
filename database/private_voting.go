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

func (d *Database) CreatePrivateVotingConfig(
	cfg *models.PrivateVotingConfig,
	txn *Txn,
) error {
	return d.metadata.CreatePrivateVotingConfig(cfg, metadataTxn(txn))
}

// GetPrivateVotingConfig returns the private voting config of a proposal
func (d *Database) GetPrivateVotingConfig(
	proposalID uint64,
	txn *Txn,
) (*models.PrivateVotingConfig, error) {
	ret, err := d.metadata.GetPrivateVotingConfig(proposalID, metadataTxn(txn))
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, models.ErrPrivateVotingConfigNotFound
	}
	return ret, nil
}

func (d *Database) SetPrivateVotingConfig(
	cfg *models.PrivateVotingConfig,
	txn *Txn,
) error {
	return d.metadata.SetPrivateVotingConfig(cfg, metadataTxn(txn))
}

// CreateDecryptionShare records a committee member's share. The audit row
// carries the digest of the payload stored in the blob store.
func (d *Database) CreateDecryptionShare(
	share *models.DecryptionShare,
	payload []byte,
	txn *Txn,
) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	record := DecryptionSharePayload{
		Member:         share.Member,
		Share:          payload,
		ProposalID:     share.ProposalID,
		CommitteeIndex: share.CommitteeIndex,
	}
	data, digest, err := encodeBlob(&record)
	if err != nil {
		return err
	}
	share.ShareHash = digest
	if err := d.metadata.CreateDecryptionShare(share, txn.Metadata()); err != nil {
		return err
	}
	return d.blob.Set(
		txn.Blob(),
		types.ShareBlobKey(share.ProposalID, share.CommitteeIndex),
		data,
	)
}

func (d *Database) GetDecryptionShares(
	proposalID uint64,
	txn *Txn,
) ([]models.DecryptionShare, error) {
	return d.metadata.GetDecryptionShares(proposalID, metadataTxn(txn))
}

// GetDecryptionSharePayload returns the stored share for a committee slot
func (d *Database) GetDecryptionSharePayload(
	proposalID uint64,
	committeeIndex uint8,
	txn *Txn,
) (*DecryptionSharePayload, error) {
	data, err := d.blobGet(
		types.ShareBlobKey(proposalID, committeeIndex),
		txn,
	)
	if err != nil {
		return nil, err
	}
	var ret DecryptionSharePayload
	if err := decodeBlob(data, &ret); err != nil {
		return nil, err
	}
	return &ret, nil
}
