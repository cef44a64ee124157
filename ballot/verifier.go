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

package ballot

import (
	"encoding/binary"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/crypto/blake2b"
)

// DefaultCacheSize is the number of verdicts kept by a Verifier
const DefaultCacheSize = 4096

// Verifier checks sealed ballot proofs and remembers recent verdicts
type Verifier struct {
	cache       *lru.Cache
	mu          sync.Mutex
	cacheHits   uint64
	cacheMisses uint64
}

// VerifierStats reports cache effectiveness
type VerifierStats struct {
	CacheHits   uint64
	CacheMisses uint64
}

// NewVerifier creates a Verifier caching up to cacheSize verdicts
func NewVerifier(cacheSize int) (*Verifier, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Verifier{cache: cache}, nil
}

// VerifyBallot checks that ciphertext encrypts exactly one choice under
// encryptionKey and that proof binds it to the proposal and voter
func (v *Verifier) VerifyBallot(
	encryptionKey []byte,
	proposalID uint64,
	voter string,
	ciphertext []byte,
	proof []byte,
) error {
	key := verdictKey(encryptionKey, proposalID, voter, ciphertext, proof)
	if cached, ok := v.cache.Get(key); ok {
		v.mu.Lock()
		v.cacheHits++
		v.mu.Unlock()
		if cached == nil {
			return nil
		}
		return cached.(error)
	}
	v.mu.Lock()
	v.cacheMisses++
	v.mu.Unlock()
	err := verify(encryptionKey, proposalID, voter, ciphertext, proof)
	if err == nil {
		v.cache.Add(key, nil)
	} else {
		v.cache.Add(key, err)
	}
	return err
}

// Stats returns cache hit and miss counts
func (v *Verifier) Stats() VerifierStats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return VerifierStats{
		CacheHits:   v.cacheHits,
		CacheMisses: v.cacheMisses,
	}
}

func verdictKey(
	encryptionKey []byte,
	proposalID uint64,
	voter string,
	ciphertext []byte,
	proof []byte,
) [32]byte {
	h, _ := blake2b.New256(nil)
	var buf [8]byte
	// Length prefixes keep variable-size fields from running together
	for _, field := range [][]byte{encryptionKey, []byte(voter), ciphertext, proof} {
		binary.BigEndian.PutUint64(buf[:], uint64(len(field)))
		h.Write(buf[:])
		h.Write(field)
	}
	binary.BigEndian.PutUint64(buf[:], proposalID)
	h.Write(buf[:])
	var ret [32]byte
	copy(ret[:], h.Sum(nil))
	return ret
}

// ValidateEncryptionKey rejects keys that aren't valid ristretto255 points
func (v *Verifier) ValidateEncryptionKey(key []byte) error {
	return ValidatePublicKey(key)
}
