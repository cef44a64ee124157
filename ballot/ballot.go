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


// Package ballot implements sealed ballots for private voting.
//
// A ballot is three exponential ElGamal ciphertexts over ristretto255, one
// per tally bucket (against, for, abstain). The bucket matching the voter's
// choice encrypts one and the other two encrypt zero. Vote weights are
// public, so the committee scales each ballot by its recorded weight, adds
// the results homomorphically and decrypts only the totals.
//
// Each bucket (C1, C2) = (r*G, m*G + r*PK) carries a disjunctive
// Chaum-Pedersen proof that m is 0 or 1, and the ballot carries one more
// proof that the buckets sum to exactly one. All proofs share a single
// Fiat-Shamir challenge bound to the public key, the proposal and the voter,
// so a ballot can't be replayed under another identity or altered after
// sealing.
package ballot

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/cloudflare/circl/group"
	"golang.org/x/crypto/blake2b"
)

const (
	// Buckets is the number of tally buckets in a ballot
	Buckets = 3
	// ElementSize is the encoded size of a ristretto255 element
	ElementSize = 32
	// ScalarSize is the encoded size of a ristretto255 scalar
	ScalarSize = 32
	// CiphertextSize is the encoded size of a sealed ballot's ciphertext
	CiphertextSize = Buckets * 2 * ElementSize
	// ProofSize is the encoded size of a sealed ballot's proof: the shared
	// challenge, a branch challenge and two responses per bucket, and the
	// response of the sum proof
	ProofSize = (1 + Buckets*3 + 1) * ScalarSize

	challengeDST = "agora-ballot-v2-challenge"
)

var (
	ErrInvalidPublicKey  = errors.New("invalid ballot public key")
	ErrInvalidCiphertext = errors.New("invalid ballot ciphertext")
	ErrInvalidProof      = errors.New("invalid ballot proof")
	ErrInvalidChoice     = errors.New("invalid ballot choice")
)

var suite = group.Ristretto255

// GenerateKey returns a new private scalar and the matching public key
func GenerateKey(rand io.Reader) ([]byte, []byte, error) {
	priv := suite.RandomNonZeroScalar(rand)
	pub := suite.NewElement().MulGen(priv)
	privBytes, err := priv.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}
	pubBytes, err := pub.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}
	return privBytes, pubBytes, nil
}

// ValidatePublicKey checks that key is a canonical, non-identity encoding
func ValidatePublicKey(key []byte) error {
	_, err := decodePublicKey(key)
	return err
}

func decodePublicKey(key []byte) (group.Element, error) {
	if len(key) != ElementSize {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidPublicKey, len(key))
	}
	pub := suite.NewElement()
	if err := pub.UnmarshalBinary(key); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}
	if pub.IsIdentity() {
		return nil, fmt.Errorf("%w: identity element", ErrInvalidPublicKey)
	}
	return pub, nil
}

// Ciphertext is a decoded ElGamal ciphertext for one bucket
type Ciphertext struct {
	C1 group.Element
	C2 group.Element
}

// DecodeCiphertext splits and decodes a sealed ballot's ciphertext
func DecodeCiphertext(data []byte) ([Buckets]Ciphertext, error) {
	var ret [Buckets]Ciphertext
	if len(data) != CiphertextSize {
		return ret, fmt.Errorf("%w: length %d", ErrInvalidCiphertext, len(data))
	}
	for i := range Buckets {
		off := i * 2 * ElementSize
		c1 := suite.NewElement()
		if err := c1.UnmarshalBinary(data[off : off+ElementSize]); err != nil {
			return ret, fmt.Errorf("%w: bucket %d: %w", ErrInvalidCiphertext, i, err)
		}
		c2 := suite.NewElement()
		if err := c2.UnmarshalBinary(data[off+ElementSize : off+2*ElementSize]); err != nil {
			return ret, fmt.Errorf("%w: bucket %d: %w", ErrInvalidCiphertext, i, err)
		}
		ret[i] = Ciphertext{C1: c1, C2: c2}
	}
	return ret, nil
}

func encodeCiphertext(cts [Buckets]Ciphertext) ([]byte, error) {
	ret := make([]byte, 0, CiphertextSize)
	for _, ct := range cts {
		for _, elem := range []group.Element{ct.C1, ct.C2} {
			b, err := elem.MarshalBinary()
			if err != nil {
				return nil, err
			}
			ret = append(ret, b...)
		}
	}
	return ret, nil
}

// challenge derives the shared Fiat-Shamir challenge
func challenge(
	pubKey []byte,
	proposalID uint64,
	voter string,
	ciphertext []byte,
	commitments []group.Element,
) (group.Scalar, error) {
	var idBuf [8]byte
	for i := range 8 {
		idBuf[i] = byte(proposalID >> (56 - 8*i))
	}
	voterHash := blake2b.Sum256([]byte(voter))
	msg := slices.Concat(pubKey, idBuf[:], voterHash[:], ciphertext)
	for _, t := range commitments {
		b, err := t.MarshalBinary()
		if err != nil {
			return nil, err
		}
		msg = append(msg, b...)
	}
	return suite.HashToScalar(msg, []byte(challengeDST)), nil
}

// branchCommitments reconstructs the commitments of the statement
// "ct encrypts j" from challenge c and response s:
// s*G - c*C1 and s*PK - c*(C2 - j*G)
func branchCommitments(
	pub group.Element,
	ct Ciphertext,
	j uint64,
	c group.Scalar,
	s group.Scalar,
) (group.Element, group.Element) {
	t1 := suite.NewElement().MulGen(s)
	t1.Add(t1, suite.NewElement().Neg(suite.NewElement().Mul(ct.C1, c)))
	target := ct.C2.Copy()
	if j != 0 {
		jG := suite.NewElement().MulGen(suite.NewScalar().SetUint64(j))
		target.Add(target, suite.NewElement().Neg(jG))
	}
	t2 := suite.NewElement().Mul(pub, s)
	t2.Add(t2, suite.NewElement().Neg(suite.NewElement().Mul(target, c)))
	return t1, t2
}

// Encrypt seals a ballot for the bucket at choice. It returns the
// ciphertext and proof in the encoding VerifyBallot expects.
func Encrypt(
	rand io.Reader,
	pubKey []byte,
	proposalID uint64,
	voter string,
	choice uint8,
) ([]byte, []byte, error) {
	if int(choice) >= Buckets {
		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidChoice, choice)
	}
	pub, err := decodePublicKey(pubKey)
	if err != nil {
		return nil, nil, err
	}
	var (
		cts        [Buckets]Ciphertext
		randomness [Buckets]group.Scalar
		nonces     [Buckets]group.Scalar
		branchC    [Buckets][2]group.Scalar
		branchS    [Buckets][2]group.Scalar
	)
	commitments := make([]group.Element, 0, Buckets*4+2)
	rSum := suite.NewScalar()
	for i := range Buckets {
		var m uint64
		if i == int(choice) {
			m = 1
		}
		r := suite.RandomNonZeroScalar(rand)
		c2 := suite.NewElement().Mul(pub, r)
		if m == 1 {
			c2.Add(c2, suite.Generator())
		}
		cts[i] = Ciphertext{C1: suite.NewElement().MulGen(r), C2: c2}
		randomness[i] = r
		rSum.Add(rSum, r)
		// The branch for the real value is proven, the other is simulated
		sim := 1 - m
		branchC[i][sim] = suite.RandomScalar(rand)
		branchS[i][sim] = suite.RandomScalar(rand)
		nonces[i] = suite.RandomNonZeroScalar(rand)
		var t [2][2]group.Element
		t[m][0] = suite.NewElement().MulGen(nonces[i])
		t[m][1] = suite.NewElement().Mul(pub, nonces[i])
		t[sim][0], t[sim][1] = branchCommitments(
			pub,
			cts[i],
			sim,
			branchC[i][sim],
			branchS[i][sim],
		)
		commitments = append(commitments, t[0][0], t[0][1], t[1][0], t[1][1])
	}
	k := suite.RandomNonZeroScalar(rand)
	commitments = append(
		commitments,
		suite.NewElement().MulGen(k),
		suite.NewElement().Mul(pub, k),
	)
	ciphertext, err := encodeCiphertext(cts)
	if err != nil {
		return nil, nil, err
	}
	c, err := challenge(pubKey, proposalID, voter, ciphertext, commitments)
	if err != nil {
		return nil, nil, err
	}
	for i := range Buckets {
		m := 0
		if i == int(choice) {
			m = 1
		}
		// c_m = c - c_sim, s_m = k + c_m*r
		branchC[i][m] = suite.NewScalar().Sub(c, branchC[i][1-m])
		s := suite.NewScalar().Mul(branchC[i][m], randomness[i])
		branchS[i][m] = s.Add(s, nonces[i])
	}
	sSum := suite.NewScalar().Mul(c, rSum)
	sSum.Add(sSum, k)
	scalars := make([]group.Scalar, 0, ProofSize/ScalarSize)
	scalars = append(scalars, c)
	for i := range Buckets {
		scalars = append(scalars, branchC[i][0], branchS[i][0], branchS[i][1])
	}
	scalars = append(scalars, sSum)
	proof := make([]byte, 0, ProofSize)
	for _, s := range scalars {
		b, err := s.MarshalBinary()
		if err != nil {
			return nil, nil, err
		}
		proof = append(proof, b...)
	}
	return ciphertext, proof, nil
}

// verify checks a ballot without caching
func verify(
	pubKey []byte,
	proposalID uint64,
	voter string,
	ciphertext []byte,
	proof []byte,
) error {
	pub, err := decodePublicKey(pubKey)
	if err != nil {
		return err
	}
	cts, err := DecodeCiphertext(ciphertext)
	if err != nil {
		return err
	}
	if len(proof) != ProofSize {
		return fmt.Errorf("%w: length %d", ErrInvalidProof, len(proof))
	}
	scalars := make([]group.Scalar, ProofSize/ScalarSize)
	for i := range scalars {
		scalars[i] = suite.NewScalar()
		if err := scalars[i].UnmarshalBinary(proof[i*ScalarSize : (i+1)*ScalarSize]); err != nil {
			return fmt.Errorf("%w: scalar %d: %w", ErrInvalidProof, i, err)
		}
	}
	c := scalars[0]
	commitments := make([]group.Element, 0, Buckets*4+2)
	sum := Ciphertext{C1: suite.Identity(), C2: suite.Identity()}
	for i := range Buckets {
		c0 := scalars[1+i*3]
		c1 := suite.NewScalar().Sub(c, c0)
		t00, t01 := branchCommitments(pub, cts[i], 0, c0, scalars[2+i*3])
		t10, t11 := branchCommitments(pub, cts[i], 1, c1, scalars[3+i*3])
		commitments = append(commitments, t00, t01, t10, t11)
		sum.C1.Add(sum.C1, cts[i].C1)
		sum.C2.Add(sum.C2, cts[i].C2)
	}
	u1, u2 := branchCommitments(pub, sum, 1, c, scalars[len(scalars)-1])
	commitments = append(commitments, u1, u2)
	expected, err := challenge(pubKey, proposalID, voter, ciphertext, commitments)
	if err != nil {
		return err
	}
	if !expected.IsEqual(c) {
		return ErrInvalidProof
	}
	return nil
}

// Scale multiplies every bucket of a ciphertext by weight, turning a
// verified one-hot ballot into an encryption of its weighted vote
func Scale(ciphertext []byte, weight uint64) ([]byte, error) {
	cts, err := DecodeCiphertext(ciphertext)
	if err != nil {
		return nil, err
	}
	w := suite.NewScalar().SetUint64(weight)
	for i := range Buckets {
		cts[i] = Ciphertext{
			C1: suite.NewElement().Mul(cts[i].C1, w),
			C2: suite.NewElement().Mul(cts[i].C2, w),
		}
	}
	return encodeCiphertext(cts)
}

// Combine adds ciphertexts bucket-wise. Decrypting the result yields the
// per-bucket totals of the combined ballots.
func Combine(ciphertexts ...[]byte) ([]byte, error) {
	var acc [Buckets]Ciphertext
	for i := range Buckets {
		acc[i] = Ciphertext{C1: suite.Identity(), C2: suite.Identity()}
	}
	for _, data := range ciphertexts {
		cts, err := DecodeCiphertext(data)
		if err != nil {
			return nil, err
		}
		for i := range Buckets {
			acc[i].C1.Add(acc[i].C1, cts[i].C1)
			acc[i].C2.Add(acc[i].C2, cts[i].C2)
		}
	}
	return encodeCiphertext(acc)
}

// WeightedBallot is a sealed ciphertext with the public weight it was cast with
type WeightedBallot struct {
	Ciphertext []byte
	Weight     uint64
}

// Tally scales each ballot by its weight and combines the results.
// Decrypting the returned ciphertext yields the weighted bucket totals.
func Tally(ballots ...WeightedBallot) ([]byte, error) {
	scaled := make([][]byte, 0, len(ballots))
	for _, b := range ballots {
		ct, err := Scale(b.Ciphertext, b.Weight)
		if err != nil {
			return nil, err
		}
		scaled = append(scaled, ct)
	}
	return Combine(scaled...)
}
