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

package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/governance"
)

// maxBodySize bounds request bodies. Decryption shares are the largest
// payload.
const maxBodySize = 64 << 10

// writeJSON writes a JSON response with the given status
// code.
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeError(
	w http.ResponseWriter,
	status int,
	errStr string,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      errStr,
		Message:    message,
		RequestID:  w.Header().Get(RequestIDHeader),
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, "Bad Request", message)
}

// statusForError maps an engine error kind onto an HTTP status
func statusForError(err error) int {
	switch {
	case errors.Is(err, governance.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, governance.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, governance.ErrInvalidState),
		errors.Is(err, governance.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, governance.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, governance.ErrOverflow):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeEngineError reports an engine failure. Internal errors are logged
// and not echoed to the client.
func (a *API) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		a.logger.Error(
			"governance operation failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(
			w,
			status,
			"Internal Server Error",
			"An unexpected response was received from the backend.",
		)
		return
	}
	writeError(w, status, http.StatusText(status), err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func caller(r *http.Request) string {
	return r.Header.Get(PrincipalHeader)
}

func pathUint64(r *http.Request, name string) (uint64, error) {
	val, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, r.PathValue(name))
	}
	return val, nil
}

func decodeHex(field string, s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	ret, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: not hex encoded", field)
	}
	return ret, nil
}

func (a *API) handleHealth(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, HealthResponse{
		IsHealthy: true,
	})
}

func (a *API) handleGetParams(w http.ResponseWriter, r *http.Request) {
	params, err := a.engine.GetParams(r.Context())
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newParamsResponse(params))
}

func (a *API) handleInitializeParams(w http.ResponseWriter, r *http.Request) {
	var req ParamsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	params, err := a.engine.InitializeParams(
		r.Context(),
		caller(r),
		governance.Params{
			Quorum:            req.Quorum,
			ProposalThreshold: req.ProposalThreshold,
			VotingPeriod:      req.VotingPeriod,
			VotingDelay:       req.VotingDelay,
			TimelockDelay:     req.TimelockDelay,
		},
	)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newParamsResponse(params))
}

func (a *API) handleUpdateParams(w http.ResponseWriter, r *http.Request) {
	var req ParamsUpdateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	params, err := a.engine.UpdateParams(
		r.Context(),
		caller(r),
		governance.ParamsUpdate{
			Quorum:            req.Quorum,
			ProposalThreshold: req.ProposalThreshold,
			VotingPeriod:      req.VotingPeriod,
			VotingDelay:       req.VotingDelay,
			TimelockDelay:     req.TimelockDelay,
		},
	)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newParamsResponse(params))
}

func (a *API) handleProposeAuthority(w http.ResponseWriter, r *http.Request) {
	var req AuthorityRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := a.engine.ProposeAuthority(r.Context(), caller(r), req.Next); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAcceptAuthority(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.AcceptAuthority(r.Context(), caller(r)); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSetPaused(w http.ResponseWriter, r *http.Request) {
	var req PauseRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := a.engine.SetPaused(r.Context(), caller(r), req.Paused); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListProposals(w http.ResponseWriter, r *http.Request) {
	page, err := ParsePagination(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	filter := governance.ProposalFilter{
		Limit:  page.Count,
		Offset: page.Offset(),
	}
	if name := r.URL.Query().Get("status"); name != "" {
		status, err := governance.ParseProposalStatus(name)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		filter.Status = &status
	}
	proposals, err := a.engine.ListProposals(r.Context(), filter)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	ret := make([]ProposalResponse, 0, len(proposals))
	for i := range proposals {
		ret = append(ret, newProposalResponse(&proposals[i]))
	}
	writeJSON(w, http.StatusOK, ret)
}

func (a *API) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	var req CreateProposalRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	hash, err := decodeHex("metadata_hash", req.MetadataHash)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	proposal, err := a.engine.CreateProposal(
		r.Context(),
		caller(r),
		governance.CreateProposalRequest{
			MetadataURI:  req.MetadataURI,
			MetadataHash: hash,
			Category:     governance.Category(req.Category),
		},
	)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newProposalResponse(proposal))
}

func (a *API) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint64(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	proposal, err := a.engine.GetProposal(r.Context(), id)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProposalResponse(proposal))
}

func (a *API) handleFinalizeProposal(w http.ResponseWriter, r *http.Request) {
	a.proposalTransition(w, r, a.engine.FinalizeProposal)
}

func (a *API) handleExecuteProposal(w http.ResponseWriter, r *http.Request) {
	a.proposalTransition(w, r, a.engine.ExecuteProposal)
}

func (a *API) handleCancelProposal(w http.ResponseWriter, r *http.Request) {
	a.proposalTransition(w, r, a.engine.CancelProposal)
}

func (a *API) proposalTransition(
	w http.ResponseWriter,
	r *http.Request,
	fn func(context.Context, string, uint64) (*models.Proposal, error),
) {
	id, err := pathUint64(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	proposal, err := fn(r.Context(), caller(r), id)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProposalResponse(proposal))
}

func (a *API) handleListVotes(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint64(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	votes, err := a.engine.ListVotes(r.Context(), id)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	ret := make([]VoteResponse, 0, len(votes))
	for i := range votes {
		ret = append(ret, newVoteResponse(&votes[i]))
	}
	writeJSON(w, http.StatusOK, ret)
}

func (a *API) handleCastOpenVote(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint64(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	var req OpenVoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	vote, err := a.engine.CastOpenVote(
		r.Context(),
		caller(r),
		id,
		governance.Vote(req.Choice),
		req.AsDelegate,
	)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newVoteResponse(vote))
}

func (a *API) handleGetVote(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint64(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	vote, err := a.engine.GetVote(r.Context(), id, r.PathValue("voter"))
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newVoteResponse(vote))
}

func (a *API) handleCastPrivateVote(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint64(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	var req PrivateVoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	ciphertext, err := decodeHex("ciphertext", req.Ciphertext)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	proof, err := decodeHex("proof", req.Proof)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	vote, err := a.engine.CastPrivateVote(
		r.Context(),
		caller(r),
		id,
		governance.SealedBallot{
			Ciphertext: ciphertext,
			Proof:      proof,
		},
		req.AsDelegate,
	)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newVoteResponse(vote))
}

func (a *API) handleGetSealedBallot(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint64(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	sealed, err := a.engine.GetSealedBallot(r.Context(), id, r.PathValue("voter"))
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SealedBallotResponse{
		Ciphertext: hex.EncodeToString(sealed.Ciphertext),
		Proof:      hex.EncodeToString(sealed.Proof),
	})
}

func (a *API) handleListSealedBallots(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint64(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	sealed, err := a.engine.ListSealedBallots(r.Context(), id)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	resp := make([]SealedBallotResponse, 0, len(sealed))
	for _, s := range sealed {
		resp = append(resp, SealedBallotResponse{
			Voter:      s.Voter,
			Ciphertext: hex.EncodeToString(s.Ciphertext),
			Proof:      hex.EncodeToString(s.Proof),
			Weight:     s.Weight,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleGetPrivateVoting(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint64(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	cfg, err := a.engine.GetPrivateVotingConfig(r.Context(), id)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPrivateVotingResponse(cfg))
}

func (a *API) handleEnablePrivateVoting(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint64(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	var req EnablePrivateVotingRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	key, err := decodeHex("encryption_key", req.EncryptionKey)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	cfg, err := a.engine.EnablePrivateVoting(
		r.Context(),
		caller(r),
		id,
		governance.EnablePrivateVotingRequest{
			EncryptionKey: key,
			Committee:     req.Committee,
			Threshold:     req.Threshold,
		},
	)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPrivateVotingResponse(cfg))
}

func (a *API) handleInitiateReveal(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint64(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	cfg, err := a.engine.InitiateReveal(r.Context(), caller(r), id)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPrivateVotingResponse(cfg))
}

func (a *API) handleListShares(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint64(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	shares, err := a.engine.ListDecryptionShares(r.Context(), id)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	ret := make([]ShareResponse, 0, len(shares))
	for i := range shares {
		ret = append(ret, newShareResponse(&shares[i]))
	}
	writeJSON(w, http.StatusOK, ret)
}

func (a *API) handleSubmitShare(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint64(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	var req ShareRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	share, err := decodeHex("share", req.Share)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	ret, err := a.engine.SubmitDecryptionShare(
		r.Context(),
		caller(r),
		id,
		req.Index,
		share,
	)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newShareResponse(ret))
}

func (a *API) handleGetShare(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint64(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	index, err := strconv.ParseUint(r.PathValue("index"), 10, 8)
	if err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid index: %q", r.PathValue("index")))
		return
	}
	payload, err := a.engine.GetDecryptionShare(r.Context(), id, uint8(index))
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSharePayloadResponse(payload))
}

func (a *API) handleAggregate(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint64(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	var req AggregateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	cfg, err := a.engine.AggregateRevealedVotes(
		r.Context(),
		caller(r),
		id,
		governance.RevealedTotals{
			For:     req.For,
			Against: req.Against,
			Abstain: req.Abstain,
		},
	)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPrivateVotingResponse(cfg))
}

func (a *API) handleDelegatedAmount(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint64(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	delegate := r.PathValue("delegate")
	amount, err := a.engine.ResolveDelegatedAmount(r.Context(), delegate, id)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DelegatedAmountResponse{
		Delegate:   delegate,
		ProposalID: id,
		Amount:     amount,
	})
}

func (a *API) handleDelegate(w http.ResponseWriter, r *http.Request) {
	var req DelegateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	delegation, err := a.engine.Delegate(
		r.Context(),
		caller(r),
		governance.DelegateRequest{
			Delegate:     req.Delegate,
			Amount:       req.Amount,
			ProposalID:   req.ProposalID,
			Expiry:       req.Expiry,
			CategoryMask: req.CategoryMask,
			Type:         governance.DelegationType(req.Type),
			Revocable:    req.Revocable,
		},
	)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newDelegationResponse(delegation))
}

func (a *API) handleGetDelegation(w http.ResponseWriter, r *http.Request) {
	delegation, err := a.engine.GetDelegation(r.Context(), r.PathValue("delegator"))
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDelegationResponse(delegation))
}

func (a *API) handleRevoke(w http.ResponseWriter, r *http.Request) {
	delegation, err := a.engine.Revoke(r.Context(), caller(r), r.PathValue("delegator"))
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDelegationResponse(delegation))
}

func (a *API) handleDelegateStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.engine.GetDelegateStats(r.Context(), r.PathValue("delegate"))
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DelegateStatsResponse{
		Delegate:         stats.Delegate,
		UniqueDelegators: stats.UniqueDelegators,
		TotalDelegated:   stats.TotalDelegated,
	})
}

func (a *API) handleListDelegations(w http.ResponseWriter, r *http.Request) {
	delegations, err := a.engine.ListDelegations(r.Context(), r.PathValue("delegate"))
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	ret := make([]DelegationResponse, 0, len(delegations))
	for i := range delegations {
		ret = append(ret, newDelegationResponse(&delegations[i]))
	}
	writeJSON(w, http.StatusOK, ret)
}
