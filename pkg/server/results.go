// Copyright 2025 Certen Protocol
//
// Result envelopes for the RPC surface. Every method answers with
// success/error plus its payload; error is empty on success.

package server

import "github.com/certen/trust-graph/pkg/dto"

// InsertResult answers mutations with no payload
type InsertResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func insertResult(err error) InsertResult {
	if err != nil {
		return InsertResult{Success: false, Error: err.Error()}
	}
	return InsertResult{Success: true}
}

// WeightResult answers weight queries
type WeightResult struct {
	Success bool   `json:"success"`
	Weight  uint32 `json:"weight"`
	PeerID  string `json:"peer_id"`
	Error   string `json:"error"`
}

func weightResult(weight uint32, peerID string, err error) WeightResult {
	if err != nil {
		return WeightResult{Success: false, Error: err.Error()}
	}
	return WeightResult{Success: true, Weight: weight, PeerID: peerID}
}

// AddTrustResult answers add_trust with the weight the trust contributed
type AddTrustResult struct {
	Success bool   `json:"success"`
	Weight  uint32 `json:"weight"`
	Error   string `json:"error"`
}

func addTrustResult(weight uint32, err error) AddTrustResult {
	if err != nil {
		return AddTrustResult{Success: false, Error: err.Error()}
	}
	return AddTrustResult{Success: true, Weight: weight}
}

// AllCertsResult answers certificate enumerations
type AllCertsResult struct {
	Success      bool              `json:"success"`
	Certificates []dto.Certificate `json:"certificates"`
	Error        string            `json:"error"`
}

func allCertsResult(certs []dto.Certificate, err error) AllCertsResult {
	if err != nil {
		return AllCertsResult{Success: false, Certificates: []dto.Certificate{}, Error: err.Error()}
	}
	if certs == nil {
		certs = []dto.Certificate{}
	}
	return AllCertsResult{Success: true, Certificates: certs}
}

// BytesResult answers the sign-offline metadata queries
type BytesResult struct {
	Success bool   `json:"success"`
	Bytes   []byte `json:"bytes"`
	Error   string `json:"error"`
}

func bytesResult(b []byte, err error) BytesResult {
	if err != nil {
		return BytesResult{Success: false, Error: err.Error()}
	}
	return BytesResult{Success: true, Bytes: b}
}

// IssueTrustResult answers issue_trust with the assembled trust
type IssueTrustResult struct {
	Success bool      `json:"success"`
	Trust   dto.Trust `json:"trust"`
	Error   string    `json:"error"`
}

func issueTrustResult(t dto.Trust, err error) IssueTrustResult {
	if err != nil {
		return IssueTrustResult{Success: false, Error: err.Error()}
	}
	return IssueTrustResult{Success: true, Trust: t}
}

// IssueRevocationResult answers issue_revocation with the assembled
// revocation
type IssueRevocationResult struct {
	Success    bool           `json:"success"`
	Revocation dto.Revocation `json:"revocation"`
	Error      string         `json:"error"`
}

func issueRevocationResult(r dto.Revocation, err error) IssueRevocationResult {
	if err != nil {
		return IssueRevocationResult{Success: false, Error: err.Error()}
	}
	return IssueRevocationResult{Success: true, Revocation: r}
}

// ExportRevocationsResult answers export_revocations
type ExportRevocationsResult struct {
	Success     bool             `json:"success"`
	Revocations []dto.Revocation `json:"revocations"`
	Error       string           `json:"error"`
}

func exportRevocationsResult(revocations []dto.Revocation, err error) ExportRevocationsResult {
	if err != nil {
		return ExportRevocationsResult{Success: false, Revocations: []dto.Revocation{}, Error: err.Error()}
	}
	if revocations == nil {
		revocations = []dto.Revocation{}
	}
	return ExportRevocationsResult{Success: true, Revocations: revocations}
}
