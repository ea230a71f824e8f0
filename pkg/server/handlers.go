// Copyright 2025 Certen Protocol
//
// Trust Graph API Handlers
// One handler per RPC method; every answer is a result envelope with
// success/error, so transport-level status is 200 unless the request is
// not a POST or its body is malformed.

package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/certen/trust-graph/pkg/dto"
	"github.com/certen/trust-graph/pkg/graph"
	"github.com/certen/trust-graph/pkg/keys"
	"github.com/certen/trust-graph/pkg/metrics"
	"github.com/certen/trust-graph/pkg/trust"
)

// TrustHandlers provides HTTP handlers for the trust graph operations
type TrustHandlers struct {
	graph   *graph.TrustGraph
	ownerID string
	hostID  string
	hostPK  keys.PublicKey
	logger  *log.Logger
	metrics *metrics.Registry
}

// NewTrustHandlers creates the handler set. ownerID and hostID are the
// base58 identities of the service owner and the local host.
func NewTrustHandlers(g *graph.TrustGraph, ownerID, hostID string, m *metrics.Registry, logger *log.Logger) (*TrustHandlers, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[TrustAPI] ", log.LstdFlags)
	}

	hostPK, err := keys.PublicKeyFromBase58(hostID)
	if err != nil {
		return nil, err
	}

	return &TrustHandlers{
		graph:   g,
		ownerID: ownerID,
		hostID:  hostID,
		hostPK:  hostPK,
		logger:  logger,
		metrics: m,
	}, nil
}

func (h *TrustHandlers) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Printf("Failed to encode response: %v", err)
	}
}

// decodeBody parses the request body; a false return means the request
// was already answered with 405 (not a POST) or 400 (malformed body).
func (h *TrustHandlers) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST is allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "malformed request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// ============================================================================
// ROOT MANAGEMENT
// ============================================================================

// SetRootRequest carries the set_root arguments
type SetRootRequest struct {
	PeerID         string         `json:"peer_id"`
	MaxChainLen    uint32         `json:"max_chain_len"`
	CallParameters CallParameters `json:"call_parameters"`
}

// HandleSetRoot handles POST /api/v1/set_root.
// Only the service owner may designate roots.
func (h *TrustHandlers) HandleSetRoot(w http.ResponseWriter, r *http.Request) {
	var req SetRootRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	err := h.setRoot(req)
	h.metrics.ObserveGraphOp("set_root", err)
	h.writeJSON(w, insertResult(err))
}

func (h *TrustHandlers) setRoot(req SetRootRequest) error {
	if req.CallParameters.InitPeerID != h.ownerID {
		return ErrNotOwner
	}
	pk, err := keys.PublicKeyFromBase58(req.PeerID)
	if err != nil {
		return err
	}
	return h.graph.SetRootWeightFactor(pk, req.MaxChainLen)
}

// ============================================================================
// CERTIFICATE INSERTION
// ============================================================================

// InsertCertRawRequest carries a certificate in interchange text form
type InsertCertRawRequest struct {
	Certificate    string         `json:"certificate"`
	CurrentTime    uint64         `json:"current_time"`
	CallParameters CallParameters `json:"call_parameters"`
}

// HandleInsertCertRaw handles POST /api/v1/insert_cert_raw
func (h *TrustHandlers) HandleInsertCertRaw(w http.ResponseWriter, r *http.Request) {
	var req InsertCertRawRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	err := func() error {
		if err := checkTimestampTetraplet(req.CallParameters, 1); err != nil {
			return err
		}
		cert, err := trust.ParseCertificate(req.Certificate)
		if err != nil {
			return err
		}
		return h.graph.Add(cert, req.CurrentTime)
	}()

	h.metrics.ObserveGraphOp("insert_cert_raw", err)
	h.writeJSON(w, insertResult(err))
}

// InsertCertRequest carries a certificate in wire form
type InsertCertRequest struct {
	Certificate    dto.Certificate `json:"certificate"`
	CurrentTime    uint64          `json:"current_time"`
	CallParameters CallParameters  `json:"call_parameters"`
}

// HandleInsertCert handles POST /api/v1/insert_cert
func (h *TrustHandlers) HandleInsertCert(w http.ResponseWriter, r *http.Request) {
	var req InsertCertRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	err := func() error {
		if err := checkTimestampTetraplet(req.CallParameters, 1); err != nil {
			return err
		}
		cert, err := req.Certificate.ToCertificate()
		if err != nil {
			return err
		}
		return h.graph.Add(cert, req.CurrentTime)
	}()

	h.metrics.ObserveGraphOp("insert_cert", err)
	h.writeJSON(w, insertResult(err))
}

// ============================================================================
// TRUSTS
// ============================================================================

// AddTrustRequest carries the add_trust arguments
type AddTrustRequest struct {
	Trust          dto.Trust      `json:"trust"`
	IssuerPeerID   string         `json:"issuer_peer_id"`
	CurrentTime    uint64         `json:"current_time"`
	CallParameters CallParameters `json:"call_parameters"`
}

// HandleAddTrust handles POST /api/v1/add_trust
func (h *TrustHandlers) HandleAddTrust(w http.ResponseWriter, r *http.Request) {
	var req AddTrustRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	weight, err := func() (uint32, error) {
		if err := checkTimestampTetraplet(req.CallParameters, 2); err != nil {
			return 0, err
		}
		t, err := req.Trust.ToTrust()
		if err != nil {
			return 0, err
		}
		if t.IssuedAt > req.CurrentTime {
			return 0, &InvalidTimestampError{What: "trust"}
		}
		issuer, err := keys.PublicKeyFromBase58(req.IssuerPeerID)
		if err != nil {
			return 0, err
		}
		return h.graph.AddTrust(t, issuer, req.CurrentTime)
	}()

	h.metrics.ObserveGraphOp("add_trust", err)
	h.writeJSON(w, addTrustResult(weight, err))
}

// VerifyTrustRequest carries the verify_trust arguments
type VerifyTrustRequest struct {
	Trust          dto.Trust      `json:"trust"`
	IssuerPeerID   string         `json:"issuer_peer_id"`
	CurrentTime    uint64         `json:"current_time"`
	CallParameters CallParameters `json:"call_parameters"`
}

// HandleVerifyTrust handles POST /api/v1/verify_trust
func (h *TrustHandlers) HandleVerifyTrust(w http.ResponseWriter, r *http.Request) {
	var req VerifyTrustRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	err := func() error {
		if err := checkTimestampTetraplet(req.CallParameters, 2); err != nil {
			return err
		}
		t, err := req.Trust.ToTrust()
		if err != nil {
			return err
		}
		issuer, err := keys.PublicKeyFromBase58(req.IssuerPeerID)
		if err != nil {
			return err
		}
		return trust.Verify(t, issuer, req.CurrentTime)
	}()

	h.metrics.ObserveGraphOp("verify_trust", err)
	h.writeJSON(w, insertResult(err))
}

// GetTrustBytesRequest carries the get_trust_bytes arguments
type GetTrustBytesRequest struct {
	IssuedForPeerID string `json:"issued_for_peer_id"`
	ExpiresAt       uint64 `json:"expires_at"`
	IssuedAt        uint64 `json:"issued_at"`
}

// HandleGetTrustBytes handles POST /api/v1/get_trust_bytes.
// First half of the sign-offline pattern: the engine hashes the trust
// metadata, the caller signs the bytes with their own key.
func (h *TrustHandlers) HandleGetTrustBytes(w http.ResponseWriter, r *http.Request) {
	var req GetTrustBytesRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	b, err := func() ([]byte, error) {
		pk, err := keys.PublicKeyFromBase58(req.IssuedForPeerID)
		if err != nil {
			return nil, err
		}
		return trust.MetadataBytes(pk, req.ExpiresAt, req.IssuedAt), nil
	}()

	h.metrics.ObserveGraphOp("get_trust_bytes", err)
	h.writeJSON(w, bytesResult(b, err))
}

// IssueTrustRequest carries the issue_trust arguments. SignedBytes is the
// caller's signature over the metadata, in the tagged envelope form.
type IssueTrustRequest struct {
	IssuedForPeerID string `json:"issued_for_peer_id"`
	ExpiresAt       uint64 `json:"expires_at"`
	IssuedAt        uint64 `json:"issued_at"`
	SignedBytes     []byte `json:"signed_bytes"`
}

// HandleIssueTrust handles POST /api/v1/issue_trust.
// Second half of the sign-offline pattern: the engine assembles the trust
// from the metadata and the caller-provided signature.
func (h *TrustHandlers) HandleIssueTrust(w http.ResponseWriter, r *http.Request) {
	var req IssueTrustRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	result, err := func() (dto.Trust, error) {
		pk, err := keys.PublicKeyFromBase58(req.IssuedForPeerID)
		if err != nil {
			return dto.Trust{}, err
		}
		sig, err := keys.DecodeSignature(req.SignedBytes)
		if err != nil {
			return dto.Trust{}, err
		}
		t := trust.Trust{
			IssuedFor: pk,
			ExpiresAt: req.ExpiresAt,
			IssuedAt:  req.IssuedAt,
			Signature: sig,
		}
		return dto.FromTrust(t), nil
	}()

	h.metrics.ObserveGraphOp("issue_trust", err)
	h.writeJSON(w, issueTrustResult(result, err))
}

// ============================================================================
// REVOCATIONS
// ============================================================================

// RevokeRequest carries the revoke arguments
type RevokeRequest struct {
	Revocation     dto.Revocation `json:"revocation"`
	CurrentTime    uint64         `json:"current_time"`
	CallParameters CallParameters `json:"call_parameters"`
}

// HandleRevoke handles POST /api/v1/revoke
func (h *TrustHandlers) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	var req RevokeRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	err := func() error {
		if err := checkTimestampTetraplet(req.CallParameters, 1); err != nil {
			return err
		}
		rev, err := req.Revocation.ToRevocation()
		if err != nil {
			return err
		}
		if rev.RevokedAt > req.CurrentTime {
			return &InvalidTimestampError{What: "revocation"}
		}
		return h.graph.Revoke(rev)
	}()

	h.metrics.ObserveGraphOp("revoke", err)
	h.writeJSON(w, insertResult(err))
}

// GetRevocationBytesRequest carries the get_revocation_bytes arguments
type GetRevocationBytesRequest struct {
	RevokedPeerID string `json:"revoked_peer_id"`
	RevokedAt     uint64 `json:"revoked_at"`
}

// HandleGetRevocationBytes handles POST /api/v1/get_revocation_bytes
func (h *TrustHandlers) HandleGetRevocationBytes(w http.ResponseWriter, r *http.Request) {
	var req GetRevocationBytesRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	b, err := func() ([]byte, error) {
		pk, err := keys.PublicKeyFromBase58(req.RevokedPeerID)
		if err != nil {
			return nil, err
		}
		return trust.RevocationBytes(pk, req.RevokedAt), nil
	}()

	h.metrics.ObserveGraphOp("get_revocation_bytes", err)
	h.writeJSON(w, bytesResult(b, err))
}

// IssueRevocationRequest carries the issue_revocation arguments
type IssueRevocationRequest struct {
	RevokedPeerID   string `json:"revoked_peer_id"`
	RevokedByPeerID string `json:"revoked_by_peer_id"`
	RevokedAt       uint64 `json:"revoked_at"`
	SignedBytes     []byte `json:"signed_bytes"`
}

// HandleIssueRevocation handles POST /api/v1/issue_revocation
func (h *TrustHandlers) HandleIssueRevocation(w http.ResponseWriter, r *http.Request) {
	var req IssueRevocationRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	result, err := func() (dto.Revocation, error) {
		pk, err := keys.PublicKeyFromBase58(req.RevokedPeerID)
		if err != nil {
			return dto.Revocation{}, err
		}
		revokedBy, err := keys.PublicKeyFromBase58(req.RevokedByPeerID)
		if err != nil {
			return dto.Revocation{}, err
		}
		sig, err := keys.DecodeSignature(req.SignedBytes)
		if err != nil {
			return dto.Revocation{}, err
		}
		rev := trust.Revocation{
			PK:        pk,
			RevokedAt: req.RevokedAt,
			RevokedBy: revokedBy,
			Signature: sig,
		}
		return dto.FromRevocation(rev), nil
	}()

	h.metrics.ObserveGraphOp("issue_revocation", err)
	h.writeJSON(w, issueRevocationResult(result, err))
}

// ExportRevocationsRequest carries the export_revocations arguments
type ExportRevocationsRequest struct {
	IssuedFor string `json:"issued_for"`
}

// HandleExportRevocations handles POST /api/v1/export_revocations
func (h *TrustHandlers) HandleExportRevocations(w http.ResponseWriter, r *http.Request) {
	var req ExportRevocationsRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	revocations, err := func() ([]dto.Revocation, error) {
		pk, err := keys.PublicKeyFromBase58(req.IssuedFor)
		if err != nil {
			return nil, err
		}
		core, err := h.graph.Revocations(pk)
		if err != nil {
			return nil, err
		}
		return dto.FromRevocations(core), nil
	}()

	h.metrics.ObserveGraphOp("export_revocations", err)
	h.writeJSON(w, exportRevocationsResult(revocations, err))
}

// ============================================================================
// WEIGHT AND CERTIFICATE QUERIES
// ============================================================================

// GetWeightRequest carries the get_weight arguments
type GetWeightRequest struct {
	PeerID         string         `json:"peer_id"`
	CurrentTime    uint64         `json:"current_time"`
	CallParameters CallParameters `json:"call_parameters"`
}

// HandleGetWeight handles POST /api/v1/get_weight
func (h *TrustHandlers) HandleGetWeight(w http.ResponseWriter, r *http.Request) {
	var req GetWeightRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	weight, err := func() (uint32, error) {
		if err := checkTimestampTetraplet(req.CallParameters, 1); err != nil {
			return 0, err
		}
		pk, err := keys.PublicKeyFromBase58(req.PeerID)
		if err != nil {
			return 0, err
		}
		return h.graph.Weight(pk, req.CurrentTime)
	}()

	h.metrics.ObserveGraphOp("get_weight", err)
	h.writeJSON(w, weightResult(weight, req.PeerID, err))
}

// GetWeightFromRequest carries the get_weight_from arguments
type GetWeightFromRequest struct {
	PeerID         string         `json:"peer_id"`
	IssuerPeerID   string         `json:"issuer_peer_id"`
	CurrentTime    uint64         `json:"current_time"`
	CallParameters CallParameters `json:"call_parameters"`
}

// HandleGetWeightFrom handles POST /api/v1/get_weight_from
func (h *TrustHandlers) HandleGetWeightFrom(w http.ResponseWriter, r *http.Request) {
	var req GetWeightFromRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	weight, err := func() (uint32, error) {
		if err := checkTimestampTetraplet(req.CallParameters, 2); err != nil {
			return 0, err
		}
		pk, err := keys.PublicKeyFromBase58(req.PeerID)
		if err != nil {
			return 0, err
		}
		issuer, err := keys.PublicKeyFromBase58(req.IssuerPeerID)
		if err != nil {
			return 0, err
		}
		return h.graph.WeightFrom(pk, issuer, req.CurrentTime)
	}()

	h.metrics.ObserveGraphOp("get_weight_from", err)
	h.writeJSON(w, weightResult(weight, req.PeerID, err))
}

// GetAllCertsRequest carries the get_all_certs arguments
type GetAllCertsRequest struct {
	IssuedFor      string         `json:"issued_for"`
	CurrentTime    uint64         `json:"current_time"`
	CallParameters CallParameters `json:"call_parameters"`
}

// HandleGetAllCerts handles POST /api/v1/get_all_certs
func (h *TrustHandlers) HandleGetAllCerts(w http.ResponseWriter, r *http.Request) {
	var req GetAllCertsRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	certs, err := func() ([]dto.Certificate, error) {
		if err := checkTimestampTetraplet(req.CallParameters, 1); err != nil {
			return nil, err
		}
		pk, err := keys.PublicKeyFromBase58(req.IssuedFor)
		if err != nil {
			return nil, err
		}
		core, err := h.graph.AllCertificates(pk, req.CurrentTime)
		if err != nil {
			return nil, err
		}
		h.metrics.ObserveCertificates(len(core))
		return dto.FromCertificates(core), nil
	}()

	h.metrics.ObserveGraphOp("get_all_certs", err)
	h.writeJSON(w, allCertsResult(certs, err))
}

// GetAllCertsFromRequest carries the get_all_certs_from arguments
type GetAllCertsFromRequest struct {
	IssuedFor      string         `json:"issued_for"`
	IssuerPeerID   string         `json:"issuer_peer_id"`
	CurrentTime    uint64         `json:"current_time"`
	CallParameters CallParameters `json:"call_parameters"`
}

// HandleGetAllCertsFrom handles POST /api/v1/get_all_certs_from
func (h *TrustHandlers) HandleGetAllCertsFrom(w http.ResponseWriter, r *http.Request) {
	var req GetAllCertsFromRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	certs, err := func() ([]dto.Certificate, error) {
		if err := checkTimestampTetraplet(req.CallParameters, 2); err != nil {
			return nil, err
		}
		pk, err := keys.PublicKeyFromBase58(req.IssuedFor)
		if err != nil {
			return nil, err
		}
		issuer, err := keys.PublicKeyFromBase58(req.IssuerPeerID)
		if err != nil {
			return nil, err
		}
		core, err := h.graph.AllCertificatesFrom(pk, issuer, req.CurrentTime)
		if err != nil {
			return nil, err
		}
		h.metrics.ObserveCertificates(len(core))
		return dto.FromCertificates(core), nil
	}()

	h.metrics.ObserveGraphOp("get_all_certs_from", err)
	h.writeJSON(w, allCertsResult(certs, err))
}

// GetHostCertsRequest carries the get_host_certs arguments
type GetHostCertsRequest struct {
	CurrentTime    uint64         `json:"current_time"`
	CallParameters CallParameters `json:"call_parameters"`
}

// HandleGetHostCerts handles POST /api/v1/get_host_certs
func (h *TrustHandlers) HandleGetHostCerts(w http.ResponseWriter, r *http.Request) {
	var req GetHostCertsRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	certs, err := func() ([]dto.Certificate, error) {
		if err := checkTimestampTetraplet(req.CallParameters, 0); err != nil {
			return nil, err
		}
		core, err := h.graph.AllCertificates(h.hostPK, req.CurrentTime)
		if err != nil {
			return nil, err
		}
		return dto.FromCertificates(core), nil
	}()

	h.metrics.ObserveGraphOp("get_host_certs", err)
	h.writeJSON(w, allCertsResult(certs, err))
}

// GetHostCertsFromRequest carries the get_host_certs_from arguments
type GetHostCertsFromRequest struct {
	IssuerPeerID   string         `json:"issuer_peer_id"`
	CurrentTime    uint64         `json:"current_time"`
	CallParameters CallParameters `json:"call_parameters"`
}

// HandleGetHostCertsFrom handles POST /api/v1/get_host_certs_from
func (h *TrustHandlers) HandleGetHostCertsFrom(w http.ResponseWriter, r *http.Request) {
	var req GetHostCertsFromRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	certs, err := func() ([]dto.Certificate, error) {
		if err := checkTimestampTetraplet(req.CallParameters, 1); err != nil {
			return nil, err
		}
		issuer, err := keys.PublicKeyFromBase58(req.IssuerPeerID)
		if err != nil {
			return nil, err
		}
		core, err := h.graph.AllCertificatesFrom(h.hostPK, issuer, req.CurrentTime)
		if err != nil {
			return nil, err
		}
		return dto.FromCertificates(core), nil
	}()

	h.metrics.ObserveGraphOp("get_host_certs_from", err)
	h.writeJSON(w, allCertsResult(certs, err))
}
