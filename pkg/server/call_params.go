// Copyright 2025 Certen Protocol
//
// Call parameters and timestamp provenance. The transport attaches a
// tetraplet to every argument proving which peer, service and function
// produced it; timestamps are only accepted from the local host's
// timestamp service.

package server

// Trusted provenance of timestamp arguments: the host peer's
// timestamp_sec builtin.
const (
	trustedTimestampService  = "peer"
	trustedTimestampFunction = "timestamp_sec"
)

// Tetraplet is the provenance record of one argument
type Tetraplet struct {
	// PeerPK is the peer that produced the value
	PeerPK string `json:"peer_pk"`
	// ServiceID is the service that produced the value
	ServiceID string `json:"service_id"`
	// FunctionName is the function that produced the value
	FunctionName string `json:"function_name"`
}

// CallParameters carry the identity and provenance of one call
type CallParameters struct {
	// InitPeerID is the identity that originated the call
	InitPeerID string `json:"init_peer_id"`
	// HostID is the local host serving the call
	HostID string `json:"host_id"`
	// Tetraplets holds the provenance records per argument position
	Tetraplets [][]Tetraplet `json:"tetraplets"`
}

// checkTimestampTetraplet verifies that the argument at argNumber is a
// timestamp produced by the host's own timestamp service.
func checkTimestampTetraplet(cp CallParameters, argNumber int) error {
	if argNumber >= len(cp.Tetraplets) || len(cp.Tetraplets[argNumber]) == 0 {
		return &InvalidTimestampTetrapletError{Have: "no tetraplet for the timestamp argument"}
	}
	t := cp.Tetraplets[argNumber][0]
	if t.ServiceID != trustedTimestampService ||
		t.FunctionName != trustedTimestampFunction ||
		t.PeerPK != cp.HostID {
		return &InvalidTimestampTetrapletError{
			Have: t.PeerPK + "/" + t.ServiceID + "." + t.FunctionName,
		}
	}
	return nil
}
