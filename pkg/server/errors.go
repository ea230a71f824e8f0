// Copyright 2025 Certen Protocol
//
// Service-level error kinds for the RPC surface

package server

import (
	"errors"
	"fmt"
)

// ErrNotOwner is returned when a caller other than the service owner
// tries to designate roots.
var ErrNotOwner = errors.New("roots can be designated only by the trust graph service owner")

// InvalidTimestampTetrapletError is returned when a timestamp argument
// does not carry provenance from the host's timestamp service.
type InvalidTimestampTetrapletError struct {
	Have string
}

func (e *InvalidTimestampTetrapletError) Error() string {
	return fmt.Sprintf("you should use host peer.timestamp_sec to pass the timestamp, got %s", e.Have)
}

// InvalidTimestampError is returned when a relation's own timestamp lies
// in the future of the provided current time.
type InvalidTimestampError struct {
	What string
}

func (e *InvalidTimestampError) Error() string {
	return fmt.Sprintf("%s can't be issued later than the current timestamp", e.What)
}
