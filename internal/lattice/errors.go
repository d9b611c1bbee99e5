package lattice

import "errors"

var (
	// ErrBackpressure reports a relay whose buffer cannot take the
	// routed units. The caller treats the transfer as rejected.
	ErrBackpressure = errors.New("relay buffer is full")
)
