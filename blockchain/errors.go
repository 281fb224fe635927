// Package blockchain implements Component G, the Block Processor, and
// Component H, the Chain Coordinator (spec.md §4.G-§4.H). Grounded on the
// teacher's beacon-chain/blockchain/receive_block.go (ReceiveBlock
// pipeline shape: state transition, fork-choice, head update, post-block
// attestation forwarding), init_sync_process_block.go (parent-gated,
// orphan-pool processing), and service.go's Service/Start/Stop shape —
// restructured per spec.md §9's "BeaconChain god-object decomposed" note
// so this Service holds handles to the other components rather than
// owning their data directly.
package blockchain

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

// ErrKind classifies a block/attestation processing failure per spec.md
// §7, so callers can decide whether to retry, discard, or escalate.
type ErrKind int

const (
	// KindUnknownParent: transient; the Block Processor parks the block
	// in its orphan pool until the parent arrives.
	KindUnknownParent ErrKind = iota
	// KindInvalidBlock: permanent for this block's bytes (STF failure,
	// bad signature, slot ordering).
	KindInvalidBlock
	// KindFutureSlot: transient; defer until the clock advances past
	// slot - MaxFutureSlots.
	KindFutureSlot
	// KindInvalidAttestation: permanent; discard.
	KindInvalidAttestation
	// KindStorageFault: fatal at the subsystem level; the coordinator
	// initiates stop().
	KindStorageFault
	// KindGenesisMismatch: fatal; operator must wipe storage.
	KindGenesisMismatch
	// KindConfigMismatch: fatal on startup.
	KindConfigMismatch
)

// ProcessingError pairs a classified Kind with the underlying cause.
type ProcessingError struct {
	Kind ErrKind
	Err  error
}

func (e *ProcessingError) Error() string { return e.Err.Error() }
func (e *ProcessingError) Unwrap() error { return e.Err }

func newErr(kind ErrKind, msg string) error {
	return &ProcessingError{Kind: kind, Err: errors.New(msg)}
}

func wrapErr(kind ErrKind, err error, msg string) error {
	return &ProcessingError{Kind: kind, Err: errors.Wrap(err, msg)}
}

// KindOf extracts the ErrKind from err, if it is (or wraps) a
// *ProcessingError; ok is false for errors this package never classified.
func KindOf(err error) (ErrKind, bool) {
	var pe *ProcessingError
	if stderrors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}
