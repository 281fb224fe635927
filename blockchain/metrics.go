package blockchain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics the Coordinator and Block Processor update as the chain
// advances, grounded on the teacher's beacon-chain/blockchain package
// convention of a package-level promauto.New*... block per package.
var (
	headSlotGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "beacon_head_slot",
		Help: "Slot of the current fork-choice head.",
	})
	validatorCountGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "beacon_validator_count",
		Help: "Number of validators in the head state.",
	})
	blocksProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_blocks_processed_total",
		Help: "Count of blocks that reached the Stored pipeline stage.",
	})
	blockProcessingErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_block_processing_errors_total",
		Help: "Count of ReceiveBlock failures by ErrKind.",
	}, []string{"kind"})
)

func kindLabel(kind ErrKind) string {
	switch kind {
	case KindUnknownParent:
		return "unknown_parent"
	case KindInvalidBlock:
		return "invalid_block"
	case KindFutureSlot:
		return "future_slot"
	case KindInvalidAttestation:
		return "invalid_attestation"
	case KindStorageFault:
		return "storage_fault"
	case KindGenesisMismatch:
		return "genesis_mismatch"
	case KindConfigMismatch:
		return "config_mismatch"
	default:
		return "unknown"
	}
}

// observeErr increments blockProcessingErrorsTotal for any error this
// package classified; it is a no-op for nil or unclassified errors.
func observeErr(err error) {
	if err == nil {
		return
	}
	if kind, ok := KindOf(err); ok {
		blockProcessingErrorsTotal.WithLabelValues(kindLabel(kind)).Inc()
	}
}
