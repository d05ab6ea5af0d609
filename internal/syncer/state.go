package syncer

import "scsync/internal/diag"

// State is one of the four synchronizer lifecycle states.
type State int

const (
	Init State = iota
	Streaming
	Draining
	Done
)

func (s State) String() string {
	switch s {
	case Init:
		return "Init"
	case Streaming:
		return "Streaming"
	case Draining:
		return "Draining"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

// Status is the top-level outcome of a synchronizer run.
type Status int

const (
	Complete Status = iota
	PartiallyComplete
	Failed
)

func (s Status) String() string {
	switch s {
	case Complete:
		return "Complete"
	case PartiallyComplete:
		return "PartiallyComplete"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Result summarizes one synchronizer run.
type Result struct {
	Status Status
	Reason string // populated for PartiallyComplete and Failed

	TradeIn         int
	TradeOut        int
	DepthRecordIn   int
	DepthRecordOut  int
	DepthBatchCount int
	BucketCount     int

	Anomalies diag.Counts
}
