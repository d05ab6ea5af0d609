// Package trades implements the streaming codec for the TRADES binary
// format: a fixed 56-byte header (preserved verbatim by callers) followed
// by 40-byte little-endian tick/bar records.
package trades

// RecordSize is the on-disk size of one TRADES record: <QffffIIII>.
const RecordSize = 40

// HeaderSize is the on-disk size of the TRADES header, preserved
// verbatim by the encoder.
const HeaderSize = 56

// Kind classifies a decoded record by the bit pattern of its Open field.
type Kind int

const (
	// SingleTrade: High = ask at trade, Low = bid at trade, Close = price.
	SingleTrade Kind = iota
	// FirstSubTrade marks the start of an unbundled aggregate trade.
	FirstSubTrade
	// LastSubTrade marks the end of an unbundled aggregate trade.
	LastSubTrade
	// Aggregated is a plain OHLC interval bar, passed through unchanged.
	Aggregated
	// DepthInjected is a synthetic record the synchronizer inserts to
	// carry a depth batch's resulting BBO into the TRADES timeline.
	DepthInjected
)

func (k Kind) String() string {
	switch k {
	case SingleTrade:
		return "SINGLE_TRADE"
	case FirstSubTrade:
		return "FIRST_SUB_TRADE"
	case LastSubTrade:
		return "LAST_SUB_TRADE"
	case Aggregated:
		return "AGGREGATED"
	case DepthInjected:
		return "DEPTH_INJECTED"
	default:
		return "UNKNOWN"
	}
}

// Record is one decoded TRADES record. PlatformUS is the on-disk
// timestamp field; its microsecond component carries no physical
// meaning and is reassigned during synchronization.
type Record struct {
	PlatformUS  uint64
	Open        float32
	High        float32
	Low         float32
	Close       float32
	NumTrades   uint32
	TotalVolume uint32
	BidVolume   uint32
	AskVolume   uint32

	Kind Kind
}
