package trades

import "math"

// Sentinel bit patterns for the Open field. Compared bitwise against
// math.Float32bits, never by numeric equality, since one of the
// sentinels is a NaN and NaN never compares equal to itself.
const (
	bitsSingleTrade    uint32 = 0x00000000
	bitsFirstSubTrade  uint32 = 0xFAE6E78A
	bitsLastSubTrade   uint32 = 0xFAE6E84E
	bitsDepthInjected  uint32 = 0x7FC0DEAD
)

// DepthInjectedOpen is the float32 value the encoder writes into the Open
// field of a depth-injected TRADES record: a quiet NaN with a payload
// distinct from every real sentinel, so downstream readers can recognize
// it without ambiguity.
var DepthInjectedOpen = math.Float32frombits(bitsDepthInjected)

// classify maps an Open bit pattern to a Kind. Unrecognized patterns are
// treated as a plain aggregated bar.
func classify(openBits uint32) Kind {
	switch openBits {
	case bitsSingleTrade:
		return SingleTrade
	case bitsFirstSubTrade:
		return FirstSubTrade
	case bitsLastSubTrade:
		return LastSubTrade
	case bitsDepthInjected:
		return DepthInjected
	default:
		return Aggregated
	}
}

// OpenBits returns the raw bit pattern of a record's Open field.
func OpenBits(open float32) uint32 {
	return math.Float32bits(open)
}
