package timeutil

import "testing"

func TestRoundTripMicroseconds(t *testing.T) {
	cases := []uint64{
		0,
		platformEpochOffset() ,
		platformEpochOffset() + 1_000_000,
		platformEpochOffset() + 123_456_789,
	}
	for _, us := range cases {
		ns := FromPlatformUS(us)
		got := ToPlatformUS(ns)
		if got != us {
			t.Errorf("round trip mismatch: in=%d ns=%d out=%d", us, ns, got)
		}
	}
}

func platformEpochOffset() uint64 {
	return uint64(platformEpochOffsetSeconds) * 1_000_000
}

func TestMsOf(t *testing.T) {
	if got := MsOf(1_500_000); got != 1 {
		t.Errorf("MsOf(1_500_000) = %d, want 1", got)
	}
	if got := MsOf(999_999); got != 0 {
		t.Errorf("MsOf(999_999) = %d, want 0", got)
	}
	if got := MsOf(0); got != 0 {
		t.Errorf("MsOf(0) = %d, want 0", got)
	}
}

func TestComposeOrdering(t *testing.T) {
	prev := Compose(5, 0)
	for tick := 1; tick <= 999; tick++ {
		cur := Compose(5, tick)
		if cur <= prev {
			t.Fatalf("Compose not strictly increasing at tick=%d: prev=%d cur=%d", tick, prev, cur)
		}
		prev = cur
	}
	if Compose(6, 0) <= prev {
		t.Fatalf("Compose(6,0) must exceed the last tick of ms 5")
	}
}

func TestNsOfMsRoundTrip(t *testing.T) {
	for _, ms := range []MillisecondIndex{0, 1, 1000, 86_400_000} {
		if got := MsOf(NsOfMs(ms)); got != ms {
			t.Errorf("MsOf(NsOfMs(%d)) = %d", ms, got)
		}
	}
}
