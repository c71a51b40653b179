package sk8

import "time"

// samplePeriod is the trailing window over which sample rate and recent loss
// are estimated. Both stay unavailable until a full period has elapsed since
// the tracker started (or was last reset).
const samplePeriod = 3 * time.Second

// droppedBetween returns the number of packets lost between two consecutive
// sequence numbers, accounting for mod-256 wraparound. Receiving the same
// sequence twice counts as a full wrap (255 lost).
func droppedBetween(last, seq uint8) int {
	return int(seq - last - 1)
}

type packetMeta struct {
	at      time.Time
	dropped int
}

// lossTracker detects gaps in an 8-bit wrapping sequence stream and keeps a
// rolling window of (arrival time, packets dropped before this one) entries
// spanning the trailing samplePeriod, newest first.
type lossTracker struct {
	seq    uint8
	hasSeq bool

	window []packetMeta
	start  time.Time
	total  int

	now func() time.Time // injectable for tests
}

func newLossTracker() lossTracker {
	t := lossTracker{now: time.Now}
	t.reset()
	return t
}

func (t *lossTracker) reset() {
	if t.now == nil {
		t.now = time.Now
	}
	t.seq = 0
	t.hasSeq = false
	t.window = nil
	t.start = t.now()
	t.total = 0
}

// observe records the arrival of a packet with the given sequence number and
// returns how many packets were dropped immediately before it (0 for the
// first packet after a reset).
func (t *lossTracker) observe(seq uint8, ts time.Time) int {
	dropped := 0
	if t.hasSeq {
		if expected := t.seq + 1; expected != seq {
			dropped = droppedBetween(t.seq, seq)
			t.total += dropped
		}
	}
	t.seq = seq
	t.hasSeq = true

	t.window = append([]packetMeta{{at: ts, dropped: dropped}}, t.window...)
	now := t.now()
	for len(t.window) > 0 && now.Sub(t.window[len(t.window)-1].at) > samplePeriod {
		t.window = t.window[:len(t.window)-1]
	}
	return dropped
}

// Seq returns the most recent sequence number, or false if no packet has been
// observed since the last reset.
func (t *lossTracker) Seq() (uint8, bool) {
	return t.seq, t.hasSeq
}

// SampleRate estimates packets per second over the rolling window. The second
// return value is false until a full sample period has elapsed since the
// tracker started.
func (t *lossTracker) SampleRate() (float64, bool) {
	if t.now().Sub(t.start) < samplePeriod {
		return 0, false
	}
	return float64(len(t.window)) / samplePeriod.Seconds(), true
}

// RecentLoss is the number of packets dropped within the rolling window,
// under the same warm-up condition as SampleRate.
func (t *lossTracker) RecentLoss() (int, bool) {
	if t.now().Sub(t.start) < samplePeriod {
		return 0, false
	}
	lost := 0
	for _, m := range t.window {
		lost += m.dropped
	}
	return lost, true
}

// TotalLoss is the cumulative number of packets dropped since the tracker
// started or was last reset. Always available.
func (t *lossTracker) TotalLoss() int {
	return t.total
}
