package sk8

import (
	"fmt"
	"time"
)

// ExtAnaData provides access to data from an attached SK8-ExtAna board.
// There is exactly one per session.
//
// Unlike IMUData, ExtAna loss tracking keeps no rolling window: only the
// last sequence number and a running total of dropped packets are tracked,
// so there is no sample-rate or recent-loss estimate for the analogue
// stream.
type ExtAnaData struct {
	// Ch1 and Ch2 are the most recent analogue channel readings.
	Ch1 int16
	Ch2 int16

	// Temperature is the most recent temperature reading in °C.
	Temperature float64

	// Timestamp is the arrival time of the most recent packet.
	Timestamp time.Time

	seq       uint8
	hasSeq    bool
	totalLost int
}

func newExtAnaData() *ExtAnaData {
	return &ExtAnaData{}
}

// Reset clears all streaming state.
func (d *ExtAnaData) Reset() {
	*d = ExtAnaData{}
}

// Seq returns the sequence number of the most recent packet, or false if no
// packet has arrived since streaming was enabled.
func (d *ExtAnaData) Seq() (uint8, bool) {
	return d.seq, d.hasSeq
}

// TotalLoss is the cumulative number of packets dropped since streaming was
// enabled or the board state was reset.
func (d *ExtAnaData) TotalLoss() int {
	return d.totalLost
}

// update stores one packet's channel values, converts the temperature from
// hundredths of a degree to float degrees, and advances sequence tracking.
func (d *ExtAnaData) update(pkt ExtAnaPacket, ts time.Time) {
	d.Ch1 = pkt.Ch1
	d.Ch2 = pkt.Ch2
	d.Temperature = float64(pkt.Temp) / 100.0
	d.Timestamp = ts

	if d.hasSeq {
		if expected := d.seq + 1; expected != pkt.Seq {
			d.totalLost += droppedBetween(d.seq, pkt.Seq)
		}
	}
	d.seq = pkt.Seq
	d.hasSeq = true
}

func (d *ExtAnaData) String() string {
	return fmt.Sprintf("ch1=%d, ch2=%d, temp=%.1f, seq=%d", d.Ch1, d.Ch2, d.Temperature, d.seq)
}
