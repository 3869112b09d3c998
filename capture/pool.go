package capture

import "github.com/hb9tf/sweeprx/sdr"

// Pool holds one receive buffer per channel, each sized for exactly
// samplesPerTransfer samples of the run's encoding.
type Pool struct {
	bufs   [][]byte
	spb    int
	format sdr.Format
}

func NewPool(channels, samplesPerTransfer int, format sdr.Format) *Pool {
	bufs := make([][]byte, channels)
	for i := range bufs {
		bufs[i] = make([]byte, samplesPerTransfer*format.ByteWidth())
	}
	return &Pool{bufs: bufs, spb: samplesPerTransfer, format: format}
}

// Acquire returns the per-channel views, valid until the next Acquire.
func (p *Pool) Acquire() [][]byte {
	return p.bufs
}

func (p *Pool) SamplesPerTransfer() int {
	return p.spb
}

func (p *Pool) Channels() int {
	return len(p.bufs)
}

func (p *Pool) Format() sdr.Format {
	return p.format
}

// Bytes is the size of n samples of the pool's encoding.
func (p *Pool) Bytes(n int) int {
	return n * p.format.ByteWidth()
}
