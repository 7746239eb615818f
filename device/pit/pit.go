// Package pit drives the programmable interval timer that paces the
// scheduler.
package pit

import (
	"io"

	"lwos/device"
	"lwos/kernel"
	"lwos/kernel/kfmt"
)

const (
	// BaseFrequency is the PIT input clock in Hz.
	BaseFrequency = 1193182

	// DefaultFrequency is the scheduler tick rate.
	DefaultFrequency = 100
)

var errInvalidFrequency = &kernel.Error{Module: "pit", Message: "frequency out of range"}

// PIT is channel 0 of the interval timer, wired to IRQ0.
type PIT struct {
	freq    uint32
	divisor uint16
	ticker  *device.Ticker
}

// New returns a timer that will call raise freq times per second once
// started.
func New(freq uint32, raise func()) *PIT {
	if raise == nil {
		raise = func() {}
	}

	return &PIT{freq: freq, ticker: device.NewTicker(raise)}
}

// Divisor returns the reload value programmed into channel 0.
func (p *PIT) Divisor() uint16 {
	return p.divisor
}

// Start begins generating timer interrupts.
func (p *PIT) Start() {
	p.ticker.Start(device.PeriodFor(p.freq))
}

// Stop halts the timer.
func (p *PIT) Stop() {
	p.ticker.Stop()
}

// DriverName returns the name of this driver.
func (p *PIT) DriverName() string {
	return "pit"
}

// DriverVersion returns the version of this driver.
func (p *PIT) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// DriverInit validates the frequency and computes the channel 0 divisor.
func (p *PIT) DriverInit(w io.Writer) *kernel.Error {
	// The divisor is 16 bits wide; 0 stands for 65536.
	if p.freq < 19 || p.freq > BaseFrequency {
		return errInvalidFrequency
	}

	p.divisor = uint16(BaseFrequency / p.freq)
	kfmt.Fprintf(w, "channel 0 at %d Hz (divisor %d)\n", p.freq, p.divisor)
	return nil
}
