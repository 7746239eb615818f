// Package rtc drives the real time clock's periodic interrupt.
package rtc

import (
	"io"
	"sync"

	"lwos/device"
	"lwos/kernel"
	"lwos/kernel/kfmt"
)

const (
	// BaseFrequency is the frequency of the RTC time base in Hz.
	BaseFrequency = 32768

	// DefaultFrequency is the periodic interrupt rate after reset.
	DefaultFrequency = 2

	// MinRate and MaxRate bound the divider values accepted by the
	// hardware. Rate r produces BaseFrequency >> (r-1) interrupts per
	// second.
	MinRate = 3
	MaxRate = 15
)

var (
	// ErrInvalidFrequency is returned for frequencies that are not a
	// power of two reachable by a valid rate divider.
	ErrInvalidFrequency = &kernel.Error{Module: "rtc", Message: "invalid periodic interrupt frequency"}
)

// RTC is the real time clock. The periodic interrupt is produced by a ticker
// goroutine that raises IRQ8; the kernel acknowledges each interrupt through
// HandleInterrupt.
type RTC struct {
	mu   sync.Mutex
	rate uint8

	ticker *device.Ticker

	// interrupts counts the serviced periodic interrupts. It is only
	// accessed by the kernel.
	interrupts uint64
}

// New returns an RTC programmed for DefaultFrequency that calls raise on every
// periodic interrupt once started.
func New(raise func()) *RTC {
	if raise == nil {
		raise = func() {}
	}

	rate, _ := RateForFrequency(DefaultFrequency)
	return &RTC{
		rate:   rate,
		ticker: device.NewTicker(raise),
	}
}

// RateForFrequency returns the rate divider that produces freq interrupts per
// second.
func RateForFrequency(freq uint32) (uint8, *kernel.Error) {
	var (
		value = uint32(BaseFrequency)
		rate  = uint8(1)
	)

	for value > freq {
		value >>= 1
		rate++
	}

	if value != freq || rate < MinRate || rate > MaxRate {
		return 0, ErrInvalidFrequency
	}

	return rate, nil
}

// SetFrequency reprograms the periodic interrupt rate.
func (r *RTC) SetFrequency(freq uint32) *kernel.Error {
	rate, err := RateForFrequency(freq)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.rate = rate
	r.mu.Unlock()

	r.ticker.SetPeriod(device.PeriodFor(freq))
	return nil
}

// Frequency returns the programmed periodic interrupt rate in Hz.
func (r *RTC) Frequency() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return BaseFrequency >> (r.rate - 1)
}

// Rate returns the programmed rate divider.
func (r *RTC) Rate() uint8 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rate
}

// Start enables the periodic interrupt.
func (r *RTC) Start() {
	r.ticker.Start(device.PeriodFor(r.Frequency()))
}

// Stop disables the periodic interrupt.
func (r *RTC) Stop() {
	r.ticker.Stop()
}

// HandleInterrupt records a serviced periodic interrupt. On real hardware this
// is where register C is read so the RTC raises the next interrupt.
func (r *RTC) HandleInterrupt() {
	r.interrupts++
}

// Interrupts returns the number of serviced periodic interrupts.
func (r *RTC) Interrupts() uint64 {
	return r.interrupts
}

// DriverName returns the name of this driver.
func (r *RTC) DriverName() string {
	return "rtc"
}

// DriverVersion returns the version of this driver.
func (r *RTC) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// DriverInit initializes this driver.
func (r *RTC) DriverInit(w io.Writer) *kernel.Error {
	kfmt.Fprintf(w, "periodic interrupt at %d Hz (rate %d)\n", r.Frequency(), r.Rate())
	return nil
}
