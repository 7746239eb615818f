package fd

import (
	"encoding/binary"

	"lwos/device/rtc"
	"lwos/kernel"
)

// WaitFunc blocks until ready returns true. Implementations keep servicing
// interrupts while waiting.
type WaitFunc func(ready func() bool)

// RTCOps implements descriptors for the real time clock.
type RTCOps struct {
	RTC  *rtc.RTC
	Wait WaitFunc
}

// Open resets the periodic interrupt to its default frequency.
func (ops RTCOps) Open(*Descriptor) *kernel.Error {
	return ops.RTC.SetFrequency(rtc.DefaultFrequency)
}

// Read blocks until the next periodic interrupt and returns 0.
func (ops RTCOps) Read(*Descriptor, []byte) (int, *kernel.Error) {
	start := ops.RTC.Interrupts()
	ops.Wait(func() bool { return ops.RTC.Interrupts() != start })
	return 0, nil
}

// Write programs the periodic interrupt frequency. buf must hold a 4-byte
// little-endian frequency that is a power of two between 2 and 8192 Hz.
func (ops RTCOps) Write(_ *Descriptor, buf []byte) (int, *kernel.Error) {
	if len(buf) != 4 {
		return -1, rtc.ErrInvalidFrequency
	}

	if err := ops.RTC.SetFrequency(binary.LittleEndian.Uint32(buf)); err != nil {
		return -1, err
	}

	return len(buf), nil
}

// Close is a no-op.
func (RTCOps) Close(*Descriptor) *kernel.Error {
	return nil
}
