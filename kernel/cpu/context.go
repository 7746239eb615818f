package cpu

import "runtime"

var (
	// exitFn is used by tests to override runtime.Goexit.
	exitFn = runtime.Goexit

	// goFn starts a new execution context. Tests may replace it to run
	// entry points synchronously.
	goFn = func(fn func()) { go fn() }
)

// Context is a saved execution anchor. A context that is parked can be
// resumed exactly once per park by another context, optionally receiving a
// value (for example the exit status of a child process).
type Context struct {
	resume chan int32
}

// NewContext returns a context that is not parked.
func NewContext() *Context {
	return &Context{resume: make(chan int32, 1)}
}

// Park suspends the calling code until ctx is resumed and returns the value
// passed to Resume.
func (ctx *Context) Park() int32 {
	return <-ctx.resume
}

// Resume transfers the processor to ctx, delivering val as the result of its
// pending Park. The caller must immediately park on its own context or exit.
func (ctx *Context) Resume(val int32) {
	ctx.resume <- val
}

// Switch saves the caller into from and resumes to. It returns when some
// other context resumes from.
func Switch(from, to *Context, val int32) int32 {
	to.Resume(val)
	return from.Park()
}

// Exit discards the calling context. It never returns.
func Exit() {
	exitFn()
}

// IretFrame is the stack frame consumed by IRET when dropping to user mode.
type IretFrame struct {
	EIP    uint32
	CS     uint32
	EFlags uint32
	ESP    uint32
	SS     uint32
}

// NewUserFrame returns the frame for entering user code at eip with the
// stack pointer set to esp.
func NewUserFrame(eip, esp uint32) IretFrame {
	return IretFrame{
		EIP:    eip,
		CS:     uint32(UserCS),
		EFlags: UserEFlags,
		ESP:    esp,
		SS:     uint32(UserDS),
	}
}

// Iret prepares a fresh context that executes entry with the supplied frame.
// The new context stays parked on ctx until another context resumes it, so
// the caller hands over the processor with Switch (or Resume followed by
// Exit).
func Iret(ctx *Context, frame IretFrame, entry func(IretFrame)) {
	goFn(func() {
		ctx.Park()
		entry(frame)
	})
}
