package kernel

// Error describes a kernel error. All kernel errors must be defined as global
// variables that are pointers to the Error structure so that error paths
// never need to allocate.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string

	// Code is the (negative) value reported to user programs when this
	// error terminates a system call. A zero Code is reported as -1.
	Code int32
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Status returns the system call return value that corresponds to e.
func (e *Error) Status() int32 {
	if e == nil {
		return 0
	}

	if e.Code == 0 {
		return -1
	}

	return e.Code
}
