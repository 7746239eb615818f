package kfmt

import "io"

// PrefixWriter is an io.Writer that wraps another io.Writer and injects a
// prefix at the beginning of each line. The kernel subsystems use it to tag
// their output with a "[module] " prefix.
type PrefixWriter struct {
	// A writer where all writes get sent to. If nil, writes go to the
	// active Printf output sink.
	Sink io.Writer

	// The prefix injected at the beginning of each line.
	Prefix []byte

	midLine bool
}

// NewPrefixWriter returns a PrefixWriter that tags lines written to sink with
// "[module] ".
func NewPrefixWriter(sink io.Writer, module string) *PrefixWriter {
	return &PrefixWriter{
		Sink:   sink,
		Prefix: []byte("[" + module + "] "),
	}
}

// Write writes len(p) bytes from p to the underlying data stream and returns
// back the number of bytes written. The injected prefix is not included in the
// number of written bytes returned by this method.
func (w *PrefixWriter) Write(p []byte) (int, error) {
	var (
		sink    = w.sink()
		written int
		start   int
	)

	for start < len(p) {
		if !w.midLine {
			if _, err := sink.Write(w.Prefix); err != nil {
				return written, err
			}
			w.midLine = true
		}

		end := start
		for end < len(p) && p[end] != '\n' {
			end++
		}

		if end < len(p) {
			// include the line feed
			end++
			w.midLine = false
		}

		n, err := sink.Write(p[start:end])
		written += n
		if err != nil {
			return written, err
		}
		start = end
	}

	return written, nil
}

func (w *PrefixWriter) sink() io.Writer {
	if w.Sink != nil {
		return w.Sink
	}

	return sinkWriter{}
}
