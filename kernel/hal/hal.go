package hal

import (
	"bytes"
	"strings"

	"lwos/device"
	"lwos/kernel/kfmt"
)

// ParseCmdLine splits a boot command line into key/value pairs. Arguments of
// the form "foo=bar" map foo to bar while bare flags such as "nofoo" map to
// themselves. Arguments containing more than one '=' are ignored.
func ParseCmdLine(cmdLine string) map[string]string {
	kv := make(map[string]string)
	for _, pair := range strings.Fields(cmdLine) {
		parts := strings.Split(pair, "=")
		switch len(parts) {
		case 2: // foo=bar
			kv[parts[0]] = parts[1]
		case 1: // nofoo
			kv[parts[0]] = parts[0]
		}
	}

	return kv
}

// DetectHardware initializes the supplied drivers in order and returns the
// ones that initialized successfully. Each driver logs through a writer that
// tags its output with the driver name and version.
func DetectHardware(drivers []device.Driver) []device.Driver {
	var (
		w      = kfmt.PrefixWriter{Sink: kfmt.GetOutputSink()}
		strBuf bytes.Buffer
		active []device.Driver
	)

	for _, drv := range drivers {
		if drv == nil {
			continue
		}

		strBuf.Reset()
		major, minor, patch := drv.DriverVersion()
		kfmt.Fprintf(&strBuf, "[hal] %s(%d.%d.%d): ", drv.DriverName(), major, minor, patch)
		w.Prefix = strBuf.Bytes()

		if err := drv.DriverInit(&w); err != nil {
			kfmt.Fprintf(&w, "init failed: %s\n", err.Message)
			continue
		}

		kfmt.Fprintf(&w, "initialized\n")
		active = append(active, drv)
	}

	return active
}
