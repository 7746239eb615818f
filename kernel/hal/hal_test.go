package hal

import (
	"bytes"
	"io"
	"reflect"
	"testing"

	"lwos/device"
	"lwos/kernel"
	"lwos/kernel/kfmt"
)

func TestParseCmdLine(t *testing.T) {
	specs := []struct {
		input string
		exp   map[string]string
	}{
		{"", map[string]string{}},
		{"childSlots=2", map[string]string{"childSlots": "2"}},
		{
			"  childSlots=1   schedDebug timerHz=50 ",
			map[string]string{"childSlots": "1", "schedDebug": "schedDebug", "timerHz": "50"},
		},
		{"fs=a=b rtcHz=4", map[string]string{"rtcHz": "4"}},
		{"rtcHz=2 rtcHz=8", map[string]string{"rtcHz": "8"}},
	}

	for specIndex, spec := range specs {
		if got := ParseCmdLine(spec.input); !reflect.DeepEqual(got, spec.exp) {
			t.Errorf("[spec %d] expected %v; got %v", specIndex, spec.exp, got)
		}
	}
}

type fakeDriver struct {
	name    string
	initErr *kernel.Error
	inits   int
}

func (d *fakeDriver) DriverName() string { return d.name }
func (d *fakeDriver) DriverVersion() (uint16, uint16, uint16) { return 1, 2, 3 }
func (d *fakeDriver) DriverInit(w io.Writer) *kernel.Error {
	d.inits++
	kfmt.Fprintf(w, "probing\n")
	return d.initErr
}

func TestDetectHardware(t *testing.T) {
	var buf bytes.Buffer
	kfmt.SetOutputSink(&buf)
	defer kfmt.SetOutputSink(nil)

	var (
		good   = &fakeDriver{name: "good"}
		broken = &fakeDriver{name: "broken", initErr: &kernel.Error{Module: "broken", Message: "no device"}}
	)

	active := DetectHardware([]device.Driver{good, nil, broken})
	if len(active) != 1 || active[0] != good {
		t.Fatalf("expected only the good driver to be active; got %v", active)
	}

	if good.inits != 1 || broken.inits != 1 {
		t.Fatalf("expected each driver to be initialized once; got %d and %d", good.inits, broken.inits)
	}

	exp := "[hal] good(1.2.3): probing\n" +
		"[hal] good(1.2.3): initialized\n" +
		"[hal] broken(1.2.3): probing\n" +
		"[hal] broken(1.2.3): init failed: no device\n"
	if got := buf.String(); got != exp {
		t.Fatalf("expected output:\n%s\ngot:\n%s", exp, got)
	}
}
