package kmain

import (
	"bufio"
	"io"
	"os"
	"strconv"

	"lwos/device/keyboard"
	"lwos/device/pit"
	"lwos/device/rtc"
	"lwos/kernel"
	"lwos/kernel/fs"
	"lwos/kernel/hal"
	"lwos/kernel/kfmt"
	"lwos/kernel/proc"
	"lwos/userland"
)

// readFileFn loads filesystem images from the host; it is mocked by tests.
var readFileFn = os.ReadFile

// bootConfig holds the settings parsed from the boot command line.
type bootConfig struct {
	childSlots int
	timerHz    uint32
	rtcHz      uint32
	schedDebug bool

	// fsPath is the host path of a filesystem image. If empty, an image
	// containing the built-in programs is used.
	fsPath string
}

func invalidArg(key string) *kernel.Error {
	return &kernel.Error{Module: "kmain", Message: "invalid value for boot argument " + key}
}

// parseBootConfig applies the recognized boot arguments on top of the
// defaults. Unknown arguments are ignored.
func parseBootConfig(cmdLine map[string]string) (bootConfig, *kernel.Error) {
	cfg := bootConfig{
		childSlots: proc.MaxChildSlots,
		timerHz:    pit.DefaultFrequency,
		rtcHz:      rtc.DefaultFrequency,
	}

	for key, value := range cmdLine {
		switch key {
		case "childSlots":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 || n > proc.MaxChildSlots {
				return cfg, invalidArg(key)
			}
			cfg.childSlots = n
		case "timerHz", "rtcHz":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil || n == 0 {
				return cfg, invalidArg(key)
			}

			if key == "timerHz" {
				cfg.timerHz = uint32(n)
			} else {
				cfg.rtcHz = uint32(n)
			}
		case "schedDebug":
			cfg.schedDebug = value != "off"
		case "fs":
			cfg.fsPath = value
		}
	}

	return cfg, nil
}

// mountFS mounts the configured filesystem image.
func mountFS(path string) (*fs.FS, *kernel.Error) {
	if path == "" {
		image, err := userland.Image(nil)
		if err != nil {
			return nil, err
		}
		return fs.Mount(image)
	}

	image, err := readFileFn(path)
	if err != nil {
		return nil, &kernel.Error{Module: "kmain", Message: err.Error()}
	}

	return fs.Mount(image)
}

// boot builds the kernel, initializes its drivers and starts the shell on the
// first terminal. Output rendered on the foreground terminal is copied to out.
// The timers are left stopped.
func boot(cfg bootConfig, out io.Writer) (*proc.Kernel, *kernel.Error) {
	bootFS, err := mountFS(cfg.fsPath)
	if err != nil {
		return nil, err
	}

	k, err := proc.New(proc.Config{
		FS:         bootFS,
		Programs:   userland.Entries(),
		ChildSlots: cfg.childSlots,
		TimerHz:    cfg.timerHz,
		SchedDebug: cfg.schedDebug,
		Echo:       out,
	})
	if err != nil {
		return nil, err
	}

	drivers := k.Drivers()
	if active := hal.DetectHardware(drivers); len(active) != len(drivers) {
		return nil, &kernel.Error{Module: "kmain", Message: "device initialization failed"}
	}

	if err = k.RTC().SetFrequency(cfg.rtcHz); err != nil {
		return nil, err
	}

	if err = k.Boot(); err != nil {
		return nil, err
	}

	return k, nil
}

// forwardInput types everything read from in on the keyboard until in
// reaches EOF.
func forwardInput(in io.Reader, kb *keyboard.Keyboard) {
	r := bufio.NewReader(in)
	for {
		line, err := r.ReadString('\n')
		if len(line) != 0 {
			kb.TypeString(line)
		}

		if err != nil {
			return
		}
	}
}

// Kmain boots the kernel with the supplied command line, starts the timers
// and feeds keystrokes read from in to the keyboard. Output of the foreground
// terminal is copied to out. Kmain returns once in is exhausted; an invalid
// configuration triggers a kernel panic.
func Kmain(cmdLine string, in io.Reader, out io.Writer) {
	cfg, err := parseBootConfig(hal.ParseCmdLine(cmdLine))
	if err != nil {
		kfmt.Panic(err)
		return
	}

	k, err := boot(cfg, out)
	if err != nil {
		kfmt.Panic(err)
		return
	}

	k.PIT().Start()
	defer k.PIT().Stop()
	k.RTC().Start()
	defer k.RTC().Stop()

	forwardInput(in, k.Keyboard())
}
