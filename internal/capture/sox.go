package capture

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SoxRecorder records microphone audio by spawning an external sox process
// that writes a WAV file until it receives an interrupt.
type SoxRecorder struct {
	bin      string
	rate     int
	channels int
	bitDepth int
	prober   *Prober
	log      *logrus.Entry

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// NewSox creates a recorder driving the given capture binary.
func NewSox(bin string, rate, channels, bitDepth int, prober *Prober, log *logrus.Entry) *SoxRecorder {
	return &SoxRecorder{
		bin:      bin,
		rate:     rate,
		channels: channels,
		bitDepth: bitDepth,
		prober:   prober,
		log:      log,
	}
}

// Available reports whether the capture binary can be found on PATH.
func (r *SoxRecorder) Available() bool {
	_, err := exec.LookPath(r.bin)
	return err == nil
}

// Start spawns the capture process writing to path. onExit fires from a
// background goroutine when the process exits, whether or not Stop was
// called, with the exit code (negative when killed by signal); callers
// distinguish expected from unexpected exits themselves.
func (r *SoxRecorder) Start(path string, onExit func(code int)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd != nil {
		return fmt.Errorf("capture: already recording")
	}

	backend := BackendUnknown
	if runtime.GOOS != "windows" && runtime.GOOS != "darwin" {
		backend = r.prober.Backend(context.Background())
	}

	args := Args(runtime.GOOS, backend, r.rate, r.channels, r.bitDepth, path)
	cmd := exec.Command(r.bin, args...)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("capture: spawn %s: %w", r.bin, err)
	}

	done := make(chan struct{})
	r.cmd = cmd
	r.done = done
	r.log.WithField("args", args).Debug("capture process started")

	go func() {
		err := cmd.Wait()
		code := 0
		if cmd.ProcessState != nil {
			code = cmd.ProcessState.ExitCode()
		} else if err != nil {
			code = -1
		}

		r.mu.Lock()
		if r.cmd == cmd {
			r.cmd = nil
			r.done = nil
		}
		r.mu.Unlock()

		close(done)
		if onExit != nil {
			onExit(code)
		}
	}()

	return nil
}

// Stop interrupts the capture process so sox finalizes the WAV header, then
// waits for it to exit up to timeout before killing it. Safe to call when
// the process already exited or never started.
func (r *SoxRecorder) Stop(timeout time.Duration) error {
	r.mu.Lock()
	cmd := r.cmd
	done := r.done
	r.mu.Unlock()

	if cmd == nil {
		return nil
	}

	// Interrupt is unsupported on Windows; sox's waveaudio driver still
	// closes the file cleanly on Kill.
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		_ = cmd.Process.Kill()
	}

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		_ = cmd.Process.Kill()
		return fmt.Errorf("capture: process did not exit within %s", timeout)
	}
}
