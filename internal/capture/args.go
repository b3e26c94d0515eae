// Package capture manages microphone recording to a WAV file, either by
// driving an external sox process or, as a fallback, an in-process capture
// device.
package capture

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/voxtype/voxtype/internal/run"
)

// Backend identifies the Linux audio input backend sox should use.
type Backend int

const (
	// BackendUnknown means no probe has run (non-Linux hosts).
	BackendUnknown Backend = iota
	// BackendPipeWire is PipeWire via its PulseAudio compatibility layer.
	BackendPipeWire
	// BackendPulse is a native PulseAudio server.
	BackendPulse
	// BackendALSA is the low-level fallback when no sound server answers.
	BackendALSA
)

func (b Backend) String() string {
	switch b {
	case BackendPipeWire:
		return "pipewire"
	case BackendPulse:
		return "pulseaudio"
	case BackendALSA:
		return "alsa"
	default:
		return "unknown"
	}
}

// Prober classifies the Linux audio backend once and caches the answer for
// the process lifetime.
type Prober struct {
	runner run.Runner

	mu     sync.Mutex
	probed bool
	result Backend
}

// NewProber creates a Prober using the given command runner.
func NewProber(r run.Runner) *Prober {
	return &Prober{runner: r}
}

// Backend returns the cached classification, probing on first use.
// PipeWire and PulseAudio both answer `pactl info`; the server name
// distinguishes them. Anything else falls back to ALSA.
func (p *Prober) Backend(ctx context.Context) Backend {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.probed {
		return p.result
	}

	out, err := p.runner.Run(ctx, "pactl", "info")
	switch {
	case err != nil:
		p.result = BackendALSA
	case strings.Contains(out, "PipeWire"):
		p.result = BackendPipeWire
	default:
		p.result = BackendPulse
	}
	p.probed = true
	return p.result
}

// Args builds the sox argument list for the host platform. The input
// selector varies per OS; the format suffix is fixed by the session's
// audio settings and ends with the output path.
func Args(goos string, backend Backend, rate, channels, bitDepth int, outPath string) []string {
	var args []string
	switch goos {
	case "windows":
		args = []string{"-t", "waveaudio", "-d"}
	case "darwin":
		args = []string{"-t", "coreaudio", "default"}
	default:
		switch backend {
		case BackendALSA:
			args = []string{"-t", "alsa", "default"}
		default: // PipeWire speaks the pulse protocol
			args = []string{"-t", "pulseaudio", "default"}
		}
	}

	return append(args,
		"-r", strconv.Itoa(rate),
		"-c", strconv.Itoa(channels),
		"-b", strconv.Itoa(bitDepth),
		"-e", "signed-integer",
		outPath,
	)
}
