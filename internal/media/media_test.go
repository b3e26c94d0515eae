package media

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/voxtype/voxtype/internal/run"
)

// scriptedRunner answers the probe from a canned status and counts toggles.
type scriptedRunner struct {
	status    string
	statusErr error
	toggleErr error
	toggles   int
}

var _ run.Runner = (*scriptedRunner)(nil)

func (s *scriptedRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	full := name + " " + strings.Join(args, " ")
	switch {
	case strings.Contains(full, "status") || strings.Contains(full, "player state"):
		return s.status, s.statusErr
	default:
		s.toggles++
		return "", s.toggleErr
	}
}

func newTestController(r run.Runner, goos string) *Controller {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	c := New(r, logrus.NewEntry(log))
	c.goos = goos
	return c
}

func TestPauseResumePair(t *testing.T) {
	r := &scriptedRunner{status: "Playing"}
	c := newTestController(r, "linux")

	c.Pause()
	if r.toggles != 1 {
		t.Fatalf("toggles after Pause = %d, want 1", r.toggles)
	}
	c.Resume()
	if r.toggles != 2 {
		t.Errorf("toggles after Resume = %d, want 2", r.toggles)
	}
}

func TestPauseNothingPlaying(t *testing.T) {
	r := &scriptedRunner{status: "Paused"}
	c := newTestController(r, "linux")

	c.Pause()
	if r.toggles != 0 {
		t.Errorf("toggles = %d, want 0 when nothing is playing", r.toggles)
	}
	c.Resume()
	if r.toggles != 0 {
		t.Errorf("Resume toggled despite Pause finding nothing playing")
	}
}

func TestResumeWithoutPauseIsNoop(t *testing.T) {
	r := &scriptedRunner{status: "Playing"}
	c := newTestController(r, "linux")

	c.Resume()
	if r.toggles != 0 {
		t.Errorf("toggles = %d, want 0 for Resume without Pause", r.toggles)
	}
}

func TestResumeTogglesOnlyOnce(t *testing.T) {
	r := &scriptedRunner{status: "Playing"}
	c := newTestController(r, "linux")

	c.Pause()
	c.Resume()
	c.Resume()
	if r.toggles != 2 {
		t.Errorf("toggles = %d, want 2 (second Resume must be a no-op)", r.toggles)
	}
}

func TestPauseProbeFailureIsSwallowed(t *testing.T) {
	r := &scriptedRunner{statusErr: errors.New("playerctl: no players found")}
	c := newTestController(r, "linux")

	c.Pause()
	if r.toggles != 0 {
		t.Errorf("toggles = %d, want 0 when the probe fails", r.toggles)
	}
}

func TestPauseToggleFailureDoesNotArmResume(t *testing.T) {
	r := &scriptedRunner{status: "Playing", toggleErr: errors.New("dbus timeout")}
	c := newTestController(r, "linux")

	c.Pause()
	r.toggleErr = nil
	c.Resume()
	if r.toggles != 1 {
		t.Errorf("toggles = %d, want 1 (failed Pause must not arm Resume)", r.toggles)
	}
}

func TestDarwinProbeSelectsPlayer(t *testing.T) {
	r := &scriptedRunner{status: "playing"}
	c := newTestController(r, "darwin")

	c.Pause()
	if r.toggles != 1 {
		t.Fatalf("toggles = %d, want 1", r.toggles)
	}
	if c.player != "Music" {
		t.Errorf("player = %q, want Music (first probe hit)", c.player)
	}
}

func TestWindowsProbeNeverPauses(t *testing.T) {
	r := &scriptedRunner{status: "Playing"}
	c := newTestController(r, "windows")

	c.Pause()
	if r.toggles != 0 {
		t.Errorf("toggles = %d, want 0 on windows", r.toggles)
	}
}
