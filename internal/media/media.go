// Package media pauses ambient audio playback while a recording runs and
// resumes it afterwards. Everything here is best-effort: probe or toggle
// failures mean "nothing to do", never an error for the caller.
package media

import (
	"context"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voxtype/voxtype/internal/run"
)

// darwinPlayers are checked in order by the playing probe.
var darwinPlayers = []string{"Music", "Spotify"}

// Controller toggles system media playback around a recording session.
// The paused flag is process-wide, not per-session: Resume only acts if the
// immediately preceding Pause actually toggled a player.
type Controller struct {
	runner  run.Runner
	goos    string
	timeout time.Duration
	log     *logrus.Entry

	paused bool
	player string // which player Pause toggled, for Resume
}

// New creates a media controller for the host platform.
func New(r run.Runner, log *logrus.Entry) *Controller {
	return &Controller{
		runner:  r,
		goos:    runtime.GOOS,
		timeout: 3 * time.Second,
		log:     log,
	}
}

// Pause toggles playback off if something is audibly playing.
// It records that it paused only when the probe reported a playing player
// immediately before the toggle.
func (m *Controller) Pause() {
	player, playing := m.playing()
	if !playing {
		return
	}
	if err := m.toggle(player); err != nil {
		m.log.WithError(err).Debug("media pause failed")
		return
	}
	m.paused = true
	m.player = player
	m.log.WithField("player", player).Debug("paused ambient media")
}

// Resume toggles playback back on. It is a no-op unless the prior Pause
// call actually paused something.
func (m *Controller) Resume() {
	if !m.paused {
		return
	}
	m.paused = false
	if err := m.toggle(m.player); err != nil {
		m.log.WithError(err).Debug("media resume failed")
		return
	}
	m.log.WithField("player", m.player).Debug("resumed ambient media")
}

// playing probes whether a media player is audibly playing and which one.
func (m *Controller) playing() (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	switch m.goos {
	case "linux":
		out, err := m.runner.Run(ctx, "playerctl", "status")
		return "", err == nil && out == "Playing"

	case "darwin":
		for _, app := range darwinPlayers {
			script := `if application "` + app + `" is running then tell application "` + app + `" to get player state as string`
			out, err := m.runner.Run(ctx, "osascript", "-e", script)
			if err == nil && out == "playing" {
				return app, true
			}
		}
		return "", false

	default:
		// No portable audibility probe on Windows; never auto-pause there.
		return "", false
	}
}

// toggle sends a play/pause toggle to the given player.
func (m *Controller) toggle(player string) error {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	switch m.goos {
	case "darwin":
		script := `tell application "` + player + `" to playpause`
		_, err := m.runner.Run(ctx, "osascript", "-e", script)
		return err
	default:
		_, err := m.runner.Run(ctx, "playerctl", "play-pause")
		return err
	}
}
