// Package session holds the recording-session lifecycle controller: the
// state machine that coordinates the capture process, the screen-capture
// renderer on the far side of the bus, the remote inference call, and the
// destructive cleanup of temp media files.
package session

import (
	"context"
	"encoding/base64"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/voxtype/voxtype/internal/bus"
	"github.com/voxtype/voxtype/internal/infer"
)

// Status values published on the bus for the UI.
const (
	StatusReady      = "ready"
	StatusRecording  = "recording"
	StatusProcessing = "processing"
)

// State is the controller's position in the session lifecycle.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopping
	StateCancelling
)

func (s State) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	case StateCancelling:
		return "cancelling"
	default:
		return "idle"
	}
}

// Recorder is the audio capture backend (external process or in-process).
type Recorder interface {
	// Start begins capturing to path. onExit fires when the backend's
	// process exits, with its exit code.
	Start(path string, onExit func(code int)) error
	// Stop ends the capture, waiting up to timeout for a clean exit.
	Stop(timeout time.Duration) error
}

// Refiner turns captured media into text. Empty string means no usable output.
type Refiner interface {
	Refine(ctx context.Context, req infer.Request) string
}

// Paster delivers text into the focused application.
type Paster interface {
	Paste(text string) error
}

// MediaPauser pauses and resumes ambient audio playback, best-effort.
type MediaPauser interface {
	Pause()
	Resume()
}

// Options configures a Controller.
type Options struct {
	TempDir        string
	Mode           infer.Mode
	IncludeVideo   bool
	PauseMedia     bool
	RequestTimeout time.Duration
}

// Success and failure cues played through the bus.
var (
	successTone = bus.Tone{Frequency: 880, Duration: 150 * time.Millisecond}
	failureTone = bus.Tone{Frequency: 220, Duration: 300 * time.Millisecond}
)

// Controller is the single process-wide session state machine.
// Exactly one session may be active at a time; a one-slot transition gate
// serializes Toggle/Stop/Cancel so rapid hotkey presses can never spawn a
// second capture process.
type Controller struct {
	bus    *bus.Bus
	rec    Recorder
	refine Refiner
	paste  Paster
	media  MediaPauser
	log    *logrus.Entry

	mu             sync.Mutex
	state          State
	busy           bool // a transition is in flight
	mode           infer.Mode
	includeVideo   bool
	pauseMedia     bool
	frames         []string
	videoConfirmed bool
	videoAck       chan struct{}
	audioPath      string
	videoPath      string

	tempDir        string
	requestTimeout time.Duration

	// Timing and threshold knobs, fixed constants in production.
	stopWait      time.Duration // bound on capture process exit after interrupt
	cancelWait    time.Duration // same, for cancellation
	videoSettle   time.Duration // how long to wait for video-file-complete
	fsSettle      time.Duration // flush window before reading temp files
	minAudioBytes int64
	minVideoBytes int64
	deleteRetries int
	deleteBackoff time.Duration
}

// New creates the controller and subscribes its bus handlers.
func New(b *bus.Bus, rec Recorder, refine Refiner, paste Paster, media MediaPauser, opts Options, log *logrus.Entry) *Controller {
	c := &Controller{
		bus:    b,
		rec:    rec,
		refine: refine,
		paste:  paste,
		media:  media,
		log:    log,

		mode:         opts.Mode,
		includeVideo: opts.IncludeVideo,
		pauseMedia:   opts.PauseMedia,

		tempDir:        opts.TempDir,
		requestTimeout: opts.RequestTimeout,

		stopWait:      2 * time.Second,
		cancelWait:    time.Second,
		videoSettle:   1500 * time.Millisecond,
		fsSettle:      500 * time.Millisecond,
		minAudioBytes: 1000,
		minVideoBytes: 1000,
		deleteRetries: 3,
		deleteBackoff: 100 * time.Millisecond,
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = 60 * time.Second
	}

	b.Subscribe(bus.VideoFrame, c.onVideoFrame)
	b.Subscribe(bus.VideoFileComplete, c.onVideoFileComplete)
	b.Subscribe(bus.VideoRecordingError, c.onVideoError)
	b.Subscribe(bus.SetMode, c.onSetMode)
	b.Subscribe(bus.SetIncludeVideo, c.onSetIncludeVideo)
	b.Subscribe(bus.CancelRecording, func(bus.Message) { c.Cancel() })

	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsRecording reports whether a capture session is active.
func (c *Controller) IsRecording() bool {
	return c.State() == StateRecording
}

// Toggle starts a session when idle and stops it when recording. Calls that
// arrive while another transition is in flight are rejected, so the hotkey
// can be hammered without double-starting.
func (c *Controller) Toggle() {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		c.log.Debug("toggle ignored, transition in progress")
		return
	}
	switch c.state {
	case StateIdle:
		c.busy = true
		c.mu.Unlock()
		_ = c.start()
	case StateRecording:
		c.busy = true
		c.state = StateStopping
		c.mu.Unlock()
		go c.stop()
	default:
		c.mu.Unlock()
	}
}

// Start begins a capture session. It fails when a session is already active
// or the capture backend cannot start; both leave the controller idle.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.busy || c.state != StateIdle {
		c.mu.Unlock()
		c.log.Debug("start ignored, session already active")
		return errors.New("session: already active")
	}
	c.busy = true
	c.mu.Unlock()
	return c.start()
}

// start runs the capture-start transition. The transition gate is held.
func (c *Controller) start() error {
	defer c.endTransition()

	if c.pauseEnabled() {
		c.media.Pause() // best-effort
	}

	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]

	c.mu.Lock()
	c.frames = c.frames[:0]
	c.videoConfirmed = false
	c.videoAck = make(chan struct{})
	c.audioPath = filepath.Join(c.tempDir, "voxtype-"+id+".wav")
	c.videoPath = filepath.Join(c.tempDir, "voxtype-"+id+".webm")
	includeVideo := c.includeVideo
	audioPath := c.audioPath
	// The exit handler checks for StateRecording, so enter it before the
	// spawn: a capture process that dies instantly must still be seen as an
	// unexpected exit.
	c.state = StateRecording
	c.mu.Unlock()

	if err := os.MkdirAll(c.tempDir, 0o700); err != nil {
		c.log.WithError(err).Error("creating temp dir")
		if c.pauseEnabled() {
			c.media.Resume()
		}
		c.resetToIdle()
		return err
	}

	c.bus.Publish(bus.UpdateStatus, StatusRecording)
	if includeVideo {
		c.bus.Publish(bus.StartVideoRecording, nil)
	}

	if err := c.rec.Start(audioPath, c.onRecorderExit); err != nil {
		c.log.WithError(err).Error("capture start failed")
		if c.pauseEnabled() {
			c.media.Resume()
		}
		if includeVideo {
			c.bus.Publish(bus.StopVideoRecording, nil)
		}
		c.resetToIdle()
		return err
	}

	c.log.WithField("audio", audioPath).Info("recording started")
	return nil
}

// Stop ends the active session and runs the processing pipeline to
// completion: capture teardown, media validation, inference, paste, cleanup.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.busy || c.state != StateRecording {
		c.mu.Unlock()
		c.log.Debug("stop ignored, no active recording")
		return
	}
	c.busy = true
	c.state = StateStopping
	c.mu.Unlock()
	c.stop()
}

// stop runs the full stop transition. StateStopping is already set, which
// tells the recorder exit handler the upcoming exit is expected; the
// transition gate is held.
func (c *Controller) stop() {
	c.mu.Lock()
	includeVideo := c.includeVideo
	mode := c.mode
	audioPath := c.audioPath
	videoPath := c.videoPath
	ack := c.videoAck
	c.mu.Unlock()

	// Cleanup runs on every exit path: clear buffers, delete temp files,
	// report ready.
	defer c.endTransition()
	defer c.cleanup(audioPath, videoPath)

	c.bus.Publish(bus.UpdateStatus, StatusProcessing)
	if includeVideo {
		c.bus.Publish(bus.StopVideoRecording, nil)
	}

	if err := c.rec.Stop(c.stopWait); err != nil {
		c.log.WithError(err).Warn("capture stop")
	}

	if c.pauseEnabled() {
		c.media.Resume()
	}

	if includeVideo {
		select {
		case <-ack:
		case <-time.After(c.videoSettle):
			c.log.Warn("video never confirmed, continuing audio-only")
		}
	}

	// Let in-flight file writes land before sizing them.
	time.Sleep(c.fsSettle)

	audioOK := fileAtLeast(audioPath, c.minAudioBytes)
	videoOK := includeVideo && fileAtLeast(videoPath, c.minVideoBytes)

	if !audioOK && !videoOK {
		c.log.Warn("no usable media captured")
		c.bus.Publish(bus.PlaySound, failureTone)
		return
	}

	req := infer.Request{Mode: mode}
	if audioOK {
		req.Audio = readFile(audioPath, c.log)
	}
	if videoOK {
		req.Video = readFile(videoPath, c.log)
	}
	if includeVideo {
		c.mu.Lock()
		req.Frames = append([]string(nil), c.frames...)
		c.mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout)
	defer cancel()
	text := c.refine.Refine(ctx, req)
	if text == "" {
		c.log.Warn("inference produced no text")
		c.bus.Publish(bus.PlaySound, failureTone)
		return
	}

	c.bus.Publish(bus.PlaySound, successTone)
	c.bus.Publish(bus.ShowTranscription, text)
	c.log.WithField("chars", len(text)).Info("transcription ready")

	if err := c.paste.Paste(text); err != nil {
		c.log.WithError(err).Warn("paste failed")
	}
}

// Cancel aborts an active recording: no inference call is made and all
// session media is discarded. Safe to call when the capture process already
// exited or never started.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.busy || c.state != StateRecording {
		c.mu.Unlock()
		c.log.Debug("cancel ignored, no active recording")
		return
	}
	c.busy = true
	c.state = StateCancelling
	includeVideo := c.includeVideo
	audioPath := c.audioPath
	videoPath := c.videoPath
	c.mu.Unlock()

	defer c.endTransition()
	defer c.cleanup(audioPath, videoPath)

	c.log.Info("recording cancelled")

	if c.pauseEnabled() {
		c.media.Resume()
	}
	if includeVideo {
		c.bus.Publish(bus.StopVideoRecording, nil)
	}

	if err := c.rec.Stop(c.cancelWait); err != nil {
		c.log.WithError(err).Warn("capture stop on cancel")
	}
}

// onRecorderExit handles the capture process's exit event. An exit while the
// controller still believes it is recording is an unexpected death; Stop and
// Cancel leave StateRecording before signalling, so their exits land here as
// expected and are ignored.
func (c *Controller) onRecorderExit(code int) {
	c.mu.Lock()
	recording := c.state == StateRecording
	c.mu.Unlock()

	if !recording || code == 0 {
		return
	}

	c.log.WithField("code", code).Error("capture process exited unexpectedly")
	c.resetToIdle()
}

// Bus handlers.

func (c *Controller) onVideoFrame(msg bus.Message) {
	frame, ok := msg.Payload.(string)
	if !ok || frame == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRecording || !c.includeVideo {
		return
	}
	c.frames = append(c.frames, frame)
}

func (c *Controller) onVideoFileComplete(msg bus.Message) {
	encoded, ok := msg.Payload.(string)
	if !ok {
		return
	}

	c.mu.Lock()
	if c.videoConfirmed || c.videoAck == nil {
		c.mu.Unlock()
		return
	}
	c.videoConfirmed = true
	ack := c.videoAck
	videoPath := c.videoPath
	c.mu.Unlock()

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		c.log.WithError(err).Warn("discarding undecodable video payload")
	} else if err := os.WriteFile(videoPath, data, 0o600); err != nil {
		c.log.WithError(err).Warn("writing video file")
	}
	close(ack)
}

func (c *Controller) onVideoError(msg bus.Message) {
	c.log.WithField("message", msg.Payload).Warn("screen capture error, continuing audio-only")
}

func (c *Controller) onSetMode(msg bus.Message) {
	s, ok := msg.Payload.(string)
	if !ok {
		return
	}
	switch m := infer.Mode(s); m {
	case infer.ModeTranscription, infer.ModePrompt:
		c.mu.Lock()
		c.mode = m
		c.mu.Unlock()
		c.log.WithField("mode", s).Info("mode changed")
	}
}

func (c *Controller) onSetIncludeVideo(msg bus.Message) {
	v, ok := msg.Payload.(bool)
	if !ok {
		return
	}
	c.mu.Lock()
	c.includeVideo = v
	c.mu.Unlock()
	c.log.WithField("include_video", v).Info("video capture setting changed")
}

// Internals.

func (c *Controller) pauseEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pauseMedia
}

func (c *Controller) endTransition() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

func (c *Controller) resetToIdle() {
	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
	c.bus.Publish(bus.UpdateStatus, StatusReady)
}

// cleanup runs at the end of every session regardless of outcome: clears the
// frame buffer, deletes both temp files and reports ready.
func (c *Controller) cleanup(audioPath, videoPath string) {
	c.mu.Lock()
	c.frames = nil
	c.videoConfirmed = false
	c.videoAck = nil
	c.state = StateIdle
	c.mu.Unlock()

	c.removeWithRetry(audioPath)
	c.removeWithRetry(videoPath)

	c.bus.Publish(bus.UpdateStatus, StatusReady)
}

// removeWithRetry deletes a temp file, retrying with linear backoff for
// transient lock errors. A file that survives all attempts is logged and
// abandoned; a missing file is fine.
func (c *Controller) removeWithRetry(path string) {
	if path == "" {
		return
	}
	for attempt := 1; ; attempt++ {
		err := os.Remove(path)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return
		}
		if attempt >= c.deleteRetries {
			c.log.WithError(err).WithField("path", path).Warn("leaving stale temp file")
			return
		}
		time.Sleep(time.Duration(attempt) * c.deleteBackoff)
	}
}

// fileAtLeast reports whether path exists and holds at least min bytes,
// filtering out empty files and bare WAV headers.
func fileAtLeast(path string, min int64) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() >= min
}

func readFile(path string, log *logrus.Entry) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		log.WithError(err).WithField("path", path).Warn("reading session media")
		return nil
	}
	return data
}
