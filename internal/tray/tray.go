// Package tray is the minimal system tray shell: it mirrors session status
// in the tooltip and exposes the runtime toggles as menu items. All
// communication with the controller goes over the bus.
package tray

import (
	"github.com/getlantern/systray"

	"github.com/voxtype/voxtype/internal/bus"
	"github.com/voxtype/voxtype/internal/infer"
)

// Options seeds the menu item states.
type Options struct {
	Mode         infer.Mode
	IncludeVideo bool
}

// Run starts the tray loop. It blocks until Quit is chosen, then calls
// onQuit. Run it from a dedicated goroutine.
func Run(b *bus.Bus, opts Options, onQuit func()) {
	systray.Run(func() { onReady(b, opts) }, onQuit)
}

func onReady(b *bus.Bus, opts Options) {
	systray.SetTitle("voxtype")
	systray.SetTooltip("voxtype — ready")

	mPrompt := systray.AddMenuItemCheckbox("Prompt mode", "Rewrite dictation for clarity instead of verbatim transcription", opts.Mode == infer.ModePrompt)
	mVideo := systray.AddMenuItemCheckbox("Include screen", "Attach a screen capture to the next session", opts.IncludeVideo)
	systray.AddSeparator()
	mCancel := systray.AddMenuItem("Cancel recording", "Abort the active recording without transcribing")
	mQuit := systray.AddMenuItem("Quit", "Quit voxtype")

	b.Subscribe(bus.UpdateStatus, func(msg bus.Message) {
		status, ok := msg.Payload.(string)
		if !ok {
			return
		}
		systray.SetTooltip("voxtype — " + status)
	})

	go func() {
		for {
			select {
			case <-mPrompt.ClickedCh:
				if mPrompt.Checked() {
					mPrompt.Uncheck()
					b.Publish(bus.SetMode, string(infer.ModeTranscription))
				} else {
					mPrompt.Check()
					b.Publish(bus.SetMode, string(infer.ModePrompt))
				}
			case <-mVideo.ClickedCh:
				if mVideo.Checked() {
					mVideo.Uncheck()
					b.Publish(bus.SetIncludeVideo, false)
				} else {
					mVideo.Check()
					b.Publish(bus.SetIncludeVideo, true)
				}
			case <-mCancel.ClickedCh:
				b.Publish(bus.CancelRecording, nil)
			case <-mQuit.ClickedCh:
				systray.Quit()
				return
			}
		}
	}()
}
