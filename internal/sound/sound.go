// Package sound plays the audible session cues and desktop notifications.
// Everything is best-effort; a machine without a beeper just stays quiet.
package sound

import (
	"github.com/gen2brain/beeep"
	"github.com/sirupsen/logrus"

	"github.com/voxtype/voxtype/internal/bus"
)

// Bind subscribes the cue handlers to the bus.
func Bind(b *bus.Bus, notify bool, log *logrus.Entry) {
	b.Subscribe(bus.PlaySound, func(msg bus.Message) {
		tone, ok := msg.Payload.(bus.Tone)
		if !ok {
			return
		}
		if err := beeep.Beep(tone.Frequency, int(tone.Duration.Milliseconds())); err != nil {
			log.WithError(err).Debug("beep failed")
		}
	})

	if !notify {
		return
	}
	b.Subscribe(bus.ShowTranscription, func(msg bus.Message) {
		text, ok := msg.Payload.(string)
		if !ok || text == "" {
			return
		}
		if err := beeep.Notify("voxtype", text, ""); err != nil {
			log.WithError(err).Debug("notification failed")
		}
	})
}
