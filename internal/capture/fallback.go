package capture

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// MalgoRecorder is the in-process fallback used when the capture binary is
// not installed. It streams signed 16-bit samples from the default capture
// device straight into a WAV encoder, so the controller sees the same
// file-on-disk contract as with the external process.
type MalgoRecorder struct {
	ctx      *malgo.AllocatedContext
	rate     int
	channels int

	mu     sync.Mutex
	device *malgo.Device
	file   *os.File
	enc    *wav.Encoder
	format *audio.Format
}

// NewMalgo creates a fallback recorder. Call Close when done.
func NewMalgo(rate, channels int) (*MalgoRecorder, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("capture: initializing audio context: %w", err)
	}

	return &MalgoRecorder{
		ctx:      ctx,
		rate:     rate,
		channels: channels,
	}, nil
}

// Start opens the default capture device and begins writing WAV data to path.
// onExit is never invoked: there is no subprocess to die unexpectedly.
func (r *MalgoRecorder) Start(path string, _ func(code int)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.device != nil {
		return fmt.Errorf("capture: already recording")
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("capture: create %s: %w", path, err)
	}

	r.file = file
	r.enc = wav.NewEncoder(file, r.rate, 16, r.channels, 1)
	r.format = &audio.Format{NumChannels: r.channels, SampleRate: r.rate}

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = malgo.FormatS16
	deviceCfg.Capture.Channels = uint32(r.channels)
	deviceCfg.SampleRate = uint32(r.rate)

	device, err := malgo.InitDevice(r.ctx.Context, deviceCfg, malgo.DeviceCallbacks{
		Data: r.onData,
	})
	if err != nil {
		r.closeOutput(path)
		return fmt.Errorf("capture: initializing capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		r.closeOutput(path)
		return fmt.Errorf("capture: starting capture device: %w", err)
	}

	r.device = device
	return nil
}

// Stop ends the capture and finalizes the WAV file. The timeout is accepted
// for interface parity with the subprocess recorder and is not needed here.
func (r *MalgoRecorder) Stop(_ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.device == nil {
		return nil
	}

	r.device.Uninit()
	r.device = nil

	var err error
	if r.enc != nil {
		err = r.enc.Close()
		r.enc = nil
	}
	if r.file != nil {
		if cerr := r.file.Close(); err == nil {
			err = cerr
		}
		r.file = nil
	}
	if err != nil {
		return fmt.Errorf("capture: finalizing wav: %w", err)
	}
	return nil
}

// Close releases the audio context.
func (r *MalgoRecorder) Close() error {
	_ = r.Stop(0)
	if r.ctx != nil {
		if err := r.ctx.Uninit(); err != nil {
			return fmt.Errorf("capture: uninitializing audio context: %w", err)
		}
		r.ctx.Free()
		r.ctx = nil
	}
	return nil
}

// onData is the malgo callback invoked with raw S16LE frames.
func (r *MalgoRecorder) onData(_, pSample []byte, frameCount uint32) {
	sampleCount := int(frameCount) * r.channels

	buf := &audio.IntBuffer{
		Format:         r.format,
		Data:           make([]int, 0, sampleCount),
		SourceBitDepth: 16,
	}
	for i := 0; i < sampleCount; i++ {
		offset := i * 2
		if offset+2 > len(pSample) {
			break
		}
		buf.Data = append(buf.Data, int(int16(binary.LittleEndian.Uint16(pSample[offset:offset+2]))))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enc == nil {
		return
	}
	if err := r.enc.Write(buf); err != nil {
		// Keep capturing; the size threshold downstream catches a truncated file.
		return
	}
}

// closeOutput discards a partially created output file after a failed start.
func (r *MalgoRecorder) closeOutput(path string) {
	if r.file != nil {
		_ = r.file.Close()
		r.file = nil
	}
	r.enc = nil
	_ = os.Remove(path)
}
