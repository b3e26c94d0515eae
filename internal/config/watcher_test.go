package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voxtype/voxtype/internal/bus"
)

func writeConfig(t *testing.T, path, mode string) {
	t.Helper()
	content := "api:\n  key: k\nsession:\n  mode: " + mode + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWatchPublishesOnReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, "transcription")

	b := bus.New()
	defer b.Close()

	var mu sync.Mutex
	var modes []string
	b.Subscribe(bus.SetMode, func(msg bus.Message) {
		mu.Lock()
		defer mu.Unlock()
		modes = append(modes, msg.Payload.(string))
	})

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	w, err := Watch(path, b, logrus.NewEntry(log))
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer w.Close()

	writeConfig(t, path, "prompt")

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(modes)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(modes) == 0 {
		t.Fatal("no set-mode message after config edit")
	}
	if modes[len(modes)-1] != "prompt" {
		t.Errorf("published mode = %q, want prompt", modes[len(modes)-1])
	}
}

func TestWatchIgnoresInvalidReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, "transcription")

	b := bus.New()
	defer b.Close()

	var mu sync.Mutex
	published := 0
	b.Subscribe(bus.SetMode, func(bus.Message) {
		mu.Lock()
		published++
		mu.Unlock()
	})

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	w, err := Watch(path, b, logrus.NewEntry(log))
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer w.Close()

	// Invalid mode must not be republished.
	writeConfig(t, path, "haiku")
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if published != 0 {
		t.Errorf("published %d set-mode messages for an invalid config", published)
	}
}
