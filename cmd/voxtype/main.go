package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voxtype/voxtype/internal/bus"
	"github.com/voxtype/voxtype/internal/capture"
	"github.com/voxtype/voxtype/internal/config"
	"github.com/voxtype/voxtype/internal/hotkey"
	"github.com/voxtype/voxtype/internal/infer"
	"github.com/voxtype/voxtype/internal/media"
	"github.com/voxtype/voxtype/internal/paste"
	"github.com/voxtype/voxtype/internal/run"
	"github.com/voxtype/voxtype/internal/secret"
	"github.com/voxtype/voxtype/internal/session"
	"github.com/voxtype/voxtype/internal/sound"
	"github.com/voxtype/voxtype/internal/tray"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/voxtype/config.yaml)")
	encryptKey := flag.Bool("encrypt-key", false, "encrypt an API key for the config file and exit")
	noTray := flag.Bool("no-tray", false, "run without the system tray")
	noNotify := flag.Bool("no-notify", false, "disable desktop notifications")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *encryptKey {
		if err := runEncryptKey(); err != nil {
			log.Fatalf("encrypt-key: %v", err)
		}
		return
	}

	// Load configuration
	cfg, err := loadConfig(*configPath, log)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	level, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)

	apiKey, err := resolveAPIKey(cfg)
	if err != nil {
		log.Fatalf("api key: %v", err)
	}

	printBanner(cfg)

	b := bus.New()
	runner := run.New()

	// Audio capture backend: the external binary, or the in-process
	// fallback when it is missing.
	var recorder session.Recorder
	sox := capture.NewSox(cfg.Capture.Binary, cfg.Audio.SampleRate, cfg.Audio.Channels, cfg.Audio.BitDepth,
		capture.NewProber(runner), log.WithField("component", "capture"))
	switch {
	case sox.Available():
		recorder = sox
		log.Infof("Capture ready (%s)", cfg.Capture.Binary)
	case cfg.Capture.Fallback:
		mr, err := capture.NewMalgo(cfg.Audio.SampleRate, cfg.Audio.Channels)
		if err != nil {
			log.Fatalf("Capture binary %q not found and fallback recorder failed: %v", cfg.Capture.Binary, err)
		}
		defer mr.Close()
		recorder = mr
		log.Warnf("Capture binary %q not found, using in-process recorder", cfg.Capture.Binary)
	default:
		log.Fatalf("Capture binary %q not found on PATH", cfg.Capture.Binary)
	}

	refiner := infer.NewClient(apiKey, cfg.API.Model, cfg.API.Endpoint,
		time.Duration(cfg.API.TimeoutSeconds)*time.Second, log.WithField("component", "infer"))

	controller := session.New(b, recorder, refiner, paste.New(),
		media.New(runner, log.WithField("component", "media")),
		session.Options{
			TempDir:        cfg.Session.TempDir,
			Mode:           infer.Mode(cfg.Session.Mode),
			IncludeVideo:   cfg.Session.IncludeVideo,
			PauseMedia:     cfg.Session.PauseMedia,
			RequestTimeout: time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		},
		log.WithField("component", "session"))

	session.CleanStale(cfg.Session.TempDir, log.WithField("component", "session"))
	sound.Bind(b, !*noNotify, log.WithField("component", "sound"))

	// Live-reload mode/include_video edits from the config file.
	if *configPath != "" || fileExists(config.DefaultConfigPath()) {
		path := *configPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if w, err := config.Watch(path, b, log.WithField("component", "config")); err != nil {
			log.WithError(err).Warn("config watching disabled")
		} else {
			defer w.Close()
		}
	}

	// Signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Initialize hotkey listener
	listener := hotkey.NewListener(cfg.Hotkey.Keys, cfg.Hotkey.CancelKeys)
	go listener.Start()
	log.Infof("Hotkey listener ready (%s to dictate, %s to cancel)",
		strings.Join(cfg.Hotkey.Keys, "+"), strings.Join(cfg.Hotkey.CancelKeys, "+"))

	if !*noTray {
		go tray.Run(b, tray.Options{
			Mode:         infer.Mode(cfg.Session.Mode),
			IncludeVideo: cfg.Session.IncludeVideo,
		}, func() {
			select {
			case sigCh <- syscall.SIGTERM:
			default:
			}
		})
	}

	log.Infof("Ready! Press %s to dictate. Ctrl+C to quit.", strings.Join(cfg.Hotkey.Keys, "+"))

	// Main event loop
	events := listener.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				log.Info("Hotkey listener stopped")
				b.Close()
				return
			}
			switch ev.Type {
			case hotkey.EventToggle:
				controller.Toggle()
			case hotkey.EventCancel:
				controller.Cancel()
			}

		case sig := <-sigCh:
			log.Infof("Received %s, shutting down...", sig)
			if controller.IsRecording() {
				controller.Cancel()
			}
			b.Close()
			log.Info("Goodbye!")
			// Exit directly to avoid gohook's C cleanup crash.
			// The OS reclaims the event hook on process exit.
			os.Exit(0)
		}
	}
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string, log *logrus.Logger) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	// Try default config path
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Infof("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	// No config file, use defaults
	log.Info("No config file found, using defaults")
	return config.Default(), nil
}

// resolveAPIKey returns the plain API key, decrypting the at-rest blob with
// a passphrase prompt when needed.
func resolveAPIKey(cfg *config.Config) (string, error) {
	if cfg.API.Key != "" {
		return cfg.API.Key, nil
	}

	pass, err := secret.ReadPassphrase("Passphrase for encrypted API key: ")
	if err != nil {
		return "", err
	}
	return secret.Decrypt(cfg.API.KeyEncrypted, pass)
}

// runEncryptKey prompts for a key and passphrase and prints the blob to put
// under api.key_encrypted.
func runEncryptKey() error {
	key, err := secret.ReadPassphrase("API key: ")
	if err != nil {
		return err
	}
	pass, err := secret.ReadPassphrase("Passphrase: ")
	if err != nil {
		return err
	}
	confirm, err := secret.ReadPassphrase("Confirm passphrase: ")
	if err != nil {
		return err
	}
	if string(pass) != string(confirm) {
		return fmt.Errorf("passphrases do not match")
	}

	blob, err := secret.Encrypt(key, pass)
	if err != nil {
		return err
	}
	fmt.Printf("api:\n  key_encrypted: %s\n", blob)
	return nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== voxtype ===")
	fmt.Printf("  Model:   %s\n", cfg.API.Model)
	fmt.Printf("  Hotkey:  %s (cancel: %s)\n", strings.Join(cfg.Hotkey.Keys, "+"), strings.Join(cfg.Hotkey.CancelKeys, "+"))
	fmt.Printf("  Audio:   %dHz, %dch, %d-bit (%s)\n", cfg.Audio.SampleRate, cfg.Audio.Channels, cfg.Audio.BitDepth, cfg.Capture.Binary)
	fmt.Printf("  Mode:    %s (video: %v)\n", cfg.Session.Mode, cfg.Session.IncludeVideo)
	fmt.Printf("  Log:     %s\n", cfg.LogLevel)
	fmt.Println("===============")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
