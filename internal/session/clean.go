package session

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// CleanStale removes session media files left behind by a prior run that
// died before its cleanup ran. Called once at startup.
func CleanStale(tempDir string, log *logrus.Entry) {
	matches, err := filepath.Glob(filepath.Join(tempDir, "voxtype-*"))
	if err != nil {
		return
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil {
			log.WithError(err).WithField("path", path).Debug("stale temp file not removed")
			continue
		}
		log.WithField("path", path).Debug("removed stale temp file")
	}
}
