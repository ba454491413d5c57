// Package archive moves trained model directories out of the way before a
// retrain so the previous artifact can be restored by hand.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"codeberg.org/snonux/kumajala/internal"
)

// Dir is the name of the archive directory created next to the archived
// model directories.
const Dir = "archive"

// ArchiveModel moves modelDir to <parent>/archive/<name>-<timestamp> and
// returns the new path.
func ArchiveModel(modelDir string) (string, error) {
	info, err := os.Stat(modelDir)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("model directory does not exist: %s", modelDir)
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat model directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", modelDir)
	}

	archiveDir := filepath.Join(filepath.Dir(modelDir), Dir)
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := internal.SanitizeFilename(filepath.Base(modelDir))
	archivePath := filepath.Join(archiveDir, fmt.Sprintf("%s-%s", name, time.Now().Format("20060102-150405")))
	if _, err := os.Stat(archivePath); err == nil {
		// Two archives within the same second
		archivePath = filepath.Join(archiveDir, fmt.Sprintf("%s-%s", name, time.Now().Format("20060102-150405.000000")))
	}

	if err := os.Rename(modelDir, archivePath); err != nil {
		return "", fmt.Errorf("failed to archive model directory: %w", err)
	}
	return archivePath, nil
}

// ArchiveIfExists archives modelDir when it exists and returns "" otherwise.
func ArchiveIfExists(modelDir string) (string, error) {
	if _, err := os.Stat(modelDir); os.IsNotExist(err) {
		return "", nil
	}
	return ArchiveModel(modelDir)
}
