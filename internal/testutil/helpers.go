package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/snonux/kumajala/internal/corpus"
)

// CreateTestDirectory creates a temporary working directory with the
// models and corpus sub directories the CLI expects.
func CreateTestDirectory(t *testing.T) string {
	t.Helper()

	tempDir := t.TempDir()
	for _, dir := range []string{"models", "corpus"} {
		path := filepath.Join(tempDir, dir)
		if err := os.MkdirAll(path, 0755); err != nil {
			t.Fatalf("Failed to create test directory %s: %v", path, err)
		}
	}
	return tempDir
}

// CreateTestFile creates a test file with content
func CreateTestFile(t *testing.T, path string, content []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create directory for test file: %v", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", path, err)
	}
}

// CreateCorpusFile writes a JSON corpus holding every pair for lang and
// returns its path.
func CreateCorpusFile(t *testing.T, dir, lang string, pairs map[string]string) string {
	t.Helper()

	c := corpus.New()
	for phrase, translation := range pairs {
		c.Set(phrase, lang, translation)
	}
	path := filepath.Join(dir, "corpus.json")
	if err := corpus.SaveJSON(path, c); err != nil {
		t.Fatalf("Failed to write corpus %s: %v", path, err)
	}
	return path
}

// SamplePairs returns a small French to bété phrase table.
func SamplePairs() map[string]string {
	return map[string]string{
		"bonjour":         "akwaba",
		"merci":           "ayoka",
		"au revoir":       "ka yako",
		"bonne nuit":      "mo yako",
		"comment ça va":   "a ti kpa",
		"je t'aime":       "n klo wo",
		"bienvenue":       "akwaba o",
		"oui":             "ɛɛn",
		"non":             "ao",
		"s'il vous plaît": "yako",
	}
}

// AssertFileExists checks if a file exists
func AssertFileExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Expected file to exist: %s", path)
	}
}

// AssertFileNotExists checks if a file does not exist
func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); err == nil {
		t.Errorf("Expected file to not exist: %s", path)
	}
}

// AssertFileContains checks if a file contains a substring
func AssertFileContains(t *testing.T, path string, substring string) {
	t.Helper()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}

	if !strings.Contains(string(content), substring) {
		t.Errorf("File %s does not contain expected substring: %q", path, substring)
	}
}
