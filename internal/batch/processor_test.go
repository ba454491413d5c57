package batch

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestReadBatchFile(t *testing.T) {
	tests := []struct {
		name        string
		fileContent string
		want        []PhraseEntry
	}{
		{
			name:        "empty file",
			fileContent: "",
			want:        nil,
		},
		{
			name:        "only whitespace",
			fileContent: "   \n\t\r\n   ",
			want:        nil,
		},
		{
			name: "phrases with expected translations",
			fileContent: `bonjour = Akwaba
merci = Ayoka
au revoir = Ka yako`,
			want: []PhraseEntry{
				{Phrase: "bonjour", Expected: "Akwaba"},
				{Phrase: "merci", Expected: "Ayoka"},
				{Phrase: "au revoir", Expected: "Ka yako"},
			},
		},
		{
			name: "mixed format",
			fileContent: `bonjour
merci = Ayoka
comment allez-vous ?`,
			want: []PhraseEntry{
				{Phrase: "bonjour"},
				{Phrase: "merci", Expected: "Ayoka"},
				{Phrase: "comment allez-vous ?"},
			},
		},
		{
			name: "blank lines comments and windows line endings",
			fileContent: "# greetings\r\n\r\n  bonjour  \r\nmerci = Ayoka  \r\n\r\n",
			want: []PhraseEntry{
				{Phrase: "bonjour"},
				{Phrase: "merci", Expected: "Ayoka"},
			},
		},
		{
			name:        "empty phrase is skipped",
			fileContent: "= Akwaba\nbonjour =\n",
			want: []PhraseEntry{
				{Phrase: "bonjour"},
			},
		},
		{
			name:        "only the first equals sign splits",
			fileContent: "a = b = c",
			want: []PhraseEntry{
				{Phrase: "a", Expected: "b = c"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "phrases.txt")
			if err := os.WriteFile(path, []byte(tt.fileContent), 0644); err != nil {
				t.Fatalf("Failed to create test file: %v", err)
			}

			got, err := ReadBatchFile(path)
			if err != nil {
				t.Fatalf("ReadBatchFile() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ReadBatchFile() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestReadBatchFileMissing(t *testing.T) {
	if _, err := ReadBatchFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("Expected error for missing file")
	}
}
