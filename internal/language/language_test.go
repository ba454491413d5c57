package language

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "bété", want: Bete},
		{input: "  BÉTÉ ", want: Bete},
		{input: "baoule", want: Baoule},
		{input: "Mooré", want: Moore},
		{input: "agni", want: Agni},
		{input: "zz", wantErr: true},
		{input: "", wantErr: true},
		{input: "fr", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if tt.wantErr {
				var unsupported *UnsupportedLanguageError
				if !errors.As(err, &unsupported) {
					t.Fatalf("Normalize(%q) error = %v, want UnsupportedLanguageError", tt.input, err)
				}
				if unsupported.Language != tt.input {
					t.Errorf("error language = %q, want %q", unsupported.Language, tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFold(t *testing.T) {
	// "e" followed by a combining acute accent composes to "é".
	if got := Fold("  Bonjour E\u0301TE\u0301 "); got != "bonjour été" {
		t.Errorf("Fold() = %q", got)
	}
}

func TestCodesAndLookup(t *testing.T) {
	if len(Codes()) != 4 {
		t.Fatalf("Codes() = %v, want 4 languages", Codes())
	}
	info, err := Lookup("mooré")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if info.Region != "Burkina Faso" {
		t.Errorf("Region = %q", info.Region)
	}
	if IsSupported("klingon") {
		t.Error("klingon should not be supported")
	}
}
