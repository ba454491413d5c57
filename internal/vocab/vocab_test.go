package vocab

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "punctuation split", text: "Bonjour, ça va?", want: []string{"bonjour", ",", "ça", "va", "?"}},
		{name: "accents kept in words", text: "Baoulé ÉTÉ", want: []string{"baoulé", "été"}},
		{name: "whitespace only", text: "  \t ", want: nil},
		{name: "apostrophe", text: "l'eau", want: []string{"l", "'", "eau"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestBuildOrdering(t *testing.T) {
	v := Build("bété", []string{"a b b", "c b a"}, 1)

	// b:3, a:2, c:1
	want := []string{PadToken, StartToken, EndToken, UnknownToken, "b", "a", "c"}
	if v.Size() != len(want) {
		t.Fatalf("Size() = %d, want %d", v.Size(), len(want))
	}
	for id, tok := range want {
		if got := v.Token(id); got != tok {
			t.Errorf("Token(%d) = %q, want %q", id, got, tok)
		}
	}
}

func TestBuildTiesByFirstSeen(t *testing.T) {
	v := Build("fr", []string{"zeta alpha", "mu"}, 1)

	for i, tok := range []string{"zeta", "alpha", "mu"} {
		if id, _ := v.ID(tok); id != 4+i {
			t.Errorf("ID(%q) = %d, want %d", tok, id, 4+i)
		}
	}
}

func TestBuildMinFrequency(t *testing.T) {
	v := Build("fr", []string{"a a b"}, 2)

	if _, ok := v.ID("b"); ok {
		t.Error("token below min frequency should be excluded")
	}
	if _, ok := v.ID("a"); !ok {
		t.Error("token at min frequency should be included")
	}
}

func TestEncodeDecode(t *testing.T) {
	v := Build("fr", []string{"bonjour le monde !"}, 1)

	ids := v.Encode("Bonjour inconnu !", true)
	b, _ := v.ID("bonjour")
	bang, _ := v.ID("!")
	want := []int{StartID, b, UnknownID, bang, EndID}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("Encode() = %v, want %v", ids, want)
	}

	if got := v.Decode(ids, true); got != "bonjour!" {
		t.Errorf("Decode(skip) = %q, want %q", got, "bonjour!")
	}
	if got := v.Decode(ids, false); got != "<START> bonjour <UNK>! <END>" {
		t.Errorf("Decode(keep) = %q", got)
	}
	if got := v.Decode([]int{PadID, EndID}, true); got != "" {
		t.Errorf("Decode(reserved only) = %q, want empty", got)
	}
	if got := v.Decode(nil, true); got != "" {
		t.Errorf("Decode(nil) = %q, want empty", got)
	}
}

func TestEncodeEmpty(t *testing.T) {
	v := Build("fr", nil, 1)
	if got := v.Encode("", true); !reflect.DeepEqual(got, []int{StartID, EndID}) {
		t.Errorf("Encode(empty) = %v", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	v := Build("baoulé", []string{"mo ho", "akwaba ho !"}, 1)
	path := filepath.Join(t.TempDir(), "vocab.json")

	if err := v.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.Language != "baoulé" {
		t.Errorf("Language = %q", loaded.Language)
	}
	if loaded.Size() != v.Size() {
		t.Fatalf("Size() = %d, want %d", loaded.Size(), v.Size())
	}
	for id := 0; id < v.Size(); id++ {
		if loaded.Token(id) != v.Token(id) {
			t.Errorf("Token(%d) = %q, want %q", id, loaded.Token(id), v.Token(id))
		}
	}
	if loaded.Fingerprint() != v.Fingerprint() {
		t.Error("fingerprint changed across save/load")
	}
	if loaded.Count("ho") != 2 {
		t.Errorf("Count(ho) = %d, want 2", loaded.Count("ho"))
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
