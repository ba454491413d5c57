// Package language knows which languages the translator serves and
// normalises user-supplied language codes.
package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	xlang "golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Source is the language every phrase is translated from.
const Source = "fr"

// Supported target languages.
const (
	Bete   = "bété"
	Baoule = "baoulé"
	Moore  = "mooré"
	Agni   = "agni"
)

// Info describes a target language.
type Info struct {
	Code   string
	Name   string
	Region string
}

var supported = []Info{
	{Code: Bete, Name: "Bété", Region: "Côte d'Ivoire"},
	{Code: Baoule, Name: "Baoulé", Region: "Côte d'Ivoire"},
	{Code: Moore, Name: "Mooré", Region: "Burkina Faso"},
	{Code: Agni, Name: "Agni", Region: "Côte d'Ivoire"},
}

// UnsupportedLanguageError is returned for a language outside the supported set.
type UnsupportedLanguageError struct {
	Language string
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("unsupported language %q (supported: %s)", e.Language, strings.Join(Codes(), ", "))
}

// All returns the supported target languages in a stable order.
func All() []Info {
	return append([]Info(nil), supported...)
}

// Codes returns the supported language codes.
func Codes() []string {
	codes := make([]string, len(supported))
	for i, info := range supported {
		codes[i] = info.Code
	}
	return codes
}

// Normalize folds lang to its canonical form (NFC, lower case, trimmed) and
// checks that it is supported. Unaccented spellings such as "baoule" are
// accepted.
func Normalize(lang string) (string, error) {
	folded := Fold(lang)
	for _, info := range supported {
		if folded == info.Code || folded == stripMarks(info.Code) {
			return info.Code, nil
		}
	}
	return "", &UnsupportedLanguageError{Language: lang}
}

// IsSupported reports whether lang names a supported target language.
func IsSupported(lang string) bool {
	_, err := Normalize(lang)
	return err == nil
}

// Lookup returns the description of a supported language.
func Lookup(lang string) (Info, error) {
	code, err := Normalize(lang)
	if err != nil {
		return Info{}, err
	}
	for _, info := range supported {
		if info.Code == code {
			return info, nil
		}
	}
	return Info{}, &UnsupportedLanguageError{Language: lang}
}

// Fold normalises free text for case-insensitive comparison: NFC, trimmed
// and lower-cased with French casing rules.
func Fold(s string) string {
	return cases.Lower(xlang.French).String(norm.NFC.String(strings.TrimSpace(s)))
}

func stripMarks(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if r >= 0x0300 && r <= 0x036f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
