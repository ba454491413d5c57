package processor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/snonux/kumajala/internal/archive"
	"codeberg.org/snonux/kumajala/internal/cli"
	"codeberg.org/snonux/kumajala/internal/corpus"
	"codeberg.org/snonux/kumajala/internal/dictionary"
	"codeberg.org/snonux/kumajala/internal/generative"
	"codeberg.org/snonux/kumajala/internal/resolver"
	"codeberg.org/snonux/kumajala/internal/seq2seq"
	"codeberg.org/snonux/kumajala/internal/testutil"
)

// newTestProcessor returns a processor over a temporary SQLite dictionary
// with the given generator and neural translators.
func newTestProcessor(t *testing.T, gen generative.Generator, translators ...resolver.Translator) *Processor {
	t.Helper()
	dir := testutil.CreateTestDirectory(t)

	flags := cli.NewFlags()
	flags.Language = "baoulé"
	flags.ModelsDir = filepath.Join(dir, "models")
	flags.DictionaryPath = filepath.Join(dir, "dictionary.db")

	p := NewProcessor(flags)
	p.generator = gen
	p.generatorInit = true
	p.registry = resolver.NewRegistry()
	for _, tr := range translators {
		p.registry.Register(tr.Language(), tr)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestNewProcessor(t *testing.T) {
	flags := cli.NewFlags()
	p := NewProcessor(flags)

	if p == nil {
		t.Fatal("NewProcessor returned nil")
	}
	if p.flags != flags {
		t.Error("Processor flags not set correctly")
	}
	if p.store != nil || p.registry != nil || p.generatorInit {
		t.Error("Collaborators should be opened lazily")
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close without store failed: %v", err)
	}
}

func TestTargetLanguage(t *testing.T) {
	tests := []struct {
		lang     string
		expected string
		wantErr  bool
	}{
		{"", "", true},
		{"baoule", "baoulé", false},
		{"MOORÉ", "mooré", false},
		{"swahili", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			flags := cli.NewFlags()
			flags.Language = tt.lang
			got, err := NewProcessor(flags).targetLanguage()
			if (err != nil) != tt.wantErr {
				t.Fatalf("targetLanguage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestLanguagesDefaultsToAll(t *testing.T) {
	p := NewProcessor(cli.NewFlags())
	langs, err := p.languages()
	if err != nil {
		t.Fatal(err)
	}
	if len(langs) != 4 {
		t.Errorf("Expected all 4 languages, got %v", langs)
	}
}

func TestTranslatePhrase_Dictionary(t *testing.T) {
	p := newTestProcessor(t, nil)
	ctx := context.Background()

	if err := p.Import(ctx); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if err := p.TranslatePhrase(ctx, "Bonjour"); err != nil {
		t.Errorf("Expected seeded phrase to translate, got %v", err)
	}
}

func TestTranslatePhrase_NotFound(t *testing.T) {
	p := newTestProcessor(t, nil)

	err := p.TranslatePhrase(context.Background(), "une phrase inconnue")
	if err == nil {
		t.Fatal("Expected error when no tier has a translation")
	}
	if !strings.Contains(err.Error(), "no baoulé translation") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestTranslatePhrase_NoLanguage(t *testing.T) {
	p := newTestProcessor(t, nil)
	p.flags.Language = ""
	if err := p.TranslatePhrase(context.Background(), "bonjour"); err == nil {
		t.Error("Expected error without a target language")
	}
}

func TestTranslateBatch(t *testing.T) {
	gen := &testutil.MockGenerator{
		Translations: map[string]string{"la pluie|baoulé": "nzue"},
	}
	neural := &testutil.MockTranslator{
		Lang:         "baoulé",
		Translations: map[string]string{"merci beaucoup": "mo kpa"},
	}
	p := newTestProcessor(t, gen, neural)
	ctx := context.Background()

	store, err := p.openStore()
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Upsert(ctx, dictionary.Key("bonjour"), "baoulé", "Mo ho"); err != nil {
		t.Fatal(err)
	}

	p.flags.BatchFile = filepath.Join(t.TempDir(), "phrases.txt")
	testutil.CreateTestFile(t, p.flags.BatchFile, []byte(`# batch
bonjour = mo ho
merci beaucoup = Mo kpa
la pluie = ji
inconnu
`))

	stats, err := p.TranslateBatch(ctx)
	if err != nil {
		t.Fatalf("TranslateBatch failed: %v", err)
	}

	if stats.Total != 4 {
		t.Errorf("Expected 4 phrases, got %d", stats.Total)
	}
	for source, want := range map[resolver.Source]int{
		resolver.SourceDictionary: 1,
		resolver.SourceNeural:     1,
		resolver.SourceGenerative: 1,
	} {
		if got := stats.BySource[source]; got != want {
			t.Errorf("Expected %d %s translations, got %d", want, source, got)
		}
	}
	if stats.NotFound != 1 {
		t.Errorf("Expected 1 phrase without translation, got %d", stats.NotFound)
	}
	if stats.Compared != 3 || stats.Agreements != 2 {
		t.Errorf("Expected 2/3 agreements, got %d/%d", stats.Agreements, stats.Compared)
	}

	calls := gen.Calls()
	if len(calls) != 2 {
		t.Errorf("Expected generator asked for 2 phrases, got %v", calls)
	}
}

func TestTranslateBatch_MissingFile(t *testing.T) {
	p := newTestProcessor(t, nil)
	p.flags.BatchFile = filepath.Join(t.TempDir(), "missing.txt")
	if _, err := p.TranslateBatch(context.Background()); err == nil {
		t.Error("Expected error for missing batch file")
	}
}

func TestImport(t *testing.T) {
	p := newTestProcessor(t, nil)
	ctx := context.Background()
	p.flags.CorpusFile = testutil.CreateCorpusFile(t, t.TempDir(), "agni", map[string]string{
		"la pluie": "nzue",
	})

	if err := p.Import(ctx); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	store, _ := p.openStore()
	got, ok, err := store.Lookup(ctx, "la pluie", "agni")
	if err != nil || !ok || got != "nzue" {
		t.Errorf("Expected imported translation, got %q %v %v", got, ok, err)
	}
	got, ok, _ = store.Lookup(ctx, "merci", "mooré")
	if !ok || got != "Barika" {
		t.Errorf("Expected seeded translation Barika, got %q", got)
	}
}

func TestEnrich(t *testing.T) {
	gen := &testutil.MockGenerator{
		Translations: map[string]string{
			"bonjour|baoulé": "Mo ho",
			"merci|baoulé":   "Mo",
		},
	}
	p := newTestProcessor(t, gen)
	dir := t.TempDir()
	p.flags.CorpusFile = testutil.CreateCorpusFile(t, dir, "bété", map[string]string{
		"bonjour":   "Akwaba",
		"merci":     "Akpé",
		"au revoir": "Kan na",
	})
	p.flags.OutputFile = filepath.Join(dir, "enriched.json")

	res, err := p.Enrich(context.Background())
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if res.Added["baoulé"] != 2 || res.Failed["baoulé"] != 1 {
		t.Errorf("Expected 2 added and 1 failed, got %+v", res)
	}

	c, err := corpus.Load(p.flags.OutputFile)
	if err != nil {
		t.Fatalf("Failed to load enriched corpus: %v", err)
	}
	if got, _ := c.Get("merci", "baoulé"); got != "Mo" {
		t.Errorf("Expected enriched translation Mo, got %q", got)
	}
	if got, _ := c.Get("merci", "bété"); got != "Akpé" {
		t.Errorf("Expected original translation kept, got %q", got)
	}
}

func TestEnrich_NoGenerator(t *testing.T) {
	p := newTestProcessor(t, nil)
	p.flags.CorpusFile = testutil.CreateCorpusFile(t, t.TempDir(), "bété", map[string]string{"oui": "Yoo"})

	_, err := p.Enrich(context.Background())
	if !errors.Is(err, generative.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}

func TestTrainEvaluateAndArchive(t *testing.T) {
	p := newTestProcessor(t, nil)
	ctx := context.Background()
	t.Setenv("OPENAI_API_KEY", "")

	p.flags.Language = "bete"
	p.flags.CorpusFile = testutil.CreateCorpusFile(t, t.TempDir(), "bété", testutil.SamplePairs())
	p.flags.EmbeddingDim = 8
	p.flags.HiddenUnits = 8
	p.flags.Epochs = 3
	p.flags.Augment = 2
	p.flags.BatchSize = 8
	p.flags.MaxLength = 10

	rep, err := p.Train(ctx)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if rep.Language != "bété" || rep.Pairs != 10 {
		t.Errorf("Unexpected report: language %s, pairs %d", rep.Language, rep.Pairs)
	}
	modelDir := seq2seq.ArtifactDir(p.flags.ModelsDir, "bété")
	testutil.AssertFileExists(t, filepath.Join(modelDir, seq2seq.WeightsFile))
	testutil.AssertFileExists(t, filepath.Join(modelDir, seq2seq.SourceVocabFile))
	testutil.AssertFileExists(t, filepath.Join(modelDir, seq2seq.TargetVocabFile))

	eval, err := p.Evaluate(ctx)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if eval.NumSamples != 10 {
		t.Errorf("Expected 10 evaluated samples, got %d", eval.NumSamples)
	}

	if err := p.ListModels(ctx); err != nil {
		t.Errorf("ListModels failed: %v", err)
	}

	p.flags.Archive = true
	if _, err := p.Train(ctx); err != nil {
		t.Fatalf("Retrain with archive failed: %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(p.flags.ModelsDir, archive.Dir))
	if err != nil {
		t.Fatalf("Archive directory missing: %v", err)
	}
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "bété-") {
		t.Errorf("Expected one archived bété model, got %v", entries)
	}
}

func TestTrain_InterruptedRestoresArchive(t *testing.T) {
	p := newTestProcessor(t, nil)
	p.flags.Language = "bété"
	p.flags.CorpusFile = testutil.CreateCorpusFile(t, t.TempDir(), "bété", testutil.SamplePairs())
	p.flags.EmbeddingDim = 8
	p.flags.HiddenUnits = 8
	p.flags.Epochs = 2
	p.flags.Augment = 1
	p.flags.MaxLength = 10

	if _, err := p.Train(context.Background()); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	modelDir := seq2seq.ArtifactDir(p.flags.ModelsDir, "bété")
	before, err := os.ReadFile(filepath.Join(modelDir, seq2seq.WeightsFile))
	if err != nil {
		t.Fatalf("Failed to read weights: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.flags.Archive = true
	if _, err := p.Train(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	after, err := os.ReadFile(filepath.Join(modelDir, seq2seq.WeightsFile))
	if err != nil {
		t.Fatalf("Previous model was not restored: %v", err)
	}
	if string(before) != string(after) {
		t.Error("Restored weights differ from the previous model")
	}
	testutil.AssertFileContains(t, filepath.Join(modelDir, seq2seq.TargetVocabFile), `"akwaba"`)
	testutil.AssertFileNotExists(t, filepath.Join(p.flags.ModelsDir, "checkpoints"))

	entries, err := os.ReadDir(filepath.Join(p.flags.ModelsDir, archive.Dir))
	if err != nil {
		t.Fatalf("Archive directory missing: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected the archived model to be moved back, got %v", entries)
	}
}

func TestTrain_Errors(t *testing.T) {
	p := newTestProcessor(t, nil)
	ctx := context.Background()

	p.flags.Language = "agni"
	if _, err := p.Train(ctx); err == nil || !strings.Contains(err.Error(), "no corpus") {
		t.Errorf("Expected missing corpus error, got %v", err)
	}

	p.flags.CorpusFile = testutil.CreateCorpusFile(t, t.TempDir(), "bété", testutil.SamplePairs())
	if _, err := p.Train(ctx); err == nil || !strings.Contains(err.Error(), "no agni translations") {
		t.Errorf("Expected no agni translations error, got %v", err)
	}
}

func TestEvaluate_NoModel(t *testing.T) {
	p := newTestProcessor(t, nil)
	p.flags.Language = "bété"
	p.flags.CorpusFile = testutil.CreateCorpusFile(t, t.TempDir(), "bété", testutil.SamplePairs())

	_, err := p.Evaluate(context.Background())
	var unavailable *seq2seq.ModelUnavailableError
	if !errors.As(err, &unavailable) {
		t.Errorf("Expected ModelUnavailableError, got %v", err)
	}
}

func TestRenderSummary(t *testing.T) {
	out := renderSummary("Batch Translation Summary", []summaryRow{
		row("Total phrases", "%d", 4),
		row("Neural", "%d", 1),
	})

	for _, want := range []string{"Batch Translation Summary", "Total phrases:", "4", "Neural:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Summary does not contain %q:\n%s", want, out)
		}
	}
}

func TestDescribeAttempts(t *testing.T) {
	got := describeAttempts([]resolver.Attempt{
		{Source: resolver.SourceDictionary, Outcome: resolver.Unavailable},
		{Source: resolver.SourceNeural, Outcome: resolver.LowConfidence, Score: 0.42},
		{Source: resolver.SourceGenerative, Outcome: resolver.Hit},
	})
	want := "dictionary unavailable, neural low-confidence 0.42, generative hit"
	if got != want {
		t.Errorf("describeAttempts() = %q, want %q", got, want)
	}
}
