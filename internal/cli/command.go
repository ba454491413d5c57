package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"codeberg.org/snonux/kumajala/internal"
	"codeberg.org/snonux/kumajala/internal/language"
)

// RunFunc runs one sub command.
type RunFunc func(cmd *cobra.Command, args []string) error

// Handlers are the functions behind the sub commands. A nil handler leaves
// its command without a RunE.
type Handlers struct {
	Translate  RunFunc
	Train      RunFunc
	Import     RunFunc
	Enrich     RunFunc
	Evaluate   RunFunc
	ListModels RunFunc
}

// flag name -> viper key
var viperKeys = map[string]string{
	"language":             "language",
	"models-dir":           "model.dir",
	"corpus":               "corpus.path",
	"dictionary":           "dictionary.path",
	"generator":            "generator.provider",
	"openai-model":         "generator.openai_model",
	"gemini-model":         "generator.gemini_model",
	"seed":                 "training.seed",
	"max-length":           "model.max_length",
	"beam-width":           "model.beam_width",
	"confidence-threshold": "resolver.confidence_threshold",
	"store-generated":      "resolver.store_generated",
	"batch-size":           "training.batch_size",
	"epochs":               "training.epochs",
	"learning-rate":        "training.learning_rate",
	"min-lr":               "training.min_learning_rate",
	"patience":             "training.patience",
	"lr-patience":          "training.lr_patience",
	"lr-factor":            "training.lr_factor",
	"augment":              "training.augment",
	"embedding-dim":        "model.embedding_dim",
	"hidden-units":         "model.hidden_units",
	"dropout":              "model.dropout",
	"checkpoints":          "training.checkpoints",
	"limit":                "enrich.limit",
}

// DefaultStateDir is where models and the dictionary live unless
// configured otherwise.
func DefaultStateDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "kumajala")
}

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags, h Handlers) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kumajala",
		Short: "French to bété, baoulé, mooré and agni translator",
		Long: `kumajala translates French phrases into bété, baoulé, mooré and agni.

A phrase is looked up in the dictionary first, then translated by the
trained neural model of the target language and, when the model is missing
or not confident enough, by a generative service (OpenAI or Gemini).

Examples:
  kumajala translate -l baoulé "bonjour"            # Translate one phrase
  kumajala translate -l agni --batch phrases.txt    # Translate a file of phrases
  kumajala train -l bété --corpus language.json     # Train the bété model
  kumajala import --corpus language.json            # Load a corpus into the dictionary
  kumajala enrich --corpus language.json -o out.json
  kumajala list-models`,
		Version:      internal.Version,
		SilenceUsage: true,
	}

	setupFlags(rootCmd, flags)

	rootCmd.AddCommand(
		newTranslateCommand(flags, h.Translate),
		newTrainCommand(flags, h.Train),
		newImportCommand(h.Import),
		newEnrichCommand(flags, h.Enrich),
		newEvaluateCommand(h.Evaluate),
		newListModelsCommand(h.ListModels),
	)

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	stateDir := DefaultStateDir()
	pf := cmd.PersistentFlags()

	pf.StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.kumajala.yaml)")
	pf.StringVarP(&flags.Language, "language", "l", flags.Language, "Target language: "+strings.Join(language.Codes(), ", "))
	pf.StringVar(&flags.ModelsDir, "models-dir", filepath.Join(stateDir, "models"), "Directory holding one trained model per language")
	pf.StringVarP(&flags.CorpusFile, "corpus", "c", flags.CorpusFile, "Parallel corpus (.json or .parquet)")
	pf.StringVar(&flags.DictionaryPath, "dictionary", filepath.Join(stateDir, "dictionary.db"), "Dictionary store (SQLite database or .json file)")
	pf.StringVar(&flags.Generator, "generator", flags.Generator, "Generative fallback: openai, gemini or none")
	pf.StringVar(&flags.OpenAIModel, "openai-model", flags.OpenAIModel, "OpenAI chat model used by the generative fallback")
	pf.StringVar(&flags.GeminiModel, "gemini-model", flags.GeminiModel, "Gemini model used by the generative fallback")
	pf.Int64Var(&flags.Seed, "seed", flags.Seed, "Random seed for augmentation, splits and initialisation")
	pf.IntVar(&flags.MaxLength, "max-length", flags.MaxLength, "Maximum sequence length in tokens")
	pf.IntVar(&flags.BeamWidth, "beam-width", flags.BeamWidth, "Beam width for decoding (1 is greedy)")

	bindFlagsToViper(pf)
}

func newTranslateCommand(flags *Flags, run RunFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate [phrase]",
		Short: "Translate a French phrase",
		Args:  cobra.MaximumNArgs(1),
		RunE:  run,
	}
	cmd.Flags().StringVarP(&flags.BatchFile, "batch", "b", "", "Translate phrases from file (one per line, optional 'phrase = expected')")
	cmd.Flags().Float64VarP(&flags.ConfidenceThreshold, "confidence-threshold", "t", flags.ConfidenceThreshold, "Minimum neural confidence before escalating to the generative service")
	cmd.Flags().BoolVar(&flags.StoreGenerated, "store-generated", false, "Write generated translations back to the dictionary")
	bindFlagsToViper(cmd.Flags())
	return cmd
}

func newTrainCommand(flags *Flags, run RunFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the neural model of a language from a corpus",
		Args:  cobra.NoArgs,
		RunE:  run,
	}
	f := cmd.Flags()
	f.IntVar(&flags.BatchSize, "batch-size", flags.BatchSize, "Training batch size")
	f.IntVar(&flags.Epochs, "epochs", flags.Epochs, "Maximum number of epochs")
	f.Float64Var(&flags.LearningRate, "learning-rate", flags.LearningRate, "Initial Adam learning rate")
	f.Float64Var(&flags.MinLearningRate, "min-lr", flags.MinLearningRate, "Floor of the learning rate schedule")
	f.IntVar(&flags.Patience, "patience", flags.Patience, "Epochs without improvement before stopping early")
	f.IntVar(&flags.LRPatience, "lr-patience", flags.LRPatience, "Epochs without improvement before decaying the learning rate")
	f.Float64Var(&flags.LRFactor, "lr-factor", flags.LRFactor, "Learning rate decay factor")
	f.IntVar(&flags.Augment, "augment", flags.Augment, "Augmentation factor (pairs produced per corpus pair)")
	f.IntVar(&flags.EmbeddingDim, "embedding-dim", flags.EmbeddingDim, "Embedding size")
	f.IntVar(&flags.HiddenUnits, "hidden-units", flags.HiddenUnits, "Encoder, decoder and attention size")
	f.Float64Var(&flags.Dropout, "dropout", flags.Dropout, "Dropout rate during training")
	f.BoolVar(&flags.Archive, "archive", false, "Archive the existing model of the language before training")
	f.BoolVar(&flags.Checkpoints, "checkpoints", false, "Also keep a copy of every improvement under <models-dir>/checkpoints")
	bindFlagsToViper(f)
	return cmd
}

func newImportCommand(run RunFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Seed the dictionary and import a corpus into it",
		Args:  cobra.NoArgs,
		RunE:  run,
	}
}

func newEnrichCommand(flags *Flags, run RunFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Fill missing corpus translations with the generative service",
		Args:  cobra.NoArgs,
		RunE:  run,
	}
	cmd.Flags().StringVarP(&flags.OutputFile, "output", "o", "", "Enriched corpus file (default overwrites --corpus)")
	cmd.Flags().IntVar(&flags.EnrichLimit, "limit", 0, "Maximum translations generated per language (0 is unlimited)")
	bindFlagsToViper(cmd.Flags())
	return cmd
}

func newEvaluateCommand(run RunFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate",
		Short: "Score the trained model of a language against a corpus",
		Args:  cobra.NoArgs,
		RunE:  run,
	}
}

func newListModelsCommand(run RunFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list-models",
		Short: "List trained models and available OpenAI chat models",
		Args:  cobra.NoArgs,
		RunE:  run,
	}
}

func bindFlagsToViper(fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if key, ok := viperKeys[f.Name]; ok {
			viper.BindPFlag(key, f)
		}
	})
}

// LoadFromViper copies the effective configuration (flag, environment,
// config file, default; in that order) back into flags.
func (f *Flags) LoadFromViper() {
	f.Language = viper.GetString("language")
	f.ModelsDir = viper.GetString("model.dir")
	f.CorpusFile = viper.GetString("corpus.path")
	f.DictionaryPath = viper.GetString("dictionary.path")
	f.Generator = viper.GetString("generator.provider")
	f.OpenAIModel = viper.GetString("generator.openai_model")
	f.GeminiModel = viper.GetString("generator.gemini_model")
	f.Seed = viper.GetInt64("training.seed")
	f.MaxLength = viper.GetInt("model.max_length")
	f.BeamWidth = viper.GetInt("model.beam_width")

	// Sub command flags are only bound while their command is set up.
	if viper.IsSet("resolver.confidence_threshold") {
		f.ConfidenceThreshold = viper.GetFloat64("resolver.confidence_threshold")
	}
	if viper.IsSet("resolver.store_generated") {
		f.StoreGenerated = viper.GetBool("resolver.store_generated")
	}
	if viper.IsSet("training.batch_size") {
		f.BatchSize = viper.GetInt("training.batch_size")
	}
	if viper.IsSet("training.epochs") {
		f.Epochs = viper.GetInt("training.epochs")
	}
	if viper.IsSet("training.learning_rate") {
		f.LearningRate = viper.GetFloat64("training.learning_rate")
	}
	if viper.IsSet("training.min_learning_rate") {
		f.MinLearningRate = viper.GetFloat64("training.min_learning_rate")
	}
	if viper.IsSet("training.patience") {
		f.Patience = viper.GetInt("training.patience")
	}
	if viper.IsSet("training.lr_patience") {
		f.LRPatience = viper.GetInt("training.lr_patience")
	}
	if viper.IsSet("training.lr_factor") {
		f.LRFactor = viper.GetFloat64("training.lr_factor")
	}
	if viper.IsSet("training.augment") {
		f.Augment = viper.GetInt("training.augment")
	}
	if viper.IsSet("training.checkpoints") {
		f.Checkpoints = viper.GetBool("training.checkpoints")
	}
	if viper.IsSet("model.embedding_dim") {
		f.EmbeddingDim = viper.GetInt("model.embedding_dim")
	}
	if viper.IsSet("model.hidden_units") {
		f.HiddenUnits = viper.GetInt("model.hidden_units")
	}
	if viper.IsSet("model.dropout") {
		f.Dropout = viper.GetFloat64("model.dropout")
	}
	if viper.IsSet("enrich.limit") {
		f.EnrichLimit = viper.GetInt("enrich.limit")
	}
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".kumajala" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".kumajala")
	}

	// Environment variables, KUMAJALA_MODEL_DIR overrides model.dir
	viper.SetEnvPrefix("KUMAJALA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// Thresholds returns the per language confidence thresholds configured
// under "thresholds". Unaccented language keys are accepted.
func Thresholds() map[string]float64 {
	out := make(map[string]float64)
	for key := range viper.GetStringMap("thresholds") {
		lang, err := language.Normalize(key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: ignoring threshold for %v\n", err)
			continue
		}
		out[lang] = viper.GetFloat64("thresholds." + key)
	}
	return out
}

// GetOpenAIKey retrieves the OpenAI API key from environment or config
func GetOpenAIKey() string {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("generator.openai_key")
}

// GetGeminiKey retrieves the Gemini API key from environment or config
func GetGeminiKey() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("generator.gemini_key")
}
