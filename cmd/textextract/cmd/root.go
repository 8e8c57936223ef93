package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	textextractor "github.com/dv00d00/expo-text-extractor"
	"github.com/dv00d00/expo-text-extractor/internal/logging"
	"github.com/dv00d00/expo-text-extractor/unified"
)

// Version is set by main.
var Version = "dev"

// newExtractor builds the extractor used by every command. Tests replace it.
var newExtractor = func(logger *zap.Logger, opts unified.OCROptions) *textextractor.Extractor {
	return textextractor.New(
		textextractor.WithLogger(logger),
		textextractor.WithOptions(opts),
	)
}

// app carries the per-invocation configuration.
type app struct {
	v       *viper.Viper
	cfgFile string
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "textextract",
		Short:         "Extract text from images with the native recognizer",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.StringSlice("languages", nil, "BCP-47 language hints in priority order")
	flags.String("level", "", "recognition level: fast or accurate")
	flags.Float64("min-confidence", 0, "drop entities below this confidence (0 disables)")
	flags.Duration("timeout", 0, "per-image timeout (0 disables)")
	flags.Bool("base64", false, "send file contents as base64 instead of a file URI")
	flags.Int("parallel", 4, "number of images processed at once")
	flags.String("log-level", "warn", "log level")
	flags.String("log-format", "console", "log format: json or console")

	a.mustBindPFlag("ocr.languages", flags.Lookup("languages"))
	a.mustBindPFlag("ocr.level", flags.Lookup("level"))
	a.mustBindPFlag("ocr.min_confidence", flags.Lookup("min-confidence"))
	a.mustBindPFlag("ocr.timeout", flags.Lookup("timeout"))
	a.mustBindPFlag("base64", flags.Lookup("base64"))
	a.mustBindPFlag("parallel", flags.Lookup("parallel"))
	a.mustBindPFlag("log.level", flags.Lookup("log-level"))
	a.mustBindPFlag("log.format", flags.Lookup("log-format"))

	rootCmd.AddCommand(
		newExtractCmd(a),
		newDetailsCmd(a),
		newRecognizeCmd(a),
		newSupportedCmd(a),
		newEnqueueCmd(a),
	)
	return rootCmd
}

func (a *app) mustBindPFlag(key string, flag *pflag.Flag) {
	if err := a.v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// initConfig layers the config file and TEXTEXTRACT_* environment under
// the command-line flags.
func (a *app) initConfig() error {
	a.v.SetEnvPrefix("TEXTEXTRACT")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", a.cfgFile, err)
		}
	}
	return nil
}

func (a *app) logger() (*logging.Logger, error) {
	return logging.New("textextract", logging.Options{
		Level:  a.v.GetString("log.level"),
		Format: a.v.GetString("log.format"),
	})
}

func (a *app) extractor() (*textextractor.Extractor, *logging.Logger, error) {
	logger, err := a.logger()
	if err != nil {
		return nil, nil, err
	}
	return newExtractor(logger.Zap(), a.ocrOptions()), logger, nil
}

// ocrOptions collects the recognition options from flags, env and config.
func (a *app) ocrOptions() unified.OCROptions {
	return unified.OCROptions{
		Languages:        a.v.GetStringSlice("ocr.languages"),
		RecognitionLevel: unified.RecognitionLevel(a.v.GetString("ocr.level")),
		MinConfidence:    unified.Float(a.v.GetFloat64("ocr.min_confidence")),
		Timeout:          a.v.GetDuration("ocr.timeout"),
	}
}

func (a *app) parallel() int {
	if n := a.v.GetInt("parallel"); n > 0 {
		return n
	}
	return 1
}
