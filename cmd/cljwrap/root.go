package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/caffeineduck/cljwrap/language"
	"github.com/caffeineduck/cljwrap/language/clojure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger = zap.NewNop()
	cfg    *viper.Viper

	cfgFile string
	verbose bool
)

// newLogger is swapped out by tests.
var newLogger = func(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

var rootCmd = &cobra.Command{
	Use:   "cljwrap [file]",
	Short: "Prepare Clojure and ClojureScript code for REPL evaluation",
	Long: `cljwrap - Turn Clojure and ClojureScript code into text a REPL can evaluate.

Code is switched into a namespace before it runs. Clojure code is also
wrapped so that uncaught exceptions print a stack trace to *err* instead of
breaking the REPL. cljwrap never runs code itself; pipe its output into a
socket REPL, prepl or nREPL client.

Settings come from flags, CLJWRAP_* environment variables, or a config file.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runEval, // Default to eval command behavior
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("lang", "l", "", "Language: clj, cljs (default: auto-detect from file extension)")
	rootCmd.PersistentFlags().StringP("ns", "n", clojure.DefaultNamespace, "Namespace to evaluate code in")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (yaml, toml or json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cfg = newConfig()

	addEvalFlags(rootCmd)
}

// newConfig returns a viper instance backed by the root persistent flags.
func newConfig() *viper.Viper {
	v := viper.New()
	_ = v.BindPFlag("lang", rootCmd.PersistentFlags().Lookup("lang"))
	_ = v.BindPFlag("ns", rootCmd.PersistentFlags().Lookup("ns"))
	return v
}

// initConfig layers CLJWRAP_* environment variables and the optional config
// file under the flags bound in init.
func initConfig() error {
	cfg.SetEnvPrefix("CLJWRAP")
	cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cfg.AutomaticEnv()

	if cfgFile == "" {
		return nil
	}
	cfg.SetConfigFile(cfgFile)
	if err := cfg.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", cfgFile, err)
	}
	return nil
}

// getLanguage resolves the session language. Without an explicit tag the
// file extension decides.
func getLanguage(tag, filename, ns string) (language.Language, error) {
	if tag == "" && filename != "" {
		if l, ok := clojure.LangFromFilename(filename); ok {
			tag = l.Tag()
		}
	}

	if tag == "" {
		return nil, fmt.Errorf("language required: use --lang clj or --lang cljs")
	}

	return language.Resolve(tag, ns)
}
