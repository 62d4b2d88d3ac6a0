package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var evalCmd = &cobra.Command{
	Use:   "eval [file]",
	Short: "Wrap code for evaluation",
	Long: `Print the text to send to a REPL so that the given code runs in a namespace.

Code can be provided via:
  - File argument: cljwrap eval src/app/core.clj
  - Inline flag: cljwrap eval -l clj -c '(+ 1 2)'
  - Stdin: echo '(+ 1 2)' | cljwrap eval -l cljs`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEval,
}

func init() {
	addEvalFlags(evalCmd)
	rootCmd.AddCommand(evalCmd)
}

func addEvalFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("code", "c", "", "Code to wrap")
	cmd.Flags().Bool("bootstrap", false, "Print the bootstrap snippet before the wrapped code")
}

func runEval(cmd *cobra.Command, args []string) error {
	code, _ := cmd.Flags().GetString("code")
	withBootstrap, _ := cmd.Flags().GetBool("bootstrap")

	var source string
	var filename string

	switch {
	case code != "":
		source = code
	case len(args) > 0:
		filename = args[0]
		data, err := os.ReadFile(filename)
		if err != nil {
			return err
		}
		source = string(data)
	default:
		in := cmd.InOrStdin()
		// No piped input, show help
		if f, ok := in.(*os.File); ok {
			if stat, err := f.Stat(); err == nil && stat.Mode()&os.ModeCharDevice != 0 {
				return cmd.Help()
			}
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return err
		}
		source = string(data)
		if source == "" {
			return cmd.Help()
		}
	}

	lang, err := getLanguage(cfg.GetString("lang"), filename, cfg.GetString("ns"))
	if err != nil {
		return err
	}

	logger.Debug("Wrapping code",
		zap.String("lang", lang.Name()),
		zap.String("ns", cfg.GetString("ns")),
		zap.Int("bytes", len(source)))

	out := cmd.OutOrStdout()
	if withBootstrap {
		printSnippet(out, lang.SessionInit())
	}
	printSnippet(out, lang.WrapCode(source))
	return nil
}

// printSnippet writes s terminated by exactly one trailing newline of its own.
func printSnippet(w io.Writer, s string) {
	if strings.HasSuffix(s, "\n") {
		fmt.Fprint(w, s)
		return
	}
	fmt.Fprintln(w, s)
}
