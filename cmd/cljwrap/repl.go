package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caffeineduck/cljwrap/language"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive loop that prints each wrapped form",
	Long: `Start an interactive loop that prints the text each input would be sent as.

Features:
  - Command history (up/down arrows)
  - Line editing (left/right, backspace, delete)
  - History search (Ctrl+R)
  - Multi-line input (end line with \)

Commands:
  :ns <name>   Switch namespace (":ns" alone shows the current one)
  :bootstrap   Print the session bootstrap snippet
  :lang        Show the active dialect

Type 'exit' or 'quit' to end the session, or press Ctrl+D.`,
	Args: cobra.NoArgs,
	RunE: runRepl,
}

func init() {
	replCmd.Flags().String("history", "", "History file path (default: ~/.cljwrap_history)")
	rootCmd.AddCommand(replCmd)
}

// replSession holds the caller-owned session context: a dialect tag and the
// current namespace.
type replSession struct {
	tag  string
	ns   string
	lang language.Language
}

func newReplSession(tag, ns string) (*replSession, error) {
	lang, err := getLanguage(tag, "", ns)
	if err != nil {
		return nil, err
	}
	return &replSession{tag: lang.Name(), ns: ns, lang: lang}, nil
}

// handle turns one complete input into the text to print. quit reports that
// the loop should stop.
func (s *replSession) handle(line string) (out string, quit bool, err error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return "", false, nil
	case line == "exit" || line == "quit":
		return "", true, nil
	case line == ":bootstrap":
		return s.lang.SessionInit(), false, nil
	case line == ":lang":
		return s.lang.Name(), false, nil
	case line == ":ns":
		return s.ns, false, nil
	case strings.HasPrefix(line, ":ns "):
		ns := strings.TrimSpace(strings.TrimPrefix(line, ":ns "))
		lang, err := language.Resolve(s.tag, ns)
		if err != nil {
			return "", false, err
		}
		s.ns, s.lang = ns, lang
		return "namespace: " + ns, false, nil
	}
	return s.lang.WrapCode(line), false, nil
}

func (s *replSession) prompt() string {
	return s.ns + "=> "
}

func runRepl(cmd *cobra.Command, args []string) error {
	historyFile, _ := cmd.Flags().GetString("history")

	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".cljwrap_history")
	}

	session, err := newReplSession(cfg.GetString("lang"), cfg.GetString("ns"))
	if err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            session.prompt(),
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close()

	logger.Debug("REPL started", zap.String("lang", session.tag), zap.String("ns", session.ns))
	fmt.Fprintf(os.Stderr, "cljwrap %s REPL (type 'exit' to quit, Ctrl+D to exit)\n", session.tag)

	var multiLine strings.Builder
	inMultiLine := false

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if inMultiLine {
					multiLine.Reset()
					inMultiLine = false
					rl.SetPrompt(session.prompt())
				}
				continue
			}
			if err == io.EOF {
				fmt.Println()
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}

		// Handle multi-line input
		if strings.HasSuffix(line, "\\") {
			multiLine.WriteString(strings.TrimSuffix(line, "\\"))
			multiLine.WriteString("\n")
			inMultiLine = true
			rl.SetPrompt("... ")
			continue
		}

		if inMultiLine {
			multiLine.WriteString(line)
			line = multiLine.String()
			multiLine.Reset()
			inMultiLine = false
		}

		out, quit, err := session.handle(line)
		rl.SetPrompt(session.prompt())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		if quit {
			break
		}
		if out != "" {
			printSnippet(cmd.OutOrStdout(), out)
		}
	}
	return nil
}
