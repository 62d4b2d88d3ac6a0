package main

import (
	"fmt"

	"github.com/caffeineduck/cljwrap/language"
	"github.com/caffeineduck/cljwrap/language/clojure"
	"github.com/spf13/cobra"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Print the session bootstrap snippet",
	Long: `Print the snippet to evaluate once when a REPL session starts.

It limits printed collections to 50 items, loads the REPL helpers, and
reports which dialect is active. The same text works for clj and cljs.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printSnippet(cmd.OutOrStdout(), clojure.Bootstrap())
	},
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List accepted language tags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, tag := range language.Tags() {
			l, err := clojure.ParseLang(tag)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", tag, l)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bootstrapCmd, tagsCmd)
}
