// Package escape renders text safe for embedding inside a double-quoted
// Clojure string literal.
package escape

import "strings"

var (
	quoter   = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	unquoter = strings.NewReplacer(`\\`, `\`, `\"`, `"`)
)

// Quotes escapes backslashes and double quotes so that s can be placed
// between two double quotes and read back unchanged.
func Quotes(s string) string {
	return quoter.Replace(s)
}

// Unquote reverses Quotes. Backslash sequences Quotes never produces are
// left as they are.
func Unquote(s string) string {
	return unquoter.Replace(s)
}
