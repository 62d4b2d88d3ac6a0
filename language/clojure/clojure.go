// Package clojure provides the Clojure and ClojureScript language adapter
// for cljwrap.
package clojure

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/caffeineduck/cljwrap/internal/escape"
)

// ErrParseLang is returned when a tag names neither dialect.
var ErrParseLang = errors.New("couldn't parse language, should be clj or cljs")

// Lang is the dialect a session evaluates against. Both dialects read the
// same syntax but differ in standard library and error reporting.
type Lang int

const (
	// Clojure runs on the JVM. Tag "clj".
	Clojure Lang = iota
	// ClojureScript compiles to JavaScript. Tag "cljs".
	ClojureScript
)

// ParseLang maps a tag to its dialect. The match is exact: no trimming and
// no case folding.
func ParseLang(tag string) (Lang, error) {
	switch tag {
	case "clj":
		return Clojure, nil
	case "cljs":
		return ClojureScript, nil
	default:
		return Clojure, fmt.Errorf("%w: got %q", ErrParseLang, tag)
	}
}

// LangFromFilename picks a dialect from a source file extension.
// Reader-conditional files (.cljc) are ambiguous and report false.
func LangFromFilename(name string) (Lang, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".clj":
		return Clojure, true
	case ".cljs":
		return ClojureScript, true
	}
	return Clojure, false
}

// Tag returns the short tag ParseLang accepts for l.
func (l Lang) Tag() string {
	if l == ClojureScript {
		return "cljs"
	}
	return "clj"
}

func (l Lang) String() string {
	if l == ClojureScript {
		return "ClojureScript"
	}
	return "Clojure"
}

func (l Lang) MarshalText() ([]byte, error) {
	return []byte(l.Tag()), nil
}

func (l *Lang) UnmarshalText(text []byte) error {
	parsed, err := ParseLang(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// bootstrap prepares a fresh REPL. The reader conditionals are resolved by
// the runtime, so the same text serves both dialects.
const bootstrap = `(set! *print-length* 50)
(require '#?(:clj clojure.repl, :cljs cljs.repl))
#?(:clj (require 'clojure.stacktrace))
(str "Ready to evaluate " #?(:clj "Clojure", :cljs "ClojureScript") "!")
`

// Bootstrap returns the snippet to evaluate once before any user code.
func Bootstrap() string {
	return bootstrap
}

// cljEvalTemplate reads the quoted code back with reader conditionals
// enabled and prints any Throwable's stack trace to *err*.
const cljEvalTemplate = `(try
  (clojure.core/eval (clojure.core/read-string {:read-cond :allow} "(do %s)"))
  (catch Throwable e
    (binding [*out* *err*]
      (clojure.stacktrace/print-stack-trace e)
      (println))))
`

// InNamespace prefixes code with a switch to ns. Neither argument is
// validated or escaped.
func InNamespace(code, ns string) string {
	return "(clojure.core/in-ns '" + ns + ") " + code
}

// Eval returns the text to submit so that code runs inside ns.
//
// For Clojure the code is quoted and evaluated inside a try/catch that
// reports failures on *err*. ClojureScript gets the namespaced code as is.
func Eval(code, ns string, lang Lang) string {
	wrapped := InNamespace(code, ns)

	switch lang {
	case Clojure:
		return fmt.Sprintf(cljEvalTemplate, escape.Quotes(wrapped))
	default:
		return wrapped
	}
}
