// Package language defines how cljwrap turns user code into text a REPL
// runtime can evaluate.
package language

import (
	"github.com/caffeineduck/cljwrap/language/clojure"
)

// Language prepares code for a single REPL session.
type Language interface {
	// Name returns the tag the session was resolved from (e.g. "clj").
	Name() string

	// SessionInit returns code to evaluate once, before any user code.
	SessionInit() string

	// WrapCode returns the text to submit for one evaluation of code.
	WrapCode(code string) string
}

var _ Language = (*clojure.Adapter)(nil)

// Resolve returns the Language for tag, evaluating in ns. An empty ns
// selects clojure.DefaultNamespace.
func Resolve(tag, ns string) (Language, error) {
	lang, err := clojure.ParseLang(tag)
	if err != nil {
		return nil, err
	}
	if ns == "" {
		ns = clojure.DefaultNamespace
	}
	return clojure.New(lang, clojure.WithNamespace(ns)), nil
}

// Tags lists the accepted tags in a stable order.
func Tags() []string {
	return []string{clojure.Clojure.Tag(), clojure.ClojureScript.Tag()}
}
