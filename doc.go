// Package cljwrap prepares Clojure and ClojureScript code for evaluation by
// a remote REPL.
//
// # Overview
//
// cljwrap never runs code. It produces the text a REPL client sends: a
// bootstrap snippet for a fresh session, and a wrapped form per evaluation
// that switches into the caller's namespace first. Clojure forms are also
// guarded so that an uncaught Throwable prints its stack trace to *err*
// instead of ending the evaluation.
//
// # Basic Usage
//
//	lang, err := clojure.ParseLang("clj")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	send(clojure.Bootstrap())
//	send(clojure.Eval(`(println "hello")`, "user", lang))
//
// # Sessions
//
// An adapter keeps the dialect and namespace together:
//
//	session := clojure.New(clojure.ClojureScript, clojure.WithNamespace("app.core"))
//	send(session.SessionInit())
//	send(session.WrapCode(`(js/console.log "hi")`))
//
// See the [language] and [language/clojure] packages for the API, and
// cmd/cljwrap for the command line tool and HTTP server.
package cljwrap
