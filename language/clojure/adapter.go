package clojure

// DefaultNamespace is where code runs unless a namespace is chosen.
const DefaultNamespace = "user"

// Adapter binds a dialect and a namespace for one session.
// It is immutable and safe for concurrent use.
type Adapter struct {
	lang Lang
	ns   string
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithNamespace sets the namespace code is evaluated in.
func WithNamespace(ns string) Option {
	return func(a *Adapter) {
		a.ns = ns
	}
}

// New returns an adapter for lang.
func New(lang Lang, opts ...Option) *Adapter {
	a := &Adapter{lang: lang, ns: DefaultNamespace}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the dialect tag, "clj" or "cljs".
func (a *Adapter) Name() string {
	return a.lang.Tag()
}

func (a *Adapter) Lang() Lang {
	return a.lang
}

func (a *Adapter) Namespace() string {
	return a.ns
}

// InNamespace returns a copy of a that evaluates in ns.
func (a *Adapter) InNamespace(ns string) *Adapter {
	return &Adapter{lang: a.lang, ns: ns}
}

// SessionInit returns the bootstrap snippet.
func (a *Adapter) SessionInit() string {
	return Bootstrap()
}

// WrapCode prepares user code for submission.
func (a *Adapter) WrapCode(code string) string {
	return Eval(code, a.ns, a.lang)
}
