package evaluator

import "strings"

// Registry is a name-keyed evaluator catalog. It is constructor-injected
// into resolution rather than held as package state, so tests substitute a
// fake catalog instead of patching globals. Mutation happens only at
// registration time, before evaluation starts.
type Registry struct {
	names      []string
	evaluators map[string]Evaluator
}

// NewRegistry creates an empty evaluator registry.
func NewRegistry() *Registry {
	return &Registry{evaluators: make(map[string]Evaluator)}
}

// Register adds an evaluator under name, replacing any previous entry.
func (r *Registry) Register(name string, e Evaluator) {
	if r == nil {
		panic("evaluator: register on nil registry")
	}
	if e == nil {
		panic("evaluator: register nil evaluator")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		panic("evaluator: register with empty name")
	}
	if r.evaluators == nil {
		r.evaluators = make(map[string]Evaluator)
	}
	if _, exists := r.evaluators[name]; !exists {
		r.names = append(r.names, name)
	}
	r.evaluators[name] = e
}

// Get returns the named evaluator if present. Unknown names are not an
// error; callers decide whether absence is fatal.
func (r *Registry) Get(name string) (Evaluator, bool) {
	if r == nil || r.evaluators == nil {
		return nil, false
	}
	e, ok := r.evaluators[name]
	return e, ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Builtin evaluator names.
const (
	NameDefault    = "default"
	NameClassifier = "classifier"
	NameRegressor  = "regressor"
	NameShap       = "shap"
)

// NewBuiltinRegistry creates a registry pre-populated with the built-in
// evaluators. Plugin-discovered evaluators register on top of it at process
// start.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	r.Register(NameDefault, &DefaultEvaluator{})
	r.Register(NameClassifier, &ClassifierEvaluator{})
	r.Register(NameRegressor, &RegressorEvaluator{})
	r.Register(NameShap, &ShapEvaluator{})
	return r
}
