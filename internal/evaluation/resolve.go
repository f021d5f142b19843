package evaluation

import (
	"github.com/stellarlinkco/mltrack/internal/evalerr"
	"github.com/stellarlinkco/mltrack/internal/evaluator"
)

// Resolved is one evaluator scheduled to run, with its effective config.
type Resolved struct {
	Name      string
	Evaluator evaluator.Evaluator
	Config    evaluator.Config
}

// familyChain returns the built-in evaluator chain for a model type.
// Model types without a dedicated chain fall through to the generic
// default evaluator.
func familyChain(modelType string) []string {
	switch modelType {
	case evaluator.ModelTypeClassifier:
		return []string{evaluator.NameClassifier, evaluator.NameShap}
	case evaluator.ModelTypeRegressor:
		return []string{evaluator.NameRegressor, evaluator.NameShap}
	default:
		return []string{evaluator.NameDefault}
	}
}

// resolveEvaluators expands the caller's evaluator selection into an ordered
// list of evaluators to dispatch.
//
// Selection modes:
//   - no name and no list: the model type's built-in chain, plus any other
//     registered evaluator that declares capability for the model type
//   - a single name: that evaluator, except "default" which expands to the
//     model type's chain
//   - an explicit list: each named evaluator in order, with "default"
//     expanded
//
// Unknown names resolve to nothing rather than failing; an empty resolution
// surfaces later as a no-capable-evaluator dispatch error.
func resolveEvaluators(reg *evaluator.Registry, name string, names []string, cfg map[string]any, modelType string) ([]Resolved, error) {
	if reg == nil {
		return nil, evalerr.New(evalerr.KindInvalidArgument, "evaluation: nil evaluator registry")
	}

	switch {
	case names != nil:
		return resolveList(reg, names, cfg, modelType)
	case name != "" && name != evaluator.NameDefault:
		return resolveSingle(reg, name, cfg)
	default:
		return resolveDefault(reg, name != "", cfg, modelType)
	}
}

func resolveDefault(reg *evaluator.Registry, explicit bool, cfg map[string]any, modelType string) ([]Resolved, error) {
	chain := familyChain(modelType)
	inChain := make(map[string]bool, len(chain))
	for _, n := range chain {
		inChain[n] = true
	}

	ordered := make([]string, 0, len(chain))
	ordered = append(ordered, chain...)

	// A bare selection also picks up registered extensions that declare
	// capability. An explicit "default" keeps only the built-in chain.
	if !explicit {
		for _, n := range reg.Names() {
			if inChain[n] || builtinName(n) {
				continue
			}
			e, ok := reg.Get(n)
			if !ok || !e.CanEvaluate(modelType, overlayFor(cfg, n)) {
				continue
			}
			ordered = append(ordered, n)
		}
	}

	out := make([]Resolved, 0, len(ordered))
	for _, n := range ordered {
		e, ok := reg.Get(n)
		if !ok {
			continue
		}
		out = append(out, Resolved{Name: n, Evaluator: e, Config: overlayFor(cfg, n)})
	}
	return out, nil
}

func resolveSingle(reg *evaluator.Registry, name string, cfg map[string]any) ([]Resolved, error) {
	e, ok := reg.Get(name)
	if !ok {
		return nil, nil
	}
	return []Resolved{{Name: name, Evaluator: e, Config: overlayFor(cfg, name)}}, nil
}

func resolveList(reg *evaluator.Registry, names []string, cfg map[string]any, modelType string) ([]Resolved, error) {
	if err := checkListConfig(names, cfg); err != nil {
		return nil, err
	}

	var out []Resolved
	seen := make(map[string]bool)
	add := func(n string) {
		if seen[n] {
			return
		}
		e, ok := reg.Get(n)
		if !ok {
			// Unknown names are dropped rather than failing the run.
			return
		}
		seen[n] = true
		out = append(out, Resolved{Name: n, Evaluator: e, Config: overlayFor(cfg, n)})
	}

	for _, n := range names {
		if n == evaluator.NameDefault {
			for _, c := range familyChain(modelType) {
				add(c)
			}
			continue
		}
		add(n)
	}
	return out, nil
}

// checkListConfig enforces the shape required with an explicit name list:
// every config key must name a requested evaluator (or "default") and every
// value must itself be a config map.
func checkListConfig(names []string, cfg map[string]any) error {
	if len(cfg) == 0 {
		return nil
	}
	requested := make(map[string]bool, len(names)+1)
	for _, n := range names {
		requested[n] = true
	}
	requested[evaluator.NameDefault] = true

	for key, val := range cfg {
		if _, ok := val.(map[string]any); !ok {
			return evalerr.New(evalerr.KindInvalidArgument,
				"evaluation: with an evaluator name list, the evaluator config must map each evaluator name to its own config map; key %q has %T", key, val)
		}
		if !requested[key] {
			return evalerr.New(evalerr.KindInvalidArgument,
				"evaluation: evaluator config names %q, which is not in the evaluator list", key)
		}
	}
	return nil
}

// overlayFor picks the effective config for one evaluator. A flat config,
// one with no nested maps, applies to every evaluator as-is. A nested
// config is keyed by evaluator name, with the "default" entry serving as a
// fallback for names without their own entry.
func overlayFor(cfg map[string]any, name string) evaluator.Config {
	if len(cfg) == 0 {
		return nil
	}
	if flatConfig(cfg) {
		return evaluator.Config(cfg)
	}
	if sub, ok := cfg[name].(map[string]any); ok {
		return evaluator.Config(sub)
	}
	if sub, ok := cfg[evaluator.NameDefault].(map[string]any); ok {
		return evaluator.Config(sub)
	}
	return nil
}

func flatConfig(cfg map[string]any) bool {
	for _, v := range cfg {
		if _, ok := v.(map[string]any); ok {
			return false
		}
	}
	return true
}

func builtinName(n string) bool {
	switch n {
	case evaluator.NameDefault, evaluator.NameClassifier, evaluator.NameRegressor, evaluator.NameShap:
		return true
	}
	return false
}
