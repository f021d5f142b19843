package llm

import (
	"context"
	"sort"
	"strings"
)

type Provider interface {
	Name() string
	Complete(ctx context.Context, req *Request) (*Response, error)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Messages    []Message
	System      string
	MaxTokens   int
	Temperature float64
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type Response struct {
	Text       string
	Usage      Usage
	StopReason string
}

// Registry holds configured providers keyed by lowercased name. The zero
// value is usable.
type Registry struct {
	byName map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Provider)}
}

// Register adds p under its own name, replacing any earlier provider with
// the same name. Nil providers and blank names are ignored.
func (r *Registry) Register(p Provider) {
	if r == nil || p == nil {
		return
	}
	name := strings.ToLower(strings.TrimSpace(p.Name()))
	if name == "" {
		return
	}
	if r.byName == nil {
		r.byName = make(map[string]Provider)
	}
	r.byName[name] = p
}

func (r *Registry) Get(name string) (Provider, bool) {
	if r == nil || r.byName == nil {
		return nil, false
	}
	p, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Names lists the registered provider names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
