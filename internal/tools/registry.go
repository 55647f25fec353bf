package tools

import (
	"context"
	"fmt"

	"github.com/coursemind/coursemind/internal/models"
)

// Registry holds the available tools keyed by definition name and accumulates
// the source citations produced by executions since the last reset.
//
// Source lists are mutated by Execute and read by CollectSources; callers own
// the reset discipline and must call ResetSources before reusing a Registry
// for a new top-level query.
type Registry struct {
	order   []string
	tools   map[string]Tool
	sources map[string][]models.Source
}

func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		sources: make(map[string][]models.Source),
	}
}

// Register adds a tool keyed by its definition name. Registering a name twice
// silently replaces the earlier tool; the name keeps its original place in
// registration order.
func (r *Registry) Register(t Tool) {
	name := t.Definition().Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Definitions returns all registered tool schemas in registration order.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute dispatches an invocation by tool name. An unknown name degrades into
// a descriptive result string rather than an error so a malformed model
// request stays visible to the model instead of crashing the loop. Tool
// errors are passed through untouched; the orchestrator treats them as fatal
// to the query.
//
// The executing tool's sources replace its previous ones (last write wins per
// tool).
func (r *Registry) Execute(ctx context.Context, name string, input map[string]interface{}) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return fmt.Sprintf("Tool '%s' not found", name), nil
	}
	text, sources, err := t.Execute(ctx, input)
	if err != nil {
		return "", err
	}
	r.sources[name] = sources
	return text, nil
}

// CollectSources returns every tool's currently held sources, concatenated in
// registration order.
func (r *Registry) CollectSources() []models.Source {
	var all []models.Source
	for _, name := range r.order {
		all = append(all, r.sources[name]...)
	}
	return all
}

// ResetSources clears every tool's held sources.
func (r *Registry) ResetSources() {
	r.sources = make(map[string][]models.Source)
}
