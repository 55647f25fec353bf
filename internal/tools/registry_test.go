package tools

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/coursemind/coursemind/internal/models"
)

type stubTool struct {
	name    string
	result  string
	sources []models.Source
	err     error
	calls   int
}

func (t *stubTool) Definition() Definition {
	return Definition{Name: t.name, Description: "stub", InputSchema: map[string]interface{}{"type": "object"}}
}

func (t *stubTool) Execute(ctx context.Context, input map[string]interface{}) (string, []models.Source, error) {
	t.calls++
	return t.result, t.sources, t.err
}

func TestRegistryDefinitionsRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "beta"})
	r.Register(&stubTool{name: "alpha"})
	r.Register(&stubTool{name: "gamma"})

	defs := r.Definitions()
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	want := []string{"beta", "alpha", "gamma"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("definition order = %v, want %v", names, want)
	}
}

func TestRegistryDuplicateRegistrationOverwritesKeepingSlot(t *testing.T) {
	first := &stubTool{name: "search", result: "old"}
	second := &stubTool{name: "search", result: "new"}

	r := NewRegistry()
	r.Register(first)
	r.Register(&stubTool{name: "outline"})
	r.Register(second)

	defs := r.Definitions()
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions after re-registration, got %d", len(defs))
	}
	if defs[0].Name != "search" || defs[1].Name != "outline" {
		t.Errorf("re-registering must keep the original order slot, got %v", defs)
	}

	text, err := r.Execute(context.Background(), "search", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "new" {
		t.Errorf("Execute dispatched to the old tool, got %q", text)
	}
	if first.calls != 0 || second.calls != 1 {
		t.Errorf("calls: first=%d second=%d", first.calls, second.calls)
	}
}

func TestRegistryExecuteUnknownName(t *testing.T) {
	r := NewRegistry()
	text, err := r.Execute(context.Background(), "no_such_tool", nil)
	if err != nil {
		t.Fatalf("unknown name must not be an error: %v", err)
	}
	if text != "Tool 'no_such_tool' not found" {
		t.Errorf("text = %q", text)
	}
}

func TestRegistryExecutePassesThroughToolError(t *testing.T) {
	boom := errors.New("backend down")
	r := NewRegistry()
	r.Register(&stubTool{name: "search", err: boom})

	if _, err := r.Execute(context.Background(), "search", nil); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
	if got := r.CollectSources(); len(got) != 0 {
		t.Errorf("failed execution must not record sources, got %v", got)
	}
}

func TestRegistrySourcesLastWriteWinsPerTool(t *testing.T) {
	search := &stubTool{name: "search", result: "ok"}
	outline := &stubTool{name: "outline", result: "ok",
		sources: []models.Source{{Name: "Course B"}}}

	r := NewRegistry()
	r.Register(search)
	r.Register(outline)

	search.sources = []models.Source{{Name: "first"}}
	if _, err := r.Execute(context.Background(), "search", nil); err != nil {
		t.Fatal(err)
	}
	search.sources = []models.Source{{Name: "second"}, {Name: "third"}}
	if _, err := r.Execute(context.Background(), "search", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Execute(context.Background(), "outline", nil); err != nil {
		t.Fatal(err)
	}

	got := r.CollectSources()
	want := []models.Source{{Name: "second"}, {Name: "third"}, {Name: "Course B"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CollectSources = %v, want %v", got, want)
	}
}

func TestRegistryResetSources(t *testing.T) {
	search := &stubTool{name: "search", result: "ok",
		sources: []models.Source{{Name: "Course A"}}}
	r := NewRegistry()
	r.Register(search)

	if _, err := r.Execute(context.Background(), "search", nil); err != nil {
		t.Fatal(err)
	}
	if got := r.CollectSources(); len(got) != 1 {
		t.Fatalf("precondition: sources = %v", got)
	}

	r.ResetSources()
	if got := r.CollectSources(); len(got) != 0 {
		t.Errorf("sources after reset = %v", got)
	}
}
