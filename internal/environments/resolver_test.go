package environments

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/SoftDryzz/vaultic/internal/dotenv"
	verrors "github.com/SoftDryzz/vaultic/internal/errors"
)

// fakeLayers serves layers from memory and counts loader calls.
type fakeLayers struct {
	layers map[string]*dotenv.Env
	calls  int
}

func (f *fakeLayers) load(node Node) (*dotenv.Env, error) {
	f.calls++
	layer, ok := f.layers[node.Name]
	if !ok {
		return nil, ErrLayerMissing
	}
	return layer, nil
}

func valueOf(t *testing.T, env *dotenv.Env, key string) string {
	t.Helper()
	v, ok := env.Get(key)
	if !ok {
		t.Fatalf("Expected %s to be set", key)
	}
	return v
}

func TestMergeOverlayWins(t *testing.T) {
	base := dotenv.FromPairs("DB_HOST", "localhost", "DB_PORT", "5432", "LOG_LEVEL", "info")
	dev := dotenv.FromPairs("DB_HOST", "dev-db.internal", "DEBUG", "true")

	merged := Merge(base, dev)

	if valueOf(t, merged, "DB_HOST") != "dev-db.internal" {
		t.Errorf("Expected dev to override DB_HOST")
	}
	if valueOf(t, merged, "DB_PORT") != "5432" {
		t.Errorf("Expected DB_PORT inherited from base")
	}
	want := []string{"DB_HOST", "DB_PORT", "LOG_LEVEL", "DEBUG"}
	if !reflect.DeepEqual(merged.Keys(), want) {
		t.Errorf("Expected keys %v, got %v", want, merged.Keys())
	}

	if v, _ := base.Get("DB_HOST"); v != "localhost" {
		t.Errorf("Merge mutated its base input")
	}
	if dev.Len() != 2 {
		t.Errorf("Merge mutated its overlay input")
	}
}

func TestMergeEmptyAndNil(t *testing.T) {
	if Merge().Len() != 0 {
		t.Error("Expected empty result for no layers")
	}
	merged := Merge(nil, dotenv.FromPairs("A", "1"), nil)
	if merged.Len() != 1 {
		t.Errorf("Expected nil layers to be ignored, got %v", merged.Keys())
	}
}

func TestResolvePrecedence(t *testing.T) {
	g := mustGraph(t,
		Node{Name: "base"},
		Node{Name: "dev", Parent: "base"},
		Node{Name: "feature", Parent: "dev"},
	)
	layers := &fakeLayers{layers: map[string]*dotenv.Env{
		"base":    dotenv.FromPairs("A", "base", "B", "base", "C", "base"),
		"dev":     dotenv.FromPairs("B", "dev", "D", "dev"),
		"feature": dotenv.FromPairs("C", "feature", "B", "feature"),
	}}

	resolver := &Resolver{Graph: g, Load: layers.load}
	resolved, err := resolver.Resolve("feature")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	expected := map[string]string{"A": "base", "B": "feature", "C": "feature", "D": "dev"}
	for key, want := range expected {
		if got := valueOf(t, resolved.Vars, key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
	if !reflect.DeepEqual(resolved.Vars.Keys(), []string{"A", "B", "C", "D"}) {
		t.Errorf("Expected first-seen key order, got %v", resolved.Vars.Keys())
	}
	if !reflect.DeepEqual(resolved.Layers, []string{"base", "dev", "feature"}) {
		t.Errorf("Unexpected layers %v", resolved.Layers)
	}
}

func TestResolveCycleLoadsNothing(t *testing.T) {
	g := mustGraph(t,
		Node{Name: "dev", Parent: "staging"},
		Node{Name: "staging", Parent: "dev"},
	)
	layers := &fakeLayers{layers: map[string]*dotenv.Env{}}

	resolver := &Resolver{Graph: g, Load: layers.load}
	_, err := resolver.Resolve("dev")
	if !errors.Is(err, verrors.ErrCircularInheritance) {
		t.Fatalf("Expected ErrCircularInheritance, got %v", err)
	}
	if layers.calls != 0 {
		t.Errorf("Expected no layer loads on a cycle, got %d", layers.calls)
	}
}

func TestResolveSkipsMissingLayers(t *testing.T) {
	g := mustGraph(t, Node{Name: "base"}, Node{Name: "dev", Parent: "base"})
	layers := &fakeLayers{layers: map[string]*dotenv.Env{
		"dev": dotenv.FromPairs("A", "1"),
	}}

	resolved, err := (&Resolver{Graph: g, Load: layers.load}).Resolve("dev")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !reflect.DeepEqual(resolved.Skipped, []string{"base"}) {
		t.Errorf("Expected base to be skipped, got %v", resolved.Skipped)
	}
	if !reflect.DeepEqual(resolved.Layers, []string{"dev"}) {
		t.Errorf("Expected only dev to contribute, got %v", resolved.Layers)
	}
}

func TestResolveLoaderFailure(t *testing.T) {
	g := mustGraph(t, Node{Name: "base"}, Node{Name: "dev", Parent: "base"})
	loader := func(node Node) (*dotenv.Env, error) {
		return nil, fmt.Errorf("decrypting %s: %w", node.Name, verrors.ErrKeyNotAuthorized)
	}

	_, err := (&Resolver{Graph: g, Load: loader}).Resolve("dev")
	if !errors.Is(err, verrors.ErrKeyNotAuthorized) {
		t.Fatalf("Expected ErrKeyNotAuthorized, got %v", err)
	}
}

func TestResolveBaseAndDev(t *testing.T) {
	g := mustGraph(t, Node{Name: "base"}, Node{Name: "dev", Parent: "base"})

	tests := []struct {
		name string
		base *dotenv.Env
		dev  *dotenv.Env
		want map[string]string
	}{
		{"Child adds", dotenv.FromPairs("X", "1"), dotenv.FromPairs("Y", "2"), map[string]string{"X": "1", "Y": "2"}},
		{"Child overrides", dotenv.FromPairs("X", "1"), dotenv.FromPairs("X", "9"), map[string]string{"X": "9"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layers := &fakeLayers{layers: map[string]*dotenv.Env{"base": tt.base, "dev": tt.dev}}
			resolved, err := (&Resolver{Graph: g, Load: layers.load}).Resolve("dev")
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if !reflect.DeepEqual(resolved.Vars.Map(), tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, resolved.Vars.Map())
			}
		})
	}
}
