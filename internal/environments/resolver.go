package environments

import (
	"errors"
	"fmt"

	"github.com/SoftDryzz/vaultic/internal/dotenv"
)

// ErrLayerMissing is returned by a LayerLoader for an environment that has
// no encrypted file yet. The resolver skips such layers.
var ErrLayerMissing = errors.New("environment layer has no encrypted file")

// LayerLoader returns the variables of one environment layer.
type LayerLoader func(node Node) (*dotenv.Env, error)

type Resolver struct {
	Graph *Graph
	Load  LayerLoader
}

// Resolved is the merged view of an environment and its ancestors.
type Resolved struct {
	Name    string
	Vars    *dotenv.Env
	Layers  []string // Layers that contributed, root first.
	Skipped []string // Layers without an encrypted file.
}

// Resolve builds the chain of name before loading anything, so a cycle or an
// unknown environment fails without decrypting a single layer.
func (r *Resolver) Resolve(name string) (*Resolved, error) {
	chain, err := r.Graph.Chain(name)
	if err != nil {
		return nil, err
	}

	result := &Resolved{Name: name}
	layers := make([]*dotenv.Env, 0, len(chain))

	for _, envName := range chain {
		node, _ := r.Graph.Node(envName)
		layer, err := r.Load(node)
		if errors.Is(err, ErrLayerMissing) {
			result.Skipped = append(result.Skipped, envName)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load layer %q: %w", envName, err)
		}
		layers = append(layers, layer)
		result.Layers = append(result.Layers, envName)
	}

	result.Vars = Merge(layers...)
	return result, nil
}
