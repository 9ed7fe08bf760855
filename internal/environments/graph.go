package environments

import (
	"fmt"
	"sort"

	verrors "github.com/SoftDryzz/vaultic/internal/errors"
)

// Node is one environment as declared in config.
type Node struct {
	Name     string
	File     string
	Parent   string // Empty for a root.
	Template string
}

type visitState int

const (
	unvisited visitState = iota
	inProgress
	resolved
)

// Graph indexes environments by name. The parent relation is only checked
// when walked, so a Graph can hold an invalid config until Validate runs.
type Graph struct {
	nodes map[string]Node
	order []string
}

// NewGraph builds a graph from nodes. Duplicate names are rejected.
func NewGraph(nodes []Node) (*Graph, error) {
	g := &Graph{nodes: make(map[string]Node, len(nodes))}
	for _, n := range nodes {
		if n.Name == "" {
			return nil, fmt.Errorf("%w: environment with empty name", verrors.ErrInvalidConfig)
		}
		if _, dup := g.nodes[n.Name]; dup {
			return nil, fmt.Errorf("%w: environment %q is defined twice", verrors.ErrInvalidConfig, n.Name)
		}
		g.nodes[n.Name] = n
		g.order = append(g.order, n.Name)
	}
	return g, nil
}

// Names returns environment names in definition order.
func (g *Graph) Names() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

func (g *Graph) Node(name string) (Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

func (g *Graph) Len() int {
	return len(g.order)
}

// Chain returns the inheritance chain of name, root first and name last.
func (g *Graph) Chain(name string) ([]string, error) {
	path, err := g.walk(name, make(map[string]visitState))
	if err != nil {
		return nil, err
	}

	chain := make([]string, len(path))
	for i, n := range path {
		chain[len(path)-1-i] = n
	}
	return chain, nil
}

// Validate walks every environment and reports the first cycle or dangling parent.
func (g *Graph) Validate() error {
	state := make(map[string]visitState, len(g.nodes))
	for _, name := range g.order {
		if state[name] == resolved {
			continue
		}
		if _, err := g.walk(name, state); err != nil {
			return err
		}
	}
	return nil
}

// walk follows parent links from name and returns the visited names leaf
// first. It stops early at a node already marked resolved in state.
func (g *Graph) walk(name string, state map[string]visitState) ([]string, error) {
	var path []string
	current := name

	for {
		if state[current] == resolved {
			break
		}
		if state[current] == inProgress {
			return nil, &verrors.CircularInheritanceError{Chain: cycleFrom(path, current)}
		}

		node, ok := g.nodes[current]
		if !ok {
			return nil, &verrors.EnvironmentNotFoundError{Name: current, Available: g.available()}
		}

		state[current] = inProgress
		path = append(path, current)

		if node.Parent == "" {
			break
		}
		current = node.Parent
	}

	for _, n := range path {
		state[n] = resolved
	}
	return path, nil
}

// cycleFrom returns the members of path from the first occurrence of start,
// closed by repeating start.
func cycleFrom(path []string, start string) []string {
	for i, n := range path {
		if n == start {
			cycle := append([]string{}, path[i:]...)
			return append(cycle, start)
		}
	}
	return []string{start, start}
}

func (g *Graph) available() []string {
	names := g.Names()
	sort.Strings(names)
	return names
}
