// Package environments resolves environment inheritance.
//
// Environments form a forest through their parent link ("inherits" in
// config). Chain walks the links iteratively and rejects cycles with a
// CircularInheritanceError naming every member. Resolve loads each layer of
// the chain through a LayerLoader and merges them root first, so the leaf
// environment wins every conflict.
package environments
