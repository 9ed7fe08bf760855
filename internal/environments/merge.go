package environments

import "github.com/SoftDryzz/vaultic/internal/dotenv"

// Merge layers root first into a new Env. A later layer overrides earlier
// values, and an overridden key keeps the position where it first appeared.
// The inputs are not modified.
func Merge(layers ...*dotenv.Env) *dotenv.Env {
	out := dotenv.New()
	for _, layer := range layers {
		if layer == nil {
			continue
		}
		for _, key := range layer.Keys() {
			value, _ := layer.Get(key)
			out.Set(key, value)
		}
	}
	return out
}
