package dotenv

// Env is an ordered set of environment variables. Keys keep the position of
// their first insertion; setting an existing key replaces only its value.
type Env struct {
	keys   []string
	values map[string]string
}

// New returns an empty Env.
func New() *Env {
	return &Env{values: make(map[string]string)}
}

// FromPairs builds an Env from alternating key, value arguments.
func FromPairs(pairs ...string) *Env {
	env := New()
	for i := 0; i+1 < len(pairs); i += 2 {
		env.Set(pairs[i], pairs[i+1])
	}
	return env
}

func (e *Env) Set(key, value string) {
	if _, ok := e.values[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.values[key] = value
}

func (e *Env) Get(key string) (string, bool) {
	v, ok := e.values[key]
	return v, ok
}

func (e *Env) Has(key string) bool {
	_, ok := e.values[key]
	return ok
}

// Keys returns a copy of the keys in insertion order.
func (e *Env) Keys() []string {
	out := make([]string, len(e.keys))
	copy(out, e.keys)
	return out
}

func (e *Env) Len() int {
	return len(e.keys)
}

func (e *Env) Clone() *Env {
	out := &Env{
		keys:   e.Keys(),
		values: make(map[string]string, len(e.values)),
	}
	for k, v := range e.values {
		out.values[k] = v
	}
	return out
}

// Map returns the variables as an unordered map.
func (e *Env) Map() map[string]string {
	out := make(map[string]string, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	return out
}
