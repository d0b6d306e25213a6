package config

import (
	"os"
	"sort"
	"strings"
)

// Snapshot is a read-only capture of an environment taken at a single point
// in time. Resolve consumes a Snapshot instead of reading os.Getenv directly,
// so resolution is deterministic and tests can inject arbitrary environments.
type Snapshot struct {
	keys   []string
	values map[string]string
}

// Environ captures the current process environment.
func Environ() Snapshot {
	values := make(map[string]string)
	for _, pair := range os.Environ() {
		if i := strings.IndexByte(pair, '='); i > 0 {
			values[pair[:i]] = pair[i+1:]
		}
	}
	return NewSnapshot(values)
}

// NewSnapshot builds a Snapshot from an explicit key→value map.
func NewSnapshot(values map[string]string) Snapshot {
	keys := make([]string, 0, len(values))
	copied := make(map[string]string, len(values))
	for k, v := range values {
		keys = append(keys, k)
		copied[k] = v
	}
	sort.Strings(keys)
	return Snapshot{keys: keys, values: copied}
}

// Lookup returns the value for key and whether the key is present.
func (s Snapshot) Lookup(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Get returns the value for key, or the empty string when unset.
func (s Snapshot) Get(key string) string {
	return s.values[key]
}

// Keys returns the captured keys in sorted order.
func (s Snapshot) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}
