package chat

import (
	"strconv"
	"sync"
)

//go:generate go run go.uber.org/mock/mockgen -source=names.go -destination=mocks/mock_names.go -package=mocks

// NameGenerator produces candidate display names on demand. Candidates do not
// need to be unique; Names retries until one is free.
type NameGenerator interface {
	Generate() string
}

// GeneratorFunc adapts a plain function to NameGenerator.
type GeneratorFunc func() string

// Generate calls f.
func (f GeneratorFunc) Generate() string { return f() }

// maxCollisions is how many taken candidates ClaimUnique accepts before it
// starts appending a numeric suffix.
const maxCollisions = 64

// Names is the set of display names currently claimed by live sessions.
// Every operation holds the same mutex, so no two callers can both succeed
// in claiming one name.
type Names struct {
	mu    sync.Mutex
	names map[string]struct{}
	gen   NameGenerator
}

// NewNames creates an empty registry drawing candidates from gen.
func NewNames(gen NameGenerator) *Names {
	return &Names{
		names: make(map[string]struct{}),
		gen:   gen,
	}
}

// ClaimUnique claims and returns a name that no live session holds.
func (n *Names) ClaimUnique() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	for attempt := 0; ; attempt++ {
		candidate := n.gen.Generate()
		if attempt >= maxCollisions {
			candidate += strconv.Itoa(attempt)
		}
		if candidate == "" {
			continue
		}
		if _, taken := n.names[candidate]; !taken {
			n.names[candidate] = struct{}{}
			return candidate
		}
	}
}

// TryClaim claims name if nobody holds it and reports whether it did.
func (n *Names) TryClaim(name string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, taken := n.names[name]; taken {
		return false
	}
	n.names[name] = struct{}{}
	return true
}

// Release frees name. Releasing a name that is not held does nothing.
func (n *Names) Release(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.names, name)
}

// Contains reports whether name is currently claimed.
func (n *Names) Contains(name string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.names[name]
	return ok
}

// Len returns the number of claimed names.
func (n *Names) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.names)
}
