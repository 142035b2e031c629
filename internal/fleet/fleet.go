// Package fleet holds the immutable unicorn roster. The roster is loaded
// once at startup (yaml file, or the built-in default) and shared read-only
// across concurrent dispatches.
package fleet

import (
	"fmt"
	"math/rand"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/wildrydes/dispatch/internal/domain"
)

// Fleet is a fixed set of unicorns. Safe for concurrent use: the slice is
// never mutated after construction.
type Fleet struct {
	unicorns []domain.Unicorn

	mu  sync.Mutex
	rnd *rand.Rand
}

type fleetFile struct {
	Unicorns []domain.Unicorn `yaml:"unicorns"`
}

// Default is the stock roster used when no fleet file is configured.
func Default() *Fleet {
	f, _ := New([]domain.Unicorn{
		{Name: "Angel", Color: "White", Gender: "Female"},
		{Name: "Bucephalus", Color: "Golden", Gender: "Male"},
		{Name: "Rocinante", Color: "White", Gender: "Female"},
		{Name: "Shadowfax", Color: "Silver", Gender: "Male"},
	})
	return f
}

// New builds a fleet from an explicit roster.
func New(unicorns []domain.Unicorn) (*Fleet, error) {
	if len(unicorns) == 0 {
		return nil, fmt.Errorf("fleet: empty roster")
	}
	for i, u := range unicorns {
		if u.Name == "" || u.Color == "" {
			return nil, fmt.Errorf("fleet: unicorn %d missing name or color", i)
		}
	}
	own := make([]domain.Unicorn, len(unicorns))
	copy(own, unicorns)
	return &Fleet{
		unicorns: own,
		rnd:      rand.New(rand.NewSource(rand.Int63())),
	}, nil
}

// Load reads a yaml roster file:
//
//	unicorns:
//	  - name: Rocinante
//	    color: White
func Load(path string) (*Fleet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fleet: read %s: %w", path, err)
	}
	var ff fleetFile
	if err := yaml.Unmarshal(b, &ff); err != nil {
		return nil, fmt.Errorf("fleet: parse %s: %w", path, err)
	}
	return New(ff.Unicorns)
}

// LoadOrDefault loads path when it exists, otherwise returns the stock
// roster. Used at startup so dev needs no fleet file.
func LoadOrDefault(path string) (*Fleet, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); err != nil {
		return Default(), nil
	}
	return Load(path)
}

// Pick returns a uniformly random unicorn, independent of rider identity.
func (f *Fleet) Pick() domain.Unicorn {
	f.mu.Lock()
	i := f.rnd.Intn(len(f.unicorns))
	f.mu.Unlock()
	return f.unicorns[i]
}

// All returns a copy of the roster.
func (f *Fleet) All() []domain.Unicorn {
	out := make([]domain.Unicorn, len(f.unicorns))
	copy(out, f.unicorns)
	return out
}

// Size returns the roster size.
func (f *Fleet) Size() int { return len(f.unicorns) }
