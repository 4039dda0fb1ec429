package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/docsearch/internal/domain"
	domcol "github.com/kailas-cloud/docsearch/internal/domain/collection"
	"github.com/kailas-cloud/docsearch/internal/engine"
)

// fakeEngine is an in-memory Repository that models indices and aliases.
// After every mutation it checks that each alias resolves to exactly one index.
type fakeEngine struct {
	t *testing.T

	mu      sync.Mutex
	indices map[string]int64 // name -> document count
	aliases map[string]string
	calls   []string

	copyTimeouts []time.Duration

	copyFn   func(source, dest string) error
	createFn func(name string) error
	deleteFn func(name string) error
	swapFn   func(alias, oldIndex, newIndex string) error
}

func newFakeEngine(t *testing.T) *fakeEngine {
	t.Helper()
	return &fakeEngine{t: t, indices: map[string]int64{}, aliases: map[string]string{}}
}

func (f *fakeEngine) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeEngine) checkAliases() {
	for alias, idx := range f.aliases {
		if _, ok := f.indices[idx]; !ok {
			f.t.Errorf("alias %s points at missing index %s", alias, idx)
		}
		if _, ok := f.indices[alias]; ok {
			f.t.Errorf("alias %s shadows a concrete index", alias)
		}
	}
}

func (f *fakeEngine) Resolve(_ context.Context, name string) (domcol.Target, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("resolve %s", name)
	if idx, ok := f.aliases[name]; ok {
		return domcol.Target{State: domcol.StateAliased, Index: idx}, nil
	}
	if _, ok := f.indices[name]; ok {
		return domcol.Target{State: domcol.StateLegacy, Index: name}, nil
	}
	return domcol.Target{State: domcol.StateAbsent}, nil
}

func (f *fakeEngine) Exists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, isIndex := f.indices[name]
	_, isAlias := f.aliases[name]
	return isIndex || isAlias, nil
}

func (f *fakeEngine) Create(_ context.Context, name string, def *engine.IndexDefinition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create %s", name)
	if def == nil {
		f.t.Errorf("create %s without definition", name)
	}
	if f.createFn != nil {
		if err := f.createFn(name); err != nil {
			return err
		}
	}
	if _, ok := f.indices[name]; ok {
		return fmt.Errorf("create index %s: %w", name, domain.ErrAlreadyExists)
	}
	if _, ok := f.aliases[name]; ok {
		return fmt.Errorf("create index %s: %w", name, domain.ErrAlreadyExists)
	}
	f.indices[name] = 0
	f.checkAliases()
	return nil
}

func (f *fakeEngine) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete %s", name)
	if f.deleteFn != nil {
		if err := f.deleteFn(name); err != nil {
			return err
		}
	}
	if _, ok := f.indices[name]; !ok {
		return domain.ErrNotFound
	}
	delete(f.indices, name)
	for alias, idx := range f.aliases {
		if idx == name {
			delete(f.aliases, alias)
		}
	}
	f.checkAliases()
	return nil
}

func (f *fakeEngine) Copy(_ context.Context, source, dest string, timeout time.Duration) (*engine.ReindexResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("copy %s %s", source, dest)
	f.copyTimeouts = append(f.copyTimeouts, timeout)
	if timeout <= 0 {
		f.t.Errorf("copy without timeout")
	}
	if f.copyFn != nil {
		if err := f.copyFn(source, dest); err != nil {
			return nil, err
		}
	}
	n, ok := f.indices[source]
	if !ok {
		return nil, domain.ErrNotFound
	}
	f.indices[dest] += n
	return &engine.ReindexResult{Total: n, Created: n}, nil
}

func (f *fakeEngine) PointAlias(_ context.Context, alias, oldIndex, newIndex string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("alias %s %s->%s", alias, oldIndex, newIndex)
	if f.swapFn != nil {
		if err := f.swapFn(alias, oldIndex, newIndex); err != nil {
			return err
		}
	}
	if oldIndex != "" && f.aliases[alias] != oldIndex {
		return fmt.Errorf("alias %s is not on %s", alias, oldIndex)
	}
	if _, ok := f.indices[newIndex]; !ok {
		return domain.ErrNotFound
	}
	f.aliases[alias] = newIndex
	f.checkAliases()
	return nil
}

func (f *fakeEngine) indexNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.indices))
	for name := range f.indices {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (f *fakeEngine) called(prefix string) int {
	n := 0
	for _, c := range f.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

// fakeCatalog serves one-field definitions for names.
type fakeCatalog struct {
	names []string
}

func (c fakeCatalog) Names() []string { return c.names }

func (c fakeCatalog) Definition(name string) (*engine.IndexDefinition, error) {
	for _, n := range c.names {
		if n == name {
			return testDefinition(), nil
		}
	}
	return nil, fmt.Errorf("unknown collection %q", name)
}

func testDefinition() *engine.IndexDefinition {
	return engine.NewMapping().Keyword("region").Text("title", engine.WithKeyword()).MustBuild()
}

type mockLocker struct {
	err      error
	acquired []string
	released int
}

func (m *mockLocker) Acquire(_ context.Context, alias string) (func(), error) {
	if m.err != nil {
		return nil, m.err
	}
	m.acquired = append(m.acquired, alias)
	return func() { m.released++ }, nil
}
