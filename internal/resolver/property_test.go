package resolver

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/specialistvlad/modgrid/internal/initializer"
	"github.com/specialistvlad/modgrid/internal/module"
	"github.com/specialistvlad/modgrid/internal/registry"
	"pgregory.net/rapid"
)

// dagSpec is a randomly drawn acyclic graph. Node i may only require nodes
// with a smaller index.
type dagSpec struct {
	reqs  [][]int
	fails []bool
}

func drawDAG(t *rapid.T) dagSpec {
	n := rapid.IntRange(1, 9).Draw(t, "nodes")
	spec := dagSpec{reqs: make([][]int, n), fails: make([]bool, n)}
	for i := 0; i < n; i++ {
		spec.fails[i] = rapid.IntRange(0, 4).Draw(t, fmt.Sprintf("fail-%d", i)) == 0
		for j := 0; j < i; j++ {
			if rapid.Bool().Draw(t, fmt.Sprintf("edge-%d-%d", i, j)) {
				spec.reqs[i] = append(spec.reqs[i], j)
			}
		}
		// Shuffle the declared order so argument order is exercised.
		reqs := spec.reqs[i]
		for k := len(reqs) - 1; k > 0; k-- {
			swap := rapid.IntRange(0, k).Draw(t, fmt.Sprintf("swap-%d-%d", i, k))
			reqs[k], reqs[swap] = reqs[swap], reqs[k]
		}
	}
	return spec
}

func nodeName(i int) string { return fmt.Sprintf("m%d", i) }

// TestProperty_ResolutionLaws checks, on random DAGs, that every initializer
// runs at most once, after all of its requirements are terminal, and with
// their results in declared order.
func TestProperty_ResolutionLaws(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		spec := drawDAG(t)
		reg := registry.New()
		res := New(reg.Accessor(), initializer.New(reg.Accessor(), initializer.WithSink(initializer.SinkFunc(func(context.Context, *initializer.InitError) {}))))

		calls := make(map[string]int)
		position := make(map[string]int)
		var order int
		// Initializer panics are recovered by the runtime, so violations
		// found inside callbacks are collected and reported afterwards.
		var violations []string

		for i := range spec.reqs {
			i := i
			reqNames := make([]string, len(spec.reqs[i]))
			for k, j := range spec.reqs[i] {
				reqNames[k] = nodeName(j)
			}
			fn := func(_ context.Context, get module.Accessor, self *module.Module, args []any) (any, error) {
				calls[self.Name()]++
				position[self.Name()] = order
				order++

				for k, req := range reqNames {
					dep, ok := get.Lookup(req)
					if !ok || !dep.State().Terminal() {
						violations = append(violations, fmt.Sprintf("%s ran before requirement %s was terminal", self.Name(), req))
						continue
					}
					if args[k] != dep.Result() {
						violations = append(violations, fmt.Sprintf("%s got %v for %s, want %v", self.Name(), args[k], req, dep.Result()))
					}
				}
				if spec.fails[i] {
					return nil, errors.New("drawn failure")
				}
				return self.Name(), nil
			}
			if err := reg.Register(module.New(nodeName(i), reqNames, fn)); err != nil {
				t.Fatalf("register: %v", err)
			}
		}

		// Resolve every node, twice, starting from the last registered.
		for pass := 0; pass < 2; pass++ {
			for i := len(spec.reqs) - 1; i >= 0; i-- {
				if _, err := res.Resolve(context.Background(), nodeName(i)); err != nil {
					t.Fatalf("resolve %s: %v", nodeName(i), err)
				}
			}
		}

		if len(violations) > 0 {
			t.Fatalf("ordering violations: %v", violations)
		}

		for i := range spec.reqs {
			name := nodeName(i)
			if calls[name] != 1 {
				t.Fatalf("%s initialized %d times", name, calls[name])
			}
			m, _ := reg.Lookup(name)
			want := module.Processed
			if spec.fails[i] {
				want = module.Error
			}
			if m.State() != want {
				t.Fatalf("%s in state %s, want %s", name, m.State(), want)
			}
			for _, j := range spec.reqs[i] {
				if position[nodeName(j)] >= position[name] {
					t.Fatalf("%s initialized before its requirement %s", name, nodeName(j))
				}
			}
		}
	})
}

// TestProperty_CycleAlwaysDetected closes a random chain into a ring and
// checks the reported chain starts and ends at the entry point.
func TestProperty_CycleAlwaysDetected(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "ring")
		start := rapid.IntRange(0, n-1).Draw(t, "start")

		reg := registry.New()
		res := New(reg.Accessor(), initializer.New(reg.Accessor()))
		for i := 0; i < n; i++ {
			next := nodeName((i + 1) % n)
			if err := reg.Register(module.New(nodeName(i), []string{next}, nil)); err != nil {
				t.Fatalf("register: %v", err)
			}
		}

		_, err := res.Resolve(context.Background(), nodeName(start))
		var cycleErr *CircularDependencyError
		if !errors.As(err, &cycleErr) {
			t.Fatalf("expected cycle error, got %v", err)
		}
		if len(cycleErr.Chain) != n+1 {
			t.Fatalf("chain %v has length %d, want %d", cycleErr.Chain, len(cycleErr.Chain), n+1)
		}
		if cycleErr.Chain[0] != nodeName(start) || cycleErr.Chain[n] != nodeName(start) {
			t.Fatalf("chain %v does not start and end at %s", cycleErr.Chain, nodeName(start))
		}
	})
}
