// Package executor runs a per-target action over a dependency graph on a
// fixed-size worker pool, respecting dependency order and stopping at the
// first error.
//
// The scheduling structure mirrors a batch build: a task channel feeds
// ready targets to workers, workers report on a completion channel, and the
// calling goroutine acts as the coordinator which owns in-degrees and
// dispatches targets as their dependencies complete.
package executor

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/BobTheZombie/crust/internal/graph"
	"github.com/BobTheZombie/crust/internal/trace"
)

// Action is the per-target callback. depOutputs is the concatenation, in
// declared dependency order, of the paths each dependency's action
// returned. Actions run concurrently on worker goroutines and must be safe
// to call from any of them.
type Action func(node *graph.Node, depOutputs []string) ([]string, error)

// Result maps each target name to the output paths its action produced.
type Result map[string][]string

// Executor is a reusable worker-pool configuration.
type Executor struct {
	workers int
}

// New returns an executor running at most workers actions concurrently.
// workers < 1 selects the number of logical CPUs (at least one).
func New(workers int) *Executor {
	if workers < 1 {
		workers = runtime.NumCPU()
		if workers < 1 {
			workers = 1
		}
	}
	return &Executor{workers: workers}
}

// Workers returns the configured concurrency width.
func (e *Executor) Workers() int { return e.workers }

type completion struct {
	name    string
	outputs []string
	err     error
}

// Execute runs action once per target in dependency order. On success it
// returns the outputs of every target. On the first action error it stops
// dispatching, waits for in-flight actions to finish, and returns that
// error; the partial result is not exposed. Cancelling ctx stops dispatch
// the same way but does not interrupt running actions.
func (e *Executor) Execute(ctx context.Context, g *graph.Graph, action Action) (Result, error) {
	nodes := g.Nodes()
	if len(nodes) == 0 {
		return Result{}, nil
	}

	// In-degrees and the dependents map belong to the coordinator (this
	// goroutine); workers never touch them.
	inDegree := make(map[string]int, len(nodes))
	dependents := make(map[string][]string)
	for _, n := range nodes {
		inDegree[n.Name] = len(n.Dependencies)
		for _, dep := range n.Dependencies {
			dependents[dep] = append(dependents[dep], n.Name)
		}
	}

	// produced is the one piece of state crossing threads: workers snapshot
	// their target's depOutputs from it, the coordinator inserts into it.
	// Actions never run while the mutex is held.
	var (
		mu       sync.Mutex
		produced = make(Result, len(nodes))
	)

	tasks := make(chan *graph.Node, len(nodes))
	completions := make(chan completion, len(nodes))

	var eg errgroup.Group
	for i := 0; i < e.workers; i++ {
		tid := i
		eg.Go(func() error {
			for n := range tasks {
				mu.Lock()
				var depOutputs []string
				for _, dep := range n.Dependencies {
					depOutputs = append(depOutputs, produced[dep]...)
				}
				mu.Unlock()
				completions <- runAction(n, depOutputs, action, tid)
			}
			return nil
		})
	}

	dispatched := 0
	dispatch := func(name string) {
		tasks <- g.Node(name)
		dispatched++
	}
	for _, n := range nodes {
		if inDegree[n.Name] == 0 {
			dispatch(n.Name)
		}
	}

	var firstErr error
	completed := 0
	succeeded := 0
	for completed < dispatched {
		c := <-completions
		completed++

		if c.err != nil {
			if firstErr == nil {
				firstErr = c.err
			}
			continue
		}
		if firstErr != nil {
			continue // draining only, discard late successes
		}

		mu.Lock()
		produced[c.name] = c.outputs
		mu.Unlock()
		succeeded++

		if err := ctx.Err(); err != nil {
			firstErr = err
			continue
		}
		for _, child := range dependents[c.name] {
			inDegree[child]--
			if inDegree[child] == 0 {
				dispatch(child)
			}
		}
	}

	close(tasks)
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if succeeded != len(nodes) || len(produced) != len(nodes) {
		return nil, &InvariantError{Completed: succeeded, Total: len(nodes)}
	}
	return produced, nil
}

// runAction invokes the action for one target, converting panics into a
// distinguished error so a buggy action cannot deadlock the pool.
func runAction(n *graph.Node, depOutputs []string, action Action, tid int) (c completion) {
	c.name = n.Name
	defer func() {
		if r := recover(); r != nil {
			c.outputs = nil
			c.err = &PanicError{Target: n.Name, Value: r}
		}
	}()
	ev := trace.Event("target "+n.Name, tid)
	defer ev.Done()
	outputs, err := action(n, depOutputs)
	if err != nil {
		c.err = &ActionError{Target: n.Name, Err: err}
		return c
	}
	c.outputs = outputs
	return c
}
