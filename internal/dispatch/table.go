// Package dispatch builds the per-phase call tables a kernel walks every
// tick. Each entry binds a module instance to its callback once, at build
// time, so invoking a phase is a plain linear scan.
package dispatch

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/specialistvlad/tricore/internal/lifecycle"
	"github.com/specialistvlad/tricore/internal/metadata"
	"github.com/specialistvlad/tricore/internal/threadctx"
)

// Instance is one constructed module, in load order.
type Instance struct {
	Descriptor *metadata.Descriptor
	// Index distinguishes instances of an allow-multiple descriptor.
	Index int
	Value any
}

// Key names the instance: the descriptor key, with "#n" appended for every
// instance after the first.
func (i Instance) Key() string {
	if i.Index == 0 {
		return i.Descriptor.Key
	}
	return fmt.Sprintf("%s#%d", i.Descriptor.Key, i.Index)
}

// Thunk is a callback bound to its owning instance.
type Thunk struct {
	Key   string
	Phase lifecycle.Phase
	Call  metadata.PhaseFunc
}

// Table holds one ordered thunk list per phase. It is read-only after Build.
type Table struct {
	phases [lifecycle.NumPhases][]Thunk
}

// Build creates the table for instances, which must already be in load
// order. Every phase list follows that order except Shutdown, which is its
// exact reverse.
func Build(instances []Instance) *Table {
	t := &Table{}
	for _, inst := range instances {
		for _, p := range lifecycle.Phases() {
			call, ok := inst.Descriptor.Bind(p, inst.Value)
			if !ok {
				continue
			}
			th := Thunk{Key: inst.Key(), Phase: p, Call: call}
			if p == lifecycle.Shutdown {
				t.phases[p] = append([]Thunk{th}, t.phases[p]...)
				continue
			}
			t.phases[p] = append(t.phases[p], th)
		}
	}
	return t
}

// Len returns the number of thunks for phase p.
func (t *Table) Len(p lifecycle.Phase) int {
	return len(t.phases[p])
}

// Keys returns the instance keys for phase p in invocation order.
func (t *Table) Keys(p lifecycle.Phase) []string {
	keys := make([]string, len(t.phases[p]))
	for i, th := range t.phases[p] {
		keys[i] = th.Key
	}
	return keys
}

// Invoke runs the thunks of phase p in order and stops at the first failure.
func (t *Table) Invoke(p lifecycle.Phase, ctx *threadctx.Context) error {
	_, err := t.InvokeCount(p, ctx)
	return err
}

// InvokeCount is Invoke that also reports how many thunks of phase p
// returned successfully. On failure, Keys(p)[done] names the failed one.
func (t *Table) InvokeCount(p lifecycle.Phase, ctx *threadctx.Context) (done int, err error) {
	for _, th := range t.phases[p] {
		if err := th.invoke(ctx); err != nil {
			return done, err
		}
		done++
	}
	return done, nil
}

// InvokeAll runs every thunk of phase p, even after failures, and returns
// all failures joined.
func (t *Table) InvokeAll(p lifecycle.Phase, ctx *threadctx.Context) error {
	var errs []error
	for _, th := range t.phases[p] {
		if err := th.invoke(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (th Thunk) invoke(ctx *threadctx.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("%s %s: panic: %v", th.Key, th.Phase, r)
		}
	}()
	if err := th.Call(ctx); err != nil {
		return fmt.Errorf("%s %s: %w", th.Key, th.Phase, err)
	}
	return nil
}
