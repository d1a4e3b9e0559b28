package metadata

import (
	"github.com/specialistvlad/tricore/internal/lifecycle"
	"github.com/specialistvlad/tricore/internal/threadctx"
)

// PhaseFunc is a phase callback bound to a module instance.
type PhaseFunc func(*threadctx.Context) error

// A module takes part in a phase by implementing the matching interface on
// its pointer type.
type (
	Loader       interface{ Load(*threadctx.Context) error }
	Initializer  interface{ Initialize(*threadctx.Context) error }
	Starter      interface{ Start(*threadctx.Context) error }
	FixedUpdater interface{ FixedUpdate(*threadctx.Context) error }
	PreUpdater   interface{ PreUpdate(*threadctx.Context) error }
	Updater      interface{ Update(*threadctx.Context) error }
	PostUpdater  interface{ PostUpdate(*threadctx.Context) error }
	Shutdowner   interface{ Shutdown(*threadctx.Context) error }
)

// binder turns an instance into its callback for one phase.
type binder func(instance any) PhaseFunc

// bindersFor inspects *T once and returns the phases it implements together
// with a binder per phase.
func bindersFor[T any]() (lifecycle.PhaseMask, [lifecycle.NumPhases]binder) {
	var (
		mask    lifecycle.PhaseMask
		binders [lifecycle.NumPhases]binder
		probe   any = new(T)
	)
	set := func(p lifecycle.Phase, b binder) {
		mask |= lifecycle.MaskOf(p)
		binders[p] = b
	}

	if _, ok := probe.(Loader); ok {
		set(lifecycle.Load, func(i any) PhaseFunc { return i.(Loader).Load })
	}
	if _, ok := probe.(Initializer); ok {
		set(lifecycle.Initialize, func(i any) PhaseFunc { return i.(Initializer).Initialize })
	}
	if _, ok := probe.(Starter); ok {
		set(lifecycle.Start, func(i any) PhaseFunc { return i.(Starter).Start })
	}
	if _, ok := probe.(FixedUpdater); ok {
		set(lifecycle.FixedUpdate, func(i any) PhaseFunc { return i.(FixedUpdater).FixedUpdate })
	}
	if _, ok := probe.(PreUpdater); ok {
		set(lifecycle.PreUpdate, func(i any) PhaseFunc { return i.(PreUpdater).PreUpdate })
	}
	if _, ok := probe.(Updater); ok {
		set(lifecycle.Update, func(i any) PhaseFunc { return i.(Updater).Update })
	}
	if _, ok := probe.(PostUpdater); ok {
		set(lifecycle.PostUpdate, func(i any) PhaseFunc { return i.(PostUpdater).PostUpdate })
	}
	if _, ok := probe.(Shutdowner); ok {
		set(lifecycle.Shutdown, func(i any) PhaseFunc { return i.(Shutdowner).Shutdown })
	}
	return mask, binders
}
