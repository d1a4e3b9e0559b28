package dispatch

import (
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/tricore/internal/lifecycle"
	"github.com/specialistvlad/tricore/internal/metadata"
	"github.com/specialistvlad/tricore/internal/threadctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects the order in which callbacks ran.
type recorder struct{ calls []string }

func (r *recorder) add(s string) { r.calls = append(r.calls, s) }

type full struct {
	name string
	rec  *recorder
	fail lifecycle.Phase
	err  error
}

func (m *full) call(p lifecycle.Phase) error {
	m.rec.add(m.name + ":" + p.String())
	if m.err != nil && m.fail == p {
		return m.err
	}
	return nil
}

func (m *full) Load(*threadctx.Context) error       { return m.call(lifecycle.Load) }
func (m *full) Update(*threadctx.Context) error     { return m.call(lifecycle.Update) }
func (m *full) Shutdown(*threadctx.Context) error   { return m.call(lifecycle.Shutdown) }
func (m *full) PreUpdate(*threadctx.Context) error  { return m.call(lifecycle.PreUpdate) }
func (m *full) PostUpdate(*threadctx.Context) error { return m.call(lifecycle.PostUpdate) }

type updateOnly struct{ rec *recorder }

func (m *updateOnly) Update(*threadctx.Context) error { m.rec.add("update-only:update"); return nil }

type panicky struct{}

func (m *panicky) Update(*threadctx.Context) error { panic("kaboom") }

func newInstances(t *testing.T, rec *recorder, names ...string) []Instance {
	t.Helper()
	c := metadata.NewCatalog()
	d := metadata.DeclareIn(c, metadata.Options[full]{Key: "full", Affinity: lifecycle.Control, AllowMultiple: true}).MustEnsure()

	out := make([]Instance, len(names))
	for i, n := range names {
		out[i] = Instance{Descriptor: d, Index: i, Value: &full{name: n, rec: rec}}
	}
	return out
}

func TestBuild_OrdersPhasesAndReversesShutdown(t *testing.T) {
	rec := &recorder{}
	instances := newInstances(t, rec, "a", "b", "c")
	table := Build(instances)

	assert.Equal(t, []string{"full", "full#1", "full#2"}, table.Keys(lifecycle.Load))
	assert.Equal(t, []string{"full#2", "full#1", "full"}, table.Keys(lifecycle.Shutdown))
	assert.Zero(t, table.Len(lifecycle.FixedUpdate))

	load := table.Keys(lifecycle.Load)
	slices.Reverse(load)
	assert.Equal(t, load, table.Keys(lifecycle.Shutdown))

	require.NoError(t, table.Invoke(lifecycle.Load, nil))
	require.NoError(t, table.InvokeAll(lifecycle.Shutdown, nil))
	want := []string{"a:load", "b:load", "c:load", "c:shutdown", "b:shutdown", "a:shutdown"}
	if diff := cmp.Diff(want, rec.calls); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_SkipsPhasesNotImplemented(t *testing.T) {
	rec := &recorder{}
	c := metadata.NewCatalog()
	d := metadata.DeclareIn(c, metadata.Options[updateOnly]{Key: "update-only", Affinity: lifecycle.Control}).MustEnsure()

	table := Build([]Instance{{Descriptor: d, Value: &updateOnly{rec: rec}}})
	for _, p := range lifecycle.Phases() {
		if p == lifecycle.Update {
			assert.Equal(t, 1, table.Len(p))
			continue
		}
		assert.Zero(t, table.Len(p), "phase %s", p)
	}

	require.NoError(t, table.Invoke(lifecycle.Update, nil))
	assert.Equal(t, []string{"update-only:update"}, rec.calls)
}

func TestInvoke_StopsAtFirstError(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")
	instances := newInstances(t, rec, "a", "b", "c")
	instances[1].Value.(*full).fail = lifecycle.Update
	instances[1].Value.(*full).err = boom

	table := Build(instances)
	err := table.Invoke(lifecycle.Update, nil)

	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "full#1 update")
	assert.Equal(t, []string{"a:update", "b:update"}, rec.calls)
}

func TestInvokeAll_RunsEverythingAndJoinsErrors(t *testing.T) {
	rec := &recorder{}
	first, second := errors.New("first"), errors.New("second")
	instances := newInstances(t, rec, "a", "b", "c")
	instances[0].Value.(*full).fail, instances[0].Value.(*full).err = lifecycle.Shutdown, first
	instances[2].Value.(*full).fail, instances[2].Value.(*full).err = lifecycle.Shutdown, second

	err := Build(instances).InvokeAll(lifecycle.Shutdown, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
	assert.Equal(t, []string{"c:shutdown", "b:shutdown", "a:shutdown"}, rec.calls)
}

func TestInvoke_RecoversPanics(t *testing.T) {
	c := metadata.NewCatalog()
	d := metadata.DeclareIn(c, metadata.Options[panicky]{Key: "panicky", Affinity: lifecycle.Presentation}).MustEnsure()

	table := Build([]Instance{{Descriptor: d, Value: &panicky{}}})
	err := table.Invoke(lifecycle.Update, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicky update: panic: kaboom")
}

func TestInvokeCount_StopsAtFailure(t *testing.T) {
	rec := &recorder{}
	instances := newInstances(t, rec, "a", "b", "c")
	instances[1].Value.(*full).fail = lifecycle.Load
	instances[1].Value.(*full).err = errors.New("no assets")
	table := Build(instances)

	done, err := table.InvokeCount(lifecycle.Load, nil)
	require.ErrorContains(t, err, "no assets")
	assert.Equal(t, 1, done)
	assert.Equal(t, "full#1", table.Keys(lifecycle.Load)[done])
	assert.Equal(t, []string{"a:load", "b:load"}, rec.calls)

	done, err = Build(instances[:1]).InvokeCount(lifecycle.Load, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, done)
}
