package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/tricore/internal/channels"
	"github.com/specialistvlad/tricore/internal/lifecycle"
	"github.com/specialistvlad/tricore/internal/services"
	"github.com/specialistvlad/tricore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestDefault_IsValid(t *testing.T) {
	m := Default()
	require.NoError(t, m.Validate())
	assert.Equal(t, float64(60), m.Runtime.TickRate)
	assert.Equal(t, time.Second/60, m.Runtime.FixedStep)
	assert.Equal(t, 5, m.Runtime.MaxFixedSteps)
	assert.Equal(t, 64, m.Channels.InputCapacity)
	assert.Equal(t, 32, m.Channels.ControlCapacity)
	assert.Equal(t, "null", m.Device.Kind)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	m := Default()
	m.Runtime.Role = "observer"
	m.Runtime.FixedStep = 0
	m.Channels.InputPolicy = "drop"
	m.Channels.ControlCapacity = 0
	require.NoError(t, m.AddModule(&ModuleConfig{Key: "stats", Instances: -1}))

	err := m.Validate()
	require.Error(t, err)
	for _, want := range []string{`unknown role "observer"`, "fixed_step", `"drop"`, "control_capacity", `module "stats"`} {
		assert.ErrorContains(t, err, want)
	}
}

func TestRoleMask(t *testing.T) {
	testCases := []struct {
		role string
		want lifecycle.AffinityMask
	}{
		{RoleClient, lifecycle.MaskOfAffinities(lifecycle.Control, lifecycle.Presentation)},
		{RoleServer, lifecycle.MaskOfAffinities(lifecycle.Control, lifecycle.Simulation)},
		{RoleBoth, lifecycle.AllAffinities},
		{"", lifecycle.AllAffinities},
	}
	for _, tc := range testCases {
		got, err := RoleMask(tc.role)
		require.NoError(t, err, tc.role)
		assert.Equal(t, tc.want, got, tc.role)
	}
	_, err := RoleMask("nobody")
	assert.Error(t, err)
}

func TestChannels_Policy(t *testing.T) {
	p, err := Channels{InputPolicy: PolicyBlock}.Policy()
	require.NoError(t, err)
	assert.Equal(t, channels.Block, p)

	p, err = Channels{}.Policy()
	require.NoError(t, err)
	assert.Equal(t, channels.Overwrite, p)
}

func TestAddModule_RejectsDuplicates(t *testing.T) {
	m := &Model{}
	require.NoError(t, m.AddModule(&ModuleConfig{Key: "hud"}))
	assert.ErrorContains(t, m.AddModule(&ModuleConfig{Key: "hud"}), "duplicate")
	assert.NotNil(t, m.Module("hud"))
	assert.Nil(t, m.Module("other"))
}

func TestModuleConfig_IsEnabled(t *testing.T) {
	off := false
	var missing *ModuleConfig
	assert.True(t, missing.IsEnabled(true))
	assert.True(t, (&ModuleConfig{}).IsEnabled(true))
	assert.False(t, (&ModuleConfig{Enabled: &off}).IsEnabled(true))
}

type physicsSettings struct {
	Damping float64        `cty:"damping"`
	Gravity []float64      `cty:"gravity"`
	Label   string         `cty:"label"`
	Extra   any            `cty:"extra"`
	Limits  map[string]int `cty:"limits"`
	Skipped string
}

func TestModuleConfig_Decode(t *testing.T) {
	mc := &ModuleConfig{
		Key: "physics",
		Settings: cty.ObjectVal(map[string]cty.Value{
			"damping": cty.NumberFloatVal(0.5),
			"gravity": cty.TupleVal([]cty.Value{cty.NumberIntVal(0), cty.NumberFloatVal(-9.8), cty.NumberIntVal(0)}),
			"extra":   cty.ObjectVal(map[string]cty.Value{"tag": cty.StringVal("x")}),
			"limits":  cty.ObjectVal(map[string]cty.Value{"bodies": cty.NumberIntVal(8)}),
		}),
	}

	got := physicsSettings{Label: "default", Skipped: "kept"}
	require.NoError(t, mc.Decode(&got))

	want := physicsSettings{
		Damping: 0.5,
		Gravity: []float64{0, -9.8, 0},
		Label:   "default",
		Extra:   map[string]any{"tag": "x"},
		Limits:  map[string]int{"bodies": 8},
		Skipped: "kept",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decoded settings mismatch (-want +got):\n%s", diff)
	}
}

func TestModuleConfig_DecodeErrors(t *testing.T) {
	var target physicsSettings

	unknown := &ModuleConfig{Key: "physics", Settings: cty.ObjectVal(map[string]cty.Value{
		"dampng": cty.NumberIntVal(1),
		"zeta":   cty.NumberIntVal(1),
	})}
	assert.ErrorContains(t, unknown.Decode(&target), "unsupported settings: dampng, zeta")

	wrongType := &ModuleConfig{Key: "physics", Settings: cty.ObjectVal(map[string]cty.Value{
		"damping": cty.StringVal("lots"),
	})}
	assert.ErrorContains(t, wrongType.Decode(&target), `setting "damping"`)

	notObject := &ModuleConfig{Key: "physics", Settings: cty.StringVal("x")}
	assert.ErrorContains(t, notObject.Decode(&target), "must be an object")

	assert.Error(t, unknown.Decode(target), "non-pointer target")

	var none *ModuleConfig
	assert.NoError(t, none.Decode(&target))
	assert.NoError(t, (&ModuleConfig{}).Decode(&target))
}

func TestNativeRoundTrip(t *testing.T) {
	in := map[string]any{
		"name":   "probe",
		"count":  3,
		"ratio":  0.25,
		"on":     true,
		"tags":   []any{"a", 1},
		"nested": map[string]any{"k": nil},
	}
	v, err := FromNative(in)
	require.NoError(t, err)
	assert.True(t, v.Type().IsObjectType())

	out, err := ToNative(v)
	require.NoError(t, err)
	want := map[string]any{
		"name":   "probe",
		"count":  float64(3),
		"ratio":  0.25,
		"on":     true,
		"tags":   []any{"a", float64(1)},
		"nested": map[string]any{"k": nil},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	_, err = FromNative(struct{}{})
	assert.Error(t, err)
}

type stubLoader struct {
	model *Model
	err   error
	calls []string
}

func (s *stubLoader) Load(_ context.Context, path string) (*Model, error) {
	s.calls = append(s.calls, path)
	return s.model, s.err
}

func TestOpen(t *testing.T) {
	ctx, _ := testutil.LoggerContext(t)

	t.Run("empty path gives defaults", func(t *testing.T) {
		m, err := Open(ctx, "", nil)
		require.NoError(t, err)
		assert.Equal(t, Default(), m)
	})

	t.Run("dispatches on extension", func(t *testing.T) {
		custom := Default()
		custom.Runtime.TickRate = 30
		hcl := &stubLoader{model: custom}
		m, err := Open(ctx, "conf/Runtime.HCL", Loaders{".hcl": hcl})
		require.NoError(t, err)
		assert.Equal(t, float64(30), m.Runtime.TickRate)
		assert.Equal(t, []string{"conf/Runtime.HCL"}, hcl.calls)
	})

	t.Run("unknown extension", func(t *testing.T) {
		_, err := Open(ctx, "runtime.toml", Loaders{".hcl": &stubLoader{}, ".yaml": &stubLoader{}})
		assert.ErrorContains(t, err, "known: .hcl, .yaml")
	})

	t.Run("loader error is wrapped", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := Open(ctx, "a.yaml", Loaders{".yaml": &stubLoader{err: boom}})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("invalid model", func(t *testing.T) {
		bad := Default()
		bad.Runtime.MaxFixedSteps = 0
		_, err := Open(ctx, "a.yaml", Loaders{".yaml": &stubLoader{model: bad}})
		assert.ErrorContains(t, err, "max_fixed_steps")
	})
}

func TestDecodeModule(t *testing.T) {
	type worldSettings struct {
		Bodies int `cty:"bodies"`
	}

	reg := services.New()
	got := worldSettings{Bodies: 4}
	require.NoError(t, DecodeModule(reg, "world", &got), "no model registered")
	assert.Equal(t, 4, got.Bodies)

	m := Default()
	require.NoError(t, m.AddModule(&ModuleConfig{
		Key:      "world",
		Settings: cty.ObjectVal(map[string]cty.Value{"bodies": cty.NumberIntVal(12)}),
	}))
	require.True(t, services.Add(reg, m))

	require.NoError(t, DecodeModule(reg.Child(), "world", &got))
	assert.Equal(t, 12, got.Bodies)

	other := worldSettings{Bodies: 1}
	require.NoError(t, DecodeModule(reg, "physics", &other))
	assert.Equal(t, 1, other.Bodies)
}
