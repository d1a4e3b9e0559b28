package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseMask(t *testing.T) {
	m := MaskOf(Load, Update, Shutdown)

	assert.True(t, m.Has(Load))
	assert.True(t, m.Has(Update))
	assert.True(t, m.Has(Shutdown))
	assert.False(t, m.Has(FixedUpdate))
	assert.Equal(t, "[load,update,shutdown]", m.String())
}

func TestPhasesOrder(t *testing.T) {
	phases := Phases()
	assert.Len(t, phases, NumPhases)
	assert.Equal(t, Load, phases[0])
	assert.Equal(t, Shutdown, phases[len(phases)-1])
}

func TestAffinityMask(t *testing.T) {
	m := MaskOfAffinities(Control, Presentation)

	assert.True(t, m.Has(Control))
	assert.False(t, m.Has(Simulation))
	assert.True(t, m.Has(Presentation))
	assert.Equal(t, "control|presentation", m.String())
	assert.True(t, AllAffinities.Has(Simulation))
	assert.Equal(t, "simulation", Simulation.String())
}
