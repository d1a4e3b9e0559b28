package scene

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVec3_Arithmetic(t *testing.T) {
	a, b := V(1, 2, 3), V(4, 5, 6)

	assert.Equal(t, V(5, 7, 9), a.Add(b))
	assert.Equal(t, V(3, 3, 3), b.Sub(a))
	assert.Equal(t, V(2, 4, 6), a.Scale(2))
	assert.Equal(t, 32.0, a.Dot(b))
	assert.InDelta(t, 5.0, V(3, 4, 0).Len(), 1e-12)
	assert.True(t, a.Equal(V(1.0001, 2, 3), 1e-3))
	assert.False(t, a.Equal(b, 1e-3))
}

func TestNewWorld_BodiesOnUnitCircle(t *testing.T) {
	w := NewWorld(4)
	assert.Len(t, w.Bodies(), 4)
	for i, b := range w.Bodies() {
		assert.Equal(t, i, b.ID)
		assert.InDelta(t, 1.0, b.Position.Len(), 1e-9)
	}
	assert.True(t, w.Bodies()[1].Position.Equal(V(0, 1, 0), 1e-9))
	assert.Empty(t, NewWorld(0).Bodies())
}

func TestWorld_SnapshotIsACopy(t *testing.T) {
	w := NewWorld(2)
	at := time.Unix(10, 0)
	snap := w.Snapshot(7, at, 3)

	w.Bodies()[0].Position = V(math.Inf(1), 0, 0)

	assert.Equal(t, uint64(7), snap.Frame)
	assert.Equal(t, uint64(3), snap.Input)
	assert.Equal(t, at, snap.Time)
	assert.InDelta(t, 1.0, snap.Bodies[0].Position.X, 1e-9)
}

func TestCurrent(t *testing.T) {
	var c Current
	assert.Zero(t, c.Version())

	c.Set(Snapshot{Frame: 2}, 5)
	assert.Equal(t, uint64(5), c.Version())
	assert.Equal(t, uint64(2), c.Snapshot().Frame)
}
