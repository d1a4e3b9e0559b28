package hud

import (
	"strconv"

	"github.com/specialistvlad/tricore/internal/scene"
)

func format(v scene.Vec3, precision int) string {
	f := func(x float64) string { return strconv.FormatFloat(x, 'f', precision, 64) }
	return "(" + f(v.X) + ", " + f(v.Y) + ", " + f(v.Z) + ")"
}
