package scene

import "math"

func ring(i, n int) Vec3 {
	if n <= 0 {
		return Vec3{}
	}
	angle := 2 * math.Pi * float64(i) / float64(n)
	return V(math.Cos(angle), math.Sin(angle), 0)
}
