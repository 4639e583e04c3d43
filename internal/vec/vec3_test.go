package vec

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func randomVec(rng *rand.Rand) Vec3 {
	return Vec3{X: rng.Intn(2001) - 1000, Y: rng.Intn(2001) - 1000, Z: rng.Intn(2001) - 1000}
}

func TestChebyshevIsMetric(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		a, b, c := randomVec(rng), randomVec(rng), randomVec(rng)

		assert.Equal(t, a.Chebyshev(b), b.Chebyshev(a), "Расстояние должно быть симметричным")
		assert.Equal(t, 0, a.Chebyshev(a), "Расстояние до себя должно быть нулевым")
		if !a.Equals(b) {
			assert.Greater(t, a.Chebyshev(b), 0, "Разные точки должны иметь положительное расстояние")
		}
		assert.LessOrEqual(t, a.Chebyshev(c), a.Chebyshev(b)+b.Chebyshev(c), "Нарушено неравенство треугольника")
	}
}

func TestChebyshevPicksLargestAxis(t *testing.T) {
	a := Vec3{X: 0, Y: 0, Z: 0}
	assert.Equal(t, 9, a.Chebyshev(Vec3{X: 3, Y: -9, Z: 2}))
	assert.Equal(t, 3, a.HorizontalChebyshev(Vec3{X: 3, Y: -9, Z: 2}))
	assert.Equal(t, 9, a.VerticalDistance(Vec3{X: 3, Y: -9, Z: 2}))
}

func TestFloorDiv(t *testing.T) {
	assert.Equal(t, Vec3{X: 0, Y: 0, Z: 0}, Vec3Float{X: 0.5, Y: 15.9, Z: 0}.FloorDiv(16))
	assert.Equal(t, Vec3{X: -1, Y: -1, Z: 1}, Vec3Float{X: -0.1, Y: -16, Z: 16}.FloorDiv(16))
	assert.Equal(t, -2, FloorDivInt(-17, 16))
	assert.Equal(t, -1, FloorDivInt(-16, 16))
	assert.Equal(t, 1, FloorDivInt(16, 16))
	assert.Equal(t, 15, Mod(-1, 16))
	assert.Equal(t, 0, Mod(16, 16))
}
