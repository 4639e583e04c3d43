package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-stream/internal/util"
	"github.com/annel0/voxel-stream/internal/vec"
	"github.com/annel0/voxel-stream/internal/world/block"
)

type constNoise float64

func (n constNoise) Noise2D(x, y float64) float64 { return float64(n) }

func TestHeightAtBounds(t *testing.T) {
	assert.Equal(t, 32, NewTerrainGenerator(constNoise(0)).HeightAt(10, -3))
	assert.Equal(t, 64, NewTerrainGenerator(constNoise(1)).HeightAt(0, 0))
	assert.Equal(t, 0, NewTerrainGenerator(constNoise(-1)).HeightAt(0, 0))

	g := NewTerrainGenerator(util.NewNoise(7))
	for x := -200; x < 200; x += 13 {
		for z := -200; z < 200; z += 17 {
			h := g.HeightAt(x, z)
			assert.GreaterOrEqual(t, h, 0)
			assert.LessOrEqual(t, h, g.WorldHeight)
		}
	}
}

func TestHeightAtRawOctaveSum(t *testing.T) {
	// 0.26 * (1 + 0.5 + 0.25 + 0.125) = 0.4875 -> (1.4875 * 0.5 * 64) = 47.6
	assert.Equal(t, 47, NewTerrainGenerator(constNoise(0.26)).HeightAt(0, 0))
	// сумма 1.125 выходит за 1 и срезается по высоте мира
	assert.Equal(t, 64, NewTerrainGenerator(constNoise(0.6)).HeightAt(5, 5))
	assert.Equal(t, 0, NewTerrainGenerator(constNoise(-0.6)).HeightAt(5, 5))

	g := NewTerrainGenerator(constNoise(0.26))
	g.Octaves = 1
	assert.Equal(t, 40, g.HeightAt(0, 0), "одна октава: 1.26 * 32 = 40.32")
}

func TestColumnBlockLayers(t *testing.T) {
	g := NewTerrainGenerator(constNoise(0))
	const h = 32

	assert.Equal(t, block.Air, g.ColumnBlock(h, 32, 0, 0))
	assert.Equal(t, block.Air, g.ColumnBlock(h, 40, 0, 0))
	assert.Equal(t, block.Grass, g.ColumnBlock(h, 31, 0, 0))
	assert.Equal(t, block.Dirt, g.ColumnBlock(h, 30, 0, 0))
	assert.Equal(t, block.Dirt, g.ColumnBlock(h, 29, 0, 0))
	assert.Equal(t, block.Stone, g.ColumnBlock(h, 28, 0, 0))
	assert.Equal(t, block.Stone, g.ColumnBlock(h, -50, 0, 0))

	placeholder := NewTerrainGenerator(constNoise(0.9))
	assert.Equal(t, block.Glass, placeholder.ColumnBlock(h, 31, 0, 0), "вторичный шум выше порога даёт прозрачную заглушку")
	assert.Equal(t, block.Dirt, placeholder.ColumnBlock(h, 30, 0, 0))
}

func TestFillDeterministic(t *testing.T) {
	origin := vec.Vec3{X: -16, Y: 16, Z: 32}

	var a, b Grid
	solidA := NewTerrainGenerator(util.NewNoise(42)).Fill(origin, &a)
	solidB := NewTerrainGenerator(util.NewNoise(42)).Fill(origin, &b)

	require.Equal(t, a, b, "одинаковый сид даёт одинаковые воксели")
	assert.Equal(t, solidA, solidB)

	counted := 0
	for x := range a {
		for y := range a[x] {
			for z := range a[x][y] {
				if a[x][y][z] != block.Air {
					counted++
				}
			}
		}
	}
	assert.Equal(t, counted, solidA)
}

func TestFillAboveTerrainIsEmpty(t *testing.T) {
	var grid Grid
	solid := NewTerrainGenerator(util.NewNoise(1)).Fill(vec.Vec3{Y: 5 * ChunkSize}, &grid)
	assert.Zero(t, solid, "чанк выше максимальной высоты пуст")
}
