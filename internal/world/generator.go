package world

import (
	"github.com/annel0/voxel-stream/internal/vec"
	"github.com/annel0/voxel-stream/internal/world/block"
)

// Параметры рельефа по умолчанию
const (
	DefaultWorldHeight          = 64
	DefaultBaseFrequency        = 0.01
	DefaultOctaves              = 4
	DefaultPlaceholderFrequency = 0.1
	DefaultPlaceholderThreshold = 0.7
)

// NoiseSource - источник двумерного шума в диапазоне [-1, 1].
// Реализация должна быть безопасна для параллельного чтения.
type NoiseSource interface {
	Noise2D(x, y float64) float64
}

// TerrainGenerator превращает шум в столбцы блоков.
// После создания только читается, поэтому один экземпляр разделяется всеми воркерами.
type TerrainGenerator struct {
	noise NoiseSource

	WorldHeight          int
	BaseFrequency        float64
	Octaves              int
	PlaceholderFrequency float64
	PlaceholderThreshold float64
	Placeholder          block.Type
}

// NewTerrainGenerator создаёт генератор с параметрами по умолчанию
func NewTerrainGenerator(noise NoiseSource) *TerrainGenerator {
	return &TerrainGenerator{
		noise:                noise,
		WorldHeight:          DefaultWorldHeight,
		BaseFrequency:        DefaultBaseFrequency,
		Octaves:              DefaultOctaves,
		PlaceholderFrequency: DefaultPlaceholderFrequency,
		PlaceholderThreshold: DefaultPlaceholderThreshold,
		Placeholder:          block.Glass,
	}
}

// HeightAt возвращает высоту поверхности в столбце (worldX, worldZ), в диапазоне [0, WorldHeight].
// Октавы: частота удваивается, амплитуда делится пополам; сырая сумма не нормируется,
// крайние значения срезаются по границам мира.
func (g *TerrainGenerator) HeightAt(worldX, worldZ int) int {
	x := float64(worldX)
	z := float64(worldZ)

	var sum float64
	amplitude := 1.0
	frequency := g.BaseFrequency
	for i := 0; i < g.Octaves; i++ {
		sum += g.noise.Noise2D(x*frequency, z*frequency) * amplitude
		amplitude *= 0.5
		frequency *= 2
	}
	h := int((sum + 1) * 0.5 * float64(g.WorldHeight))
	if h < 0 {
		return 0
	}
	if h > g.WorldHeight {
		return g.WorldHeight
	}
	return h
}

// ColumnBlock выбирает блок на мировой высоте y в столбце с поверхностью h.
// Выше поверхности - воздух; глубже трёх - камень; два слоя земли; верхний - трава
// или прозрачная заглушка, если вторичный шум превышает порог.
func (g *TerrainGenerator) ColumnBlock(h, y, worldX, worldZ int) block.Type {
	if y >= h {
		return block.Air
	}

	depth := h - y
	switch {
	case depth > 3:
		return block.Stone
	case depth > 1:
		return block.Dirt
	}

	n := g.noise.Noise2D(float64(worldX)*g.PlaceholderFrequency, float64(worldZ)*g.PlaceholderFrequency)
	if n > g.PlaceholderThreshold {
		return g.Placeholder
	}
	return block.Grass
}

// Fill заполняет сетку чанка с мировым началом origin и возвращает число не-воздушных вокселей
func (g *TerrainGenerator) Fill(origin vec.Vec3, grid *Grid) int {
	solid := 0
	for x := 0; x < ChunkSize; x++ {
		worldX := origin.X + x
		for z := 0; z < ChunkSize; z++ {
			worldZ := origin.Z + z
			h := g.HeightAt(worldX, worldZ)
			for y := 0; y < ChunkSize; y++ {
				t := g.ColumnBlock(h, origin.Y+y, worldX, worldZ)
				grid[x][y][z] = t
				if t != block.Air {
					solid++
				}
			}
		}
	}
	return solid
}
