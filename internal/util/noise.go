package util

import (
	"math"

	"github.com/aquilax/go-perlin"
)

// Параметры генератора: одна октава на выборку, октавы суммирует вызывающий код.
const (
	perlinAlpha   = 2.0
	perlinBeta    = 2.0
	perlinOctaves = int32(1)
)

// Noise - детерминированный двумерный градиентный шум.
// Таблица перестановок строится один раз в конструкторе из сида,
// после чего структура только читается и безопасна для любого числа горутин.
type Noise struct {
	seed   int64
	perlin *perlin.Perlin
}

// NewNoise создаёт генератор шума с указанным сидом
func NewNoise(seed int64) *Noise {
	return &Noise{
		seed:   seed,
		perlin: perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed),
	}
}

// Seed возвращает сид генератора
func (n *Noise) Seed() int64 {
	return n.seed
}

// Noise2D возвращает значение шума в диапазоне [-1, 1].
// Сырой градиентный шум лежит примерно в [-√2/2, √2/2], поэтому растягиваем его.
func (n *Noise) Noise2D(x, y float64) float64 {
	v := n.perlin.Noise2D(x, y) * math.Sqrt2
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// PerlinNoise2D возвращает значение шума, приведённое к диапазону [0, 1]
func (n *Noise) PerlinNoise2D(x, y float64) float64 {
	return (n.Noise2D(x, y) + 1.0) / 2.0
}
