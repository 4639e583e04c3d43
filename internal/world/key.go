package world

import (
	"fmt"

	"github.com/annel0/voxel-stream/internal/vec"
)

// Упаковка координат чанка в один uint64: по 21 бит на ось со смещением.
// Старший бит всегда ноль; ключ с установленным старшим битом считается повреждённым.
const (
	keyAxisBits = 21
	keyAxisMask = 1<<keyAxisBits - 1
	keyBias     = 1 << (keyAxisBits - 1)

	// MinChunkCoord и MaxChunkCoord - допустимый диапазон координаты чанка по любой оси
	MinChunkCoord = -keyBias
	MaxChunkCoord = keyBias - 1
)

// ChunkKey - компактный ключ чанка для map
type ChunkKey uint64

// InKeyRange сообщает, представима ли координата чанка ключом
func InKeyRange(c vec.Vec3) bool {
	return inAxisRange(c.X) && inAxisRange(c.Y) && inAxisRange(c.Z)
}

func inAxisRange(v int) bool {
	return v >= MinChunkCoord && v <= MaxChunkCoord
}

// NewChunkKey упаковывает координату чанка.
// Паникует, если координата вне [MinChunkCoord, MaxChunkCoord]:
// молчаливое усечение дало бы коллизию ключей.
func NewChunkKey(c vec.Vec3) ChunkKey {
	if !InKeyRange(c) {
		panic(fmt.Sprintf("chunk coordinate %v out of key range [%d, %d]", c, MinChunkCoord, MaxChunkCoord))
	}
	return ChunkKey(uint64(c.X+keyBias)<<(2*keyAxisBits) |
		uint64(c.Y+keyBias)<<keyAxisBits |
		uint64(c.Z+keyBias))
}

// Coord распаковывает ключ обратно в координату чанка
func (k ChunkKey) Coord() vec.Vec3 {
	if k>>(3*keyAxisBits) != 0 {
		panic(fmt.Sprintf("malformed chunk key %#x", uint64(k)))
	}
	return vec.Vec3{
		X: int(k>>(2*keyAxisBits)&keyAxisMask) - keyBias,
		Y: int(k>>keyAxisBits&keyAxisMask) - keyBias,
		Z: int(k&keyAxisMask) - keyBias,
	}
}

func (k ChunkKey) String() string {
	c := k.Coord()
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}
