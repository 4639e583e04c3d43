package world

import (
	"github.com/annel0/voxel-stream/internal/vec"
	"github.com/annel0/voxel-stream/internal/world/block"
)

// Direction - одно из шести осевых направлений к соседнему чанку или вокселю
type Direction uint8

const (
	PosX Direction = iota
	NegX
	PosY
	NegY
	PosZ
	NegZ
)

// DirectionCount - число направлений
const DirectionCount = 6

var directionOffsets = [DirectionCount]vec.Vec3{
	PosX: {X: 1},
	NegX: {X: -1},
	PosY: {Y: 1},
	NegY: {Y: -1},
	PosZ: {Z: 1},
	NegZ: {Z: -1},
}

var directionFaces = [DirectionCount]block.Face{
	PosX: block.FaceRight,
	NegX: block.FaceLeft,
	PosY: block.FaceTop,
	NegY: block.FaceBottom,
	PosZ: block.FaceFront,
	NegZ: block.FaceBack,
}

var directionNames = [DirectionCount]string{"+x", "-x", "+y", "-y", "+z", "-z"}

// Offset возвращает единичное смещение направления
func (d Direction) Offset() vec.Vec3 {
	return directionOffsets[d]
}

// Opposite возвращает противоположное направление.
// Пары идут подряд (PosX/NegX, ...), поэтому достаточно инвертировать младший бит.
func (d Direction) Opposite() Direction {
	return d ^ 1
}

// Face возвращает грань вокселя, обращённую в направлении d
func (d Direction) Face() block.Face {
	return directionFaces[d]
}

func (d Direction) String() string {
	if int(d) < DirectionCount {
		return directionNames[d]
	}
	return "invalid"
}
