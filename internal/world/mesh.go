package world

import (
	"github.com/annel0/voxel-stream/internal/render"
	"github.com/annel0/voxel-stream/internal/world/block"
)

// VertexStride - число float на вершину: позиция (3), UV (2), цвет RGBA (4)
const VertexStride = 9

// MeshUploader загружает геометрию на GPU и освобождает её.
// Вызывается только из главного потока.
type MeshUploader interface {
	Upload(vertices []float32, indices []uint32) (*render.MeshHandle, error)
	Release(h *render.MeshHandle) error
}

// Углы грани единичного куба в порядке BL, BR, TR, TL при взгляде снаружи.
// Обход против часовой стрелки даёт нормаль наружу.
var faceCorners = [block.FaceCount][4][3]float32{
	block.FaceTop:    {{0, 1, 1}, {1, 1, 1}, {1, 1, 0}, {0, 1, 0}},
	block.FaceBottom: {{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}},
	block.FaceFront:  {{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}},
	block.FaceBack:   {{1, 0, 0}, {0, 0, 0}, {0, 1, 0}, {1, 1, 0}},
	block.FaceLeft:   {{0, 0, 0}, {0, 0, 1}, {0, 1, 1}, {0, 1, 0}},
	block.FaceRight:  {{1, 0, 1}, {1, 0, 0}, {1, 1, 0}, {1, 1, 1}},
}

// Два треугольника на квад
var quadIndices = [6]uint32{0, 1, 2, 2, 3, 0}

// meshBuilder накапливает вершины и индексы одного прохода (непрозрачного или прозрачного)
type meshBuilder struct {
	vertices []float32
	indices  []uint32
}

func (b *meshBuilder) empty() bool {
	return len(b.indices) == 0
}

// addFace добавляет квад грани вокселя с локальными координатами (x, y, z)
func (b *meshBuilder) addFace(x, y, z int, face block.Face, u0, v0, u1, v1 float32, color [4]float32) {
	base := uint32(len(b.vertices) / VertexStride)
	uvs := [4][2]float32{{u0, v0}, {u1, v0}, {u1, v1}, {u0, v1}}

	for i, corner := range faceCorners[face] {
		b.vertices = append(b.vertices,
			float32(x)+corner[0], float32(y)+corner[1], float32(z)+corner[2],
			uvs[i][0], uvs[i][1],
			color[0], color[1], color[2], color[3],
		)
	}
	for _, idx := range quadIndices {
		b.indices = append(b.indices, base+idx)
	}
}

func (b *meshBuilder) upload(uploader MeshUploader) (*render.MeshHandle, error) {
	if b.empty() {
		return nil, nil
	}
	return uploader.Upload(b.vertices, b.indices)
}
