package world

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxel-stream/internal/render"
	"github.com/annel0/voxel-stream/internal/vec"
	"github.com/annel0/voxel-stream/internal/world/block"
)

// ChunkSize - ребро чанка в вокселях
const ChunkSize = 16

// Grid хранит воксели чанка как [x][y][z]
type Grid [ChunkSize][ChunkSize][ChunkSize]block.Type

// Оттенок верхней грани травы и альфа прозрачных блоков
var grassTopTint = [3]float32{0.4863, 0.7412, 0.2706}

const transparentAlpha = 0.8

// Chunk - куб 16³ вокселей с сеткой соседей и двумя мешами.
// Сетка вокселей заполняется в конструкторе и больше не меняется, поэтому
// соседние чанки читают её без блокировок. Всё остальное состояние
// трогает только главный поток.
type Chunk struct {
	coord    vec.Vec3
	origin   vec.Vec3
	blocks   Grid
	solid    int
	registry *block.Registry

	neighbors [DirectionCount]*Chunk

	opaqueMesh      *render.MeshHandle
	transparentMesh *render.MeshHandle
	meshGenerated   bool
	needsMeshUpdate bool

	lastAccess time.Time
}

// NewChunk генерирует чанк в координате coord. Безопасно вызывать из воркеров:
// конструктор не трогает общего изменяемого состояния.
func NewChunk(coord vec.Vec3, registry *block.Registry, gen *TerrainGenerator) *Chunk {
	c := newEmptyChunk(coord, registry)
	c.solid = gen.Fill(c.origin, &c.blocks)
	return c
}

// NewChunkFromGrid создаёт чанк с готовой сеткой вокселей
func NewChunkFromGrid(coord vec.Vec3, registry *block.Registry, grid *Grid) *Chunk {
	c := newEmptyChunk(coord, registry)
	c.blocks = *grid
	for x := range c.blocks {
		for y := range c.blocks[x] {
			for z := range c.blocks[x][y] {
				if c.blocks[x][y][z] != block.Air {
					c.solid++
				}
			}
		}
	}
	return c
}

func newEmptyChunk(coord vec.Vec3, registry *block.Registry) *Chunk {
	if registry == nil {
		registry = block.Default()
	}
	return &Chunk{
		coord:           coord,
		origin:          coord.Scale(ChunkSize),
		registry:        registry,
		needsMeshUpdate: true,
		lastAccess:      time.Now(),
	}
}

// Coord возвращает координату чанка
func (c *Chunk) Coord() vec.Vec3 { return c.coord }

// Key возвращает ключ чанка
func (c *Chunk) Key() ChunkKey { return NewChunkKey(c.coord) }

// Origin возвращает мировую координату минимального угла
func (c *Chunk) Origin() vec.Vec3 { return c.origin }

// Bounds возвращает мировой AABB чанка
func (c *Chunk) Bounds() (min, max mgl32.Vec3) {
	min = mgl32.Vec3{float32(c.origin.X), float32(c.origin.Y), float32(c.origin.Z)}
	max = min.Add(mgl32.Vec3{ChunkSize, ChunkSize, ChunkSize})
	return min, max
}

// Center возвращает мировой центр чанка
func (c *Chunk) Center() mgl32.Vec3 {
	min, _ := c.Bounds()
	return min.Add(mgl32.Vec3{ChunkSize / 2, ChunkSize / 2, ChunkSize / 2})
}

// Block возвращает воксель по локальным координатам; вне сетки - воздух
func (c *Chunk) Block(x, y, z int) block.Type {
	if !inGrid(x, y, z) {
		return block.Air
	}
	return c.blocks[x][y][z]
}

// SolidCount возвращает число не-воздушных вокселей
func (c *Chunk) SolidCount() int { return c.solid }

// IsEmpty сообщает, что чанк целиком из воздуха
func (c *Chunk) IsEmpty() bool { return c.solid == 0 }

// DistanceFrom возвращает расстояние Чебышёва в чанках до координаты other
func (c *Chunk) DistanceFrom(other vec.Vec3) int {
	return c.coord.Chebyshev(other)
}

// Neighbor возвращает соседа в направлении d или nil
func (c *Chunk) Neighbor(d Direction) *Chunk {
	return c.neighbors[d]
}

// SetNeighbor связывает соседа в направлении d.
// Если связь изменилась, перестраиваются оба: граничные грани зависят от соседа.
func (c *Chunk) SetNeighbor(d Direction, n *Chunk) {
	if c.neighbors[d] == n {
		return
	}
	c.neighbors[d] = n
	c.needsMeshUpdate = true
	if n != nil {
		n.needsMeshUpdate = true
	}
}

// MarkForMeshUpdate помечает меш устаревшим
func (c *Chunk) MarkForMeshUpdate() { c.needsMeshUpdate = true }

// NeedsMeshUpdate сообщает, что меш устарел
func (c *Chunk) NeedsMeshUpdate() bool { return c.needsMeshUpdate }

// IsMeshGenerated сообщает, что текущий меш построен
func (c *Chunk) IsMeshGenerated() bool { return c.meshGenerated }

// OpaqueMesh возвращает непрозрачную геометрию или nil
func (c *Chunk) OpaqueMesh() *render.MeshHandle { return c.opaqueMesh }

// TransparentMesh возвращает прозрачную геометрию или nil
func (c *Chunk) TransparentMesh() *render.MeshHandle { return c.transparentMesh }

// LastAccess возвращает время последнего построения меша или попадания в кадр
func (c *Chunk) LastAccess() time.Time { return c.lastAccess }

func (c *Chunk) touch(now time.Time) { c.lastAccess = now }

// GenerateMesh строит и загружает оба меша, освобождая предыдущие.
// При ошибке загрузки чанк остаётся без геометрии и с флагом обновления,
// чтобы следующий проход повторил попытку.
func (c *Chunk) GenerateMesh(uploader MeshUploader) error {
	c.lastAccess = time.Now()
	c.releaseMeshes(uploader)

	if c.solid == 0 {
		c.meshGenerated = true
		c.needsMeshUpdate = false
		return nil
	}

	var opaque, transparent meshBuilder
	atlas := c.registry.Atlas()

	for x := 0; x < ChunkSize; x++ {
		for y := 0; y < ChunkSize; y++ {
			for z := 0; z < ChunkSize; z++ {
				t := c.blocks[x][y][z]
				if t == block.Air {
					continue
				}
				props := c.registry.Get(t)

				target := &opaque
				alpha := float32(1)
				if props.Transparent {
					target = &transparent
					alpha = transparentAlpha
				}

				for d := Direction(0); d < DirectionCount; d++ {
					if !c.shouldRenderFace(x, y, z, d, t, props) {
						continue
					}
					face := d.Face()
					color := [4]float32{1, 1, 1, alpha}
					if t == block.Grass && face == block.FaceTop {
						color[0], color[1], color[2] = grassTopTint[0], grassTopTint[1], grassTopTint[2]
					}
					u0, v0, u1, v1 := atlas.UV(props.Texture(face))
					target.addFace(x, y, z, face, u0, v0, u1, v1, color)
				}
			}
		}
	}

	opaqueHandle, err := opaque.upload(uploader)
	if err != nil {
		c.meshGenerated = false
		return fmt.Errorf("upload opaque mesh of chunk %s: %w", c.Key(), err)
	}
	transparentHandle, err := transparent.upload(uploader)
	if err != nil {
		mustRelease(uploader, opaqueHandle, c)
		c.meshGenerated = false
		return fmt.Errorf("upload transparent mesh of chunk %s: %w", c.Key(), err)
	}

	c.opaqueMesh = opaqueHandle
	c.transparentMesh = transparentHandle
	c.meshGenerated = true
	c.needsMeshUpdate = false
	return nil
}

// shouldRenderFace решает, видна ли грань вокселя (x, y, z) в направлении d.
// Если сосед по этой стороне не загружен, грань рисуется.
func (c *Chunk) shouldRenderFace(x, y, z int, d Direction, current block.Type, props block.Properties) bool {
	off := d.Offset()
	nx, ny, nz := x+off.X, y+off.Y, z+off.Z

	var adjacent block.Type
	if inGrid(nx, ny, nz) {
		adjacent = c.blocks[nx][ny][nz]
	} else {
		n := c.neighbors[d]
		if n == nil {
			return true
		}
		adjacent = n.blocks[vec.Mod(nx, ChunkSize)][vec.Mod(ny, ChunkSize)][vec.Mod(nz, ChunkSize)]
	}

	if adjacent == block.Air {
		return true
	}
	adjacentTransparent := c.registry.IsTransparent(adjacent)

	if !props.Transparent {
		return adjacentTransparent
	}
	// Между одинаковыми прозрачными блоками грань не нужна
	if adjacent == current {
		return false
	}
	return adjacentTransparent
}

// Release освобождает геометрию и разрывает связи с соседями
func (c *Chunk) Release(uploader MeshUploader) {
	c.releaseMeshes(uploader)
	c.meshGenerated = false
	for d := Direction(0); d < DirectionCount; d++ {
		c.neighbors[d] = nil
	}
}

func (c *Chunk) releaseMeshes(uploader MeshUploader) {
	mustRelease(uploader, c.opaqueMesh, c)
	mustRelease(uploader, c.transparentMesh, c)
	c.opaqueMesh = nil
	c.transparentMesh = nil
}

// mustRelease паникует при ошибке освобождения: это означает двойное
// освобождение или чужой handle, то есть ошибку учёта буферов.
func mustRelease(uploader MeshUploader, h *render.MeshHandle, c *Chunk) {
	if h == nil {
		return
	}
	if err := uploader.Release(h); err != nil {
		panic(fmt.Sprintf("release mesh of chunk %s: %v", c.Key(), err))
	}
}

func inGrid(x, y, z int) bool {
	return x >= 0 && x < ChunkSize && y >= 0 && y < ChunkSize && z >= 0 && z < ChunkSize
}
