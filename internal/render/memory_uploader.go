package render

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownMesh возвращается при освобождении чужого или уже освобождённого буфера
var ErrUnknownMesh = errors.New("mesh handle is not live")

type storedMesh struct {
	vertices []float32
	indices  []uint32
}

// MemoryUploader - безголовая замена GPU: хранит геометрию в памяти
// и выдаёт монотонные идентификаторы. Используется тестами и cmd/streamer.
type MemoryUploader struct {
	mu         sync.Mutex
	stride     int
	nextID     uint32
	live       map[uint32]storedMesh
	uploads    int
	releases   int
	failUpload error
}

// NewMemoryUploader создаёт загрузчик; stride - число float на вершину
func NewMemoryUploader(stride int) *MemoryUploader {
	return &MemoryUploader{
		stride: stride,
		nextID: 1,
		live:   make(map[uint32]storedMesh),
	}
}

// Upload копирует вершины и индексы и возвращает новый handle
func (u *MemoryUploader) Upload(vertices []float32, indices []uint32) (*MeshHandle, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.failUpload != nil {
		err := u.failUpload
		u.failUpload = nil
		return nil, err
	}
	if u.stride <= 0 || len(vertices)%u.stride != 0 {
		return nil, fmt.Errorf("vertex data length %d is not a multiple of stride %d", len(vertices), u.stride)
	}

	vertexCount := uint32(len(vertices) / u.stride)
	for _, idx := range indices {
		if idx >= vertexCount {
			return nil, fmt.Errorf("index %d out of range for %d vertices", idx, vertexCount)
		}
	}

	vao := u.nextID
	vbo := u.nextID + 1
	ebo := u.nextID + 2
	u.nextID += 3

	u.live[vao] = storedMesh{
		vertices: append([]float32(nil), vertices...),
		indices:  append([]uint32(nil), indices...),
	}
	u.uploads++

	return &MeshHandle{
		VertexArray: vao,
		Buffers:     []uint32{vbo, ebo},
		IndexCount:  len(indices),
	}, nil
}

// Release освобождает буферы handle
func (u *MemoryUploader) Release(h *MeshHandle) error {
	if h == nil {
		return nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if _, ok := u.live[h.VertexArray]; !ok {
		return fmt.Errorf("release vao %d: %w", h.VertexArray, ErrUnknownMesh)
	}
	delete(u.live, h.VertexArray)
	u.releases++
	return nil
}

// FailNextUpload заставляет следующий Upload вернуть err
func (u *MemoryUploader) FailNextUpload(err error) {
	u.mu.Lock()
	u.failUpload = err
	u.mu.Unlock()
}

// LiveCount возвращает число неосвобождённых мешей
func (u *MemoryUploader) LiveCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.live)
}

// Counts возвращает число загрузок и освобождений
func (u *MemoryUploader) Counts() (uploads, releases int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.uploads, u.releases
}

// Data возвращает копию сохранённой геометрии handle
func (u *MemoryUploader) Data(h *MeshHandle) (vertices []float32, indices []uint32, ok bool) {
	if h == nil {
		return nil, nil, false
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	m, ok := u.live[h.VertexArray]
	if !ok {
		return nil, nil, false
	}
	return append([]float32(nil), m.vertices...), append([]uint32(nil), m.indices...), true
}
