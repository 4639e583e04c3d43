package render

// MeshHandle - ссылка на загруженную геометрию (VAO + буферы вершин/индексов).
// Ядро не выполняет draw-вызовов: рендерер сам рисует IndexCount индексов.
type MeshHandle struct {
	VertexArray uint32
	Buffers     []uint32
	IndexCount  int
}
