package world

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/annel0/voxel-stream/internal/eventbus"
	"github.com/annel0/voxel-stream/internal/logging"
	"github.com/annel0/voxel-stream/internal/render"
	"github.com/annel0/voxel-stream/internal/util"
	"github.com/annel0/voxel-stream/internal/vec"
	"github.com/annel0/voxel-stream/internal/world/block"
)

const tracerName = "github.com/annel0/voxel-stream/internal/world"

// Stats - снимок состояния менеджера
type Stats struct {
	Loaded       int      `json:"loaded"`
	Pending      int      `json:"pending"`
	RenderRadius int      `json:"render_radius"`
	Viewer       vec.Vec3 `json:"viewer"`

	Total              int `json:"total"`
	Rendered           int `json:"rendered"`
	Culled             int `json:"culled"`
	VisibleOpaque      int `json:"visible_opaque"`
	VisibleTransparent int `json:"visible_transparent"`
}

// CulledPercent возвращает долю отброшенных чанков в процентах
func (s Stats) CulledPercent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Culled) * 100 / float64(s.Total)
}

// Option настраивает ChunkManager
type Option func(*ChunkManager)

// WithRegistry задаёт реестр блоков
func WithRegistry(r *block.Registry) Option {
	return func(cm *ChunkManager) { cm.registry = r }
}

// WithGenerator задаёт генератор рельефа
func WithGenerator(g *TerrainGenerator) Option {
	return func(cm *ChunkManager) { cm.generator = g }
}

// WithLogger задаёт логгер
func WithLogger(l *logging.Logger) Option {
	return func(cm *ChunkManager) { cm.logger = l }
}

// WithMetrics задаёт набор метрик
func WithMetrics(m *Metrics) Option {
	return func(cm *ChunkManager) { cm.metrics = m }
}

// WithTracer задаёт трейсер
func WithTracer(t trace.Tracer) Option {
	return func(cm *ChunkManager) { cm.tracer = t }
}

func withChunkBuilder(b chunkBuilder) Option {
	return func(cm *ChunkManager) { cm.build = b }
}

// ChunkManager владеет загруженными чанками вокруг наблюдателя: ставит
// недостающие в фоновую генерацию, забирает готовые, выгружает дальние,
// поддерживает граф соседей и строит списки видимых чанков на кадр.
//
// Все методы, кроме Snapshot, LoadingStats и CullingStats, вызываются из главного потока.
type ChunkManager struct {
	cfg       ManagerConfig
	uploader  MeshUploader
	registry  *block.Registry
	generator *TerrainGenerator
	logger    *logging.Logger
	metrics   *Metrics
	tracer    trace.Tracer
	events    eventbus.EventBus
	build     chunkBuilder
	pool      *generationPool

	loaded  map[ChunkKey]*Chunk
	pending map[ChunkKey]*generationTask

	viewer          vec.Vec3
	hasViewer       bool
	forceUpdate     bool
	retryMesh       bool
	initialLoadDone bool
	closed          bool

	frustum            render.Frustum
	visibleOpaque      []*Chunk
	visibleTransparent []*Chunk
	lastCull           Stats

	statsMu sync.RWMutex
	stats   Stats
}

// NewChunkManager создаёт менеджер и запускает пул генерации
func NewChunkManager(cfg ManagerConfig, uploader MeshUploader, opts ...Option) (*ChunkManager, error) {
	if uploader == nil {
		return nil, errors.New("chunk manager requires a mesh uploader")
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cm := &ChunkManager{
		cfg:      cfg,
		uploader: uploader,
		loaded:   make(map[ChunkKey]*Chunk),
		pending:  make(map[ChunkKey]*generationTask),
	}
	for _, opt := range opts {
		opt(cm)
	}

	if cm.registry == nil {
		cm.registry = block.Default()
	}
	if cm.generator == nil {
		cm.generator = NewTerrainGenerator(util.NewNoise(cfg.Seed))
		cm.generator.WorldHeight = cfg.WorldHeight
	}
	if cm.logger == nil {
		cm.logger = logging.GetChunkLogger()
	}
	if cm.metrics == nil {
		cm.metrics = NewMetrics(nil)
	}
	if cm.tracer == nil {
		cm.tracer = otel.Tracer(tracerName)
	}
	if cm.build == nil {
		registry, generator := cm.registry, cm.generator
		cm.build = func(coord vec.Vec3) *Chunk {
			return NewChunk(coord, registry, generator)
		}
	}

	cm.pool = newGenerationPool(cfg.Workers, cfg.QueueSize, cm.build)
	cm.logger.Info("🧱 Менеджер чанков запущен: радиус %d/%d, выгрузка %d/%d, воркеров %d",
		cfg.RenderRadius, cfg.VerticalRadius, cfg.UnloadRadius, cfg.VerticalUnloadRadius, cfg.Workers)
	return cm, nil
}

// ChunkCoordOf возвращает координату чанка, содержащего мировую точку
func ChunkCoordOf(pos mgl32.Vec3) vec.Vec3 {
	return vec.Vec3Float{X: float64(pos[0]), Y: float64(pos[1]), Z: float64(pos[2])}.FloorDiv(ChunkSize)
}

// UpdateChunks выполняет один шаг стриминга для позиции наблюдателя.
// Если наблюдатель не сменил чанк, нет принудительного обновления и очередь пуста,
// вызов ничего не делает.
func (cm *ChunkManager) UpdateChunks(ctx context.Context, viewerPos mgl32.Vec3) {
	if cm.closed {
		return
	}

	viewer := ChunkCoordOf(viewerPos)
	moved := !cm.hasViewer || viewer != cm.viewer
	if !moved && !cm.forceUpdate && len(cm.pending) == 0 && !cm.retryMesh {
		return
	}

	ctx, span := cm.tracer.Start(ctx, "ChunkManager.UpdateChunks")
	defer span.End()

	cm.viewer = viewer
	cm.hasViewer = true

	rescan := moved || cm.forceUpdate
	cm.forceUpdate = false

	if rescan {
		if !cm.initialLoadDone {
			cm.preload(ctx, viewer)
			cm.initialLoadDone = true
		}
		cm.requestMissing(cm.desiredCoords(viewer))
	}

	cm.drainCompleted()

	if rescan {
		cm.evictDistant(viewer)
	}

	cm.refreshNeighbors()
	cm.remeshStale()
	cm.publishStats()

	span.SetAttributes(
		attribute.Int("chunks.loaded", len(cm.loaded)),
		attribute.Int("chunks.pending", len(cm.pending)),
	)
}

// preload синхронно генерирует ближайшие чанки при первом обновлении,
// чтобы наблюдатель не оказался в пустом мире
func (cm *ChunkManager) preload(ctx context.Context, center vec.Vec3) {
	ctx, span := cm.tracer.Start(ctx, "ChunkManager.preload")
	defer span.End()

	start := time.Now()
	radius := min(cm.cfg.InitialLoadRadius, cm.cfg.RenderRadius)
	coords := cm.coordsAround(center, radius, cm.cfg.VerticalRadius)
	results := make([]*Chunk, len(coords))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cm.cfg.Workers)
	for i, coord := range coords {
		i, coord := i, coord
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chunk, err := safeBuild(cm.build, coord)
			if err != nil {
				cm.metrics.GenerationFailures.Inc()
				cm.logger.Warn("⚠️ Начальная генерация чанка %v не удалась: %v", coord, err)
				return nil
			}
			results[i] = chunk
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		cm.logger.Warn("⚠️ Начальная загрузка прервана: %v", err)
	}

	loaded := 0
	for _, chunk := range results {
		if chunk == nil {
			continue
		}
		cm.loaded[chunk.Key()] = chunk
		cm.metrics.Generated.Inc()
		cm.emit(EventChunkLoaded, ChunkEvent{Coord: chunk.Coord()})
		loaded++
	}

	span.SetAttributes(attribute.Int("chunks.preloaded", loaded))
	cm.logger.Info("🌍 Начальная загрузка: %d чанков в радиусе %d за %v", loaded, radius, time.Since(start))
}

// desiredCoords возвращает желаемый набор вокруг center, ближайшие первыми
func (cm *ChunkManager) desiredCoords(center vec.Vec3) []vec.Vec3 {
	return cm.coordsAround(center, cm.cfg.RenderRadius, cm.cfg.VerticalRadius)
}

// desiredKeys возвращает желаемый набор в виде множества ключей
func (cm *ChunkManager) desiredKeys(center vec.Vec3) map[ChunkKey]struct{} {
	coords := cm.desiredCoords(center)
	keys := make(map[ChunkKey]struct{}, len(coords))
	for _, c := range coords {
		keys[NewChunkKey(c)] = struct{}{}
	}
	return keys
}

// coordsAround перечисляет координаты в горизонтальном радиусе r (Чебышёв)
// и вертикальном радиусе v, обрезанные границами мира, по возрастанию расстояния
func (cm *ChunkManager) coordsAround(center vec.Vec3, r, v int) []vec.Vec3 {
	coords := make([]vec.Vec3, 0, (2*r+1)*(2*r+1)*(2*v+1))
	for dy := -v; dy <= v; dy++ {
		y := center.Y + dy
		if y < cm.cfg.MinChunkY || y > cm.cfg.MaxChunkY {
			continue
		}
		for dx := -r; dx <= r; dx++ {
			for dz := -r; dz <= r; dz++ {
				c := vec.Vec3{X: center.X + dx, Y: y, Z: center.Z + dz}
				if InKeyRange(c) {
					coords = append(coords, c)
				}
			}
		}
	}

	sort.SliceStable(coords, func(i, j int) bool {
		return coords[i].DistanceSquared(center) < coords[j].DistanceSquared(center)
	})
	return coords
}

// requestMissing ставит в очередь желаемые чанки, которых нет ни в загруженных, ни в ожидающих.
// Если очередь заполнена, остаток откладывается до следующего кадра.
func (cm *ChunkManager) requestMissing(desired []vec.Vec3) {
	deferred := 0
	for _, coord := range desired {
		key := NewChunkKey(coord)
		if _, ok := cm.loaded[key]; ok {
			continue
		}
		if _, ok := cm.pending[key]; ok {
			continue
		}
		if deferred > 0 {
			deferred++
			continue
		}

		task, ok := cm.pool.submit(context.Background(), coord)
		if !ok {
			deferred++
			continue
		}
		cm.pending[key] = task
	}

	if deferred > 0 {
		cm.forceUpdate = true
		cm.metrics.Deferred.Add(float64(deferred))
		cm.logger.Debug("Очередь генерации заполнена, отложено %d чанков", deferred)
	}
}

// drainCompleted забирает завершённые задачи генерации
func (cm *ChunkManager) drainCompleted() {
	for key, task := range cm.pending {
		if !task.finished() {
			continue
		}
		delete(cm.pending, key)
		task.cancel()

		if task.err != nil {
			cm.metrics.GenerationFailures.Inc()
			cm.logger.Warn("⚠️ Генерация чанка %s (задача %s) не удалась: %v", key, task.id, task.err)
			cm.emit(EventChunkGenerationFailed, ChunkEvent{Coord: task.coord, TaskID: task.id.String(), Error: task.err.Error()})
			continue
		}
		if _, ok := cm.loaded[key]; ok {
			continue
		}
		cm.loaded[key] = task.chunk
		cm.metrics.Generated.Inc()
		cm.emit(EventChunkLoaded, ChunkEvent{Coord: task.coord, TaskID: task.id.String()})
	}
}

// beyondUnload сообщает, что координата вышла за радиусы выгрузки
func (cm *ChunkManager) beyondUnload(coord, viewer vec.Vec3) bool {
	return coord.HorizontalChebyshev(viewer) > cm.cfg.UnloadRadius ||
		coord.VerticalDistance(viewer) > cm.cfg.VerticalUnloadRadius
}

// evictDistant выгружает чанки и отменяет задачи за радиусами выгрузки
func (cm *ChunkManager) evictDistant(viewer vec.Vec3) {
	evicted := 0
	for key, chunk := range cm.loaded {
		if cm.beyondUnload(chunk.Coord(), viewer) {
			cm.unload(key, chunk)
			evicted++
		}
	}

	cancelled := 0
	for key, task := range cm.pending {
		if cm.beyondUnload(task.coord, viewer) {
			task.cancel()
			delete(cm.pending, key)
			cancelled++
		}
	}

	if evicted > 0 {
		// Списки видимости могли ссылаться на выгруженные чанки
		cm.visibleOpaque = nil
		cm.visibleTransparent = nil
		cm.metrics.Evicted.Add(float64(evicted))
	}
	if cancelled > 0 {
		cm.metrics.Cancelled.Add(float64(cancelled))
	}
	if evicted > 0 || cancelled > 0 {
		cm.logger.Debug("Выгружено %d чанков, отменено %d задач", evicted, cancelled)
	}
}

// unload отвязывает чанк от соседей, освобождает геометрию и удаляет из карты
func (cm *ChunkManager) unload(key ChunkKey, chunk *Chunk) {
	for d := Direction(0); d < DirectionCount; d++ {
		if n := chunk.Neighbor(d); n != nil {
			n.SetNeighbor(d.Opposite(), nil)
		}
	}
	chunk.Release(cm.uploader)
	delete(cm.loaded, key)
	cm.emit(EventChunkEvicted, ChunkEvent{Coord: chunk.Coord()})
}

// refreshNeighbors приводит граф соседей в соответствие с картой загруженных чанков
func (cm *ChunkManager) refreshNeighbors() {
	for _, chunk := range cm.loaded {
		for d := Direction(0); d < DirectionCount; d++ {
			nc := chunk.Coord().Add(d.Offset())
			var n *Chunk
			if InKeyRange(nc) {
				n = cm.loaded[NewChunkKey(nc)]
			}
			chunk.SetNeighbor(d, n)
		}
	}
}

// remeshStale перестраивает устаревшие меши
func (cm *ChunkManager) remeshStale() {
	cm.retryMesh = false
	for key, chunk := range cm.loaded {
		if !chunk.NeedsMeshUpdate() {
			continue
		}
		start := time.Now()
		if err := chunk.GenerateMesh(cm.uploader); err != nil {
			cm.metrics.MeshFailures.Inc()
			cm.logger.Error("❌ Меш чанка %s не загружен: %v", key, err)
			cm.retryMesh = true
			continue
		}
		cm.metrics.MeshBuildSeconds.Observe(time.Since(start).Seconds())
		cm.metrics.Remeshed.Inc()
	}
}

type sortableChunk struct {
	chunk *Chunk
	dist  float32
}

// CullChunks строит списки видимых непрозрачных и прозрачных чанков для кадра.
// Прозрачные упорядочены от дальнего к ближнему, непрозрачные - от ближнего к дальнему.
func (cm *ChunkManager) CullChunks(ctx context.Context, view render.ViewParams) {
	_, span := cm.tracer.Start(ctx, "ChunkManager.CullChunks")
	defer span.End()

	cm.frustum.ExtractPlanes(view.ViewProjection())

	var opaque, transparent []sortableChunk
	total, rendered := 0, 0
	now := time.Now()

	for _, chunk := range cm.loaded {
		total++
		dist, visible := cm.isChunkVisible(chunk, view.Position)
		if !visible {
			continue
		}
		rendered++
		chunk.touch(now)

		if chunk.OpaqueMesh() != nil {
			opaque = append(opaque, sortableChunk{chunk, dist})
		}
		if chunk.TransparentMesh() != nil {
			transparent = append(transparent, sortableChunk{chunk, dist})
		}
	}

	sort.Slice(opaque, func(i, j int) bool {
		if opaque[i].dist != opaque[j].dist {
			return opaque[i].dist < opaque[j].dist
		}
		return opaque[i].chunk.Key() < opaque[j].chunk.Key()
	})
	sort.Slice(transparent, func(i, j int) bool {
		if transparent[i].dist != transparent[j].dist {
			return transparent[i].dist > transparent[j].dist
		}
		return transparent[i].chunk.Key() < transparent[j].chunk.Key()
	})

	cm.visibleOpaque = make([]*Chunk, len(opaque))
	for i, s := range opaque {
		cm.visibleOpaque[i] = s.chunk
	}
	cm.visibleTransparent = make([]*Chunk, len(transparent))
	for i, s := range transparent {
		cm.visibleTransparent[i] = s.chunk
	}

	cm.lastCull = Stats{
		Total:              total,
		Rendered:           rendered,
		Culled:             total - rendered,
		VisibleOpaque:      len(opaque),
		VisibleTransparent: len(transparent),
	}
	cm.metrics.Rendered.Set(float64(rendered))
	cm.metrics.Culled.Set(float64(total - rendered))
	cm.publishStats()

	span.SetAttributes(
		attribute.Int("chunks.rendered", rendered),
		attribute.Int("chunks.culled", total-rendered),
	)
}

// isChunkVisible возвращает квадрат расстояния до центра чанка и признак видимости
func (cm *ChunkManager) isChunkVisible(chunk *Chunk, viewer mgl32.Vec3) (float32, bool) {
	d := chunk.Center().Sub(viewer)
	dist := d.Dot(d)

	if chunk.IsEmpty() || !chunk.IsMeshGenerated() {
		return dist, false
	}
	if dist > cm.cfg.MaxRenderDistance*cm.cfg.MaxRenderDistance {
		return dist, false
	}
	min, max := chunk.Bounds()
	return dist, cm.frustum.IsAABBInside(min, max)
}

// VisibleOpaqueChunks возвращает непрозрачные чанки последнего CullChunks
func (cm *ChunkManager) VisibleOpaqueChunks() []*Chunk {
	return cm.visibleOpaque
}

// VisibleTransparentChunks возвращает прозрачные чанки последнего CullChunks, от дальнего к ближнему
func (cm *ChunkManager) VisibleTransparentChunks() []*Chunk {
	return cm.visibleTransparent
}

// Cleanup отменяет ожидающие задачи, останавливает пул и освобождает все меши.
// После вызова менеджер не используется.
func (cm *ChunkManager) Cleanup() {
	if cm.closed {
		return
	}
	cm.closed = true

	for key, task := range cm.pending {
		task.cancel()
		delete(cm.pending, key)
	}
	cm.pool.stop()

	released := len(cm.loaded)
	for key, chunk := range cm.loaded {
		chunk.Release(cm.uploader)
		delete(cm.loaded, key)
	}

	cm.visibleOpaque = nil
	cm.visibleTransparent = nil
	cm.lastCull = Stats{}
	cm.publishStats()

	cm.logger.Info("🧹 Менеджер чанков остановлен, освобождено %d чанков", released)
}

// ForceUpdate заставляет следующий UpdateChunks пересчитать желаемый набор
func (cm *ChunkManager) ForceUpdate() {
	cm.forceUpdate = true
}

// SetRenderDistance меняет горизонтальный радиус, сохраняя запас выгрузки
func (cm *ChunkManager) SetRenderDistance(r int) {
	if r < 0 {
		r = 0
	}
	margin := cm.cfg.UnloadRadius - cm.cfg.RenderRadius
	cm.cfg.RenderRadius = r
	cm.cfg.UnloadRadius = r + margin
	cm.forceUpdate = true
	cm.publishStats()
	cm.logger.Info("🔭 Радиус прорисовки: %d (выгрузка %d)", r, cm.cfg.UnloadRadius)
}

// RenderDistance возвращает горизонтальный радиус прорисовки
func (cm *ChunkManager) RenderDistance() int {
	return cm.cfg.RenderRadius
}

// Config возвращает текущие параметры
func (cm *ChunkManager) Config() ManagerConfig {
	return cm.cfg
}

// GetChunk возвращает загруженный чанк по координате или nil
func (cm *ChunkManager) GetChunk(coord vec.Vec3) *Chunk {
	if !InKeyRange(coord) {
		return nil
	}
	return cm.loaded[NewChunkKey(coord)]
}

// ChunkAt возвращает загруженный чанк, содержащий мировую точку, или nil
func (cm *ChunkManager) ChunkAt(pos mgl32.Vec3) *Chunk {
	return cm.GetChunk(ChunkCoordOf(pos))
}

// IsChunkLoaded сообщает, загружен ли чанк
func (cm *ChunkManager) IsChunkLoaded(coord vec.Vec3) bool {
	return cm.GetChunk(coord) != nil
}

// IsChunkPending сообщает, ожидает ли чанк генерации
func (cm *ChunkManager) IsChunkPending(coord vec.Vec3) bool {
	if !InKeyRange(coord) {
		return false
	}
	_, ok := cm.pending[NewChunkKey(coord)]
	return ok
}

// LoadedCount возвращает число загруженных чанков
func (cm *ChunkManager) LoadedCount() int { return len(cm.loaded) }

// PendingCount возвращает число задач генерации в работе
func (cm *ChunkManager) PendingCount() int { return len(cm.pending) }

// Chunks возвращает копию списка загруженных чанков
func (cm *ChunkManager) Chunks() []*Chunk {
	out := make([]*Chunk, 0, len(cm.loaded))
	for _, c := range cm.loaded {
		out = append(out, c)
	}
	return out
}

// publishStats обновляет снимок для чтения из других горутин
func (cm *ChunkManager) publishStats() {
	s := cm.lastCull
	s.Loaded = len(cm.loaded)
	s.Pending = len(cm.pending)
	s.RenderRadius = cm.cfg.RenderRadius
	s.Viewer = cm.viewer

	cm.metrics.Loaded.Set(float64(s.Loaded))
	cm.metrics.Pending.Set(float64(s.Pending))

	cm.statsMu.Lock()
	cm.stats = s
	cm.statsMu.Unlock()
}

// Snapshot возвращает последний опубликованный снимок. Безопасен из любой горутины.
func (cm *ChunkManager) Snapshot() Stats {
	cm.statsMu.RLock()
	defer cm.statsMu.RUnlock()
	return cm.stats
}

// LoadingStats возвращает строку состояния загрузки
func (cm *ChunkManager) LoadingStats() string {
	s := cm.Snapshot()
	return fmt.Sprintf("Loaded: %d, Pending: %d, Render Distance: %d", s.Loaded, s.Pending, s.RenderRadius)
}

// CullingStats возвращает строку статистики отсечения
func (cm *ChunkManager) CullingStats() string {
	s := cm.Snapshot()
	return fmt.Sprintf("Chunks - Total: %d, Rendered: %d, Culled: %d (%.1f%%)",
		s.Total, s.Rendered, s.Culled, s.CulledPercent())
}
