package world

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-stream/internal/config"
	"github.com/annel0/voxel-stream/internal/logging"
	"github.com/annel0/voxel-stream/internal/render"
	"github.com/annel0/voxel-stream/internal/vec"
	"github.com/annel0/voxel-stream/internal/world/block"
)

func testManagerConfig() ManagerConfig {
	return ManagerConfig{
		RenderRadius:         2,
		VerticalRadius:       1,
		UnloadRadius:         4,
		VerticalUnloadRadius: 3,
		MinChunkY:            -10,
		MaxChunkY:            10,
		Workers:              2,
		QueueSize:            256,
		InitialLoadRadius:    1,
		MaxRenderDistance:    1000,
		Seed:                 1,
		WorldHeight:          DefaultWorldHeight,
	}
}

// singleVoxelBuilder строит чанки с одним блоком в центре, чтобы у каждого был меш
func singleVoxelBuilder(t block.Type) chunkBuilder {
	return func(c vec.Vec3) *Chunk {
		return chunkWith(c, voxel{8, 8, 8, t})
	}
}

type testEnv struct {
	cm       *ChunkManager
	uploader *render.MemoryUploader
	metrics  *Metrics
}

func newTestManager(t *testing.T, cfg ManagerConfig, opts ...Option) *testEnv {
	t.Helper()

	env := &testEnv{
		uploader: render.NewMemoryUploader(VertexStride),
		metrics:  NewMetrics(nil),
	}
	opts = append([]Option{
		WithLogger(logging.NewWriterLogger("chunks", io.Discard, logging.TRACE)),
		WithMetrics(env.metrics),
	}, opts...)

	cm, err := NewChunkManager(cfg, env.uploader, opts...)
	require.NoError(t, err)
	env.cm = cm
	t.Cleanup(cm.Cleanup)
	return env
}

// chunkCenter возвращает мировую точку в центре чанка
func chunkCenter(c vec.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{
		float32(c.X*ChunkSize + ChunkSize/2),
		float32(c.Y*ChunkSize + ChunkSize/2),
		float32(c.Z*ChunkSize + ChunkSize/2),
	}
}

// pumpUntil крутит UpdateChunks из тестовой горутины, пока cond не станет истинным
func pumpUntil(t *testing.T, cm *ChunkManager, pos mgl32.Vec3, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		cm.UpdateChunks(context.Background(), pos)
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("состояние не достигнуто: %s", cm.LoadingStats())
}

func settled(cm *ChunkManager, want int) func() bool {
	return func() bool {
		return cm.PendingCount() == 0 && cm.LoadedCount() == want
	}
}

func TestNewChunkManagerValidates(t *testing.T) {
	cfg := testManagerConfig()
	cfg.UnloadRadius = 1

	_, err := NewChunkManager(cfg, render.NewMemoryUploader(VertexStride))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewChunkManager(testManagerConfig(), nil)
	assert.Error(t, err)
}

func TestDesiredSetSize(t *testing.T) {
	cfg := DefaultManagerConfig()
	cfg.MinChunkY = -100
	cfg.MaxChunkY = 100
	env := newTestManager(t, cfg)

	assert.Len(t, env.cm.desiredKeys(vec.Vec3{}), 2601, "17×17×9 чанков для радиуса 8/4")

	clipped := newTestManager(t, DefaultManagerConfig())
	assert.Len(t, clipped.cm.desiredKeys(vec.Vec3{}), 17*17*4, "слои обрезаются границами мира 0..3")
}

func TestDesiredCoordsNearestFirst(t *testing.T) {
	env := newTestManager(t, testManagerConfig())
	center := vec.Vec3{X: 5, Y: 0, Z: -3}

	coords := env.cm.desiredCoords(center)
	require.NotEmpty(t, coords)
	assert.Equal(t, center, coords[0])
	for i := 1; i < len(coords); i++ {
		assert.LessOrEqual(t, coords[i-1].DistanceSquared(center), coords[i].DistanceSquared(center))
	}
}

func TestManagerLoadsDesiredSet(t *testing.T) {
	env := newTestManager(t, testManagerConfig())
	cm := env.cm
	viewer := vec.Vec3{X: 1, Y: 0, Z: -1}
	desired := cm.desiredKeys(viewer)

	pumpUntil(t, cm, chunkCenter(viewer), settled(cm, len(desired)))

	for key := range desired {
		assert.True(t, cm.IsChunkLoaded(key.Coord()), "чанк %s должен быть загружен", key)
	}

	for _, chunk := range cm.Chunks() {
		assert.True(t, chunk.IsMeshGenerated(), "чанк %s без меша", chunk.Key())
		assert.False(t, chunk.NeedsMeshUpdate())

		for d := Direction(0); d < DirectionCount; d++ {
			n := chunk.Neighbor(d)
			expected := cm.GetChunk(chunk.Coord().Add(d.Offset()))
			assert.Same(t, expected, n, "сосед %s чанка %s не совпадает с картой", d, chunk.Key())
			if n != nil {
				assert.Same(t, chunk, n.Neighbor(d.Opposite()), "связь соседей несимметрична")
			}
		}
	}

	assert.Equal(t, float64(len(desired)), testutil.ToFloat64(env.metrics.Loaded))
	assert.Equal(t, float64(len(desired)), testutil.ToFloat64(env.metrics.Generated))
}

func TestManagerStaticViewerIsNoOp(t *testing.T) {
	env := newTestManager(t, testManagerConfig(), withChunkBuilder(singleVoxelBuilder(block.Stone)))
	cm := env.cm
	pos := chunkCenter(vec.Vec3{})

	pumpUntil(t, cm, pos, settled(cm, len(cm.desiredKeys(vec.Vec3{}))))
	uploads, releases := env.uploader.Counts()

	for i := 0; i < 5; i++ {
		cm.UpdateChunks(context.Background(), pos.Add(mgl32.Vec3{1, 1, 1}))
	}

	u2, r2 := env.uploader.Counts()
	assert.Equal(t, uploads, u2, "неподвижный наблюдатель не вызывает перестроений")
	assert.Equal(t, releases, r2)
}

func TestManagerUnloadHysteresis(t *testing.T) {
	env := newTestManager(t, testManagerConfig(), withChunkBuilder(singleVoxelBuilder(block.Stone)))
	cm := env.cm

	origin := vec.Vec3{}
	pumpUntil(t, cm, chunkCenter(origin), settled(cm, len(cm.desiredKeys(origin))))
	require.True(t, cm.IsChunkLoaded(vec.Vec3{X: -2}))

	moved := vec.Vec3{X: 3}
	cm.UpdateChunks(context.Background(), chunkCenter(moved))

	assert.True(t, cm.IsChunkLoaded(vec.Vec3{}), "расстояние 3 > радиуса 2, но в пределах выгрузки 4")
	assert.True(t, cm.IsChunkLoaded(vec.Vec3{X: -1}), "расстояние 4 на границе выгрузки")
	assert.False(t, cm.IsChunkLoaded(vec.Vec3{X: -2}), "расстояние 5 за радиусом выгрузки")

	for _, chunk := range cm.Chunks() {
		assert.LessOrEqual(t, chunk.Coord().HorizontalChebyshev(moved), 4)
		if n := chunk.Neighbor(NegX); n != nil {
			assert.True(t, cm.IsChunkLoaded(n.Coord()), "ссылка на выгруженного соседа")
		}
	}

	desired := cm.desiredKeys(moved)
	pumpUntil(t, cm, chunkCenter(moved), func() bool {
		if cm.PendingCount() != 0 {
			return false
		}
		for key := range desired {
			if !cm.IsChunkLoaded(key.Coord()) {
				return false
			}
		}
		return true
	})
	assert.Greater(t, testutil.ToFloat64(env.metrics.Evicted), float64(0))
}

func TestManagerGenerationFailure(t *testing.T) {
	failing := vec.Vec3{X: 2}
	var calls atomic.Int32

	cfg := testManagerConfig()
	cfg.InitialLoadRadius = 0
	env := newTestManager(t, cfg, withChunkBuilder(func(c vec.Vec3) *Chunk {
		if c == failing {
			calls.Add(1)
			panic("generator exploded")
		}
		return chunkWith(c, voxel{1, 1, 1, block.Stone})
	}))
	cm := env.cm

	want := len(cm.desiredKeys(vec.Vec3{})) - 1
	pumpUntil(t, cm, chunkCenter(vec.Vec3{}), settled(cm, want))

	assert.False(t, cm.IsChunkLoaded(failing))
	assert.False(t, cm.IsChunkPending(failing), "неудачная задача удаляется из ожидающих")
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.GenerationFailures))
}

func TestManagerQueueSaturation(t *testing.T) {
	cfg := testManagerConfig()
	cfg.Workers = 1
	cfg.QueueSize = 1
	cfg.InitialLoadRadius = 0
	env := newTestManager(t, cfg, withChunkBuilder(singleVoxelBuilder(block.Stone)))
	cm := env.cm

	desired := cm.desiredKeys(vec.Vec3{})
	pumpUntil(t, cm, chunkCenter(vec.Vec3{}), settled(cm, len(desired)))

	assert.Greater(t, testutil.ToFloat64(env.metrics.Deferred), float64(0), "часть постановок была отложена")
}

func TestManagerMeshUploadRetry(t *testing.T) {
	env := newTestManager(t, testManagerConfig(), withChunkBuilder(singleVoxelBuilder(block.Stone)))
	cm := env.cm
	env.uploader.FailNextUpload(assert.AnError)

	pumpUntil(t, cm, chunkCenter(vec.Vec3{}), func() bool {
		if cm.PendingCount() != 0 || cm.LoadedCount() != len(cm.desiredKeys(vec.Vec3{})) {
			return false
		}
		for _, chunk := range cm.Chunks() {
			if chunk.NeedsMeshUpdate() {
				return false
			}
		}
		return true
	})

	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.MeshFailures))
	assert.Equal(t, cm.LoadedCount(), env.uploader.LiveCount())
}

func TestCullChunks(t *testing.T) {
	env := newTestManager(t, testManagerConfig(), withChunkBuilder(singleVoxelBuilder(block.Glass)))
	cm := env.cm
	pos := chunkCenter(vec.Vec3{})

	pumpUntil(t, cm, pos, settled(cm, len(cm.desiredKeys(vec.Vec3{}))))

	view := render.LookAt(pos, mgl32.Vec3{0, 0, -1}, render.NewPerspective(70, 16.0/9, 0.1, 1000))
	cm.CullChunks(context.Background(), view)

	transparent := cm.VisibleTransparentChunks()
	require.NotEmpty(t, transparent)
	assert.Empty(t, cm.VisibleOpaqueChunks(), "у стеклянных чанков нет непрозрачной геометрии")

	for i := 1; i < len(transparent); i++ {
		prev := transparent[i-1].Center().Sub(pos)
		cur := transparent[i].Center().Sub(pos)
		assert.GreaterOrEqual(t, prev.Dot(prev), cur.Dot(cur), "прозрачные чанки идут от дальнего к ближнему")
	}

	behind := cm.GetChunk(vec.Vec3{Z: 1})
	require.NotNil(t, behind)
	assert.NotContains(t, transparent, behind, "чанк за камерой отброшен")
	assert.Contains(t, transparent, cm.GetChunk(vec.Vec3{}), "чанк с камерой видим")

	stats := cm.Snapshot()
	assert.Equal(t, cm.LoadedCount(), stats.Total)
	assert.Equal(t, stats.Total, stats.Rendered+stats.Culled)
	assert.Greater(t, stats.Culled, 0)
	assert.Equal(t, float64(stats.Rendered), testutil.ToFloat64(env.metrics.Rendered))
}

func TestCullChunksMaxRenderDistance(t *testing.T) {
	cfg := testManagerConfig()
	cfg.MaxRenderDistance = 20
	env := newTestManager(t, cfg, withChunkBuilder(singleVoxelBuilder(block.Stone)))
	cm := env.cm
	pos := chunkCenter(vec.Vec3{})

	pumpUntil(t, cm, pos, settled(cm, len(cm.desiredKeys(vec.Vec3{}))))

	view := render.LookAt(pos, mgl32.Vec3{0, 0, -1}, render.NewPerspective(120, 1, 0.1, 1000))
	cm.CullChunks(context.Background(), view)

	opaque := cm.VisibleOpaqueChunks()
	require.NotEmpty(t, opaque)
	for _, chunk := range opaque {
		d := chunk.Center().Sub(pos)
		assert.LessOrEqual(t, d.Dot(d), float32(400), "чанк %s дальше предела прорисовки", chunk.Key())
	}
	for i := 1; i < len(opaque); i++ {
		prev := opaque[i-1].Center().Sub(pos)
		cur := opaque[i].Center().Sub(pos)
		assert.LessOrEqual(t, prev.Dot(prev), cur.Dot(cur), "непрозрачные чанки идут от ближнего к дальнему")
	}
}

func TestSetRenderDistance(t *testing.T) {
	cfg := testManagerConfig()
	cfg.RenderRadius = 1
	cfg.UnloadRadius = 3
	env := newTestManager(t, cfg, withChunkBuilder(singleVoxelBuilder(block.Stone)))
	cm := env.cm
	pos := chunkCenter(vec.Vec3{})

	pumpUntil(t, cm, pos, settled(cm, 3*3*3))

	cm.SetRenderDistance(2)
	assert.Equal(t, 2, cm.RenderDistance())
	assert.Equal(t, 4, cm.Config().UnloadRadius, "запас выгрузки сохраняется")

	pumpUntil(t, cm, pos, settled(cm, 5*5*3))
	assert.Equal(t, "Loaded: 75, Pending: 0, Render Distance: 2", cm.LoadingStats())
}

func TestCullingStatsFormat(t *testing.T) {
	env := newTestManager(t, testManagerConfig(), withChunkBuilder(singleVoxelBuilder(block.Stone)))
	assert.Equal(t, "Chunks - Total: 0, Rendered: 0, Culled: 0 (0.0%)", env.cm.CullingStats())

	s := Stats{Total: 8, Rendered: 6, Culled: 2}
	assert.InDelta(t, 25.0, s.CulledPercent(), 1e-9)
}

func TestCleanupReleasesEverything(t *testing.T) {
	env := newTestManager(t, testManagerConfig(), withChunkBuilder(singleVoxelBuilder(block.Glass)))
	cm := env.cm
	pos := chunkCenter(vec.Vec3{})

	pumpUntil(t, cm, pos, settled(cm, len(cm.desiredKeys(vec.Vec3{}))))
	require.Positive(t, env.uploader.LiveCount())

	cm.Cleanup()

	assert.Zero(t, env.uploader.LiveCount(), "все буферы освобождены")
	assert.Zero(t, cm.LoadedCount())
	assert.Zero(t, cm.PendingCount())
	assert.Empty(t, cm.VisibleTransparentChunks())

	cm.UpdateChunks(context.Background(), pos.Add(mgl32.Vec3{100, 0, 0}))
	assert.Zero(t, cm.LoadedCount(), "после Cleanup менеджер не загружает чанки")
}

func TestChunkCoordOf(t *testing.T) {
	assert.Equal(t, vec.Vec3{X: -1, Y: 0, Z: 0}, ChunkCoordOf(mgl32.Vec3{-0.5, 0, 15.9}))
	assert.Equal(t, vec.Vec3{X: 1, Y: -2, Z: 3}, ChunkCoordOf(mgl32.Vec3{16, -17, 63}))
}

func TestManagerConfigFromSettings(t *testing.T) {
	def := DefaultManagerConfig()
	assert.NoError(t, def.Validate())
	assert.Equal(t, def.RenderRadius+2, def.UnloadRadius)

	settings := config.Default()
	settings.Streaming.RenderRadius = 6
	settings.Streaming.UnloadMargin = 3
	settings.World.Seed = 77

	cfg := ManagerConfigFrom(settings).withDefaults()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 9, cfg.UnloadRadius)
	assert.Equal(t, settings.Streaming.VerticalRadius+3, cfg.VerticalUnloadRadius)
	assert.Equal(t, int64(77), cfg.Seed)
	assert.Positive(t, cfg.Workers, "0 воркеров означает число CPU")
	assert.Equal(t, float32(256), cfg.MaxRenderDistance)
}

func TestDefaultHysteresis(t *testing.T) {
	env := newTestManager(t, DefaultManagerConfig())
	viewer := vec.Vec3{X: 0, Y: 1, Z: 0}

	assert.False(t, env.cm.beyondUnload(vec.Vec3{X: 9, Y: 1}, viewer), "радиус 8, выгрузка 10: расстояние 9 остаётся")
	assert.False(t, env.cm.beyondUnload(vec.Vec3{X: -10, Y: 1, Z: 10}, viewer))
	assert.True(t, env.cm.beyondUnload(vec.Vec3{X: 11, Y: 1}, viewer))
	assert.True(t, env.cm.beyondUnload(vec.Vec3{Y: 8}, viewer), "вертикальная выгрузка 6")

	_, desired := env.cm.desiredKeys(viewer)[NewChunkKey(vec.Vec3{X: 9, Y: 1})]
	assert.False(t, desired, "расстояние 9 вне радиуса прорисовки")
}
