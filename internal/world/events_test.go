package world

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-stream/internal/eventbus"
	"github.com/annel0/voxel-stream/internal/vec"
	"github.com/annel0/voxel-stream/internal/world/block"
)

func TestManagerPublishesLifecycleEvents(t *testing.T) {
	bus := eventbus.NewMemoryBus(8192)

	var mu sync.Mutex
	counts := map[string]int{}
	var evicted []vec.Vec3
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{Sources: []string{eventSource}}, func(ctx context.Context, ev *eventbus.Envelope) {
		ce, err := DecodeChunkEvent(ev)
		if err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		counts[ev.EventType]++
		if ev.EventType == EventChunkEvicted {
			evicted = append(evicted, ce.Coord)
		}
	})
	require.NoError(t, err)

	env := newTestManager(t, testManagerConfig(),
		withChunkBuilder(singleVoxelBuilder(block.Stone)),
		WithEventBus(bus),
	)
	cm := env.cm

	pumpUntil(t, cm, chunkCenter(vec.Vec3{}), settled(cm, len(cm.desiredKeys(vec.Vec3{}))))
	cm.UpdateChunks(context.Background(), chunkCenter(vec.Vec3{X: 3}))
	bus.Close()

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, int(testutil.ToFloat64(env.metrics.Generated)), counts[EventChunkLoaded], "каждая загрузка публикуется")
	assert.Equal(t, int(testutil.ToFloat64(env.metrics.Evicted)), counts[EventChunkEvicted])
	assert.Contains(t, evicted, vec.Vec3{X: -2}, "выгрузка дальнего чанка публикуется")
	assert.Zero(t, counts[EventChunkGenerationFailed])
}
