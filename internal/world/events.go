package world

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/voxel-stream/internal/eventbus"
	"github.com/annel0/voxel-stream/internal/vec"
)

// Типы событий жизненного цикла чанков
const (
	EventChunkLoaded           = "chunk.loaded"
	EventChunkEvicted          = "chunk.evicted"
	EventChunkGenerationFailed = "chunk.generation_failed"

	eventSource = "chunk_manager"
)

// ChunkEvent - полезная нагрузка событий менеджера чанков
type ChunkEvent struct {
	Coord  vec.Vec3 `json:"coord"`
	TaskID string   `json:"task_id,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// WithEventBus подключает шину событий. Публикация не блокирует главный поток:
// события имеют низкий приоритет и отбрасываются при переполнении буфера.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(cm *ChunkManager) { cm.events = bus }
}

// DecodeChunkEvent разбирает полезную нагрузку события
func DecodeChunkEvent(ev *eventbus.Envelope) (ChunkEvent, error) {
	var ce ChunkEvent
	err := json.Unmarshal(ev.Payload, &ce)
	return ce, err
}

func (cm *ChunkManager) emit(eventType string, ce ChunkEvent) {
	if cm.events == nil {
		return
	}

	payload, err := json.Marshal(ce)
	if err != nil {
		cm.logger.Warn("⚠️ Не удалось сериализовать событие %s: %v", eventType, err)
		return
	}

	ev := &eventbus.Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		EventType: eventType,
		Payload:   payload,
	}
	if err := cm.events.Publish(context.Background(), ev); err != nil {
		cm.logger.Debug("Событие %s не опубликовано: %v", eventType, err)
	}
}
