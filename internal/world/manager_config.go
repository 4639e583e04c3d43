package world

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/annel0/voxel-stream/internal/config"
)

// ErrInvalidConfig возвращается NewChunkManager при некорректных параметрах
var ErrInvalidConfig = errors.New("invalid chunk manager config")

// ManagerConfig - параметры менеджера чанков. Радиусы заданы в чанках,
// MaxRenderDistance - в блоках.
type ManagerConfig struct {
	RenderRadius         int
	VerticalRadius       int
	UnloadRadius         int
	VerticalUnloadRadius int
	MinChunkY            int
	MaxChunkY            int

	Workers           int // 0 - по числу CPU
	QueueSize         int
	InitialLoadRadius int
	MaxRenderDistance float32

	Seed        int64
	WorldHeight int
}

// DefaultManagerConfig возвращает значения по умолчанию:
// радиус 8/4, гистерезис выгрузки +2, мир в 4 чанка высотой
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		RenderRadius:         8,
		VerticalRadius:       4,
		UnloadRadius:         10,
		VerticalUnloadRadius: 6,
		MinChunkY:            0,
		MaxChunkY:            3,
		Workers:              runtime.NumCPU(),
		QueueSize:            1024,
		InitialLoadRadius:    3,
		MaxRenderDistance:    16 * 16,
		Seed:                 12345,
		WorldHeight:          DefaultWorldHeight,
	}
}

// ManagerConfigFrom переносит настройки приложения в параметры менеджера
func ManagerConfigFrom(cfg *config.Config) ManagerConfig {
	s := cfg.Streaming
	return ManagerConfig{
		RenderRadius:         s.RenderRadius,
		VerticalRadius:       s.VerticalRadius,
		UnloadRadius:         s.RenderRadius + s.UnloadMargin,
		VerticalUnloadRadius: s.VerticalRadius + s.UnloadMargin,
		MinChunkY:            cfg.World.MinChunkY,
		MaxChunkY:            cfg.World.MaxChunkY,
		Workers:              s.Workers,
		QueueSize:            s.QueueSize,
		InitialLoadRadius:    s.InitialLoadRadius,
		MaxRenderDistance:    float32(s.MaxRenderDistance),
		Seed:                 cfg.World.Seed,
		WorldHeight:          cfg.World.WorldHeight,
	}
}

// withDefaults подставляет число воркеров по числу CPU
func (c ManagerConfig) withDefaults() ManagerConfig {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.WorldHeight <= 0 {
		c.WorldHeight = DefaultWorldHeight
	}
	return c
}

// Validate проверяет согласованность радиусов и границ
func (c ManagerConfig) Validate() error {
	switch {
	case c.RenderRadius < 0 || c.VerticalRadius < 0:
		return fmt.Errorf("%w: negative render radius", ErrInvalidConfig)
	case c.UnloadRadius <= c.RenderRadius:
		return fmt.Errorf("%w: unload radius %d must exceed render radius %d", ErrInvalidConfig, c.UnloadRadius, c.RenderRadius)
	case c.VerticalUnloadRadius <= c.VerticalRadius:
		return fmt.Errorf("%w: vertical unload radius %d must exceed vertical radius %d", ErrInvalidConfig, c.VerticalUnloadRadius, c.VerticalRadius)
	case c.MinChunkY > c.MaxChunkY:
		return fmt.Errorf("%w: min chunk y %d > max chunk y %d", ErrInvalidConfig, c.MinChunkY, c.MaxChunkY)
	case c.MinChunkY < MinChunkCoord || c.MaxChunkY > MaxChunkCoord:
		return fmt.Errorf("%w: vertical bounds outside key range", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue size must be positive", ErrInvalidConfig)
	case c.InitialLoadRadius < 0:
		return fmt.Errorf("%w: negative initial load radius", ErrInvalidConfig)
	case c.MaxRenderDistance <= 0:
		return fmt.Errorf("%w: max render distance must be positive", ErrInvalidConfig)
	}
	return nil
}
