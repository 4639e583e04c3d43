package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации стримера.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Streaming StreamingConfig `yaml:"streaming"`
	Logging   LoggingConfig   `yaml:"logging"`
	Debug     DebugConfig     `yaml:"debug"`
}

// WorldConfig описывает мир: сид и вертикальные границы в координатах чанков
type WorldConfig struct {
	Seed        int64 `yaml:"seed"`
	MinChunkY   int   `yaml:"min_chunk_y"`
	MaxChunkY   int   `yaml:"max_chunk_y"`
	WorldHeight int   `yaml:"world_height"`
}

// StreamingConfig описывает радиусы загрузки и пул генерации
type StreamingConfig struct {
	RenderRadius      int `yaml:"render_radius"`
	VerticalRadius    int `yaml:"vertical_radius"`
	UnloadMargin      int `yaml:"unload_margin"`
	Workers           int `yaml:"workers"` // 0 - по числу CPU
	QueueSize         int `yaml:"queue_size"`
	InitialLoadRadius int `yaml:"initial_load_radius"`
	MaxRenderDistance int `yaml:"max_render_distance"` // в блоках
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"` // пусто - только консоль
}

type DebugConfig struct {
	HTTPAddr     string  `yaml:"http_addr"` // пусто - HTTP не поднимается
	OTel         bool    `yaml:"otel"`
	OTelEndpoint string  `yaml:"otel_endpoint"`
	OTelInsecure bool    `yaml:"otel_insecure"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

// ErrInvalid возвращается Validate
var ErrInvalid = errors.New("invalid config")

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		World: WorldConfig{
			Seed:        12345,
			MinChunkY:   0,
			MaxChunkY:   3,
			WorldHeight: 64,
		},
		Streaming: StreamingConfig{
			RenderRadius:      8,
			VerticalRadius:    4,
			UnloadMargin:      2,
			Workers:           0,
			QueueSize:         1024,
			InitialLoadRadius: 3,
			MaxRenderDistance: 16 * 16,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV VOXEL_CONFIG, иначе возвращает Default().
// После чтения применяются переопределения из окружения.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("VOXEL_CONFIG")
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv переопределяет числовые настройки переменными окружения
func (c *Config) applyEnv() {
	c.Streaming.RenderRadius = intFromEnv("VOXEL_RENDER_RADIUS", c.Streaming.RenderRadius)
	c.Streaming.VerticalRadius = intFromEnv("VOXEL_VERTICAL_RADIUS", c.Streaming.VerticalRadius)
	c.Streaming.Workers = intFromEnv("VOXEL_WORKERS", c.Streaming.Workers)

	if envVal := os.Getenv("VOXEL_SEED"); envVal != "" {
		if seed, err := strconv.ParseInt(envVal, 10, 64); err == nil {
			c.World.Seed = seed
		}
	}
	if envVal := os.Getenv("VOXEL_DEBUG_ADDR"); envVal != "" {
		c.Debug.HTTPAddr = envVal
	}
}

// intFromEnv возвращает значение переменной окружения, если оно корректно, иначе current
func intFromEnv(envVar string, current int) int {
	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil {
			return v
		}
	}
	return current
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	s := c.Streaming
	switch {
	case s.RenderRadius <= 0:
		return fmt.Errorf("%w: render_radius must be positive, got %d", ErrInvalid, s.RenderRadius)
	case s.VerticalRadius < 0:
		return fmt.Errorf("%w: vertical_radius must not be negative, got %d", ErrInvalid, s.VerticalRadius)
	case s.UnloadMargin < 1:
		return fmt.Errorf("%w: unload_margin must be at least 1, got %d", ErrInvalid, s.UnloadMargin)
	case s.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalid, s.Workers)
	case s.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalid, s.QueueSize)
	case s.InitialLoadRadius < 0:
		return fmt.Errorf("%w: initial_load_radius must not be negative, got %d", ErrInvalid, s.InitialLoadRadius)
	case s.MaxRenderDistance <= 0:
		return fmt.Errorf("%w: max_render_distance must be positive, got %d", ErrInvalid, s.MaxRenderDistance)
	}

	if r := c.Debug.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("%w: sample_ratio must be within [0, 1], got %g", ErrInvalid, r)
	}

	w := c.World
	if w.MinChunkY > w.MaxChunkY {
		return fmt.Errorf("%w: min_chunk_y %d is above max_chunk_y %d", ErrInvalid, w.MinChunkY, w.MaxChunkY)
	}
	if w.WorldHeight <= 0 {
		return fmt.Errorf("%w: world_height must be positive, got %d", ErrInvalid, w.WorldHeight)
	}
	return nil
}
