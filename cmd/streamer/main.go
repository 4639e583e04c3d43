package main

import (
	"context"
	"flag"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/annel0/voxel-stream/internal/api"
	"github.com/annel0/voxel-stream/internal/config"
	"github.com/annel0/voxel-stream/internal/eventbus"
	"github.com/annel0/voxel-stream/internal/logging"
	"github.com/annel0/voxel-stream/internal/observability"
	"github.com/annel0/voxel-stream/internal/render"
	"github.com/annel0/voxel-stream/internal/world"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config (defaults to $VOXEL_CONFIG)")
		ticks      = flag.Int("ticks", 0, "Number of frames to run, 0 runs until a signal")
		speed      = flag.Float64("speed", 8, "Viewer speed in blocks per second")
		fps        = flag.Int("fps", 60, "Frames per second")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	if err := logging.InitDefaultLogger("streamer", cfg.Logging.Dir); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	level := logging.ParseLevel(cfg.Logging.Level)
	logging.GetLoggerManager().Configure(cfg.Logging.Dir, level, logging.DEBUG)
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("🎮 Запуск стримера чанков: сид %d, радиус %d/%d",
		cfg.World.Seed, cfg.Streaming.RenderRadius, cfg.Streaming.VerticalRadius)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.InitTelemetry(ctx, observability.TelemetryConfig{
		Enabled:     cfg.Debug.OTel,
		ServiceName: "voxel-stream",
		Endpoint:    cfg.Debug.OTelEndpoint,
		Insecure:    cfg.Debug.OTelInsecure,
		SampleRatio: cfg.Debug.SampleRatio,
	})
	if err != nil {
		logging.Error("❌ Ошибка инициализации OpenTelemetry: %v", err)
		return
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logging.Warn("⚠️ Ошибка остановки OpenTelemetry: %v", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	bus := eventbus.NewMemoryBus(4096)
	defer bus.Close()
	if _, err := eventbus.StartLoggingListener(bus, logging.GetComponentLogger("events")); err != nil {
		logging.Warn("⚠️ Не удалось подписать логгер событий: %v", err)
	}
	busMetrics := eventbus.NewMetricsExporter(bus, registry, time.Second)
	busMetrics.Start()
	defer busMetrics.Stop()

	uploader := render.NewMemoryUploader(world.VertexStride)
	manager, err := world.NewChunkManager(world.ManagerConfigFrom(cfg), uploader,
		world.WithMetrics(world.NewMetrics(registry)),
		world.WithLogger(logging.GetChunkLogger()),
		world.WithEventBus(bus),
	)
	if err != nil {
		logging.Error("❌ Ошибка создания менеджера чанков: %v", err)
		return
	}
	defer manager.Cleanup()

	var debugServer *api.DebugServer
	if cfg.Debug.HTTPAddr != "" {
		debugServer = api.NewDebugServer(api.Config{
			Addr:     cfg.Debug.HTTPAddr,
			Source:   manager,
			Registry: registry,
			Logger:   logging.GetAPILogger(),
		})
		go func() {
			if err := debugServer.Start(); err != nil {
				logging.Error("❌ Ошибка отладочного HTTP сервера: %v", err)
			}
		}()
	}

	runLoop(ctx, manager, *ticks, *fps, float32(*speed))

	if debugServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := debugServer.Shutdown(shutdownCtx); err != nil {
			logging.Warn("⚠️ Ошибка остановки HTTP: %v", err)
		}
	}

	logging.Info("👋 Стример остановлен: %s", manager.LoadingStats())
}

// runLoop имитирует кадры рендерера: наблюдатель летит по кругу над рельефом,
// каждый кадр вызываются UpdateChunks и CullChunks
func runLoop(ctx context.Context, manager *world.ChunkManager, ticks, fps int, speed float32) {
	if fps <= 0 {
		fps = 60
	}
	frame := time.Second / time.Duration(fps)
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	projection := render.NewPerspective(70, 16.0/9.0, 0.1, 1000)
	const orbitRadius = 200.0
	height := float32(48)
	angularSpeed := float64(speed) / orbitRadius
	dt := frame.Seconds()

	logger := logging.GetStreamerLogger()
	var angle float64
	lastReport := time.Now()
	for tick := 0; ticks == 0 || tick < ticks; tick++ {
		select {
		case <-ctx.Done():
			logger.Info("📡 Получен сигнал завершения")
			return
		case <-ticker.C:
		}

		angle += angularSpeed * dt
		pos := mgl32.Vec3{
			float32(orbitRadius * math.Cos(angle)),
			height,
			float32(orbitRadius * math.Sin(angle)),
		}
		forward := mgl32.Vec3{float32(-math.Sin(angle)), -0.2, float32(math.Cos(angle))}.Normalize()

		manager.UpdateChunks(ctx, pos)
		manager.CullChunks(ctx, render.LookAt(pos, forward, projection))

		if time.Since(lastReport) >= 5*time.Second {
			logger.Info("📊 %s | %s", manager.LoadingStats(), manager.CullingStats())
			lastReport = time.Now()
		}
	}
}
