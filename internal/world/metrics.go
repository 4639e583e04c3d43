package world

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "voxel"
	metricsSubsystem = "chunks"
)

// Metrics - Prometheus-метрики стриминга чанков.
// Gauge обновляются в конце каждого UpdateChunks/CullChunks, счётчики - по событиям.
type Metrics struct {
	Loaded   prometheus.Gauge
	Pending  prometheus.Gauge
	Rendered prometheus.Gauge
	Culled   prometheus.Gauge

	Generated          prometheus.Counter
	GenerationFailures prometheus.Counter
	Evicted            prometheus.Counter
	Cancelled          prometheus.Counter
	Remeshed           prometheus.Counter
	MeshFailures       prometheus.Counter
	Deferred           prometheus.Counter

	MeshBuildSeconds prometheus.Histogram
}

// NewMetrics создаёт набор метрик и регистрирует его в reg.
// При reg == nil метрики не регистрируются: так несколько менеджеров
// (например, в тестах) не конфликтуют в глобальном регистре.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      name,
			Help:      help,
		})
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      name,
			Help:      help,
		})
	}

	m := &Metrics{
		Loaded:   gauge("loaded", "Число загруженных чанков."),
		Pending:  gauge("pending", "Число чанков в очереди генерации."),
		Rendered: gauge("rendered", "Чанков, прошедших отсечение в последнем кадре."),
		Culled:   gauge("culled", "Чанков, отброшенных отсечением в последнем кадре."),

		Generated:          counter("generated_total", "Успешно сгенерированных чанков."),
		GenerationFailures: counter("generation_failures_total", "Задач генерации, завершившихся ошибкой."),
		Evicted:            counter("evicted_total", "Выгруженных чанков."),
		Cancelled:          counter("cancelled_total", "Отменённых задач генерации."),
		Remeshed:           counter("remeshed_total", "Построенных мешей."),
		MeshFailures:       counter("mesh_failures_total", "Ошибок загрузки мешей."),
		Deferred:           counter("submissions_deferred_total", "Отложенных постановок из-за заполненной очереди."),

		MeshBuildSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "mesh_build_seconds",
			Help:      "Время построения и загрузки меша одного чанка.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Loaded, m.Pending, m.Rendered, m.Culled,
			m.Generated, m.GenerationFailures, m.Evicted, m.Cancelled,
			m.Remeshed, m.MeshFailures, m.Deferred,
			m.MeshBuildSeconds,
		)
	}
	return m
}
