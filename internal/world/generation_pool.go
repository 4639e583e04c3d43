package world

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/annel0/voxel-stream/internal/vec"
)

// chunkBuilder строит чанк в фоновом потоке
type chunkBuilder func(coord vec.Vec3) *Chunk

// generationTask - одна задача генерации чанка.
// chunk и err записываются воркером до закрытия done и читаются только после.
type generationTask struct {
	id     uuid.UUID
	coord  vec.Vec3
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	chunk *Chunk
	err   error
}

// finished сообщает без блокировки, завершена ли задача
func (t *generationTask) finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// generationPool - фиксированный пул воркеров с ограниченной очередью.
// Постановка не блокирует: при заполненной очереди задача не принимается.
type generationPool struct {
	build chunkBuilder
	queue chan *generationTask
	wg    sync.WaitGroup
	once  sync.Once
}

func newGenerationPool(workers, queueSize int, build chunkBuilder) *generationPool {
	p := &generationPool{
		build: build,
		queue: make(chan *generationTask, queueSize),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// submit ставит генерацию чанка coord в очередь.
// Возвращает false, если очередь заполнена.
func (p *generationPool) submit(parent context.Context, coord vec.Vec3) (*generationTask, bool) {
	ctx, cancel := context.WithCancel(parent)
	task := &generationTask{
		id:     uuid.New(),
		coord:  coord,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	select {
	case p.queue <- task:
		return task, true
	default:
		cancel()
		return nil, false
	}
}

func (p *generationPool) worker() {
	defer p.wg.Done()

	for task := range p.queue {
		p.run(task)
	}
}

func (p *generationPool) run(task *generationTask) {
	defer close(task.done)

	if err := task.ctx.Err(); err != nil {
		task.err = err
		return
	}
	task.chunk, task.err = safeBuild(p.build, task.coord)
}

// stop закрывает очередь и ждёт завершения воркеров.
// Задачи, отменённые до старта, воркеры пропускают.
func (p *generationPool) stop() {
	p.once.Do(func() {
		close(p.queue)
		p.wg.Wait()
	})
}

// safeBuild превращает панику построителя в ошибку задачи
func safeBuild(build chunkBuilder, coord vec.Vec3) (chunk *Chunk, err error) {
	defer func() {
		if r := recover(); r != nil {
			chunk = nil
			err = fmt.Errorf("generate chunk %v: panic: %v", coord, r)
		}
	}()

	chunk = build(coord)
	if chunk == nil {
		return nil, fmt.Errorf("generate chunk %v: builder returned nil", coord)
	}
	return chunk, nil
}
