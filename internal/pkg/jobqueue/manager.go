package jobqueue

import (
	"context"
	"strconv"
	"sync"

	"github.com/gofiber/fiber/v2/log"

	"github.com/forgestack/forgestack/internal/pkg/env"
)

// Manager manages the global job queue
type Manager struct {
	queue   *Queue
	mu      sync.Mutex
	running bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workerCount := 5
		if raw := env.GetEnv("JOB_QUEUE_WORKERS", ""); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				workerCount = n
			}
		}

		globalManager = &Manager{
			queue: NewQueue(workerCount),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue workers
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue")
	m.queue.Start()
}

// Stop stops the job queue workers
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.running = false
	log.Info("[JobQueue Manager] Stopping job queue")
	m.queue.Stop()
}

// Enqueuer adapts the queue to the fire-and-forget enqueue contract the
// webhook service depends on.
type Enqueuer struct {
	queue   *Queue
	jobType JobType
}

// NewEnqueuer returns an enqueuer that submits jobs of the given type.
func NewEnqueuer(queue *Queue, jobType JobType) *Enqueuer {
	return &Enqueuer{queue: queue, jobType: jobType}
}

func (e *Enqueuer) Enqueue(ctx context.Context, payload map[string]interface{}) (string, error) {
	job, err := e.queue.EnqueueJob(ctx, e.jobType, payload)
	if err != nil {
		return "", err
	}
	return job.ID, nil
}
