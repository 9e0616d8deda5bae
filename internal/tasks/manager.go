package tasks

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const MaxLogsPerTask = 1000

// Manager owns the background tasks of the process, most importantly the
// periodic sweep. It is also the lifecycle owner of their goroutines:
// Stop halts all tickers on shutdown.
type Manager struct {
	mu    sync.Mutex
	tasks map[string]*RunnableTask
	stops []chan struct{}
}

func NewManager() *Manager {
	return &Manager{
		tasks: make(map[string]*RunnableTask),
	}
}

// Register adds a task. A positive interval schedules it on a ticker and
// runs it once immediately, because a durable store may already hold
// expired backlog from before this process started. An interval of zero
// leaves the task manual-trigger only; for the sweep that means the store
// grows without bound, so the opt-out is logged loudly.
func (m *Manager) Register(name string, interval time.Duration, fn TaskFunc) {
	task := &RunnableTask{
		Name:         name,
		Interval:     interval,
		Handler:      fn,
		registeredAt: time.Now(),
		Logs:         make([]LogEntry, 0),
	}

	m.mu.Lock()
	m.tasks[name] = task
	m.mu.Unlock()

	if interval <= 0 {
		log.Warn().Str("task", name).
			Msg("task registered without interval: it will never run unless triggered manually")
		return
	}

	stop := make(chan struct{})
	m.mu.Lock()
	m.stops = append(m.stops, stop)
	m.mu.Unlock()

	go m.schedule(task, stop)
}

// Trigger runs a task once, out of schedule.
func (m *Manager) Trigger(name string) error {
	m.mu.Lock()
	task, ok := m.tasks[name]
	m.mu.Unlock()
	if !ok {
		return TaskNotFoundError{Name: name}
	}
	go task.Run()
	return nil
}

// TriggerWait runs a task and blocks until it finished. For callers that
// need the outcome reflected in the task status synchronously.
func (m *Manager) TriggerWait(name string) error {
	m.mu.Lock()
	task, ok := m.tasks[name]
	m.mu.Unlock()
	if !ok {
		return TaskNotFoundError{Name: name}
	}
	task.Run()
	return nil
}

func (m *Manager) ListStatus() []TaskStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := make([]TaskStatus, 0, len(m.tasks))
	for _, task := range m.tasks {
		list = append(list, task.Status())
	}
	return list
}

func (m *Manager) GetLogs(name string) ([]LogEntry, error) {
	m.mu.Lock()
	task, ok := m.tasks[name]
	m.mu.Unlock()
	if !ok {
		return nil, TaskNotFoundError{Name: name}
	}
	return task.GetLogs(), nil
}

// Stop halts all schedules. Already-running task executions finish on
// their own.
func (m *Manager) Stop() {
	m.mu.Lock()
	stops := m.stops
	m.stops = nil
	m.mu.Unlock()

	for _, stop := range stops {
		close(stop)
	}
}

func (m *Manager) schedule(task *RunnableTask, stop <-chan struct{}) {
	// immediate first run before the first tick
	task.Run()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			task.Run()
		case <-stop:
			return
		}
	}
}
