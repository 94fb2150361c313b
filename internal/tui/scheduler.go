package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// highlightTickMsg fires a task queued on the tick scheduler.
type highlightTickMsg struct {
	id uint64
}

// tickScheduler runs console tasks on the bubbletea update goroutine.
// Schedule queues a tick command; the app drains the queue after every
// session call and fires the task when the tick message arrives.
type tickScheduler struct {
	mu     sync.Mutex
	nextID uint64
	tasks  map[uint64]func()
	queued []tea.Cmd
}

func newTickScheduler() *tickScheduler {
	return &tickScheduler{tasks: make(map[uint64]func())}
}

func (s *tickScheduler) Schedule(delay time.Duration, task func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.tasks[id] = task
	s.queued = append(s.queued, tea.Tick(delay, func(time.Time) tea.Msg {
		return highlightTickMsg{id: id}
	}))
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.tasks, id)
	}
}

// Drain returns the tick commands queued since the last call.
func (s *tickScheduler) Drain() tea.Cmd {
	s.mu.Lock()
	queued := s.queued
	s.queued = nil
	s.mu.Unlock()

	switch len(queued) {
	case 0:
		return nil
	case 1:
		return queued[0]
	default:
		return tea.Batch(queued...)
	}
}

// Fire runs the task for id unless it was cancelled. It reports whether a
// task ran.
func (s *tickScheduler) Fire(id uint64) bool {
	s.mu.Lock()
	task, ok := s.tasks[id]
	delete(s.tasks, id)
	s.mu.Unlock()

	if !ok {
		return false
	}
	task()
	return true
}

// Pending reports how many tasks are waiting to fire.
func (s *tickScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
