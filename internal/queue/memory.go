package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryHistory is how many finished tasks Memory remembers, both for State
// and for Dead. Older entries are forgotten first.
const memoryHistory = 1024

// Memory is an in-process queue for development and tests. Tasks do not
// survive a restart.
type Memory struct {
	opts  Options
	tasks chan Task
	done  chan struct{}

	mu       sync.Mutex
	states   map[uuid.UUID]State
	finished []uuid.UUID
	limit    int
	dead     []Task
	closed   bool
}

func NewMemory(opts Options) *Memory {
	return &Memory{
		opts:   opts.withDefaults(),
		tasks:  make(chan Task, 1024),
		done:   make(chan struct{}),
		states: make(map[uuid.UUID]State),
		limit:  memoryHistory,
	}
}

func (m *Memory) Enqueue(ctx context.Context, kind string, payload any) error {
	t, err := NewTask(ctx, kind, payload)
	if err != nil {
		return err
	}
	return m.push(ctx, t)
}

func (m *Memory) push(ctx context.Context, t Task) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.states[t.ID] = StatePending
	m.mu.Unlock()

	select {
	case m.tasks <- t:
		return nil
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Memory) Consume(ctx context.Context, h Handler) error {
	var wg sync.WaitGroup
	for i := 0; i < m.opts.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-m.done:
					return
				case t := <-m.tasks:
					m.handle(ctx, h, t)
				}
			}
		}()
	}
	wg.Wait()
	return nil
}

func (m *Memory) handle(ctx context.Context, h Handler, t Task) {
	m.setState(t.ID, StateInFlight)
	state, _ := m.opts.run(ctx, h, t)
	m.setState(t.ID, state)

	switch state {
	case StateFailedRetryable:
		next, delay := m.opts.retry(t)
		time.AfterFunc(delay, func() {
			_ = m.push(context.Background(), next)
		})
	case StateFailedTerminal:
		m.mu.Lock()
		m.dead = append(m.dead, t)
		if len(m.dead) > m.limit {
			m.dead = m.dead[len(m.dead)-m.limit:]
		}
		m.mu.Unlock()
	}
}

func (m *Memory) setState(id uuid.UUID, s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[id] = s

	if s != StateCompleted && s != StateFailedTerminal {
		return
	}
	m.finished = append(m.finished, id)
	for len(m.finished) > m.limit {
		delete(m.states, m.finished[0])
		m.finished = m.finished[1:]
	}
}

// State reports the last known state of the task with id.
func (m *Memory) State(id uuid.UUID) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[id]
	return s, ok
}

// Dead returns the tasks that exhausted their attempts or failed permanently.
func (m *Memory) Dead() []Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Task(nil), m.dead...)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}
