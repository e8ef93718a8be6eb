package usecase

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultRunRetention    = time.Hour
	DefaultMaxFinishedRuns = 100
)

// RunRegistry хранит выгрузки в памяти процесса.
// Завершенные выгрузки удаляются через retention после окончания
// и сверх maxFinished (сначала самые старые).
type RunRegistry struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]*RunHandle

	retention   time.Duration
	maxFinished int
	now         func() time.Time
}

type RegistryOption func(*RunRegistry)

// WithRunRetention - сколько хранить завершенную выгрузку; <= 0 - значение по умолчанию
func WithRunRetention(d time.Duration) RegistryOption {
	return func(r *RunRegistry) {
		if d > 0 {
			r.retention = d
		}
	}
}

// WithMaxFinishedRuns - сколько завершенных выгрузок держать одновременно; <= 0 - значение по умолчанию
func WithMaxFinishedRuns(n int) RegistryOption {
	return func(r *RunRegistry) {
		if n > 0 {
			r.maxFinished = n
		}
	}
}

func NewRunRegistry(opts ...RegistryOption) *RunRegistry {
	r := &RunRegistry{
		runs:        make(map[uuid.UUID]*RunHandle),
		retention:   DefaultRunRetention,
		maxFinished: DefaultMaxFinishedRuns,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RunRegistry) Add(h *RunHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()
	r.runs[h.Run().ID] = h
}

func (r *RunRegistry) Get(id uuid.UUID) (*RunHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()
	h, ok := r.runs[id]
	return h, ok
}

// Remove удаляет выгрузку, только если она завершена
func (r *RunRegistry) Remove(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.runs[id]
	if !ok || !isDone(h) {
		return false
	}
	delete(r.runs, id)
	return true
}

// List - выгрузки в порядке запуска
func (r *RunRegistry) List() []*RunHandle {
	r.mu.Lock()
	r.pruneLocked()
	handles := make([]*RunHandle, 0, len(r.runs))
	for _, h := range r.runs {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	sort.Slice(handles, func(i, j int) bool {
		return handles[i].Run().Snapshot().StartedAt.Before(handles[j].Run().Snapshot().StartedAt)
	})
	return handles
}

// Prune удаляет устаревшие завершенные выгрузки и возвращает их число
func (r *RunRegistry) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pruneLocked()
}

func (r *RunRegistry) pruneLocked() int {
	type finishedRun struct {
		id         uuid.UUID
		finishedAt time.Time
	}

	now := r.now()
	removed := 0
	var finished []finishedRun
	for id, h := range r.runs {
		if !isDone(h) {
			continue
		}
		finishedAt := h.Run().Snapshot().FinishedAt
		if now.Sub(finishedAt) > r.retention {
			delete(r.runs, id)
			removed++
			continue
		}
		finished = append(finished, finishedRun{id: id, finishedAt: finishedAt})
	}

	if extra := len(finished) - r.maxFinished; extra > 0 {
		sort.Slice(finished, func(i, j int) bool { return finished[i].finishedAt.Before(finished[j].finishedAt) })
		for _, f := range finished[:extra] {
			delete(r.runs, f.id)
			removed++
		}
	}
	return removed
}

// Len - число выгрузок в реестре, включая завершенные
func (r *RunRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}

// CancelAll выставляет флаг отмены всем незавершенным выгрузкам
func (r *RunRegistry) CancelAll() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, h := range r.runs {
		if !isDone(h) {
			h.Cancel()
			n++
		}
	}
	return n
}

func isDone(h *RunHandle) bool {
	select {
	case <-h.Done():
		return true
	default:
		return false
	}
}
