package usecase

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"idealista-parser-service/internal/core/domain"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusFailed    RunStatus = "failed"
)

var ErrRunAlreadyStarted = errors.New("pagination run has already been started")

// PageFetchError - ошибка запроса конкретной страницы.
// Страницы, полученные до нее, остаются в PaginationRun.
type PageFetchError struct {
	Page int
	Err  error
}

func (e *PageFetchError) Error() string {
	return fmt.Sprintf("failed to fetch page %d: %v", e.Page, e.Err)
}

func (e *PageFetchError) Unwrap() error { return e.Err }

// PaginationRun - состояние одной многостраничной выгрузки.
// Пишет только горутина, которая выполняет выгрузку; остальные читают через Snapshot.
type PaginationRun struct {
	ID uuid.UUID

	base      domain.SearchRequest
	cancelled atomic.Bool

	mu              sync.RWMutex
	status          RunStatus
	responses       []*domain.SearchResponse
	propertiesCount int
	totalPages      int
	err             error
	startedAt       time.Time
	finishedAt      time.Time
}

func NewPaginationRun(base domain.SearchRequest) *PaginationRun {
	return &PaginationRun{
		ID:     uuid.New(),
		base:   base.Normalized(),
		status: RunStatusPending,
	}
}

// Base - копия базового запроса
func (r *PaginationRun) Base() domain.SearchRequest {
	return r.base.WithPage(r.base.NumPage)
}

// Cancel выставляет флаг отмены. Проверяется перед каждой следующей страницей,
// текущий запрос не прерывается.
func (r *PaginationRun) Cancel() {
	r.cancelled.Store(true)
}

func (r *PaginationRun) CancelRequested() bool {
	return r.cancelled.Load()
}

func (r *PaginationRun) begin(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != RunStatusPending {
		return false
	}
	r.status = RunStatusRunning
	r.startedAt = now
	return true
}

func (r *PaginationRun) appendPage(resp *domain.SearchResponse, totalPages int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, resp)
	r.propertiesCount += len(resp.ElementList)
	r.totalPages = totalPages
	return r.propertiesCount
}

func (r *PaginationRun) finish(status RunStatus, err error, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
	r.err = err
	r.finishedAt = now
}

func (r *PaginationRun) Status() RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

func (r *PaginationRun) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Responses - страницы в порядке получения (копия среза)
func (r *PaginationRun) Responses() []*domain.SearchResponse {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.SearchResponse, len(r.responses))
	copy(out, r.responses)
	return out
}

// Properties - все объекты всех страниц подряд, без дедупликации
func (r *PaginationRun) Properties() []domain.Property {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Property, 0, r.propertiesCount)
	for _, resp := range r.responses {
		out = append(out, resp.ElementList...)
	}
	return out
}

// RunSnapshot - согласованный срез состояния выгрузки для чтения из других горутин
type RunSnapshot struct {
	ID              uuid.UUID
	Country         domain.Country
	Status          RunStatus
	PagesFetched    int
	TotalPages      int
	Total           int
	ItemsPerPage    int
	PropertiesCount int
	CancelRequested bool
	Err             error
	StartedAt       time.Time
	FinishedAt      time.Time
}

func (r *PaginationRun) Snapshot() RunSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := RunSnapshot{
		ID:              r.ID,
		Country:         r.base.Country,
		Status:          r.status,
		PagesFetched:    len(r.responses),
		TotalPages:      r.totalPages,
		PropertiesCount: r.propertiesCount,
		CancelRequested: r.cancelled.Load(),
		Err:             r.err,
		StartedAt:       r.startedAt,
		FinishedAt:      r.finishedAt,
	}
	if len(r.responses) > 0 {
		s.Total = r.responses[0].Total
		s.ItemsPerPage = r.responses[0].ItemsPerPage
	}
	return s
}
