package usecase

import (
	"context"
	"time"

	"idealista-parser-service/internal/constants"
	"idealista-parser-service/internal/contextkeys"
	"idealista-parser-service/internal/core/domain"
	"idealista-parser-service/internal/core/port"
)

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FetchAllPagesUseCase последовательно выгружает все страницы выдачи
// с обязательной паузой между запросами
type FetchAllPagesUseCase struct {
	client    port.SearchClientPort
	publisher port.PagePublisherPort // может быть nil
	delay     time.Duration

	sleep sleepFunc
	now   func() time.Time
}

// NewFetchAllPagesUseCase - конструктор. delay <= 0 означает паузу по умолчанию.
func NewFetchAllPagesUseCase(client port.SearchClientPort, publisher port.PagePublisherPort, delay time.Duration) *FetchAllPagesUseCase {
	if delay <= 0 {
		delay = constants.DefaultPageDelay
	}
	return &FetchAllPagesUseCase{
		client:    client,
		publisher: publisher,
		delay:     delay,
		sleep:     sleepContext,
		now:       time.Now,
	}
}

func (uc *FetchAllPagesUseCase) Delay() time.Duration {
	return uc.delay
}

// Execute выполняет выгрузку в текущей горутине.
// Отмена через run.Cancel() - не ошибка: run получает статус cancelled и уже полученные страницы.
// Ошибка запроса страницы возвращается как *PageFetchError, страницы до нее остаются в run.
func (uc *FetchAllPagesUseCase) Execute(ctx context.Context, run *PaginationRun, onProgress func(domain.PageProgress)) error {
	if !run.begin(uc.now()) {
		return ErrRunAlreadyStarted
	}
	if onProgress == nil {
		onProgress = func(domain.PageProgress) {}
	}

	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "FetchAllPages",
		"run_id":   run.ID.String(),
		"country":  string(run.base.Country),
	})

	// первая страница всегда запрашивается, total_pages берется только из нее
	first, err := uc.fetchPage(ctx, run, 1)
	if err != nil {
		ucLogger.Error("Failed to fetch the first page", err, nil)
		run.finish(RunStatusFailed, err, uc.now())
		return err
	}
	totalPages := first.TotalPages
	count := run.appendPage(first, totalPages)
	uc.publish(ctx, ucLogger, run, first)
	onProgress(domain.PageProgress{Page: 1, TotalPages: totalPages, PropertiesCount: count})

	ucLogger.Info("First page fetched", port.Fields{
		"total":       first.Total,
		"total_pages": totalPages,
	})

	for page := 2; page <= totalPages; page++ {
		if run.CancelRequested() {
			ucLogger.Info("Run cancelled", port.Fields{"pages_fetched": page - 1, "total_pages": totalPages})
			run.finish(RunStatusCancelled, nil, uc.now())
			return nil
		}

		if err := uc.sleep(ctx, uc.delay); err != nil {
			ucLogger.Warn("Run interrupted during delay", port.Fields{"page": page, "error": err.Error()})
			run.finish(RunStatusFailed, err, uc.now())
			return err
		}

		resp, err := uc.fetchPage(ctx, run, page)
		if err != nil {
			ucLogger.Error("Failed to fetch page, aborting run", err, port.Fields{"page": page})
			run.finish(RunStatusFailed, err, uc.now())
			return err
		}

		count = run.appendPage(resp, totalPages)
		uc.publish(ctx, ucLogger, run, resp)
		onProgress(domain.PageProgress{Page: page, TotalPages: totalPages, PropertiesCount: count})
	}

	ucLogger.Info("Run completed", port.Fields{"pages_fetched": len(run.Responses()), "properties": count})
	run.finish(RunStatusCompleted, nil, uc.now())
	return nil
}

func (uc *FetchAllPagesUseCase) fetchPage(ctx context.Context, run *PaginationRun, page int) (*domain.SearchResponse, error) {
	resp, err := uc.client.Query(ctx, run.base.WithPage(page))
	if err != nil {
		return nil, &PageFetchError{Page: page, Err: err}
	}
	return resp, nil
}

// publish - ошибка публикации не прерывает выгрузку
func (uc *FetchAllPagesUseCase) publish(ctx context.Context, logger port.LoggerPort, run *PaginationRun, resp *domain.SearchResponse) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.PublishPage(ctx, run.ID, run.Base(), resp); err != nil {
		logger.Error("Failed to publish page, continuing", err, port.Fields{"page": resp.ActualPage})
	}
}

// Start запускает выгрузку в отдельной горутине
func (uc *FetchAllPagesUseCase) Start(ctx context.Context, base domain.SearchRequest, onProgress func(domain.PageProgress)) *RunHandle {
	run := NewPaginationRun(base)
	h := &RunHandle{run: run, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		h.err = uc.Execute(ctx, run, onProgress)
	}()
	return h
}

// RunHandle - выгрузка, запущенная через Start
type RunHandle struct {
	run  *PaginationRun
	done chan struct{}
	err  error
}

func (h *RunHandle) Run() *PaginationRun { return h.run }

func (h *RunHandle) Cancel() { h.run.Cancel() }

// Done закрывается, когда выгрузка завершилась (любым способом)
func (h *RunHandle) Done() <-chan struct{} { return h.done }

// Wait блокируется до завершения и возвращает run вместе с ошибкой
func (h *RunHandle) Wait() (*PaginationRun, error) {
	<-h.done
	return h.run, h.err
}
