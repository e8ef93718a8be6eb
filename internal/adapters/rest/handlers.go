package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"idealista-parser-service/internal/adapters/notifier"
	"idealista-parser-service/internal/constants"
	"idealista-parser-service/internal/contextkeys"
	"idealista-parser-service/internal/core/domain"
	"idealista-parser-service/internal/core/port"
	usecases_port "idealista-parser-service/internal/core/port/usecases"
	"idealista-parser-service/internal/core/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type SearchHandlers struct {
	queryPageUC     usecases_port.QueryPagePort
	fetchAllPagesUC usecases_port.FetchAllPagesPort
	registry        *usecase.RunRegistry
	notifier        *notifier.SSENotifier

	// runsCtx живет дольше запроса: выгрузка не должна останавливаться вместе с ним
	runsCtx context.Context
}

func NewSearchHandlers(
	runsCtx context.Context,
	queryPageUC usecases_port.QueryPagePort,
	fetchAllPagesUC usecases_port.FetchAllPagesPort,
	registry *usecase.RunRegistry,
	notifier *notifier.SSENotifier,
) *SearchHandlers {
	return &SearchHandlers{
		queryPageUC:     queryPageUC,
		fetchAllPagesUC: fetchAllPagesUC,
		registry:        registry,
		notifier:        notifier,
		runsCtx:         runsCtx,
	}
}

func decodeSearchRequest(w http.ResponseWriter, r *http.Request) (*SearchRequestDTO, bool) {
	var dto SearchRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		if errors.Is(err, io.EOF) {
			WriteJSONError(w, http.StatusBadRequest, "Request body is empty")
			return nil, false
		}
		WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return nil, false
	}
	return &dto, true
}

// HandleSearch - POST /api/v1/search, одна страница
func (h *SearchHandlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "HandleSearch"})

	dto, ok := decodeSearchRequest(w, r)
	if !ok {
		return
	}
	req, err := dto.toDomain()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp, err := h.queryPageUC.Execute(r.Context(), req)
	if err != nil {
		logger.Warn("Search failed", port.Fields{"error": err.Error()})
		writeDomainError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, resp)
}

// HandleStartRun - POST /api/v1/runs, запускает выгрузку всех страниц в фоне
func (h *SearchHandlers) HandleStartRun(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "HandleStartRun"})

	dto, ok := decodeSearchRequest(w, r)
	if !ok {
		return
	}
	req, err := dto.toDomain()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// ошибки запроса отдаем сразу, а не через статус выгрузки
	if _, supported := constants.SearchEndpoints[req.Country]; !supported {
		writeDomainError(w, &domain.UnsupportedCountryError{Country: req.Country, Accepted: constants.AcceptedCountries()})
		return
	}
	if err := req.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	runCtx := contextkeys.ContextWithLogger(h.runsCtx, logger)
	runCtx = contextkeys.ContextWithTraceID(runCtx, contextkeys.TraceIDFromContext(r.Context()))

	// ID выгрузки известен только после Start, а прогресс может прийти раньше
	ready := make(chan struct{})
	var runID uuid.UUID
	handle := h.fetchAllPagesUC.Start(runCtx, req, func(p domain.PageProgress) {
		<-ready
		h.notifier.Notify(runCtx, port.RunEvent{Type: port.RunEventPageFetched, RunID: runID, Data: p})
	})
	runID = handle.Run().ID
	close(ready)
	h.registry.Add(handle)

	go func() {
		<-handle.Done()
		h.notifier.Notify(runCtx, port.RunEvent{
			Type:  port.RunEventFinished,
			RunID: runID,
			Data:  toRunDTO(handle.Run().Snapshot()),
		})
	}()

	logger.Info("Pagination run started", port.Fields{"run_id": handle.Run().ID.String()})
	RespondWithJSON(w, http.StatusAccepted, StartRunResponseDTO{
		RunID:  handle.Run().ID,
		Status: string(usecase.RunStatusRunning),
	})
}

func (h *SearchHandlers) handleFromPath(w http.ResponseWriter, r *http.Request) (*usecase.RunHandle, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid run id")
		return nil, false
	}
	handle, ok := h.registry.Get(id)
	if !ok {
		WriteJSONError(w, http.StatusNotFound, "Run not found")
		return nil, false
	}
	return handle, true
}

// HandleListRuns - GET /api/v1/runs
func (h *SearchHandlers) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	handles := h.registry.List()
	runs := make([]RunDTO, 0, len(handles))
	for _, handle := range handles {
		runs = append(runs, toRunDTO(handle.Run().Snapshot()))
	}
	RespondWithJSON(w, http.StatusOK, runs)
}

// HandleGetRun - GET /api/v1/runs/{runID}
func (h *SearchHandlers) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	handle, ok := h.handleFromPath(w, r)
	if !ok {
		return
	}
	RespondWithJSON(w, http.StatusOK, toRunDTO(handle.Run().Snapshot()))
}

// HandleGetRunProperties - GET /api/v1/runs/{runID}/properties
func (h *SearchHandlers) HandleGetRunProperties(w http.ResponseWriter, r *http.Request) {
	handle, ok := h.handleFromPath(w, r)
	if !ok {
		return
	}
	run := handle.Run()
	properties := run.Properties()
	RespondWithJSON(w, http.StatusOK, RunPropertiesDTO{
		RunID:      run.ID,
		Status:     string(run.Status()),
		Count:      len(properties),
		Properties: properties,
	})
}

// HandleCancelRun - DELETE /api/v1/runs/{runID}. Активная выгрузка остановится перед следующей
// страницей (202), завершенная удаляется из реестра вместе с результатами (200).
func (h *SearchHandlers) HandleCancelRun(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "HandleCancelRun"})

	handle, ok := h.handleFromPath(w, r)
	if !ok {
		return
	}
	if h.registry.Remove(handle.Run().ID) {
		logger.Info("Finished run removed", port.Fields{"run_id": handle.Run().ID.String()})
		RespondWithJSON(w, http.StatusOK, toRunDTO(handle.Run().Snapshot()))
		return
	}
	handle.Cancel()
	logger.Info("Cancellation requested", port.Fields{"run_id": handle.Run().ID.String()})
	RespondWithJSON(w, http.StatusAccepted, toRunDTO(handle.Run().Snapshot()))
}

// HandleRunEvents - GET /api/v1/runs/{runID}/events, поток прогресса в формате SSE.
// Соединение закрывается после события run_finished.
func (h *SearchHandlers) HandleRunEvents(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "HandleRunEvents"})

	handle, ok := h.handleFromPath(w, r)
	if !ok {
		return
	}
	runID := handle.Run().ID.String()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	clientChan := h.notifier.AddClient(runID)
	defer h.notifier.RemoveClient(runID, clientChan)

	// выгрузка могла закончиться до подписки
	select {
	case <-handle.Done():
		writeFinishedEvent(w, handle)
		flush()
		return
	default:
	}

	fmt.Fprint(w, ": connected\n\n")
	flush()

	ticker := time.NewTicker(sseKeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-clientChan:
			if _, err := w.Write(msg.Body); err != nil {
				logger.Error("Error writing to client, closing SSE connection", err, nil)
				return
			}
			flush()
			if msg.Type == port.RunEventFinished {
				return
			}
		case <-handle.Done():
			// дочитываем уже разосланные события; run_finished могло быть отброшено
			grace := time.After(sseFinishGrace)
			for {
				select {
				case msg := <-clientChan:
					if _, err := w.Write(msg.Body); err != nil {
						return
					}
					flush()
					if msg.Type == port.RunEventFinished {
						return
					}
				case <-grace:
					writeFinishedEvent(w, handle)
					flush()
					return
				}
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flush()
		case <-r.Context().Done():
			logger.Info("SSE client disconnected.", nil)
			return
		}
	}
}

const (
	sseKeepAliveInterval = 15 * time.Second
	sseFinishGrace       = 100 * time.Millisecond
)

func writeFinishedEvent(w http.ResponseWriter, handle *usecase.RunHandle) {
	data, err := json.Marshal(toRunDTO(handle.Run().Snapshot()))
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", port.RunEventFinished, data)
}
