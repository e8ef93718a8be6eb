package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"idealista-parser-service/internal/adapters/notifier"
	"idealista-parser-service/internal/contextkeys"
	"idealista-parser-service/internal/core/domain"
	"idealista-parser-service/internal/core/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient - SearchClientPort с фиксированными страницами
type stubClient struct {
	mu         sync.Mutex
	totalPages int
	err        error
	gate       chan struct{} // если задан, страницы > 1 ждут его закрытия
	requests   []domain.SearchRequest
}

func (s *stubClient) Query(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	if s.gate != nil && req.NumPage > 1 {
		<-s.gate
	}
	var p domain.Property
	if err := json.Unmarshal([]byte(`{"propertyCode":"p`+string(rune('0'+req.NumPage))+`","price":1000}`), &p); err != nil {
		return nil, err
	}
	return &domain.SearchResponse{
		Total:        s.totalPages,
		TotalPages:   s.totalPages,
		ActualPage:   req.NumPage,
		ItemsPerPage: 1,
		ElementList:  []domain.Property{p},
	}, nil
}

func newTestRouter(t *testing.T, client *stubClient) http.Handler {
	router, _ := newTestRouterWithNotifier(t, client)
	return router
}

func newTestRouterWithNotifier(t *testing.T, client *stubClient) (http.Handler, *notifier.SSENotifier) {
	logger := contextkeys.LoggerFromContext(context.Background())
	sse := notifier.NewSSENotifier(logger)
	t.Cleanup(sse.Close)

	queryUC := usecase.NewQueryPageUseCase(client)
	fetchUC := usecase.NewFetchAllPagesUseCase(client, nil, time.Millisecond)
	handlers := NewSearchHandlers(context.Background(), queryUC, fetchUC, usecase.NewRunRegistry(), sse)
	return NewRouter(handlers, logger, []string{"*"}), sse
}

func doJSON(t *testing.T, h http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const validSearch = `{"country":"es","operation":"sale","property_type":"homes","center":"40.4168,-3.7038","distance":2000,"since_date":"2024-01-31","ad_ids":["1","2"]}`

func TestHandleSearch(t *testing.T) {
	client := &stubClient{totalPages: 3}
	router := newTestRouter(t, client)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/search", validSearch)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(3), body["totalPages"])
	assert.Len(t, body["elementList"], 1)

	require.Len(t, client.requests, 1)
	sent := client.requests[0]
	assert.Equal(t, domain.Coordinates{Lat: 40.4168, Lon: -3.7038}, *sent.Center)
	assert.Equal(t, "2024-01-31", sent.SinceDate.Format(domain.SinceDateLayout))
	assert.Equal(t, []string{"1", "2"}, sent.AdIDs)
}

func TestHandleSearch_Errors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"empty body", "", nil, http.StatusBadRequest},
		{"bad json", "{", nil, http.StatusBadRequest},
		{"bad center", `{"country":"es","operation":"sale","property_type":"homes","center":"north"}`, nil, http.StatusBadRequest},
		{"NaN center", `{"country":"es","operation":"sale","property_type":"homes","center":"NaN,NaN"}`, nil, http.StatusBadRequest},
		{"center with trailing junk", `{"country":"es","operation":"sale","property_type":"homes","center":"40.4abc,-3.7xyz"}`, nil, http.StatusBadRequest},
		{"bad date", `{"country":"es","operation":"sale","property_type":"homes","since_date":"31/01/2024"}`, nil, http.StatusBadRequest},
		{"unsupported country", validSearch, &domain.UnsupportedCountryError{Country: "fr"}, http.StatusBadRequest},
		{"upstream api error", validSearch, &domain.APIError{StatusCode: 401, Code: "invalid_token", Description: "expired"}, http.StatusBadGateway},
		{"decoding", validSearch, &domain.DecodingError{Err: errors.New("missing total")}, http.StatusBadGateway},
		{"unexpected", validSearch, errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(t, &stubClient{totalPages: 1, err: tc.err})
			rec := doJSON(t, router, http.MethodPost, "/api/v1/search", tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestRunLifecycle(t *testing.T) {
	client := &stubClient{totalPages: 3}
	router := newTestRouter(t, client)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/runs", validSearch)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var started StartRunResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))

	var run RunDTO
	require.Eventually(t, func() bool {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/runs/"+started.RunID.String(), "")
		if rec.Code != http.StatusOK {
			return false
		}
		_ = json.Unmarshal(rec.Body.Bytes(), &run)
		return run.Status == string(usecase.RunStatusCompleted)
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 3, run.PagesFetched)
	assert.Equal(t, 3, run.PropertiesCount)
	assert.NotNil(t, run.FinishedAt)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/runs/"+started.RunID.String()+"/properties", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var props struct {
		Count      int              `json:"count"`
		Properties []map[string]any `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &props))
	assert.Equal(t, 3, props.Count)
	assert.Equal(t, "p1", props.Properties[0]["propertyCode"])
	assert.Equal(t, "p3", props.Properties[2]["propertyCode"])

	rec = doJSON(t, router, http.MethodGet, "/api/v1/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []RunDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestCancelRun(t *testing.T) {
	client := &stubClient{totalPages: 5, gate: make(chan struct{})}
	router := newTestRouter(t, client)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/runs", validSearch)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var started StartRunResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/runs/"+started.RunID.String(), "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	close(client.gate)

	var run RunDTO
	require.Eventually(t, func() bool {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/runs/"+started.RunID.String(), "")
		_ = json.Unmarshal(rec.Body.Bytes(), &run)
		return run.Status == string(usecase.RunStatusCancelled)
	}, 2*time.Second, 10*time.Millisecond)

	assert.True(t, run.CancelRequested)
	assert.LessOrEqual(t, run.PagesFetched, 2)
}

func TestStartRun_RejectsInvalidRequest(t *testing.T) {
	client := &stubClient{totalPages: 1}
	router := newTestRouter(t, client)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/runs", `{"country":"fr","operation":"sale","property_type":"homes"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/runs", `{"country":"es","operation":"buy","property_type":"homes"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, client.requests)
}

func TestRunNotFound(t *testing.T) {
	router := newTestRouter(t, &stubClient{totalPages: 1})

	assert.Equal(t, http.StatusBadRequest, doJSON(t, router, http.MethodGet, "/api/v1/runs/not-a-uuid", "").Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, router, http.MethodGet, "/api/v1/runs/5f0c6a52-8f0e-4b55-9d1f-2d5a3c7b8e11", "").Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	router := newTestRouter(t, &stubClient{totalPages: 1})

	rec := doJSON(t, router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func startRun(t *testing.T, router http.Handler) StartRunResponseDTO {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/v1/runs", validSearch)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var started StartRunResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	return started
}

func TestRunEvents_StreamsProgressUntilFinished(t *testing.T) {
	client := &stubClient{totalPages: 3, gate: make(chan struct{})}
	router, sse := newTestRouterWithNotifier(t, client)
	started := startRun(t, router)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+started.RunID.String()+"/events", nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		router.ServeHTTP(rec, req)
	}()

	require.Eventually(t, func() bool {
		return sse.Subscribers(started.RunID.String()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	close(client.gate)

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("event stream did not finish")
	}

	body := rec.Body.String()
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, body, "event: page_fetched\ndata: {\"page\":3,\"total_pages\":3,\"properties_count\":3}")
	assert.Contains(t, body, "event: run_finished")
	assert.Contains(t, body, `"status":"completed"`)
	assert.Equal(t, 0, sse.Subscribers(started.RunID.String()))
}

func TestRunEvents_FinishedRunReturnsFinalEvent(t *testing.T) {
	router := newTestRouter(t, &stubClient{totalPages: 1})
	started := startRun(t, router)

	require.Eventually(t, func() bool {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/runs/"+started.RunID.String(), "")
		var run RunDTO
		_ = json.Unmarshal(rec.Body.Bytes(), &run)
		return run.Status == string(usecase.RunStatusCompleted)
	}, 2*time.Second, 10*time.Millisecond)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/runs/"+started.RunID.String()+"/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("event: run_finished\ndata: ")))
	assert.Contains(t, rec.Body.String(), started.RunID.String())
}

func TestDeleteFinishedRun_RemovesIt(t *testing.T) {
	router := newTestRouter(t, &stubClient{totalPages: 1})
	started := startRun(t, router)
	runPath := "/api/v1/runs/" + started.RunID.String()

	require.Eventually(t, func() bool {
		var run RunDTO
		_ = json.Unmarshal(doJSON(t, router, http.MethodGet, runPath, "").Body.Bytes(), &run)
		return run.Status == string(usecase.RunStatusCompleted)
	}, 2*time.Second, 10*time.Millisecond)

	rec := doJSON(t, router, http.MethodDelete, runPath, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var removed RunDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &removed))
	assert.Equal(t, string(usecase.RunStatusCompleted), removed.Status)

	assert.Equal(t, http.StatusNotFound, doJSON(t, router, http.MethodGet, runPath, "").Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, router, http.MethodDelete, runPath, "").Code)
}
