package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRegistry(t *testing.T) {
	client := &fakeClient{pages: makePages(3, 1)}
	uc := NewFetchAllPagesUseCase(client, nil, time.Second)

	block := make(chan struct{})
	uc.sleep = func(ctx context.Context, _ time.Duration) error {
		select {
		case <-block:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	registry := NewRunRegistry()
	h := uc.Start(context.Background(), baseRequest(), nil)
	registry.Add(h)

	got, ok := registry.Get(h.Run().ID)
	require.True(t, ok)
	assert.Same(t, h, got)

	_, ok = registry.Get(uuid.New())
	assert.False(t, ok)
	assert.Len(t, registry.List(), 1)

	assert.Equal(t, 1, registry.CancelAll())
	close(block)

	run, err := h.Wait()
	require.NoError(t, err)
	assert.Equal(t, RunStatusCancelled, run.Status())

	// завершенные выгрузки не считаются
	assert.Equal(t, 0, registry.CancelAll())
}

func finishedHandle(t *testing.T) *RunHandle {
	t.Helper()
	uc, _ := newTestUseCase(&fakeClient{pages: makePages(1, 1)}, nil, time.Second)
	h := uc.Start(context.Background(), baseRequest(), nil)
	_, err := h.Wait()
	require.NoError(t, err)
	return h
}

func TestRunRegistry_EvictsFinishedRunsAfterRetention(t *testing.T) {
	registry := NewRunRegistry(WithRunRetention(time.Minute))
	now := time.Now()
	registry.now = func() time.Time { return now }

	old := finishedHandle(t)
	registry.Add(old)
	assert.Equal(t, 1, registry.Len())

	now = now.Add(30 * time.Second)
	_, ok := registry.Get(old.Run().ID)
	assert.True(t, ok, "run is still within retention")

	now = now.Add(2 * time.Minute)
	_, ok = registry.Get(old.Run().ID)
	assert.False(t, ok)
	assert.Equal(t, 0, registry.Len())
}

func TestRunRegistry_KeepsActiveRuns(t *testing.T) {
	client := &fakeClient{pages: makePages(2, 1)}
	uc := NewFetchAllPagesUseCase(client, nil, time.Second)
	block := make(chan struct{})
	uc.sleep = func(ctx context.Context, _ time.Duration) error {
		<-block
		return nil
	}

	registry := NewRunRegistry(WithRunRetention(time.Nanosecond), WithMaxFinishedRuns(1))
	now := time.Now()
	registry.now = func() time.Time { return now }

	active := uc.Start(context.Background(), baseRequest(), nil)
	registry.Add(active)

	now = now.Add(time.Hour)
	assert.Equal(t, 0, registry.Prune())
	_, ok := registry.Get(active.Run().ID)
	assert.True(t, ok)

	close(block)
	_, err := active.Wait()
	require.NoError(t, err)
}

func TestRunRegistry_CapsFinishedRuns(t *testing.T) {
	registry := NewRunRegistry(WithMaxFinishedRuns(2))

	var handles []*RunHandle
	for i := 0; i < 3; i++ {
		h := finishedHandle(t)
		handles = append(handles, h)
		registry.Add(h)
	}
	// Add чистит реестр до вставки, поэтому лишняя выгрузка живет до следующей чистки
	assert.Equal(t, 3, registry.Len())
	assert.Equal(t, 1, registry.Prune())
	assert.Equal(t, 2, registry.Len())

	_, ok := registry.Get(handles[0].Run().ID)
	assert.False(t, ok, "oldest finished run is evicted first")
	_, ok = registry.Get(handles[2].Run().ID)
	assert.True(t, ok)
}

func TestRunRegistry_Remove(t *testing.T) {
	client := &fakeClient{pages: makePages(2, 1)}
	uc := NewFetchAllPagesUseCase(client, nil, time.Second)
	block := make(chan struct{})
	uc.sleep = func(ctx context.Context, _ time.Duration) error {
		<-block
		return nil
	}

	registry := NewRunRegistry()
	active := uc.Start(context.Background(), baseRequest(), nil)
	registry.Add(active)

	assert.False(t, registry.Remove(active.Run().ID), "active run is not removed")
	close(block)
	_, err := active.Wait()
	require.NoError(t, err)

	assert.True(t, registry.Remove(active.Run().ID))
	assert.False(t, registry.Remove(active.Run().ID))
	assert.Equal(t, 0, registry.Len())
}
