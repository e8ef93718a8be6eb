package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"idealista-parser-service/internal/contextkeys"
	"idealista-parser-service/internal/core/port"
)

// Message - одно отформатированное SSE сообщение
type Message struct {
	Type string
	Body []byte
}

// ClientChannel - канал одного подписчика (одного HTTP соединения)
type ClientChannel chan Message

type eventWithContext struct {
	ctx   context.Context
	event port.RunEvent
}

// SSENotifier рассылает события выгрузок подписчикам, ключ - ID выгрузки
type SSENotifier struct {
	clients map[string][]ClientChannel
	mu      sync.RWMutex

	eventChan chan eventWithContext
	done      chan struct{}
	closeOnce sync.Once

	logger port.LoggerPort
}

// NewSSENotifier создает нотификатор и запускает диспетчер
func NewSSENotifier(baseLogger port.LoggerPort) *SSENotifier {
	n := &SSENotifier{
		clients:   make(map[string][]ClientChannel),
		eventChan: make(chan eventWithContext, 100),
		done:      make(chan struct{}),
		logger:    baseLogger.WithFields(port.Fields{"component": "SSENotifier"}),
	}
	go n.dispatcher()
	return n
}

func (n *SSENotifier) dispatcher() {
	n.logger.Debug("Notifier dispatcher started.", nil)
	for {
		var pkg eventWithContext
		select {
		case <-n.done:
			n.logger.Debug("Notifier dispatcher stopped.", nil)
			return
		case pkg = <-n.eventChan:
		}

		event := pkg.event
		runID := event.RunID.String()
		eventLogger := contextkeys.LoggerFromContext(pkg.ctx).WithFields(port.Fields{
			"component":  "SSENotifier.dispatcher",
			"event_type": event.Type,
			"run_id":     runID,
		})

		data, err := json.Marshal(event.Data)
		if err != nil {
			eventLogger.Error("Failed to marshal event", err, nil)
			continue
		}
		msg := Message{
			Type: event.Type,
			Body: []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, data)),
		}

		n.mu.RLock()
		for _, ch := range n.clients[runID] {
			// медленный клиент не должен тормозить рассылку
			select {
			case ch <- msg:
			default:
				eventLogger.Warn("Client channel is full, skipping.", nil)
			}
		}
		n.mu.RUnlock()
	}
}

// Notify не блокирует выгрузку: при переполненном буфере событие отбрасывается
func (n *SSENotifier) Notify(ctx context.Context, event port.RunEvent) {
	select {
	case n.eventChan <- eventWithContext{ctx: ctx, event: event}:
	case <-n.done:
	default:
		n.logger.Warn("Notifier buffer is full, event dropped.", port.Fields{"event_type": event.Type, "run_id": event.RunID.String()})
	}
}

// AddClient регистрирует подписчика на события выгрузки
func (n *SSENotifier) AddClient(runID string) ClientChannel {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(ClientChannel, 100)
	n.clients[runID] = append(n.clients[runID], ch)
	n.logger.Info("Client subscribed to run", port.Fields{"run_id": runID, "subscribers": len(n.clients[runID])})
	return ch
}

func (n *SSENotifier) RemoveClient(runID string, ch ClientChannel) {
	n.mu.Lock()
	defer n.mu.Unlock()

	channels := n.clients[runID]
	remaining := make([]ClientChannel, 0, len(channels))
	for _, c := range channels {
		if c != ch {
			remaining = append(remaining, c)
		}
	}
	if len(remaining) == 0 {
		delete(n.clients, runID)
		return
	}
	n.clients[runID] = remaining
}

// Subscribers - число подписчиков выгрузки
func (n *SSENotifier) Subscribers(runID string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.clients[runID])
}

// Close останавливает диспетчер; события после Close отбрасываются
func (n *SSENotifier) Close() {
	n.closeOnce.Do(func() { close(n.done) })
}
