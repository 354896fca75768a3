package mcp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is one entry of the job-event stream: AI-edit transitions, code
// analysis triggers, list refreshes, auth prompts.
type Event struct {
	ID        string    `json:"id"`
	Event     string    `json:"event"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

type eventClient struct {
	id      string
	writer  http.ResponseWriter
	flusher http.Flusher
	done    chan struct{}
}

// EventBrokerConfig tunes the SSE fanout.
type EventBrokerConfig struct {
	KeepaliveInterval time.Duration
	BufferSize        int
}

func DefaultEventBrokerConfig() EventBrokerConfig {
	return EventBrokerConfig{
		KeepaliveInterval: 30 * time.Second,
		BufferSize:        100,
	}
}

// EventBroker fans job events out to SSE subscribers. Slow subscribers never
// block publishers; the broadcast channel drops when full.
type EventBroker struct {
	logger *zap.Logger
	config EventBrokerConfig

	mu      sync.RWMutex
	clients map[string]*eventClient
	nextID  int

	broadcast chan Event
	published int
	dropped   int
}

func NewEventBroker(logger *zap.Logger, config EventBrokerConfig) *EventBroker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.BufferSize <= 0 {
		config = DefaultEventBrokerConfig()
	}
	b := &EventBroker{
		logger:    logger,
		config:    config,
		clients:   make(map[string]*eventClient),
		broadcast: make(chan Event, config.BufferSize),
	}
	go b.fanout()
	return b
}

// Publish queues an event for all connected subscribers.
func (b *EventBroker) Publish(name string, data any) {
	event := Event{
		ID:        fmt.Sprintf("%s_%d", name, time.Now().UnixNano()),
		Event:     name,
		Data:      data,
		Timestamp: time.Now(),
	}
	select {
	case b.broadcast <- event:
		b.mu.Lock()
		b.published++
		b.mu.Unlock()
	default:
		b.mu.Lock()
		b.dropped++
		b.mu.Unlock()
		b.logger.Warn("event channel full, dropping event", zap.String("event", name))
	}
}

func (b *EventBroker) fanout() {
	for event := range b.broadcast {
		b.mu.RLock()
		targets := make([]*eventClient, 0, len(b.clients))
		for _, client := range b.clients {
			targets = append(targets, client)
		}
		b.mu.RUnlock()

		for _, client := range targets {
			select {
			case <-client.done:
				b.removeClient(client.id)
			default:
				if err := b.send(client, event); err != nil {
					b.logger.Debug("subscriber write failed", zap.String("client", client.id), zap.Error(err))
					b.removeClient(client.id)
				}
			}
		}
	}
}

func (b *EventBroker) send(client *eventClient, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(client.writer, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Event, payload); err != nil {
		return err
	}
	client.flusher.Flush()
	return nil
}

func (b *EventBroker) addClient(w http.ResponseWriter) *eventClient {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return nil
	}

	b.mu.Lock()
	b.nextID++
	client := &eventClient{
		id:      fmt.Sprintf("subscriber_%d_%d", time.Now().Unix(), b.nextID),
		writer:  w,
		flusher: flusher,
		done:    make(chan struct{}),
	}
	b.clients[client.id] = client
	b.mu.Unlock()

	b.logger.Info("event subscriber connected", zap.String("client", client.id))
	return client
}

func (b *EventBroker) removeClient(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if client, exists := b.clients[id]; exists {
		close(client.done)
		delete(b.clients, id)
		b.logger.Info("event subscriber disconnected", zap.String("client", id))
	}
}

// HandleSSE subscribes an HTTP client to the event stream.
func (b *EventBroker) HandleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	client := b.addClient(w)
	if client == nil {
		return
	}

	ctx := r.Context()
	ticker := time.NewTicker(b.config.KeepaliveInterval)
	defer ticker.Stop()

	_ = b.send(client, Event{
		ID:        fmt.Sprintf("connect_%d", time.Now().UnixNano()),
		Event:     "connected",
		Data:      map[string]string{"clientId": client.id},
		Timestamp: time.Now(),
	})

	for {
		select {
		case <-ctx.Done():
			b.removeClient(client.id)
			return
		case <-client.done:
			return
		case <-ticker.C:
			keepalive := Event{
				ID:        fmt.Sprintf("keepalive_%d", time.Now().UnixNano()),
				Event:     "keepalive",
				Timestamp: time.Now(),
			}
			if err := b.send(client, keepalive); err != nil {
				b.removeClient(client.id)
				return
			}
		}
	}
}

// Stats reports broker counters for the stats endpoint.
func (b *EventBroker) Stats() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return map[string]any{
		"connectedClients": len(b.clients),
		"published":        b.published,
		"dropped":          b.dropped,
	}
}
