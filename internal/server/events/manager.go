package events

import (
	"context"
	"log/slog"
	"sync"
)

// Manager fans committed graph changes out to the configured webhook URLs.
// Events arrive on a buffered channel so store writes never block on slow
// webhook endpoints.
type Manager struct {
	webhooks  []string
	eventChan chan Event
	notifier  *Notifier
	log       *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewManager creates a new event manager for the given webhook URLs
func NewManager(webhooks []string, log *slog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		webhooks:  webhooks,
		eventChan: make(chan Event, 1000), // Buffered to avoid blocking writes
		notifier:  NewNotifier(log),
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins processing events
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.processEvents()
	m.log.Info("event manager started", "webhooks", len(m.webhooks))
}

// Stop shuts down the manager. Buffered events are still delivered; the
// context is canceled only once the queue is drained.
func (m *Manager) Stop() {
	close(m.eventChan)
	m.wg.Wait()
	m.cancel()
	m.log.Info("event manager stopped")
}

// EmitEvent sends an event to be processed (called by the store)
func (m *Manager) EmitEvent(event Event) {
	// Non-blocking send - drop events if channel is full
	select {
	case m.eventChan <- event:
	default:
		m.log.Warn("event channel full, dropping event", "event_id", event.ID, "type", event.Type)
	}
}

// GetEmitter returns a function that can be used to emit events
func (m *Manager) GetEmitter() EventEmitter {
	return m.EmitEvent
}

// processEvents is the main event processing loop
func (m *Manager) processEvents() {
	defer m.wg.Done()

	for event := range m.eventChan {
		m.handleEvent(event)
	}
}

// handleEvent delivers a single event to every webhook
func (m *Manager) handleEvent(event Event) {
	for _, url := range m.webhooks {
		ctx, cancel := context.WithTimeout(m.ctx, webhookTimeout)
		m.notifier.SendWebhook(ctx, url, event)
		cancel()
	}
}
