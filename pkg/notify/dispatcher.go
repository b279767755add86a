package notify

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	defaultWorkers     = 4
	defaultBuffer      = 256
	defaultSendTimeout = 10 * time.Second
)

type delivery struct {
	playerID string
	msg      Message
}

// Dispatcher delivers notifications asynchronously on a small worker pool.
// Delivery is best effort: failures are logged and never reported back.
type Dispatcher struct {
	notifier    Notifier
	queue       chan delivery
	sendTimeout time.Duration

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher and starts its workers
func NewDispatcher(notifier Notifier, workers, buffer int) *Dispatcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	d := &Dispatcher{
		notifier:    notifier,
		queue:       make(chan delivery, buffer),
		sendTimeout: defaultSendTimeout,
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for job := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
		if err := d.notifier.Notify(ctx, job.playerID, job.msg); err != nil {
			log.Printf("[NOTIFY] Failed to notify %s: %v", job.playerID, err)
		}
		cancel()
	}
}

// Send queues a message for one player without blocking. Messages are dropped
// when the queue is full or the dispatcher is stopped.
func (d *Dispatcher) Send(playerID string, msg Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		log.Printf("[NOTIFY] Dispatcher stopped, dropping message for %s", playerID)
		return
	}

	select {
	case d.queue <- delivery{playerID: playerID, msg: msg}:
	default:
		log.Printf("[NOTIFY] Queue full, dropping message for %s", playerID)
	}
}

// SendAll queues the same message for several players
func (d *Dispatcher) SendAll(playerIDs []string, msg Message) {
	for _, playerID := range playerIDs {
		d.Send(playerID, msg)
	}
}

// Stop stops accepting messages and waits for queued ones to be delivered
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}
