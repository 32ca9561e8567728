// Package notify delivers "your secret was viewed" messages. Delivery is
// best effort: Notify never blocks the caller and failures are only logged.
package notify

import (
	"context"
	"sync"
	"time"

	"secret.share/internal/logging"
)

// Notification is the payload handed to a Sender after a successful view.
type Notification struct {
	SecretID    string `json:"secretId"`
	UserAgent   string `json:"userAgent"`
	Location    string `json:"location"`
	NotifyEmail string `json:"notifyEmail"`
}

type Sender interface {
	Send(ctx context.Context, n Notification) error
}

type Options struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

// Dispatcher queues notifications and sends them from a fixed set of workers.
type Dispatcher struct {
	sender  Sender
	log     *logging.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Notification
	wg     sync.WaitGroup
}

func NewDispatcher(sender Sender, log *logging.Logger, opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	d := &Dispatcher{
		sender:  sender,
		log:     log,
		timeout: opts.Timeout,
		queue:   make(chan Notification, opts.QueueSize),
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Notify enqueues n, dropping it when the queue is full or the dispatcher
// is closed.
func (d *Dispatcher) Notify(n Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.Warnf("notification for %s dropped: dispatcher closed", n.SecretID)
		return
	}
	select {
	case d.queue <- n:
	default:
		d.log.Warnf("notification for %s dropped: queue full", n.SecretID)
	}
}

// Close stops accepting notifications and waits for queued ones to be sent.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for n := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.sender.Send(ctx, n); err != nil {
			d.log.Errorf("notification for %s failed: %v", n.SecretID, err)
		} else {
			d.log.Debugf("notification for %s sent", n.SecretID)
		}
		cancel()
	}
}

// LogSender only records that a notification would have gone out.
type LogSender struct {
	Log *logging.Logger
}

func (s LogSender) Send(_ context.Context, n Notification) error {
	s.Log.Infof("secret %s viewed (agent=%q location=%q)", n.SecretID, n.UserAgent, n.Location)
	return nil
}
