package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/apex/log"
)

// Dispatcher fans a DocOpEvent out to every other server instance
// subscribed to a document's topic. Enqueue only places the event on a
// bounded local queue so a slow or unavailable broker never blocks the
// session goroutine that produced the event; a worker pool drains the
// queue with exponential-backoff retry and drops events it cannot
// deliver within one attempt plus MaxRetry retries.
type Dispatcher struct {
	producer sarama.SyncProducer
	topic    string

	queue chan DocOpEvent

	workers     int
	maxRetry    int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

// DispatcherOptions configures queue depth, worker concurrency, and retry
// backoff for a Dispatcher.
type DispatcherOptions struct {
	QueueSize   int
	Workers     int
	MaxRetry    int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func DefaultDispatcherOptions() DispatcherOptions {
	return DispatcherOptions{
		QueueSize:   1024,
		Workers:     4,
		MaxRetry:    3,
		BaseBackoff: 100 * time.Millisecond,
		MaxBackoff:  2 * time.Second,
	}
}

// NewDispatcher creates a Dispatcher and starts its worker pool.
func NewDispatcher(producer sarama.SyncProducer, topic string, opt DispatcherOptions) *Dispatcher {
	d := &Dispatcher{
		producer:    producer,
		topic:       topic,
		queue:       make(chan DocOpEvent, opt.QueueSize),
		workers:     opt.Workers,
		maxRetry:    opt.MaxRetry,
		baseBackoff: opt.BaseBackoff,
		maxBackoff:  opt.MaxBackoff,
	}
	d.start()
	return d
}

// Enqueue places evt on the local queue, blocking until ctx is done if the
// queue is full. Kafka delivery is best-effort, so a context timeout here
// is not treated as a hard failure by callers.
func (d *Dispatcher) Enqueue(ctx context.Context, evt DocOpEvent) error {
	select {
	case d.queue <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the queue and then the underlying producer. It does not
// wait for the workers: events still queued or being sent at that point
// fail against the closed producer and are dropped once their retries are
// spent. Enqueue must not be called after Close.
func (d *Dispatcher) Close() error {
	close(d.queue)
	return d.producer.Close()
}

func (d *Dispatcher) start() {
	for i := 0; i < d.workers; i++ {
		go d.workerLoop(i)
	}
}

func (d *Dispatcher) workerLoop(workerID int) {
	for evt := range d.queue {
		d.sendWithRetry(workerID, evt)
	}
}

func (d *Dispatcher) sendWithRetry(workerID int, evt DocOpEvent) {
	for attempt := 0; attempt <= d.maxRetry; attempt++ {
		err := d.sendOnce(evt)
		if err == nil {
			return
		}

		if attempt == d.maxRetry {
			log.WithField("docID", evt.DocID).
				WithField("revision", evt.Revision).
				WithField("worker", workerID).
				WithError(err).
				Error("broadcast: dropping event after exhausting retries")
			return
		}

		backoff := d.baseBackoff * time.Duration(1<<attempt)
		if backoff > d.maxBackoff {
			backoff = d.maxBackoff
		}
		time.Sleep(backoff)
	}
}

func (d *Dispatcher) sendOnce(evt DocOpEvent) error {
	if d.producer == nil || d.topic == "" {
		return nil
	}
	b, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: d.topic,
		Key:   sarama.StringEncoder(evt.DocID),
		Value: sarama.ByteEncoder(b),
	}
	_, _, err = d.producer.SendMessage(msg)
	return err
}
