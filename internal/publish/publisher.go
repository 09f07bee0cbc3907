package publish

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/legaldoc/collabhub/internal/model"
)

// Options tunes the publisher's local queue and retry behavior.
type Options struct {
	QueueSize   int
	Workers     int
	MaxRetry    int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// Publisher ships annotation events to Kafka for the rest of the document
// system (persistence pipeline, AI analysis). Record only enqueues; worker
// goroutines send with bounded retry, and a full queue drops the event.
// Annotation relay has no delivery guarantee to begin with, so the
// publisher must never apply backpressure to the hub.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	queue    chan model.AnnotationEvent
	logger   *slog.Logger

	workers     int
	maxRetry    int
	baseBackoff time.Duration
	maxBackoff  time.Duration

	mu     sync.RWMutex
	closed bool

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewSyncProducer creates a Kafka producer suitable for the Publisher.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return producer, nil
}

// New creates a Publisher and starts its workers.
func New(producer sarama.SyncProducer, topic string, opt Options, logger *slog.Logger) *Publisher {
	if opt.QueueSize <= 0 {
		opt.QueueSize = 1024
	}
	if opt.Workers <= 0 {
		opt.Workers = 2
	}
	if opt.BaseBackoff <= 0 {
		opt.BaseBackoff = 200 * time.Millisecond
	}
	if opt.MaxBackoff <= 0 {
		opt.MaxBackoff = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Publisher{
		producer:    producer,
		topic:       topic,
		queue:       make(chan model.AnnotationEvent, opt.QueueSize),
		logger:      logger,
		workers:     opt.Workers,
		maxRetry:    opt.MaxRetry,
		baseBackoff: opt.BaseBackoff,
		maxBackoff:  opt.MaxBackoff,
	}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.workerLoop()
	}
	return p
}

// Record enqueues an annotation event for publication. Never blocks. A
// Record that races Close during shutdown drops the event; the read lock
// keeps the enqueue and the queue close from overlapping.
func (p *Publisher) Record(ev model.AnnotationEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("kafka publisher closed, dropping event",
			"document", ev.DocumentID, "action", ev.Action)
		return
	}
	select {
	case p.queue <- ev:
	default:
		p.logger.Warn("kafka publish queue full, dropping event",
			"document", ev.DocumentID, "action", ev.Action)
	}
}

// Close drains the queue, stops the workers, and closes the producer.
// Record calls arriving after Close are dropped.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.queue)
	})
	p.wg.Wait()
	return p.producer.Close()
}

func (p *Publisher) workerLoop() {
	defer p.wg.Done()
	for ev := range p.queue {
		p.sendWithRetry(ev)
	}
}

func (p *Publisher) sendWithRetry(ev model.AnnotationEvent) {
	for attempt := 0; ; attempt++ {
		err := p.sendOnce(ev)
		if err == nil {
			return
		}
		if attempt >= p.maxRetry {
			p.logger.Error("kafka send failed, dropping event",
				"document", ev.DocumentID, "action", ev.Action, "attempts", attempt+1, "error", err)
			return
		}

		backoff := p.baseBackoff * time.Duration(1<<attempt)
		if backoff > p.maxBackoff {
			backoff = p.maxBackoff
		}
		time.Sleep(backoff)
	}
}

func (p *Publisher) sendOnce(ev model.AnnotationEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	// Keyed by document so consumers see one document's events in order.
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.DocumentID),
		Value: sarama.ByteEncoder(data),
	}
	_, _, err = p.producer.SendMessage(msg)
	return err
}
