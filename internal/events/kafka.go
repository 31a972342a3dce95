package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"warungpos/backend/internal/logging"
)

var (
	ErrPublisherClosed = errors.New("publisher closed")
	ErrBufferFull      = errors.New("publisher buffer full")
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher queues envelopes and writes them from a single goroutine.
// Messages are keyed by store so one store's events stay ordered.
type KafkaPublisher struct {
	w     messageWriter
	inbox chan kafka.Message
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
	log   zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
}

func NewKafkaPublisher(brokers []string, topic string, buf int) *KafkaPublisher {
	return newKafkaPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}, buf)
}

func newKafkaPublisher(w messageWriter, buf int) *KafkaPublisher {
	if buf < 1 {
		buf = 256
	}
	return &KafkaPublisher{
		w:     w,
		inbox: make(chan kafka.Message, buf),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
		log:   logging.Component("events"),
	}
}

func (p *KafkaPublisher) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.closed {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.done)
		for {
			select {
			case <-ctx.Done():
				p.drain()
				return
			case <-p.stop:
				p.drain()
				return
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

func (p *KafkaPublisher) Publish(_ context.Context, env Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(env.StoreID),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(env.EventType)},
			{Key: "x-event-version", Value: []byte(envelopeVersion)},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.inbox <- msg:
		return nil
	default:
		return ErrBufferFull
	}
}

// Close stops accepting envelopes, flushes what is queued and waits for the
// writer to shut down.
func (p *KafkaPublisher) Close() error {
	var started bool
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		started = p.started
		p.mu.Unlock()
		close(p.stop)
		if !started {
			p.drain()
			close(p.done)
		}
	})
	<-p.done
	return nil
}

func (p *KafkaPublisher) drain() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	for {
		select {
		case m := <-p.inbox:
			p.write(m)
		default:
			if err := p.w.Close(); err != nil {
				p.log.Warn().Err(err).Msg("close kafka writer")
			}
			return
		}
	}
}

func (p *KafkaPublisher) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.log.Warn().Err(err).Str("store_id", string(m.Key)).Msg("publish event failed")
	}
}
