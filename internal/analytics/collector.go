package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/kafka"
)

// Publisher delivers events to the message bus. *kafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Collector records search events in an Aggregator and, when a Publisher is
// configured, forwards them asynchronously. Publishing never blocks a
// query: events are dropped when the buffer is full.
type Collector struct {
	publisher  Publisher
	aggregator *Aggregator
	eventCh    chan SearchEvent
	logger     *slog.Logger
	done       chan struct{}
	started    atomic.Bool
	closeOnce  sync.Once

	// mu guards eventCh against a send racing its close.
	mu     sync.RWMutex
	closed bool
}

// NewCollector returns a collector. publisher may be nil.
func NewCollector(publisher Publisher, aggregator *Aggregator, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		publisher:  publisher,
		aggregator: aggregator,
		eventCh:    make(chan SearchEvent, bufferSize),
		logger:     slog.Default().With("component", "analytics-collector"),
		done:       make(chan struct{}),
	}
}

// Start launches the publish loop. Without a publisher it does nothing.
func (c *Collector) Start(ctx context.Context) {
	if c.publisher == nil {
		return
	}
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go c.run(ctx)
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(ctx, event)
		case <-ctx.Done():
			c.drainRemaining()
			return
		}
	}
}

// Track records event. After Close the event is still aggregated but no
// longer published.
func (c *Collector) Track(event SearchEvent) {
	if event.Type == "" {
		event.Type = EventSearch
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if c.aggregator != nil {
		c.aggregator.Record(event)
	}
	if c.publisher == nil {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.logger.Debug("analytics event not published, collector closed")
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for buffered ones to be published.
func (c *Collector) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.eventCh)
		c.mu.Unlock()
		if c.started.Load() {
			<-c.done
			return
		}
		if c.publisher != nil {
			c.drainRemaining()
		}
	})
}

func (c *Collector) publish(ctx context.Context, event SearchEvent) {
	if err := c.publisher.Publish(ctx, kafka.Event{Key: event.Query, Value: event}); err != nil {
		c.logger.Error("failed to publish analytics event", "error", err)
	}
}

func (c *Collector) drainRemaining() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(ctx, event)
		default:
			return
		}
	}
}
