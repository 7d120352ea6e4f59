package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"tasador/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// ComparableQueue buffers batches of imported comparables between the
// import handlers and the batch processor.
type ComparableQueue struct {
	items    chan []*models.Comparable
	done     chan struct{}
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []func([]*models.Comparable) error
}

func NewComparableQueue(bufferSize int, logger *logrus.Logger) *ComparableQueue {
	return &ComparableQueue{
		items:   make(chan []*models.Comparable, bufferSize),
		done:    make(chan struct{}),
		maxSize: bufferSize,
		logger:  logger,
	}
}

// Push adds a batch to the queue without blocking; a full queue is
// reported as an error instead of stalling the import.
func (q *ComparableQueue) Push(batch []*models.Comparable) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	q.mu.RUnlock()

	select {
	case q.items <- batch:
		q.logger.WithField("batch_size", len(batch)).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler invoked for every batch.
func (q *ComparableQueue) Subscribe(handler func([]*models.Comparable) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins draining the queue.
func (q *ComparableQueue) Start() {
	go q.process()
}

func (q *ComparableQueue) process() {
	for {
		select {
		case <-q.done:
			return
		case batch, ok := <-q.items:
			if !ok {
				return
			}
			q.dispatch(batch)
		}
	}
}

func (q *ComparableQueue) dispatch(batch []*models.Comparable) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).Error("Handler failed to process batch")
		}
	}
}

// Close stops the queue and rejects further pushes.
func (q *ComparableQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.done)
	close(q.items)
	return nil
}

// Len returns the number of buffered batches.
func (q *ComparableQueue) Len() int {
	return len(q.items)
}

func (q *ComparableQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
