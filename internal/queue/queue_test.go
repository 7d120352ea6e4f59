package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"tasador/server/internal/models"
)

func TestNewComparableQueue(t *testing.T) {
	logger := logrus.New()
	q := NewComparableQueue(10, logger)
	assert.NotNil(t, q)
	assert.Equal(t, 10, q.maxSize)
	assert.False(t, q.IsClosed())
}

func TestComparableQueue_Push(t *testing.T) {
	logger := logrus.New()
	q := NewComparableQueue(2, logger)

	batch := []*models.Comparable{{Address: "Calle 1"}}
	err := q.Push(batch)
	assert.NoError(t, err)
	assert.Equal(t, 1, q.Len())

	// Fill the buffer, then expect ErrQueueFull.
	for i := 0; i < 2; i++ {
		_ = q.Push([]*models.Comparable{{Address: "Calle 2"}})
	}
	err = q.Push(batch)
	assert.Equal(t, ErrQueueFull, err)

	q.Close()
	err = q.Push(batch)
	assert.Equal(t, ErrQueueClosed, err)
}

func TestComparableQueue_Subscribe(t *testing.T) {
	logger := logrus.New()
	q := NewComparableQueue(10, logger)

	var processed []*models.Comparable
	var mu sync.Mutex

	q.Subscribe(func(batch []*models.Comparable) error {
		mu.Lock()
		processed = append(processed, batch...)
		mu.Unlock()
		return nil
	})

	q.Start()

	batch := []*models.Comparable{{Address: "Calle 1"}, {Address: "Calle 2"}}
	err := q.Push(batch)
	assert.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, 2, len(processed))
	assert.Equal(t, "Calle 1", processed[0].Address)
	assert.Equal(t, "Calle 2", processed[1].Address)
	mu.Unlock()
}

func TestComparableQueue_Close(t *testing.T) {
	logger := logrus.New()
	q := NewComparableQueue(10, logger)

	err := q.Close()
	assert.NoError(t, err)
	assert.True(t, q.IsClosed())

	// Second close is a no-op.
	err = q.Close()
	assert.NoError(t, err)
}

func TestComparableQueue_MultipleHandlers(t *testing.T) {
	logger := logrus.New()
	q := NewComparableQueue(10, logger)

	var wg sync.WaitGroup
	processedBatches := 0
	var mu sync.Mutex

	for i := 0; i < 3; i++ {
		wg.Add(1)
		q.Subscribe(func(batch []*models.Comparable) error {
			mu.Lock()
			processedBatches++
			mu.Unlock()
			wg.Done()
			return nil
		})
	}

	q.Start()

	err := q.Push([]*models.Comparable{{Address: "Calle 1"}})
	assert.NoError(t, err)

	wg.Wait()

	mu.Lock()
	assert.Equal(t, 3, processedBatches)
	mu.Unlock()
}
