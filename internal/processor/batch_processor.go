package processor

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tasador/server/config"
	"tasador/server/internal/database"
	"tasador/server/internal/models"
	"tasador/server/internal/queue"
)

// txRunner is the slice of *gorm.DB the processor needs; tests swap in
// a mock.
type txRunner interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// BatchProcessor drains imported comparable batches from the queue and
// persists them. Imports are already applied to the in-memory session
// before they reach the queue, so persistence failures here are
// logged, retried, and never rolled back into the session.
type BatchProcessor struct {
	db     txRunner
	logger *logrus.Logger
	config *config.Config
	queue  *queue.ComparableQueue
}

func NewBatchProcessor(db txRunner, queue *queue.ComparableQueue, config *config.Config, logger *logrus.Logger) *BatchProcessor {
	return &BatchProcessor{
		db:     db,
		queue:  queue,
		config: config,
		logger: logger,
	}
}

// Start registers the batch handler and begins draining the queue,
// one drain goroutine per configured processor. The handler is
// registered exactly once; each batch is taken off the queue by a
// single drain goroutine.
func (p *BatchProcessor) Start() {
	p.queue.Subscribe(func(batch []*models.Comparable) error {
		return p.processBatch(batch)
	})
	for i := 0; i < p.config.BatchProcessing.ProcessorCount; i++ {
		p.queue.Start()
	}
}

// Stop closes the queue; the drain goroutines exit with it.
func (p *BatchProcessor) Stop() {
	p.queue.Close()
}

// processBatch persists a single batch with transaction and retry
// logic.
func (p *BatchProcessor) processBatch(batch []*models.Comparable) error {
	var err error
	for attempt := 0; attempt <= p.config.BatchProcessing.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying batch persistence, attempt %d of %d", attempt, p.config.BatchProcessing.MaxRetries)
			time.Sleep(time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second)
		}

		err = p.db.Transaction(func(tx *gorm.DB) error {
			if err := database.UpsertComparables(tx, batch); err != nil {
				return fmt.Errorf("failed to upsert comparables batch: %w", err)
			}
			return nil
		})

		if err == nil {
			p.logger.Infof("Successfully persisted batch of %d comparables", len(batch))
			return nil
		}

		p.logger.Errorf("Batch persistence failed: %v", err)
	}

	return fmt.Errorf("failed to persist batch after %d attempts: %w", p.config.BatchProcessing.MaxRetries, err)
}
