package usage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pixelgate/pixelgate/internal/models"
	"github.com/pixelgate/pixelgate/internal/repository"
)

const (
	defaultBatchSize  = 100
	defaultFlushEvery = 5 * time.Second
)

// Recorder is the post-response ledger writer. Entries are queued on a
// buffered channel and batch-inserted by a background worker, so a slow
// or failing insert can never touch a response that has already been
// sent. A full buffer drops the entry with a warning.
type Recorder struct {
	repo       *repository.UsageLogRepository
	ch         chan models.UsageLog
	wg         sync.WaitGroup
	logger     *slog.Logger
	batchSize  int
	flushEvery time.Duration
}

func NewRecorder(repo *repository.UsageLogRepository, bufferSize int, logger *slog.Logger) *Recorder {
	r := &Recorder{
		repo:       repo,
		ch:         make(chan models.UsageLog, bufferSize),
		logger:     logger.With("component", "usage-recorder"),
		batchSize:  defaultBatchSize,
		flushEvery: defaultFlushEvery,
	}

	r.wg.Add(1)
	go r.worker()

	return r
}

// Record queues one ledger entry. Never blocks.
func (r *Recorder) Record(entry models.UsageLog) {
	select {
	case r.ch <- entry:
	default:
		r.logger.Warn("usage log buffer full, dropping entry",
			"user_id", entry.UserID,
			"path", entry.Path)
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	batch := make([]models.UsageLog, 0, r.batchSize)
	ticker := time.NewTicker(r.flushEvery)
	defer ticker.Stop()

	for {
		select {
		case entry, ok := <-r.ch:
			if !ok {
				r.flush(batch)
				return
			}
			batch = append(batch, entry)
			if len(batch) >= r.batchSize {
				r.flush(batch)
				batch = make([]models.UsageLog, 0, r.batchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = make([]models.UsageLog, 0, r.batchSize)
			}
		}
	}
}

func (r *Recorder) flush(batch []models.UsageLog) {
	if len(batch) == 0 {
		return
	}

	// Write failures are swallowed: the responses these entries belong
	// to are long gone.
	if err := r.repo.CreateBatch(context.Background(), batch); err != nil {
		r.logger.Error("failed to insert usage log batch", "count", len(batch), "error", err)
	}
}

// Close drains the queue and flushes the final batch.
func (r *Recorder) Close() {
	close(r.ch)
	r.wg.Wait()
}
