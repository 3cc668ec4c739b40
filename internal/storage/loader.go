package storage

import (
	"context"
	"fmt"
	"time"

	"csvclean/internal/logger"
)

// CopyFn abstracts a backend's bulk insert capability.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// BatchStats summarizes a LoadBatches call.
type BatchStats struct {
	Inserted int64
	Batches  int64
}

// LoadBatches splits rows into batches of batchSize and calls copyFn for
// each. It stops at the first error or when ctx is done, returning what was
// inserted so far. Each successful flush is logged with running totals.
func LoadBatches(
	ctx context.Context,
	log *logger.Logger,
	columns []string,
	rows [][]any,
	batchSize int,
	copyFn CopyFn,
) (BatchStats, error) {
	var st BatchStats
	if batchSize <= 0 {
		return st, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return st, fmt.Errorf("copyFn must not be nil")
	}
	if log == nil {
		log = logger.Nop()
	}

	start := time.Now()
	for lo := 0; lo < len(rows); lo += batchSize {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		hi := lo + batchSize
		if hi > len(rows) {
			hi = len(rows)
		}

		n, err := copyFn(ctx, columns, rows[lo:hi])
		st.Inserted += n
		if err != nil {
			log.Warn("loader: copy failed", "batch", st.Batches+1, "inserted", n, "total", st.Inserted, "err", err)
			return st, err
		}
		st.Batches++
		log.Debug("loader: batch flushed",
			"batch", st.Batches,
			"inserted", n,
			"total", st.Inserted,
			"elapsed", time.Since(start).Truncate(time.Millisecond),
		)
	}
	return st, nil
}
