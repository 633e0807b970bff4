package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/vedran77/careteam/internal/domain"
	"golang.org/x/sync/errgroup"
)

const defaultReplyFetchLimit = 8

// ReplyFetcher loads the direct replies of one top-level message.
type ReplyFetcher func(ctx context.Context, parentID uuid.UUID) ([]domain.Message, error)

// ThreadAssembler attaches replies to top-level messages.
type ThreadAssembler struct {
	limit  int
	logger *slog.Logger
}

// NewThreadAssembler bounds concurrent reply fetches to limit (a default is
// used when limit <= 0).
func NewThreadAssembler(limit int, logger *slog.Logger) *ThreadAssembler {
	if limit <= 0 {
		limit = defaultReplyFetchLimit
	}
	return &ThreadAssembler{limit: limit, logger: logger}
}

// AssembleThreads fetches replies for every message in top concurrently. A
// failed fetch leaves that thread with no replies; it never fails the whole
// result. Threads come back pinned first then newest first, replies oldest
// first.
func (a *ThreadAssembler) AssembleThreads(ctx context.Context, top []domain.Message, fetch ReplyFetcher) []domain.Thread {
	replies := make([][]domain.Message, len(top))

	var g errgroup.Group
	g.SetLimit(a.limit)
	for i := range top {
		g.Go(func() error {
			rs, err := fetch(ctx, top[i].ID)
			if err != nil {
				a.logger.Warn("failed to load replies, showing thread without them",
					"message_id", top[i].ID, "error", err)
				return nil
			}
			domain.SortReplies(rs)
			replies[i] = rs
			return nil
		})
	}
	_ = g.Wait()

	threads := make([]domain.Thread, len(top))
	for i, m := range top {
		threads[i] = domain.NewThread(m, replies[i])
	}
	domain.SortThreads(threads)
	return threads
}
