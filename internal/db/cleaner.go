package db

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/CatalogAdmin/internal/repository"
)

// StartWorkspaceCleaner removes workspaces untouched for longer than
// retention, checking every interval until ctx is done. onRemoved, when
// set, receives the ids of every removed batch.
func StartWorkspaceCleaner(
	ctx context.Context,
	repo repository.WorkspaceRepository,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
	onRemoved func(ids []string),
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cleanWorkspaces(ctx, repo, time.Now().Add(-retention), log, onRemoved)
			}
		}
	}()
}

func cleanWorkspaces(ctx context.Context, repo repository.WorkspaceRepository, cutoff time.Time, log *zap.Logger, onRemoved func([]string)) {
	ids, err := repo.StaleWorkspaces(ctx, cutoff)
	if err != nil {
		log.Error("failed to list stale workspaces", zap.Error(err))
		return
	}
	if len(ids) == 0 {
		return
	}
	removed, err := repo.DeleteWorkspaces(ctx, ids)
	if err != nil {
		log.Error("failed to clean stale workspaces", zap.Error(err))
		return
	}
	if onRemoved != nil {
		onRemoved(ids)
	}
	log.Info("cleaned stale workspaces", zap.Int64("removed", removed))
}
