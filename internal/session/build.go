package session

import (
	"context"
	"log/slog"

	"gitnet/internal/graph"
	"gitnet/internal/model"
	"gitnet/internal/repo"
	"gitnet/internal/storage"
)

// collect reads everything a layout needs. It fails only when history
// itself could not be read; branch and stash listings fail open.
func collect(ctx context.Context, svc *repo.Service, info *model.RepositoryInfo, limit int) (graph.Input, error) {
	commits := svc.Commits(ctx, info.Path, repo.LogOptions{Limit: limit, AllRefs: true})
	if commits.Degraded() {
		return graph.Input{}, commits.Err
	}
	branches := svc.Branches(ctx, info.Path)
	stashes := svc.Stashes(ctx, info.Path)

	return graph.Input{
		Commits:  commits.Data,
		Branches: branches.Data,
		Stashes:  stashes.Data,
		HeadHash: info.HeadHash,
	}, nil
}

// BuildGraph lays out the repository at path once, without a session.
func BuildGraph(ctx context.Context, svc *repo.Service, path string, opts graph.Options, limit int) (*graph.VisualizationData, error) {
	info, err := svc.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	in, err := collect(ctx, svc, info, limit)
	if err != nil {
		return nil, err
	}
	return graph.Layout(in, opts), nil
}

// dbSnapshots is a SnapshotStore that owns its database.
type dbSnapshots struct {
	*storage.SnapshotStore
	db *storage.DB
}

// OpenSnapshots opens the sqlite snapshot store under repoRoot.
func OpenSnapshots(repoRoot string, logger *slog.Logger) (SnapshotStore, error) {
	db, err := storage.Open(repoRoot, logger)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewSnapshotStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &dbSnapshots{SnapshotStore: store, db: db}, nil
}

func (d *dbSnapshots) Close() error {
	d.SnapshotStore.Close()
	return d.db.Close()
}
