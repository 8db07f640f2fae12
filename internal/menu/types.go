package menu

import (
	"context"

	"github.com/bowerhall/roster/internal/builder"
	"github.com/bowerhall/roster/internal/history"
	"github.com/bowerhall/roster/internal/person"
	"github.com/bowerhall/roster/internal/storage"
)

type Builder interface {
	Build(ctx context.Context, target int) (person.Dataset, error)
}

type Store interface {
	Save(ds person.Dataset) error
	Load() (person.Dataset, error)
	Path() string
}

// Recorder is the subset of history.Store the menu uses.
type Recorder interface {
	RecordBuild(run history.BuildRun) (string, error)
	RecordSearch(run history.SearchRun) (string, error)
	RecentBuilds(limit int) ([]history.BuildRun, error)
	RecentSearches(limit int) ([]history.SearchRun, error)
	Stats() (history.Stats, error)
}

// Backup is the subset of storage.Client the menu uses.
type Backup interface {
	Backup(ctx context.Context, path string) (string, error)
	Backups(ctx context.Context) ([]storage.FileInfo, error)
	Healthy(ctx context.Context) bool
	Restore(ctx context.Context, name, path string) error
}

type progressReporter interface {
	OnProgress(fn builder.ProgressFunc)
}
