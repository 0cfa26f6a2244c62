package bootstrap

import (
	"context"

	"github.com/example/interview-scheduler/internal/application"
	"github.com/example/interview-scheduler/internal/directory"
)

// directoryAdapter resolves people from the current directory snapshot.
type directoryAdapter struct {
	cache *directory.Cache
}

func newDirectoryAdapter(cache *directory.Cache) *directoryAdapter {
	return &directoryAdapter{cache: cache}
}

func (a *directoryAdapter) Lookup(ctx context.Context, id int64) (application.Person, bool) {
	user, ok := a.cache.Snapshot(ctx).Lookup(id)
	if !ok {
		return application.Person{}, false
	}
	return application.Person{ID: user.ID, FullName: user.FullName, Email: user.Email}, true
}
