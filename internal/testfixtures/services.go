package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/interview-scheduler/internal/bootstrap"
	"github.com/example/interview-scheduler/internal/config"
	"github.com/example/interview-scheduler/internal/directory"
)

// DirectoryStub is an in-memory directory.Source whose answer can be swapped mid-test.
type DirectoryStub struct {
	mu    sync.Mutex
	users []directory.User
	err   error
	calls atomic.Int32
}

// NewDirectoryStub serves users.
func NewDirectoryStub(users []directory.User) *DirectoryStub {
	return &DirectoryStub{users: users}
}

// FetchAll implements directory.Source.
func (s *DirectoryStub) FetchAll(ctx context.Context) ([]directory.User, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]directory.User, len(s.users))
	copy(out, s.users)
	return out, nil
}

// Set replaces the served users and error.
func (s *DirectoryStub) Set(users []directory.User, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = users
	s.err = err
}

// Calls reports how many fetches were served.
func (s *DirectoryStub) Calls() int {
	return int(s.calls.Load())
}

// EngineFactory assists tests with constructing fully wired engines using
// deterministic identifiers, clocks and directory data.
type EngineFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Directory   *DirectoryStub
	Logger      *slog.Logger
}

// EngineFactoryOption configures an EngineFactory instance.
type EngineFactoryOption func(*EngineFactory)

// NewEngineFactory constructs an EngineFactory with defaults: a clock one day before
// ReferenceTime, "id" prefixed identifiers and the People directory.
func NewEngineFactory(opts ...EngineFactoryOption) *EngineFactory {
	factory := &EngineFactory{
		Clock:       NewClock(-24 * time.Hour),
		IDGenerator: NewIDGenerator("id"),
		Directory:   NewDirectoryStub(People()),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(0)
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Directory == nil {
		factory.Directory = NewDirectoryStub(nil)
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) EngineFactoryOption {
	return func(factory *EngineFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) EngineFactoryOption {
	return func(factory *EngineFactory) {
		factory.IDGenerator = generator
	}
}

// WithDirectory overrides the directory source used by the factory.
func WithDirectory(stub *DirectoryStub) EngineFactoryOption {
	return func(factory *EngineFactory) {
		factory.Directory = stub
	}
}

// WithLogger overrides the discard logger.
func WithLogger(logger *slog.Logger) EngineFactoryOption {
	return func(factory *EngineFactory) {
		if logger != nil {
			factory.Logger = logger
		}
	}
}

// NewEngine builds an engine on a migrated temporary SQLite database. The engine is
// closed when the test ends.
func (f *EngineFactory) NewEngine(tb testing.TB, adjust ...func(*config.Config)) *bootstrap.Engine {
	tb.Helper()

	dbConfig := SQLiteTestConfig(tb)
	cfg := config.Defaults()
	cfg.SQLitePath = dbConfig.Path
	for _, fn := range adjust {
		fn(&cfg)
	}

	engine, err := bootstrap.NewEngine(context.Background(), bootstrap.Options{
		Config:          cfg,
		Logger:          f.Logger,
		Now:             f.Clock.NowFunc(),
		IDs:             f.IDGenerator.NextFunc(),
		SQLite:          &dbConfig,
		DirectorySource: f.Directory,
	})
	if err != nil {
		tb.Fatalf("failed to build engine: %v", err)
	}
	tb.Cleanup(func() { _ = engine.Close() })
	return engine
}
