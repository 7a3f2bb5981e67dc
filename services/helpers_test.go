package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/sahilchouksey/catalog-api/services"
	"github.com/sahilchouksey/catalog-api/services/consistency"
	"github.com/sahilchouksey/catalog-api/utils/testdb"
)

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]string
	acquired []string
	err      error
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]string)}
}

func (l *fakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return "", false, l.err
	}
	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	token := uuid.NewString()
	l.held[key] = token
	l.acquired = append(l.acquired, key)
	return token, true, nil
}

func (l *fakeLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

// hold simulates another writer owning key
func (l *fakeLocker) hold(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[key] = "someone-else"
}

type fakeThumbnails struct {
	mu      sync.Mutex
	deleted []string
	err     error
}

func (f *fakeThumbnails) DeleteByURL(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	return f.err
}

type env struct {
	db      *gorm.DB
	engine  *consistency.Engine
	catalog *testdb.Catalog
	locker  *fakeLocker
	thumbs  *fakeThumbnails
	opts    services.Options
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testdb.Open(t)
	e := &env{
		db:      db,
		engine:  consistency.NewEngine(db),
		catalog: testdb.NewCatalog(t, db),
		locker:  newFakeLocker(),
		thumbs:  &fakeThumbnails{},
	}
	e.opts = services.Options{
		Locker:       e.locker,
		Thumbnails:   e.thumbs,
		PasswordCost: bcrypt.MinCost,
	}
	return e
}

func (e *env) setThumbnail(t *testing.T, facultyID, url string) {
	t.Helper()
	err := e.db.Table("faculties").Where("id = ?", facultyID).Update("thumbnail_url", url).Error
	if err != nil {
		t.Fatalf("set thumbnail: %v", err)
	}
}

var errBackendDown = errors.New("redis: connection refused")

func period() (time.Time, time.Time) {
	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}
