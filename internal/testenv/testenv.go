// Package testenv runs the backend in-process for client and controller
// tests: in-memory repository, temp-dir file store, fixed clock.
package testenv

import (
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"homework/internal/apiclient"
	"homework/internal/course"
	"homework/internal/filestore"
	"homework/internal/server"
	"homework/internal/store"
)

// Env is a running backend.
type Env struct {
	URL     string
	Client  *apiclient.Client
	Repo    *store.Memory
	Files   *filestore.Local
	Service *course.Service
	Notice  string

	mu  sync.Mutex
	now time.Time
}

// Option adjusts the server config before start.
type Option func(*server.Config)

// New starts a backend whose clock reads now in UTC.
func New(t *testing.T, now time.Time, opts ...Option) *Env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	files, err := filestore.NewLocal(t.TempDir())
	require.NoError(t, err)

	e := &Env{Repo: store.NewMemory(), Files: files, now: now, Notice: filepath.Join(t.TempDir(), "notice.txt")}
	e.Service = course.NewService(e.Repo, files, course.Options{
		NoticeFile: e.Notice,
		Location:   time.UTC,
		Clock:      e.Now,
		Logger:     zaptest.NewLogger(t),
	})

	cfg := server.Config{
		Service:       e.Service,
		Logger:        zaptest.NewLogger(t),
		JWTSigningKey: "test-key",
		JWTIssuer:     "homework",
		AccessTTL:     time.Hour,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	srv := httptest.NewServer(server.New(cfg))
	t.Cleanup(srv.Close)

	e.URL = srv.URL
	e.Client = apiclient.New(srv.URL, 5*time.Second)
	return e
}

// WithAdminPassword protects admin routes with hash.
func WithAdminPassword(hash string) Option {
	return func(c *server.Config) { c.AdminPasswordHash = hash }
}

// Now is the backend clock.
func (e *Env) Now() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

// SetNow moves the backend clock.
func (e *Env) SetNow(t time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = t
}
