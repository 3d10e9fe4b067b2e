// Package course holds the backend rules of the homework system.
package course

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"homework/internal/cache"
	"homework/internal/filestore"
	"homework/internal/model"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
)

// Error is a rule violation with the message shown to the user.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func fail(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

const msgMissingFields = "缺少必要信息"

// Repository persists course records.
type Repository interface {
	ListStudents(ctx context.Context) ([]model.Student, error)
	StudentByNumber(ctx context.Context, studentID string) (model.Student, error)
	CreateStudent(ctx context.Context, in model.StudentInput) (model.Student, error)
	UpdateStudent(ctx context.Context, id model.ID, in model.StudentInput) error
	DeleteStudent(ctx context.Context, id model.ID) error

	ListHomework(ctx context.Context) ([]model.Homework, error)
	GetHomework(ctx context.Context, id model.ID) (model.Homework, error)
	CreateHomework(ctx context.Context, h model.Homework) (model.Homework, error)
	UpdateHomework(ctx context.Context, h model.Homework) error
	DeleteHomework(ctx context.Context, id model.ID) error

	ListSubmissions(ctx context.Context) ([]model.Submission, error)
	GetSubmission(ctx context.Context, homeworkID model.ID, studentID string) (model.Submission, error)
	CreateSubmission(ctx context.Context, s model.Submission) (model.Submission, error)
	DeleteSubmission(ctx context.Context, homeworkID model.ID, studentID string) error

	ListLeaves(ctx context.Context) ([]model.Leave, error)
	CreateLeave(ctx context.Context, l model.Leave) (model.Leave, error)
	SetLeaveStatus(ctx context.Context, id model.ID, status string) error
	DeleteLeave(ctx context.Context, id model.ID) error
}

// ImageStore keeps leave images and returns the reference stored with the
// leave request (a URL or a file name).
type ImageStore interface {
	SaveImage(ctx context.Context, name string, data []byte) (string, error)
}

// Options configures a Service. Zero values pick sensible defaults.
type Options struct {
	Images     ImageStore
	Cache      cache.Cache
	CacheTTL   time.Duration
	NoticeFile string
	Location   *time.Location
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Service implements the backend operations on a repository and a file store.
type Service struct {
	repo     Repository
	files    filestore.Store
	images   ImageStore
	cache    cache.Cache
	cacheTTL time.Duration
	notice   string
	loc      *time.Location
	now      func() time.Time
	log      *zap.Logger
}

func NewService(repo Repository, files filestore.Store, opts Options) *Service {
	s := &Service{
		repo:     repo,
		files:    files,
		images:   opts.Images,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		notice:   opts.NoticeFile,
		loc:      opts.Location,
		now:      opts.Clock,
		log:      opts.Logger,
	}
	if s.images == nil {
		s.images = StoredImages{Files: files}
	}
	if s.cache == nil {
		s.cache = cache.NewMemory()
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = 5 * time.Minute
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

func (s *Service) clock() time.Time { return s.now().In(s.loc) }

// StoredImages saves leave images next to submissions under leave_images/.
type StoredImages struct {
	Files filestore.Store
}

func (si StoredImages) SaveImage(ctx context.Context, name string, data []byte) (string, error) {
	if err := filestore.CheckName(name); err != nil {
		return "", err
	}
	if err := si.Files.Put(ctx, "leave_images/"+name, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("save leave image: %w", err)
	}
	return name, nil
}
