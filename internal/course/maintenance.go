package course

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"homework/internal/filestore"
	"homework/internal/model"
	"homework/internal/store"
)

const noticeCacheKey = "notice"

// ExportResult reports a bulk export.
type ExportResult struct {
	Message string
	Files   []string
}

// ExportAll copies every submitted file of an assignment into dir on the
// server's filesystem, keeping the original file names.
func (s *Service) ExportAll(ctx context.Context, homeworkID model.ID, dir string) (ExportResult, error) {
	if dir == "" {
		return ExportResult{}, fail(ErrValidation, "请指定保存路径")
	}
	if _, err := s.repo.GetHomework(ctx, homeworkID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ExportResult{}, fail(ErrNotFound, "作业目录不存在")
		}
		return ExportResult{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ExportResult{}, fmt.Errorf("create export dir: %w", err)
	}

	subs, err := s.repo.ListSubmissions(ctx)
	if err != nil {
		return ExportResult{}, err
	}
	copied := []string{}
	for _, sub := range subs {
		if sub.HomeworkID != homeworkID {
			continue
		}
		for _, name := range sub.Filenames {
			key := filestore.SubmissionKey(int64(homeworkID), sub.StudentID, sub.StudentName, name)
			err := s.copyOut(ctx, key, filepath.Join(dir, filepath.Base(name)))
			if errors.Is(err, filestore.ErrNotExist) {
				continue
			}
			if err != nil {
				return ExportResult{}, err
			}
			copied = append(copied, name)
		}
	}
	if len(copied) == 0 {
		return ExportResult{}, fail(ErrNotFound, "没有找到任何提交的文件")
	}
	s.log.Info("submissions exported", zap.Int64("homework_id", int64(homeworkID)), zap.String("dir", dir), zap.Int("files", len(copied)))
	return ExportResult{
		Message: fmt.Sprintf("已复制 %d 个文件到目录: %s", len(copied), dir),
		Files:   copied,
	}, nil
}

func (s *Service) copyOut(ctx context.Context, key, dst string) error {
	rc, err := s.files.Open(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		return fmt.Errorf("copy %s: %w", key, err)
	}
	return f.Close()
}

// ClearResult counts the records a cleanup removed.
type ClearResult struct {
	Leaves   int
	Homework int
}

// ClearCache removes leave requests submitted before today and assignments
// whose deadline date is at or before today minus two days, then drops the
// cached responses. Deadlines that do not parse are kept.
func (s *Service) ClearCache(ctx context.Context) (ClearResult, error) {
	var res ClearResult
	now := s.clock()
	today := now.Format(model.DateLayout)
	cutoff := now.AddDate(0, 0, -2).Format(model.DateLayout)

	leaves, err := s.repo.ListLeaves(ctx)
	if err != nil {
		return res, err
	}
	for _, l := range leaves {
		if l.SubmittedAt.In(s.loc).Format(model.DateLayout) >= today {
			continue
		}
		if err := s.repo.DeleteLeave(ctx, l.ID); err != nil {
			return res, err
		}
		res.Leaves++
	}

	homework, err := s.repo.ListHomework(ctx)
	if err != nil {
		return res, err
	}
	for _, h := range homework {
		deadline, err := model.ParseDeadline(h.Deadline, s.loc)
		if err != nil || deadline.In(s.loc).Format(model.DateLayout) > cutoff {
			continue
		}
		if err := s.DeleteHomework(ctx, h.ID); err != nil {
			return res, err
		}
		res.Homework++
	}

	s.invalidateHomework(ctx)
	s.cache.Delete(ctx, noticeCacheKey)
	s.log.Info("cache cleared", zap.Int("leaves", res.Leaves), zap.Int("homework", res.Homework))
	return res, nil
}

// Notice returns the contents of the notice file. A missing file is an
// empty notice.
func (s *Service) Notice(ctx context.Context) (string, error) {
	if raw, ok := s.cache.Get(ctx, noticeCacheKey); ok {
		return string(raw), nil
	}
	if s.notice == "" {
		return "", nil
	}
	b, err := os.ReadFile(s.notice)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read notice: %w", err)
	}
	s.cache.Set(ctx, noticeCacheKey, b, s.cacheTTL)
	return string(b), nil
}

// RunDaily runs ClearCache every day at hour (local time) until ctx ends.
func (s *Service) RunDaily(ctx context.Context, hour int) error {
	for {
		next := nextRun(s.clock(), hour)
		s.log.Info("next cleanup scheduled", zap.Time("at", next))
		timer := time.NewTimer(next.Sub(s.clock()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if _, err := s.ClearCache(ctx); err != nil {
			s.log.Error("scheduled cleanup failed", zap.Error(err))
		}
	}
}

// nextRun is the first time strictly after now at hour:00.
func nextRun(now time.Time, hour int) time.Time {
	if hour < 0 || hour > 23 {
		hour = 3
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
