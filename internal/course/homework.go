package course

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"homework/internal/filestore"
	"homework/internal/model"
	"homework/internal/store"
)

const (
	homeworkCacheKey   = "homework:list"
	msgHomeworkMissing = "作业不存在"
)

// Homework lists every assignment. The list is served from cache when warm.
func (s *Service) Homework(ctx context.Context) ([]model.Homework, error) {
	if raw, ok := s.cache.Get(ctx, homeworkCacheKey); ok {
		var list []model.Homework
		if err := json.Unmarshal(raw, &list); err == nil {
			return list, nil
		}
		s.log.Warn("drop unreadable homework cache entry")
	}
	list, err := s.repo.ListHomework(ctx)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(list); err == nil {
		s.cache.Set(ctx, homeworkCacheKey, raw, s.cacheTTL)
	}
	return list, nil
}

func (s *Service) invalidateHomework(ctx context.Context) {
	s.cache.Delete(ctx, homeworkCacheKey)
}

func homeworkFromInput(in model.HomeworkInput) (model.Homework, error) {
	h := model.Homework{
		CourseName:      strings.TrimSpace(in.CourseName),
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Requirements,
		Deadline:        strings.TrimSpace(in.Deadline),
		FileNameFormats: in.FileNameFormats,
		Status:          "active",
	}
	if h.CourseName == "" || h.Title == "" || h.Deadline == "" || strings.TrimSpace(h.Description) == "" {
		return model.Homework{}, fail(ErrValidation, msgMissingFields)
	}
	if len(h.FileNameFormats) == 0 {
		h.FileNameFormats = model.DefaultFormats()
	}
	return h, nil
}

// AddHomework publishes an assignment. Missing formats get the default.
func (s *Service) AddHomework(ctx context.Context, in model.HomeworkInput) (model.Homework, error) {
	h, err := homeworkFromInput(in)
	if err != nil {
		return model.Homework{}, err
	}
	h, err = s.repo.CreateHomework(ctx, h)
	if err != nil {
		return model.Homework{}, err
	}
	s.invalidateHomework(ctx)
	return h, nil
}

func (s *Service) UpdateHomework(ctx context.Context, id model.ID, in model.HomeworkInput) error {
	h, err := homeworkFromInput(in)
	if err != nil {
		return err
	}
	h.ID = id
	if err := s.repo.UpdateHomework(ctx, h); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail(ErrNotFound, msgHomeworkMissing)
		}
		return err
	}
	s.invalidateHomework(ctx)
	return nil
}

// DeleteHomework removes an assignment with its submissions and files.
func (s *Service) DeleteHomework(ctx context.Context, id model.ID) error {
	if err := s.repo.DeleteHomework(ctx, id); err != nil {
		return err
	}
	s.invalidateHomework(ctx)
	if err := s.files.DeletePrefix(ctx, filestore.HomeworkPrefix(int64(id))); err != nil {
		s.log.Warn("delete homework files failed", zap.Int64("homework_id", int64(id)), zap.Error(err))
	}
	return nil
}
