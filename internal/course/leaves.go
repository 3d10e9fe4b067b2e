package course

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"homework/internal/filestore"
	"homework/internal/model"
	"homework/internal/store"
)

// LeaveInput is a student's leave application.
type LeaveInput struct {
	StudentName string
	StudentID   string
	LeaveType   string
	Reason      string
	Images      []Upload
}

// SubmitLeave files a leave request. A student may file one per day.
func (s *Service) SubmitLeave(ctx context.Context, in LeaveInput) (model.Leave, error) {
	if in.StudentName == "" || in.StudentID == "" || in.LeaveType == "" || in.Reason == "" {
		return model.Leave{}, fail(ErrValidation, msgMissingFields)
	}
	if err := s.verifyStudent(ctx, in.StudentID, in.StudentName, ErrValidation, msgStudentInvalid); err != nil {
		return model.Leave{}, err
	}

	now := s.clock()
	today := now.Format(model.DateLayout)
	leaves, err := s.repo.ListLeaves(ctx)
	if err != nil {
		return model.Leave{}, err
	}
	for _, l := range leaves {
		if l.StudentID == in.StudentID && l.SubmittedAt.In(s.loc).Format(model.DateLayout) == today {
			return model.Leave{}, fail(ErrConflict, "您今天已经提交过请假申请，不能重复提交")
		}
	}

	images := []string{}
	for _, img := range in.Images {
		if img.Name == "" {
			continue
		}
		data, err := io.ReadAll(img.Content)
		if err != nil {
			return model.Leave{}, fmt.Errorf("read leave image %s: %w", img.Name, err)
		}
		ref, err := s.images.SaveImage(ctx, leaveImageName(in, now.Format("20060102_150405"), img.Name), data)
		if err != nil {
			return model.Leave{}, fmt.Errorf("save leave image %s: %w", img.Name, err)
		}
		images = append(images, ref)
	}

	l, err := s.repo.CreateLeave(ctx, model.Leave{
		StudentName: in.StudentName,
		StudentID:   in.StudentID,
		LeaveType:   in.LeaveType,
		Reason:      in.Reason,
		Images:      images,
		Status:      model.LeavePending,
		SubmittedAt: now,
	})
	if err != nil {
		return model.Leave{}, err
	}
	s.log.Info("leave submitted", zap.String("student_id", in.StudentID), zap.Int("images", len(images)))
	l.SubmitTime = now.Format(model.TimeLayout)
	return l, nil
}

// leaveImageName is <name>_<studentId>_<timestamp>_<original>. Names that do
// not make a single path segment are replaced by a random one.
func leaveImageName(in LeaveInput, stamp, original string) string {
	name := fmt.Sprintf("%s_%s_%s_%s", in.StudentName, in.StudentID, stamp, path.Base(strings.ReplaceAll(original, `\`, "/")))
	if filestore.CheckName(name) != nil {
		return uuid.NewString() + path.Ext(original)
	}
	return name
}

// Leaves lists the leave requests submitted on date (YYYY-MM-DD), or all
// of them when date is empty.
func (s *Service) Leaves(ctx context.Context, date string) ([]model.Leave, error) {
	all, err := s.repo.ListLeaves(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.Leave{}
	for _, l := range all {
		local := l.SubmittedAt.In(s.loc)
		if date != "" && local.Format(model.DateLayout) != date {
			continue
		}
		l.SubmitTime = local.Format(model.TimeLayout)
		out = append(out, l)
	}
	return out, nil
}

// SetLeaveStatus approves or rejects a leave request.
func (s *Service) SetLeaveStatus(ctx context.Context, id model.ID, status string) error {
	if status != model.LeaveApproved && status != model.LeaveRejected {
		return fail(ErrValidation, "无效的请假状态")
	}
	err := s.repo.SetLeaveStatus(ctx, id, status)
	if errors.Is(err, store.ErrNotFound) {
		return fail(ErrNotFound, "请假记录不存在")
	}
	return err
}
