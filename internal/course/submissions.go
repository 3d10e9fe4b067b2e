package course

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"

	"homework/internal/filestore"
	"homework/internal/model"
	"homework/internal/store"
)

const (
	msgAlreadySubmitted = "您已经提交过该作业，如需重新提交，请联系聪明的学委"
	msgFileMissing      = "文件不存在"
)

// Upload is one file of a submission or a leave request.
type Upload struct {
	Name    string
	Content io.Reader
}

// UploadInput is a student's homework submission.
type UploadInput struct {
	StudentName string
	StudentID   string
	HomeworkID  model.ID
	Description string
	Files       []Upload
}

// Upload records a submission after checking the roster, the deadline and
// the file names. Every name is checked before anything is stored.
func (s *Service) Upload(ctx context.Context, in UploadInput) (model.Submission, error) {
	if in.StudentName == "" || in.StudentID == "" || in.HomeworkID == 0 {
		return model.Submission{}, fail(ErrValidation, msgMissingFields)
	}
	if err := s.verifyStudent(ctx, in.StudentID, in.StudentName, ErrValidation, msgStudentInvalid); err != nil {
		return model.Submission{}, err
	}
	if filestore.CheckName(in.StudentID+"_"+in.StudentName) != nil {
		return model.Submission{}, fail(ErrValidation, msgStudentInvalid)
	}

	hw, err := s.repo.GetHomework(ctx, in.HomeworkID)
	if errors.Is(err, store.ErrNotFound) {
		return model.Submission{}, fail(ErrNotFound, msgHomeworkMissing)
	}
	if err != nil {
		return model.Submission{}, err
	}

	now := s.clock()
	deadline, err := model.ParseDeadline(hw.Deadline, s.loc)
	if err != nil {
		return model.Submission{}, fail(ErrValidation, "作业截止日期格式错误")
	}
	if now.After(deadline) {
		return model.Submission{}, fail(ErrValidation, "作业已截止")
	}

	_, err = s.repo.GetSubmission(ctx, hw.ID, in.StudentID)
	switch {
	case err == nil:
		return model.Submission{}, fail(ErrConflict, msgAlreadySubmitted)
	case !errors.Is(err, store.ErrNotFound):
		return model.Submission{}, err
	}

	if len(in.Files) == 0 {
		return model.Submission{}, fail(ErrValidation, "没有文件被上传")
	}
	formats := hw.FileNameFormats
	if len(formats) == 0 {
		formats = model.DefaultFormats()
	}
	for _, f := range in.Files {
		if !formats.Match(f.Name, in.StudentID, in.StudentName, hw.ID) || filestore.CheckName(f.Name) != nil {
			return model.Submission{}, fail(ErrValidation, badNameMessage(formats.Expand(in.StudentID, in.StudentName, hw.ID)))
		}
	}

	names := make([]string, 0, len(in.Files))
	for _, f := range in.Files {
		key := filestore.SubmissionKey(int64(hw.ID), in.StudentID, in.StudentName, f.Name)
		if err := s.files.Put(ctx, key, f.Content); err != nil {
			return model.Submission{}, fmt.Errorf("store %s: %w", f.Name, err)
		}
		names = append(names, f.Name)
	}

	sub, err := s.repo.CreateSubmission(ctx, model.Submission{
		HomeworkID:  hw.ID,
		StudentID:   in.StudentID,
		StudentName: in.StudentName,
		Description: in.Description,
		Filenames:   names,
		Status:      model.SubmissionSubmitted,
		SubmittedAt: now,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return model.Submission{}, fail(ErrConflict, msgAlreadySubmitted)
	}
	if err != nil {
		return model.Submission{}, err
	}
	s.log.Info("homework submitted",
		zap.Int64("homework_id", int64(hw.ID)),
		zap.String("student_id", in.StudentID),
		zap.Int("files", len(names)))
	return s.decorate(sub, hw), nil
}

func badNameMessage(examples []string) string {
	if len(examples) == 0 {
		return "文件名格式不正确，请检查作业要求中的文件命名格式"
	}
	return "文件名格式不正确，请按照以下任一格式命名：\n" + strings.Join(examples, "\n")
}

func (s *Service) decorate(sub model.Submission, hw model.Homework) model.Submission {
	sub.HomeworkTitle = hw.Title
	sub.CourseName = hw.CourseName
	sub.SubmitTime = sub.SubmittedAt.In(s.loc).Format(model.TimeLayout)
	return sub
}

// SubmissionFilter narrows Submissions. Empty fields match everything.
type SubmissionFilter struct {
	Course      string
	StudentID   string
	StudentName string
}

func (f SubmissionFilter) match(sub model.Submission) bool {
	if f.Course != "" && sub.CourseName != f.Course {
		return false
	}
	if f.StudentID != "" && sub.StudentID != f.StudentID {
		return false
	}
	return f.StudentName == "" || strings.EqualFold(sub.StudentName, f.StudentName)
}

// Submissions lists the submissions of existing assignments with their
// titles and course names.
func (s *Service) Submissions(ctx context.Context, f SubmissionFilter) ([]model.Submission, error) {
	homework, err := s.repo.ListHomework(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[model.ID]model.Homework, len(homework))
	for _, h := range homework {
		byID[h.ID] = h
	}
	subs, err := s.repo.ListSubmissions(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.Submission{}
	for _, sub := range subs {
		hw, ok := byID[sub.HomeworkID]
		if !ok {
			continue
		}
		sub = s.decorate(sub, hw)
		if f.match(sub) {
			out = append(out, sub)
		}
	}
	return out, nil
}

// StudentSubmissions lists one student's submissions by submit time.
func (s *Service) StudentSubmissions(ctx context.Context, studentID string) ([]model.Submission, error) {
	if studentID == "" {
		return []model.Submission{}, nil
	}
	out, err := s.Submissions(ctx, SubmissionFilter{StudentID: studentID})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

// MissingSubmissions pairs every roster student with each assignment of
// course they have not submitted. No course means no result.
func (s *Service) MissingSubmissions(ctx context.Context, course string) ([]model.MissingSubmission, error) {
	out := []model.MissingSubmission{}
	if course == "" {
		return out, nil
	}
	homework, err := s.repo.ListHomework(ctx)
	if err != nil {
		return nil, err
	}
	students, err := s.repo.ListStudents(ctx)
	if err != nil {
		return nil, err
	}
	subs, err := s.repo.ListSubmissions(ctx)
	if err != nil {
		return nil, err
	}
	type key struct {
		hw  model.ID
		sid string
	}
	submitted := make(map[key]bool, len(subs))
	for _, sub := range subs {
		submitted[key{sub.HomeworkID, sub.StudentID}] = true
	}
	for _, hw := range homework {
		if hw.CourseName != course {
			continue
		}
		for _, st := range students {
			if submitted[key{hw.ID, st.StudentID}] {
				continue
			}
			out = append(out, model.MissingSubmission{
				CourseName:  hw.CourseName,
				Title:       hw.Title,
				StudentID:   st.StudentID,
				StudentName: st.Name,
				Deadline:    hw.Deadline,
			})
		}
	}
	return out, nil
}

// DeleteSubmission clears a student's submission and its files so it can be
// uploaded again. It returns the message shown to the student.
func (s *Service) DeleteSubmission(ctx context.Context, homeworkID model.ID, studentID, studentName string) (string, error) {
	if studentName == "" {
		return "", fail(ErrValidation, "需要提供学生姓名")
	}
	if err := s.verifyStudent(ctx, studentID, studentName, ErrForbidden, "学生信息验证失败"); err != nil {
		return "", err
	}
	sub, err := s.repo.GetSubmission(ctx, homeworkID, studentID)
	if errors.Is(err, store.ErrNotFound) {
		return "无历史提交记录", nil
	}
	if err != nil {
		return "", err
	}
	err = s.repo.DeleteSubmission(ctx, homeworkID, studentID)
	if errors.Is(err, store.ErrNotFound) {
		return "无历史提交记录", nil
	}
	if err != nil {
		return "", err
	}
	// Files live under the name recorded at upload time.
	if err := s.files.DeletePrefix(ctx, filestore.SubmissionPrefix(int64(homeworkID), studentID, sub.StudentName)); err != nil {
		s.log.Warn("delete submission files failed",
			zap.Int64("homework_id", int64(homeworkID)), zap.String("student_id", studentID), zap.Error(err))
	}
	return "历史提交已清除", nil
}

// OpenSubmissionFile opens one file of a recorded submission.
func (s *Service) OpenSubmissionFile(ctx context.Context, homeworkID model.ID, studentID, filename string) (io.ReadCloser, error) {
	sub, err := s.repo.GetSubmission(ctx, homeworkID, studentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fail(ErrNotFound, msgFileMissing)
	}
	if err != nil {
		return nil, err
	}
	listed := false
	for _, name := range sub.Filenames {
		if name == filename {
			listed = true
			break
		}
	}
	if !listed {
		return nil, fail(ErrNotFound, msgFileMissing)
	}
	rc, err := s.files.Open(ctx, filestore.SubmissionKey(int64(homeworkID), studentID, sub.StudentName, filename))
	if errors.Is(err, filestore.ErrNotExist) {
		return nil, fail(ErrNotFound, msgFileMissing)
	}
	return rc, err
}
