package course

import (
	"context"
	"errors"
	"strings"

	"homework/internal/model"
	"homework/internal/store"
)

const (
	msgStudentExists  = "该学号已存在"
	msgStudentMissing = "学生不存在"
	msgStudentInvalid = "学生信息不存在或姓名与学号不匹配"
)

func (s *Service) Students(ctx context.Context) ([]model.Student, error) {
	return s.repo.ListStudents(ctx)
}

func checkStudentInput(in model.StudentInput) (model.StudentInput, error) {
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.Name = strings.TrimSpace(in.Name)
	if in.StudentID == "" || in.Name == "" {
		return in, fail(ErrValidation, msgMissingFields)
	}
	return in, nil
}

// AddStudent adds a roster entry. Student numbers are unique.
func (s *Service) AddStudent(ctx context.Context, in model.StudentInput) (model.Student, error) {
	in, err := checkStudentInput(in)
	if err != nil {
		return model.Student{}, err
	}
	st, err := s.repo.CreateStudent(ctx, in)
	if errors.Is(err, store.ErrDuplicate) {
		return model.Student{}, fail(ErrConflict, msgStudentExists)
	}
	return st, err
}

func (s *Service) UpdateStudent(ctx context.Context, id model.ID, in model.StudentInput) error {
	in, err := checkStudentInput(in)
	if err != nil {
		return err
	}
	switch err := s.repo.UpdateStudent(ctx, id, in); {
	case errors.Is(err, store.ErrNotFound):
		return fail(ErrNotFound, msgStudentMissing)
	case errors.Is(err, store.ErrDuplicate):
		return fail(ErrConflict, msgStudentExists)
	default:
		return err
	}
}

func (s *Service) DeleteStudent(ctx context.Context, id model.ID) error {
	list, err := s.repo.ListStudents(ctx)
	if err != nil {
		return err
	}
	for _, st := range list {
		if st.ID == id {
			return s.repo.DeleteStudent(ctx, id)
		}
	}
	return fail(ErrNotFound, msgStudentMissing)
}

// verifyStudent checks that studentID is on the roster under name.
func (s *Service) verifyStudent(ctx context.Context, studentID, name string, kind error, msg string) error {
	st, err := s.repo.StudentByNumber(ctx, studentID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && st.Name != name) {
		return fail(kind, msg)
	}
	return err
}
