package store

import (
	"context"
	"sort"
	"sync"

	"homework/internal/model"
)

// Memory is an in-process repository for development and tests. It keeps
// the same uniqueness rules as the SQL schema.
type Memory struct {
	mu          sync.Mutex
	seq         int64
	students    map[model.ID]model.Student
	homework    map[model.ID]model.Homework
	submissions map[model.ID]model.Submission
	leaves      map[model.ID]model.Leave
}

func NewMemory() *Memory {
	return &Memory{
		students:    map[model.ID]model.Student{},
		homework:    map[model.ID]model.Homework{},
		submissions: map[model.ID]model.Submission{},
		leaves:      map[model.ID]model.Leave{},
	}
}

func (m *Memory) nextID() model.ID {
	m.seq++
	return model.ID(m.seq)
}

func sortedByID[T any](in map[model.ID]T) []T {
	ids := make([]model.ID, 0, len(in))
	for id := range in {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, in[id])
	}
	return out
}

func (m *Memory) ListStudents(_ context.Context) ([]model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedByID(m.students), nil
}

func (m *Memory) StudentByNumber(_ context.Context, studentID string) (model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.StudentID == studentID {
			return s, nil
		}
	}
	return model.Student{}, ErrNotFound
}

func (m *Memory) numberTaken(studentID string, except model.ID) bool {
	for id, s := range m.students {
		if id != except && s.StudentID == studentID {
			return true
		}
	}
	return false
}

func (m *Memory) CreateStudent(_ context.Context, in model.StudentInput) (model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.numberTaken(in.StudentID, 0) {
		return model.Student{}, ErrDuplicate
	}
	s := model.Student{ID: m.nextID(), StudentID: in.StudentID, Name: in.Name}
	m.students[s.ID] = s
	return s, nil
}

func (m *Memory) UpdateStudent(_ context.Context, id model.ID, in model.StudentInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[id]; !ok {
		return ErrNotFound
	}
	if m.numberTaken(in.StudentID, id) {
		return ErrDuplicate
	}
	m.students[id] = model.Student{ID: id, StudentID: in.StudentID, Name: in.Name}
	return nil
}

func (m *Memory) DeleteStudent(_ context.Context, id model.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.students, id)
	return nil
}

func cloneHomework(h model.Homework) model.Homework {
	h.FileNameFormats = append(model.Formats(nil), h.FileNameFormats...)
	return h
}

func (m *Memory) ListHomework(_ context.Context) ([]model.Homework, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := sortedByID(m.homework)
	for i := range out {
		out[i] = cloneHomework(out[i])
	}
	return out, nil
}

func (m *Memory) GetHomework(_ context.Context, id model.ID) (model.Homework, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.homework[id]
	if !ok {
		return model.Homework{}, ErrNotFound
	}
	return cloneHomework(h), nil
}

func (m *Memory) CreateHomework(_ context.Context, h model.Homework) (model.Homework, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h = cloneHomework(h)
	h.ID = m.nextID()
	m.homework[h.ID] = h
	return cloneHomework(h), nil
}

func (m *Memory) UpdateHomework(_ context.Context, h model.Homework) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.homework[h.ID]
	if !ok {
		return ErrNotFound
	}
	h = cloneHomework(h)
	h.Status = old.Status
	m.homework[h.ID] = h
	return nil
}

func (m *Memory) DeleteHomework(_ context.Context, id model.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.homework, id)
	for sid, s := range m.submissions {
		if s.HomeworkID == id {
			delete(m.submissions, sid)
		}
	}
	return nil
}

func cloneSubmission(s model.Submission) model.Submission {
	s.Filenames = append([]string(nil), s.Filenames...)
	return s
}

func (m *Memory) ListSubmissions(_ context.Context) ([]model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := sortedByID(m.submissions)
	for i := range out {
		out[i] = cloneSubmission(out[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

func (m *Memory) GetSubmission(_ context.Context, homeworkID model.ID, studentID string) (model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.submissions {
		if s.HomeworkID == homeworkID && s.StudentID == studentID {
			return cloneSubmission(s), nil
		}
	}
	return model.Submission{}, ErrNotFound
}

func (m *Memory) CreateSubmission(_ context.Context, s model.Submission) (model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.submissions {
		if other.HomeworkID == s.HomeworkID && other.StudentID == s.StudentID {
			return model.Submission{}, ErrDuplicate
		}
	}
	s = cloneSubmission(s)
	s.ID = m.nextID()
	m.submissions[s.ID] = s
	return cloneSubmission(s), nil
}

func (m *Memory) DeleteSubmission(_ context.Context, homeworkID model.ID, studentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.submissions {
		if s.HomeworkID == homeworkID && s.StudentID == studentID {
			delete(m.submissions, id)
			return nil
		}
	}
	return ErrNotFound
}

func cloneLeave(l model.Leave) model.Leave {
	l.Images = append([]string{}, l.Images...)
	return l
}

func (m *Memory) ListLeaves(_ context.Context) ([]model.Leave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := sortedByID(m.leaves)
	for i := range out {
		out[i] = cloneLeave(out[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

func (m *Memory) CreateLeave(_ context.Context, l model.Leave) (model.Leave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l = cloneLeave(l)
	l.ID = m.nextID()
	m.leaves[l.ID] = l
	return cloneLeave(l), nil
}

func (m *Memory) SetLeaveStatus(_ context.Context, id model.ID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leaves[id]
	if !ok {
		return ErrNotFound
	}
	l.Status = status
	m.leaves[id] = l
	return nil
}

func (m *Memory) DeleteLeave(_ context.Context, id model.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.leaves, id)
	return nil
}
