package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"homework/internal/model"
)

// SQLRepository persists course records in Postgres or SQLite. Queries use
// $N placeholders in order of appearance so both drivers bind them alike.
type SQLRepository struct {
	db *sql.DB
}

// NewSQLRepository creates a repo on an opened DB.
func NewSQLRepository(db *DB) *SQLRepository {
	return &SQLRepository{db: db.Client}
}

// ListStudents returns the roster ordered by id.
func (r *SQLRepository) ListStudents(ctx context.Context) ([]model.Student, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, student_id, name FROM students ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Student{}
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.ID, &s.StudentID, &s.Name); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// StudentByNumber looks a student up by student number.
func (r *SQLRepository) StudentByNumber(ctx context.Context, studentID string) (model.Student, error) {
	var s model.Student
	err := r.db.QueryRowContext(ctx, `SELECT id, student_id, name FROM students WHERE student_id = $1`, studentID).
		Scan(&s.ID, &s.StudentID, &s.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Student{}, ErrNotFound
	}
	return s, err
}

// CreateStudent inserts a student. A taken student number yields ErrDuplicate.
func (r *SQLRepository) CreateStudent(ctx context.Context, in model.StudentInput) (model.Student, error) {
	s := model.Student{StudentID: in.StudentID, Name: in.Name}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO students (student_id, name)
		VALUES ($1, $2)
		RETURNING id
	`, in.StudentID, in.Name).Scan(&s.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Student{}, ErrDuplicate
		}
		return model.Student{}, err
	}
	return s, nil
}

// UpdateStudent replaces number and name.
func (r *SQLRepository) UpdateStudent(ctx context.Context, id model.ID, in model.StudentInput) error {
	res, err := r.db.ExecContext(ctx, `UPDATE students SET student_id = $1, name = $2 WHERE id = $3`,
		in.StudentID, in.Name, int64(id))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return expectOne(res)
}

// DeleteStudent removes a student. Deleting an absent id is not an error.
func (r *SQLRepository) DeleteStudent(ctx context.Context, id model.ID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, int64(id))
	return err
}

const homeworkColumns = `id, course_name, title, description, deadline, file_name_formats, status`

func scanHomework(sc interface{ Scan(...any) error }) (model.Homework, error) {
	var (
		h       model.Homework
		formats string
	)
	if err := sc.Scan(&h.ID, &h.CourseName, &h.Title, &h.Description, &h.Deadline, &formats, &h.Status); err != nil {
		return model.Homework{}, err
	}
	if err := json.Unmarshal([]byte(formats), &h.FileNameFormats); err != nil {
		return model.Homework{}, fmt.Errorf("decode formats of homework %d: %w", h.ID, err)
	}
	return h, nil
}

// ListHomework returns every assignment ordered by id.
func (r *SQLRepository) ListHomework(ctx context.Context) ([]model.Homework, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+homeworkColumns+` FROM homework ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Homework{}
	for rows.Next() {
		h, err := scanHomework(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// GetHomework returns one assignment.
func (r *SQLRepository) GetHomework(ctx context.Context, id model.ID) (model.Homework, error) {
	h, err := scanHomework(r.db.QueryRowContext(ctx, `SELECT `+homeworkColumns+` FROM homework WHERE id = $1`, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Homework{}, ErrNotFound
	}
	return h, err
}

// CreateHomework inserts an assignment and returns it with its id.
func (r *SQLRepository) CreateHomework(ctx context.Context, h model.Homework) (model.Homework, error) {
	formats, err := json.Marshal(h.FileNameFormats)
	if err != nil {
		return model.Homework{}, err
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO homework (course_name, title, description, deadline, file_name_formats, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, h.CourseName, h.Title, h.Description, h.Deadline, string(formats), h.Status).Scan(&h.ID)
	if err != nil {
		return model.Homework{}, err
	}
	return h, nil
}

// UpdateHomework replaces the editable fields of an assignment.
func (r *SQLRepository) UpdateHomework(ctx context.Context, h model.Homework) error {
	formats, err := json.Marshal(h.FileNameFormats)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE homework
		SET course_name = $1, title = $2, description = $3, deadline = $4, file_name_formats = $5
		WHERE id = $6
	`, h.CourseName, h.Title, h.Description, h.Deadline, string(formats), int64(h.ID))
	if err != nil {
		return err
	}
	return expectOne(res)
}

// DeleteHomework removes an assignment and its submissions.
func (r *SQLRepository) DeleteHomework(ctx context.Context, id model.ID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM submissions WHERE homework_id = $1`, int64(id)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM homework WHERE id = $1`, int64(id)); err != nil {
		return err
	}
	return tx.Commit()
}

const submissionColumns = `id, homework_id, student_id, student_name, description, filenames, status, submitted_at`

func scanSubmission(sc interface{ Scan(...any) error }) (model.Submission, error) {
	var (
		s     model.Submission
		files string
	)
	if err := sc.Scan(&s.ID, &s.HomeworkID, &s.StudentID, &s.StudentName, &s.Description, &files, &s.Status, &s.SubmittedAt); err != nil {
		return model.Submission{}, err
	}
	if err := json.Unmarshal([]byte(files), &s.Filenames); err != nil {
		return model.Submission{}, fmt.Errorf("decode filenames of submission %d: %w", s.ID, err)
	}
	return s, nil
}

// ListSubmissions returns every submission ordered by submit time.
func (r *SQLRepository) ListSubmissions(ctx context.Context) ([]model.Submission, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+submissionColumns+` FROM submissions ORDER BY submitted_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Submission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSubmission returns a student's submission of an assignment.
func (r *SQLRepository) GetSubmission(ctx context.Context, homeworkID model.ID, studentID string) (model.Submission, error) {
	s, err := scanSubmission(r.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE homework_id = $1 AND student_id = $2`,
		int64(homeworkID), studentID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Submission{}, ErrNotFound
	}
	return s, err
}

// CreateSubmission records an upload. A second one for the same student and
// assignment yields ErrDuplicate.
func (r *SQLRepository) CreateSubmission(ctx context.Context, s model.Submission) (model.Submission, error) {
	files, err := json.Marshal(s.Filenames)
	if err != nil {
		return model.Submission{}, err
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO submissions (homework_id, student_id, student_name, description, filenames, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, int64(s.HomeworkID), s.StudentID, s.StudentName, s.Description, string(files), s.Status, s.SubmittedAt.UTC()).Scan(&s.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Submission{}, ErrDuplicate
		}
		return model.Submission{}, err
	}
	return s, nil
}

// DeleteSubmission removes a student's submission of an assignment.
func (r *SQLRepository) DeleteSubmission(ctx context.Context, homeworkID model.ID, studentID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM submissions WHERE homework_id = $1 AND student_id = $2`,
		int64(homeworkID), studentID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// ListLeaves returns every leave request ordered by submit time.
func (r *SQLRepository) ListLeaves(ctx context.Context) ([]model.Leave, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, student_name, leave_type, reason, images, status, submitted_at
		FROM leaves ORDER BY submitted_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Leave{}
	for rows.Next() {
		var (
			l      model.Leave
			images string
		)
		if err := rows.Scan(&l.ID, &l.StudentID, &l.StudentName, &l.LeaveType, &l.Reason, &images, &l.Status, &l.SubmittedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(images), &l.Images); err != nil {
			return nil, fmt.Errorf("decode images of leave %d: %w", l.ID, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CreateLeave records a leave request.
func (r *SQLRepository) CreateLeave(ctx context.Context, l model.Leave) (model.Leave, error) {
	if l.Images == nil {
		l.Images = []string{}
	}
	images, err := json.Marshal(l.Images)
	if err != nil {
		return model.Leave{}, err
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO leaves (student_id, student_name, leave_type, reason, images, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, l.StudentID, l.StudentName, l.LeaveType, l.Reason, string(images), l.Status, l.SubmittedAt.UTC()).Scan(&l.ID)
	if err != nil {
		return model.Leave{}, err
	}
	return l, nil
}

// SetLeaveStatus changes the status of a leave request.
func (r *SQLRepository) SetLeaveStatus(ctx context.Context, id model.ID, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE leaves SET status = $1 WHERE id = $2`, status, int64(id))
	if err != nil {
		return err
	}
	return expectOne(res)
}

// DeleteLeave removes a leave request.
func (r *SQLRepository) DeleteLeave(ctx context.Context, id model.ID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM leaves WHERE id = $1`, int64(id))
	return err
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
