package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/attendance/internal/database"
)

// RegisterRepository mirrors the roster and the daily register
type RegisterRepository struct {
	pool *Pool
}

// NewRegisterRepository creates a new PostgreSQL register repository
func NewRegisterRepository(pool *Pool) *RegisterRepository {
	return &RegisterRepository{pool: pool}
}

// SaveStudent upserts a student
func (r *RegisterRepository) SaveStudent(ctx context.Context, s database.StudentRecord) error {
	query := `
		INSERT INTO students (id, name, email, phone, course, year, face_image, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			course = EXCLUDED.course,
			year = EXCLUDED.year,
			face_image = EXCLUDED.face_image,
			updated_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, query, s.ID, s.Name, s.Email, s.Phone, s.Course, s.Year, s.FaceImage); err != nil {
		return fmt.Errorf("save student %s: %w", s.ID, err)
	}
	return nil
}

// DeleteStudent removes a student
func (r *RegisterRepository) DeleteStudent(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM students WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete student %s: %w", id, err)
	}
	return nil
}

// SaveEntry upserts one student's status on one day
func (r *RegisterRepository) SaveEntry(ctx context.Context, e database.EntryRecord) error {
	query := `
		INSERT INTO attendance_entries (date, student_id, present, marked_time, updated_at)
		VALUES ($1::date, $2, $3, $4, NOW())
		ON CONFLICT (date, student_id) DO UPDATE SET
			present = EXCLUDED.present,
			marked_time = EXCLUDED.marked_time,
			updated_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, query, e.Date, e.StudentID, e.Present, e.Time); err != nil {
		return fmt.Errorf("save entry %s/%s: %w", e.Date, e.StudentID, err)
	}
	return nil
}

// DeleteDay removes all entries of a date
func (r *RegisterRepository) DeleteDay(ctx context.Context, date string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM attendance_entries WHERE date = $1::date", date); err != nil {
		return fmt.Errorf("delete entries of %s: %w", date, err)
	}
	return nil
}

// DeleteAll removes every entry
func (r *RegisterRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM attendance_entries"); err != nil {
		return fmt.Errorf("delete all entries: %w", err)
	}
	return nil
}

// ListStudents returns all students ordered by numeric ID
func (r *RegisterRepository) ListStudents(ctx context.Context) ([]database.StudentRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, phone, course, year, face_image, updated_at
		FROM students
		ORDER BY length(id), id
	`)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var students []database.StudentRecord
	for rows.Next() {
		var s database.StudentRecord
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.Course, &s.Year, &s.FaceImage, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return students, nil
}

// ListEntries returns the entries of a date ordered by numeric student ID
func (r *RegisterRepository) ListEntries(ctx context.Context, date string) ([]database.EntryRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(date, 'YYYY-MM-DD'), student_id, present, marked_time, updated_at
		FROM attendance_entries
		WHERE date = $1::date
		ORDER BY length(student_id), student_id
	`, date)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []database.EntryRecord
	for rows.Next() {
		var e database.EntryRecord
		if err := rows.Scan(&e.Date, &e.StudentID, &e.Present, &e.Time, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// CountEntries returns the number of stored entries
func (r *RegisterRepository) CountEntries(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM attendance_entries").Scan(&count); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return count, nil
}
