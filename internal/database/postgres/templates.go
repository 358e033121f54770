package postgres

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/attendance/internal/database"
)

// TemplateRepository stores face templates in a pgvector column
type TemplateRepository struct {
	pool *Pool
}

// NewTemplateRepository creates a new PostgreSQL template repository
func NewTemplateRepository(pool *Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

// SaveTemplate stores a template (upsert)
func (r *TemplateRepository) SaveTemplate(ctx context.Context, t database.StoredTemplate) error {
	query := `
		INSERT INTO face_templates (student_id, size, template, dhash, updated_at)
		VALUES ($1, $2, $3::vector, $4, NOW())
		ON CONFLICT (student_id) DO UPDATE SET
			size = EXCLUDED.size,
			template = EXCLUDED.template,
			dhash = EXCLUDED.dhash,
			updated_at = NOW()
	`

	vec := pgvector.NewVector(t.Vector)
	if _, err := r.pool.Exec(ctx, query, t.StudentID, t.Size, vec, t.DHash); err != nil {
		return fmt.Errorf("save template %s: %w", t.StudentID, err)
	}
	return nil
}

// DeleteTemplate removes the template of a student
func (r *TemplateRepository) DeleteTemplate(ctx context.Context, studentID string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM face_templates WHERE student_id = $1", studentID); err != nil {
		return fmt.Errorf("delete template %s: %w", studentID, err)
	}
	return nil
}

// FindSimilarTemplates returns the templates of the same size closest to
// vector by cosine distance, nearest first.
func (r *TemplateRepository) FindSimilarTemplates(ctx context.Context, vector []float32, limit int) ([]database.StoredTemplate, []float64, error) {
	query := `
		SELECT student_id, size, template, dhash, updated_at,
		       template <=> $1::vector AS distance
		FROM face_templates
		WHERE vector_dims(template) = $2
		ORDER BY distance, student_id
		LIMIT $3
	`

	vec := pgvector.NewVector(vector)
	rows, err := r.pool.Query(ctx, query, vec, len(vector), limit)
	if err != nil {
		return nil, nil, fmt.Errorf("query similar templates: %w", err)
	}
	defer rows.Close()

	var templates []database.StoredTemplate
	var distances []float64

	for rows.Next() {
		var t database.StoredTemplate
		var v pgvector.Vector
		var dist float64

		if err := rows.Scan(&t.StudentID, &t.Size, &v, &t.DHash, &t.UpdatedAt, &dist); err != nil {
			return nil, nil, fmt.Errorf("scan template: %w", err)
		}

		t.Vector = v.Slice()
		templates = append(templates, t)
		distances = append(distances, dist)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate templates: %w", err)
	}

	return templates, distances, nil
}

// CountTemplates returns the number of stored templates
func (r *TemplateRepository) CountTemplates(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM face_templates").Scan(&count); err != nil {
		return 0, fmt.Errorf("count templates: %w", err)
	}
	return count, nil
}
