package repository

import (
	"context"

	"semaphore/roster/internal/model"
)

func (s *Store) FindActiveClassID(ctx context.Context, grade, section string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
    SELECT id
    FROM classes
    WHERE grade = $1 AND section = $2 AND is_active = true
    LIMIT 1
  `, grade, section).Scan(&id)
	return id, translate(err)
}

func (s *Store) ListClassSummaries(ctx context.Context) ([]model.ClassSummary, error) {
	rows, err := s.pool.Query(ctx, `
    SELECT c.id, c.grade, c.section, c.name, c.teacher_id, c.is_active,
           CASE WHEN t.id IS NULL THEN NULL ELSE t.first_name || ' ' || t.last_name END,
           COUNT(p.account_id)
    FROM classes c
    LEFT JOIN accounts t ON t.id = c.teacher_id
    LEFT JOIN student_profiles p ON p.class_id = c.id AND p.is_active = true
    WHERE c.is_active = true
    GROUP BY c.id, t.id
    ORDER BY c.grade, c.section
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classes []model.ClassSummary
	for rows.Next() {
		var summary model.ClassSummary
		if err := rows.Scan(
			&summary.ID,
			&summary.Grade,
			&summary.Section,
			&summary.Name,
			&summary.TeacherID,
			&summary.IsActive,
			&summary.TeacherName,
			&summary.StudentCount,
		); err != nil {
			return nil, err
		}
		classes = append(classes, summary)
	}
	return classes, rows.Err()
}
