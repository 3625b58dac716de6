package repository

import (
	"context"

	"semaphore/roster/internal/model"
)

const studentSelect = `
    SELECT a.id, a.email, a.role, a.first_name, a.last_name, a.phone, a.is_active, a.created_at,
           p.student_code, p.roll_no, c.id, c.grade, c.section, c.name,
           p.parent_name, p.parent_phone, p.address
    FROM accounts a
    LEFT JOIN student_profiles p ON p.account_id = a.id
    LEFT JOIN classes c ON c.id = p.class_id
`

func scanStudent(row interface{ Scan(...any) error }) (model.StudentRecord, error) {
	var record model.StudentRecord
	err := row.Scan(
		&record.Account.ID,
		&record.Account.Email,
		&record.Account.Role,
		&record.Account.FirstName,
		&record.Account.LastName,
		&record.Account.Phone,
		&record.Account.IsActive,
		&record.Account.CreatedAt,
		&record.StudentCode,
		&record.RollNo,
		&record.ClassID,
		&record.Grade,
		&record.Section,
		&record.ClassName,
		&record.ParentName,
		&record.ParentPhone,
		&record.Address,
	)
	return record, err
}

func (s *Store) ListActiveStudents(ctx context.Context) ([]model.StudentRecord, error) {
	rows, err := s.pool.Query(ctx, studentSelect+`
    WHERE a.role = 'student' AND a.is_active = true
    ORDER BY a.created_at DESC, a.id DESC
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []model.StudentRecord
	for rows.Next() {
		record, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, record)
	}
	return students, rows.Err()
}

// GetStudent ignores the active flag so soft-deleted students stay readable.
func (s *Store) GetStudent(ctx context.Context, id int64) (model.StudentRecord, error) {
	row := s.pool.QueryRow(ctx, studentSelect+`
    WHERE a.id = $1 AND a.role = 'student'
  `, id)
	record, err := scanStudent(row)
	return record, translate(err)
}
