package repository

import (
	"context"
	"time"

	"semaphore/roster/internal/model"
)

type ProfileUpdate struct {
	StudentCode   string
	RollNo        *string
	ClassID       *int64
	ParentName    *string
	ParentPhone   *string
	Address       *string
	AdmissionDate *time.Time
	DateOfBirth   *time.Time
	IsActive      bool
}

func (s *Store) CreateProfile(ctx context.Context, profile model.StudentProfile) error {
	_, err := s.pool.Exec(ctx, `
    INSERT INTO student_profiles (
      account_id, student_code, roll_no, class_id, parent_name, parent_phone,
      address, admission_date, date_of_birth, is_active
    )
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
  `,
		profile.AccountID,
		profile.StudentCode,
		profile.RollNo,
		profile.ClassID,
		profile.ParentName,
		profile.ParentPhone,
		profile.Address,
		profile.AdmissionDate,
		profile.DateOfBirth,
		profile.IsActive,
	)
	return translate(err)
}

// UpsertProfile updates the roster fields of a profile, creating the row when the
// account never got one.
func (s *Store) UpsertProfile(ctx context.Context, accountID int64, update ProfileUpdate) error {
	_, err := s.pool.Exec(ctx, `
    INSERT INTO student_profiles (
      account_id, student_code, roll_no, class_id, parent_name, parent_phone,
      address, admission_date, date_of_birth, is_active
    )
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    ON CONFLICT (account_id) DO UPDATE
    SET roll_no = EXCLUDED.roll_no,
        class_id = EXCLUDED.class_id,
        parent_name = EXCLUDED.parent_name,
        parent_phone = EXCLUDED.parent_phone,
        address = EXCLUDED.address,
        admission_date = EXCLUDED.admission_date,
        date_of_birth = EXCLUDED.date_of_birth,
        is_active = EXCLUDED.is_active
  `,
		accountID,
		update.StudentCode,
		update.RollNo,
		update.ClassID,
		update.ParentName,
		update.ParentPhone,
		update.Address,
		update.AdmissionDate,
		update.DateOfBirth,
		update.IsActive,
	)
	return translate(err)
}

func (s *Store) SetProfileActive(ctx context.Context, accountID int64, active bool) error {
	_, err := s.pool.Exec(ctx, `UPDATE student_profiles SET is_active = $1 WHERE account_id = $2`, active, accountID)
	return err
}
