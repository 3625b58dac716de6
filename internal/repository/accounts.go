package repository

import (
	"context"

	"semaphore/roster/internal/model"
)

const accountColumns = `id, email, password, role, first_name, last_name, phone, is_active, created_at`

type AccountUpdate struct {
	FirstName string
	LastName  string
	Email     string
	Phone     *string
	IsActive  bool
}

func scanAccount(row interface{ Scan(...any) error }) (model.Account, error) {
	var account model.Account
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.Password,
		&account.Role,
		&account.FirstName,
		&account.LastName,
		&account.Phone,
		&account.IsActive,
		&account.CreatedAt,
	)
	return account, translate(err)
}

func (s *Store) GetActiveAccountByEmail(ctx context.Context, email string) (model.Account, error) {
	row := s.pool.QueryRow(ctx, `
    SELECT `+accountColumns+`
    FROM accounts
    WHERE email = $1 AND is_active = true
  `, email)
	return scanAccount(row)
}

// AccountIDByEmail looks the email up across active and inactive accounts.
func (s *Store) AccountIDByEmail(ctx context.Context, email string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `SELECT id FROM accounts WHERE email = $1`, email).Scan(&id)
	return id, translate(err)
}

func (s *Store) CreateAccount(ctx context.Context, account *model.Account) error {
	row := s.pool.QueryRow(ctx, `
    INSERT INTO accounts (email, password, role, first_name, last_name, phone, is_active)
    VALUES ($1, $2, $3, $4, $5, $6, $7)
    RETURNING id, created_at
  `, account.Email, account.Password, account.Role, account.FirstName, account.LastName, account.Phone, account.IsActive)
	return translate(row.Scan(&account.ID, &account.CreatedAt))
}

func (s *Store) UpdateAccount(ctx context.Context, id int64, update AccountUpdate) error {
	tag, err := s.pool.Exec(ctx, `
    UPDATE accounts
    SET first_name = $1, last_name = $2, email = $3, phone = $4, is_active = $5
    WHERE id = $6
  `, update.FirstName, update.LastName, update.Email, update.Phone, update.IsActive, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetAccountActive(ctx context.Context, id int64, active bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE accounts SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
