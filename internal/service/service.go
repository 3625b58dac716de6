package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"semaphore/roster/internal/model"
	"semaphore/roster/internal/repository"
)

// AccountStore is the account-table half of the credential store.
type AccountStore interface {
	GetActiveAccountByEmail(ctx context.Context, email string) (model.Account, error)
	AccountIDByEmail(ctx context.Context, email string) (int64, error)
	CreateAccount(ctx context.Context, account *model.Account) error
	UpdateAccount(ctx context.Context, id int64, update repository.AccountUpdate) error
	SetAccountActive(ctx context.Context, id int64, active bool) error
}

type ProfileStore interface {
	CreateProfile(ctx context.Context, profile model.StudentProfile) error
	UpsertProfile(ctx context.Context, accountID int64, update repository.ProfileUpdate) error
	SetProfileActive(ctx context.Context, accountID int64, active bool) error
}

type ClassLookup interface {
	FindActiveClassID(ctx context.Context, grade, section string) (int64, error)
}

type ClassStore interface {
	ClassLookup
	ListClassSummaries(ctx context.Context) ([]model.ClassSummary, error)
}

type StudentReader interface {
	ListActiveStudents(ctx context.Context) ([]model.StudentRecord, error)
	GetStudent(ctx context.Context, id int64) (model.StudentRecord, error)
}

// LoginLimiter throttles repeated login failures for one email.
type LoginLimiter interface {
	Check(ctx context.Context, email string) error
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

func validateInput(v *validator.Validate, input any) error {
	err := v.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make([]string, 0, len(fieldErrs))
		for _, fieldErr := range fieldErrs {
			fields = append(fields, fieldErr.Field())
		}
		return fmt.Errorf("%w: %s required", ErrInvalidInput, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
