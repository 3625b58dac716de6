package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"semaphore/roster/internal/crypto"
	"semaphore/roster/internal/metrics"
	"semaphore/roster/internal/model"
	"semaphore/roster/internal/repository"
)

const dateLayout = "2006-01-02"

type StudentInput struct {
	FirstName     string  `json:"firstName" validate:"required"`
	LastName      string  `json:"lastName" validate:"required"`
	Email         string  `json:"email" validate:"required"`
	Phone         *string `json:"phone,omitempty"`
	Grade         string  `json:"grade,omitempty"`
	Section       string  `json:"section,omitempty"`
	RollNo        *string `json:"rollNo,omitempty"`
	ParentName    *string `json:"parentName,omitempty"`
	ParentPhone   *string `json:"parentPhone,omitempty"`
	Address       *string `json:"address,omitempty"`
	AdmissionDate *string `json:"admissionDate,omitempty"`
	DateOfBirth   *string `json:"dateOfBirth,omitempty"`
	IsActive      *bool   `json:"isActive,omitempty"`
}

func (in *StudentInput) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Grade = strings.TrimSpace(in.Grade)
	in.Section = strings.TrimSpace(in.Section)
	in.Phone = trimmed(in.Phone)
	in.RollNo = trimmed(in.RollNo)
	in.ParentName = trimmed(in.ParentName)
	in.ParentPhone = trimmed(in.ParentPhone)
	in.Address = trimmed(in.Address)
	in.AdmissionDate = trimmed(in.AdmissionDate)
	in.DateOfBirth = trimmed(in.DateOfBirth)
}

type CreatedStudent struct {
	AccountID   int64  `json:"accountId"`
	StudentCode string `json:"studentCode"`
}

type StudentView struct {
	ID          int64     `json:"id"`
	StudentCode string    `json:"studentCode"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	Phone       *string   `json:"phone,omitempty"`
	ClassID     *int64    `json:"classId,omitempty"`
	Grade       *string   `json:"grade,omitempty"`
	Section     *string   `json:"section,omitempty"`
	ClassName   *string   `json:"className,omitempty"`
	RollNo      *string   `json:"rollNo,omitempty"`
	ParentName  *string   `json:"parentName,omitempty"`
	ParentPhone *string   `json:"parentPhone,omitempty"`
	Address     *string   `json:"address,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ClassView struct {
	ID           int64   `json:"id"`
	Grade        string  `json:"grade"`
	Section      string  `json:"section"`
	Name         string  `json:"name"`
	TeacherID    *int64  `json:"teacherId,omitempty"`
	TeacherName  *string `json:"teacherName,omitempty"`
	StudentCount int     `json:"studentCount"`
}

type RosterConfig struct {
	BcryptCost int
}

// RosterService keeps account, profile and class link consistent. The account
// row is authoritative; profile writes are best effort and never fail a call.
type RosterService struct {
	cfg      RosterConfig
	accounts AccountStore
	profiles ProfileStore
	students StudentReader
	classes  ClassStore
	resolver *ClassResolver
	metrics  *metrics.Metrics
	logger   *zap.Logger
	validate *validator.Validate
}

func NewRosterService(
	cfg RosterConfig,
	accounts AccountStore,
	profiles ProfileStore,
	students StudentReader,
	classes ClassStore,
	m *metrics.Metrics,
	logger *zap.Logger,
) *RosterService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = crypto.DefaultCost
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{
		cfg:      cfg,
		accounts: accounts,
		profiles: profiles,
		students: students,
		classes:  classes,
		resolver: NewClassResolver(classes),
		metrics:  m,
		logger:   logger,
		validate: newValidator(),
	}
}

// ListActiveStudents returns active students, newest first.
func (s *RosterService) ListActiveStudents(ctx context.Context) ([]StudentView, error) {
	records, err := s.students.ListActiveStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	views := make([]StudentView, 0, len(records))
	for _, record := range records {
		views = append(views, studentView(record))
	}
	return views, nil
}

// GetStudent returns a student whatever its active flag, unlike ListActiveStudents.
func (s *RosterService) GetStudent(ctx context.Context, id int64) (*StudentView, error) {
	record, err := s.students.GetStudent(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: student %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get student: %w", err)
	}
	view := studentView(record)
	return &view, nil
}

func (s *RosterService) CreateStudent(ctx context.Context, input StudentInput) (*CreatedStudent, error) {
	input.normalize()
	if err := validateInput(s.validate, input); err != nil {
		return nil, err
	}
	admission, err := parseDate("admissionDate", input.AdmissionDate)
	if err != nil {
		return nil, err
	}
	birth, err := parseDate("dateOfBirth", input.DateOfBirth)
	if err != nil {
		return nil, err
	}

	if _, err := s.accounts.AccountIDByEmail(ctx, input.Email); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	secret, err := crypto.NewDefaultCredential()
	if err != nil {
		return nil, fmt.Errorf("default credential: %w", err)
	}
	hash, err := crypto.HashPassword(secret, s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	account := model.Account{
		Email:     input.Email,
		Password:  hash,
		Role:      model.RoleStudent,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
		IsActive:  active,
	}
	if err := s.accounts.CreateAccount(ctx, &account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	code := model.StudentCode(account.ID)
	s.bestEffort(ctx, "create_profile", account.ID, func(ctx context.Context) error {
		classID, err := s.resolver.Resolve(ctx, input.Grade, input.Section)
		if err != nil {
			return fmt.Errorf("resolve class: %w", err)
		}
		return s.profiles.CreateProfile(ctx, model.StudentProfile{
			AccountID:     account.ID,
			StudentCode:   &code,
			RollNo:        input.RollNo,
			ClassID:       classID,
			ParentName:    input.ParentName,
			ParentPhone:   input.ParentPhone,
			Address:       input.Address,
			AdmissionDate: admission,
			DateOfBirth:   birth,
			IsActive:      active,
		})
	})

	s.logger.Info("student created", zap.Int64("account_id", account.ID), zap.String("student_code", code))
	return &CreatedStudent{AccountID: account.ID, StudentCode: code}, nil
}

// UpdateStudent rewrites the account fields, then re-links the profile. An
// omitted isActive keeps the current flag.
func (s *RosterService) UpdateStudent(ctx context.Context, id int64, input StudentInput) error {
	input.normalize()
	if err := validateInput(s.validate, input); err != nil {
		return err
	}
	admission, err := parseDate("admissionDate", input.AdmissionDate)
	if err != nil {
		return err
	}
	birth, err := parseDate("dateOfBirth", input.DateOfBirth)
	if err != nil {
		return err
	}

	current, err := s.students.GetStudent(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: student %d", ErrNotFound, id)
		}
		return fmt.Errorf("load student: %w", err)
	}

	ownerID, err := s.accounts.AccountIDByEmail(ctx, input.Email)
	switch {
	case err == nil && ownerID != id:
		return ErrConflict
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("check email: %w", err)
	}

	active := current.Account.IsActive
	if input.IsActive != nil {
		active = *input.IsActive
	}
	err = s.accounts.UpdateAccount(ctx, id, repository.AccountUpdate{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Phone:     input.Phone,
		IsActive:  active,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return ErrConflict
		case errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("%w: student %d", ErrNotFound, id)
		}
		return fmt.Errorf("update account: %w", err)
	}

	s.bestEffort(ctx, "update_profile", id, func(ctx context.Context) error {
		classID, err := s.resolver.Resolve(ctx, input.Grade, input.Section)
		if err != nil {
			return fmt.Errorf("resolve class: %w", err)
		}
		return s.profiles.UpsertProfile(ctx, id, repository.ProfileUpdate{
			StudentCode:   current.DisplayCode(),
			RollNo:        input.RollNo,
			ClassID:       classID,
			ParentName:    input.ParentName,
			ParentPhone:   input.ParentPhone,
			Address:       input.Address,
			AdmissionDate: admission,
			DateOfBirth:   birth,
			IsActive:      active,
		})
	})
	return nil
}

// DeleteStudent soft-deletes: the account is marked inactive and never removed.
// Deleting an already inactive student succeeds again.
func (s *RosterService) DeleteStudent(ctx context.Context, id int64) error {
	if _, err := s.students.GetStudent(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: student %d", ErrNotFound, id)
		}
		return fmt.Errorf("load student: %w", err)
	}

	if err := s.accounts.SetAccountActive(ctx, id, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: student %d", ErrNotFound, id)
		}
		return fmt.Errorf("deactivate account: %w", err)
	}

	s.bestEffort(ctx, "deactivate_profile", id, func(ctx context.Context) error {
		return s.profiles.SetProfileActive(ctx, id, false)
	})
	return nil
}

func (s *RosterService) ListClassesWithCounts(ctx context.Context) ([]ClassView, error) {
	summaries, err := s.classes.ListClassSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	views := make([]ClassView, 0, len(summaries))
	for _, summary := range summaries {
		views = append(views, ClassView{
			ID:           summary.ID,
			Grade:        summary.Grade,
			Section:      summary.Section,
			Name:         summary.Name,
			TeacherID:    summary.TeacherID,
			TeacherName:  summary.TeacherName,
			StudentCount: summary.StudentCount,
		})
	}
	return views, nil
}

// bestEffort runs a secondary write whose failure, including a panic, is logged
// and counted but never returned.
func (s *RosterService) bestEffort(ctx context.Context, operation string, accountID int64, fn func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.BestEffortFailure(operation)
			s.logger.Error("secondary write panicked",
				zap.String("operation", operation),
				zap.Int64("account_id", accountID),
				zap.Any("panic", r),
			)
		}
	}()

	if err := fn(ctx); err != nil {
		s.metrics.BestEffortFailure(operation)
		s.logger.Warn("secondary write failed",
			zap.String("operation", operation),
			zap.Int64("account_id", accountID),
			zap.Error(err),
		)
	}
}

func studentView(record model.StudentRecord) StudentView {
	return StudentView{
		ID:          record.Account.ID,
		StudentCode: record.DisplayCode(),
		FirstName:   record.Account.FirstName,
		LastName:    record.Account.LastName,
		Email:       record.Account.Email,
		Phone:       record.Account.Phone,
		ClassID:     record.ClassID,
		Grade:       record.Grade,
		Section:     record.Section,
		ClassName:   record.ClassName,
		RollNo:      record.RollNo,
		ParentName:  record.ParentName,
		ParentPhone: record.ParentPhone,
		Address:     record.Address,
		IsActive:    record.Account.IsActive,
		CreatedAt:   record.Account.CreatedAt,
	}
}

func parseDate(field string, value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, *value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD", ErrInvalidInput, field)
	}
	return &parsed, nil
}
