package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"semaphore/roster/internal/model"
	"semaphore/roster/internal/repository"
)

var errStoreDown = errors.New("relation \"student_profiles\" does not exist")

// fakeStore is an in-memory stand-in for repository.Store.
type fakeStore struct {
	mu             sync.Mutex
	nextID         int64
	accounts       map[int64]*model.Account
	profiles       map[int64]*model.StudentProfile
	classes        []model.Class
	profileErr     error
	classErr       error
	panicOnProfile bool

	// raceEmails hides an email from the pre-check while the unique index
	// still rejects it, as when a concurrent writer wins.
	raceEmails map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:   make(map[int64]*model.Account),
		profiles:   make(map[int64]*model.StudentProfile),
		raceEmails: make(map[string]bool),
	}
}

var baseTime = time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

func (f *fakeStore) addAccount(account model.Account) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	account.ID = f.nextID
	account.CreatedAt = baseTime.Add(time.Duration(account.ID) * time.Minute)
	f.accounts[account.ID] = &account
	return account.ID
}

func (f *fakeStore) addClass(class model.Class) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	class.ID = int64(len(f.classes) + 100)
	f.classes = append(f.classes, class)
	return class.ID
}

func (f *fakeStore) account(id int64) (model.Account, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return model.Account{}, false
	}
	return *account, true
}

func (f *fakeStore) profile(id int64) (model.StudentProfile, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[id]
	if !ok {
		return model.StudentProfile{}, false
	}
	return *profile, true
}

func (f *fakeStore) GetActiveAccountByEmail(_ context.Context, email string) (model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.accounts {
		if account.Email == email && account.IsActive {
			return *account, nil
		}
	}
	return model.Account{}, repository.ErrNotFound
}

func (f *fakeStore) AccountIDByEmail(_ context.Context, email string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.raceEmails[email] {
		return 0, repository.ErrNotFound
	}
	for _, account := range f.accounts {
		if account.Email == email {
			return account.ID, nil
		}
	}
	return 0, repository.ErrNotFound
}

func (f *fakeStore) CreateAccount(_ context.Context, account *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.accounts {
		if existing.Email == account.Email {
			return repository.ErrDuplicate
		}
	}
	f.nextID++
	account.ID = f.nextID
	account.CreatedAt = baseTime.Add(time.Duration(account.ID) * time.Minute)
	stored := *account
	f.accounts[account.ID] = &stored
	return nil
}

func (f *fakeStore) UpdateAccount(_ context.Context, id int64, update repository.AccountUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	for _, existing := range f.accounts {
		if existing.ID != id && existing.Email == update.Email {
			return repository.ErrDuplicate
		}
	}
	account.FirstName = update.FirstName
	account.LastName = update.LastName
	account.Email = update.Email
	account.Phone = update.Phone
	account.IsActive = update.IsActive
	return nil
}

func (f *fakeStore) SetAccountActive(_ context.Context, id int64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.IsActive = active
	return nil
}

func (f *fakeStore) CreateProfile(_ context.Context, profile model.StudentProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnProfile {
		panic("profile layer exploded")
	}
	if f.profileErr != nil {
		return f.profileErr
	}
	if _, ok := f.profiles[profile.AccountID]; ok {
		return repository.ErrDuplicate
	}
	f.profiles[profile.AccountID] = &profile
	return nil
}

func (f *fakeStore) UpsertProfile(_ context.Context, accountID int64, update repository.ProfileUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profileErr != nil {
		return f.profileErr
	}
	profile, ok := f.profiles[accountID]
	if !ok {
		code := update.StudentCode
		profile = &model.StudentProfile{AccountID: accountID, StudentCode: &code}
		f.profiles[accountID] = profile
	}
	profile.RollNo = update.RollNo
	profile.ClassID = update.ClassID
	profile.ParentName = update.ParentName
	profile.ParentPhone = update.ParentPhone
	profile.Address = update.Address
	profile.AdmissionDate = update.AdmissionDate
	profile.DateOfBirth = update.DateOfBirth
	profile.IsActive = update.IsActive
	return nil
}

func (f *fakeStore) SetProfileActive(_ context.Context, accountID int64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profileErr != nil {
		return f.profileErr
	}
	if profile, ok := f.profiles[accountID]; ok {
		profile.IsActive = active
	}
	return nil
}

func (f *fakeStore) FindActiveClassID(_ context.Context, grade, section string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.classErr != nil {
		return 0, f.classErr
	}
	for _, class := range f.classes {
		if class.IsActive && class.Grade == grade && class.Section == section {
			return class.ID, nil
		}
	}
	return 0, repository.ErrNotFound
}

func (f *fakeStore) ListClassSummaries(_ context.Context) ([]model.ClassSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.classErr != nil {
		return nil, f.classErr
	}
	var summaries []model.ClassSummary
	for _, class := range f.classes {
		if !class.IsActive {
			continue
		}
		summary := model.ClassSummary{Class: class}
		if class.TeacherID != nil {
			if teacher, ok := f.accounts[*class.TeacherID]; ok {
				name := teacher.FirstName + " " + teacher.LastName
				summary.TeacherName = &name
			}
		}
		for _, profile := range f.profiles {
			if profile.IsActive && profile.ClassID != nil && *profile.ClassID == class.ID {
				summary.StudentCount++
			}
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Grade != summaries[j].Grade {
			return summaries[i].Grade < summaries[j].Grade
		}
		return summaries[i].Section < summaries[j].Section
	})
	return summaries, nil
}

func (f *fakeStore) ListActiveStudents(_ context.Context) ([]model.StudentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var records []model.StudentRecord
	for _, account := range f.accounts {
		if account.Role == model.RoleStudent && account.IsActive {
			records = append(records, f.record(*account))
		}
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i].Account, records[j].Account
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return records, nil
}

func (f *fakeStore) GetStudent(_ context.Context, id int64) (model.StudentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok || account.Role != model.RoleStudent {
		return model.StudentRecord{}, repository.ErrNotFound
	}
	return f.record(*account), nil
}

func (f *fakeStore) record(account model.Account) model.StudentRecord {
	record := model.StudentRecord{Account: account}
	profile, ok := f.profiles[account.ID]
	if !ok {
		return record
	}
	record.StudentCode = profile.StudentCode
	record.RollNo = profile.RollNo
	record.ParentName = profile.ParentName
	record.ParentPhone = profile.ParentPhone
	record.Address = profile.Address
	if profile.ClassID != nil {
		for _, class := range f.classes {
			if class.ID == *profile.ClassID {
				class := class
				record.ClassID = &class.ID
				record.Grade = &class.Grade
				record.Section = &class.Section
				record.ClassName = &class.Name
			}
		}
	}
	return record
}

type fakeLimiter struct {
	checkErr error
	failures map[string]int
	resets   int
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{failures: make(map[string]int)}
}

func (l *fakeLimiter) Check(_ context.Context, _ string) error {
	return l.checkErr
}

func (l *fakeLimiter) RecordFailure(_ context.Context, email string) error {
	l.failures[email]++
	return nil
}

func (l *fakeLimiter) Reset(_ context.Context, email string) error {
	delete(l.failures, email)
	l.resets++
	return nil
}

func ptr[T any](value T) *T {
	return &value
}
