package model

import (
	"fmt"
	"time"
)

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

type Account struct {
	ID        int64
	Email     string
	Password  string
	Role      string
	FirstName string
	LastName  string
	Phone     *string
	IsActive  bool
	CreatedAt time.Time
}

type StudentProfile struct {
	AccountID     int64
	StudentCode   *string
	RollNo        *string
	ClassID       *int64
	ParentName    *string
	ParentPhone   *string
	Address       *string
	AdmissionDate *time.Time
	DateOfBirth   *time.Time
	IsActive      bool
}

type Class struct {
	ID        int64
	Grade     string
	Section   string
	Name      string
	TeacherID *int64
	IsActive  bool
}

// StudentRecord is an account joined with its optional profile and class.
type StudentRecord struct {
	Account     Account
	StudentCode *string
	RollNo      *string
	ClassID     *int64
	Grade       *string
	Section     *string
	ClassName   *string
	ParentName  *string
	ParentPhone *string
	Address     *string
}

type ClassSummary struct {
	Class
	TeacherName  *string
	StudentCount int
}

const studentCodePrefix = "STU"

// StudentCode derives the display code for an account id, e.g. 7 -> STU0007.
func StudentCode(accountID int64) string {
	return fmt.Sprintf("%s%04d", studentCodePrefix, accountID)
}

// DisplayCode returns the stored code when present, otherwise the derived one.
func (r StudentRecord) DisplayCode() string {
	if r.StudentCode != nil && *r.StudentCode != "" {
		return *r.StudentCode
	}
	return StudentCode(r.Account.ID)
}
