package fee

import (
	"strings"

	"github.com/schoolfees/backend/internal/domain/shared"
)

// StudentStatus is the enrolment status of a student
type StudentStatus string

const (
	StudentStatusActive   StudentStatus = "active"
	StudentStatusInactive StudentStatus = "inactive"
)

// Student is the fee-relevant view of an enrolled student
type Student struct {
	shared.BaseEntity
	StudentID  string
	Name       string
	FatherName string
	ClassName  string
	Section    string
	SessionID  int
	Status     StudentStatus
}

// NewStudent creates an active student
func NewStudent(studentID, name, className, section string, sessionID int) (*Student, error) {
	studentID = strings.TrimSpace(studentID)
	name = strings.TrimSpace(name)
	className = strings.TrimSpace(className)
	if studentID == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Student ID cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Student name cannot be empty")
	}
	if className == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Class name cannot be empty")
	}
	if sessionID <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Session ID must be positive")
	}
	return &Student{
		BaseEntity: shared.NewBaseEntity(),
		StudentID:  studentID,
		Name:       name,
		ClassName:  className,
		Section:    strings.TrimSpace(section),
		SessionID:  sessionID,
		Status:     StudentStatusActive,
	}, nil
}

// IsActive returns true if the student is enrolled
func (s *Student) IsActive() bool {
	return s.Status == StudentStatusActive
}
