package fee

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/schoolfees/backend/internal/domain/fee"
	"github.com/schoolfees/backend/internal/domain/shared"
)

// StudentService handles student reference data
type StudentService struct {
	studentRepo fee.StudentRepository
}

// NewStudentService creates a new StudentService
func NewStudentService(studentRepo fee.StudentRepository) *StudentService {
	return &StudentService{studentRepo: studentRepo}
}

// Create registers a student
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*StudentResponse, error) {
	student, err := fee.NewStudent(req.StudentID, req.Name, req.ClassName, req.Section, req.SessionID)
	if err != nil {
		return nil, err
	}
	student.FatherName = strings.TrimSpace(req.FatherName)

	existing, err := s.studentRepo.FindByStudentID(ctx, student.StudentID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to check student id: %w", err)
	}
	if existing != nil {
		return nil, shared.NewDomainError(shared.CodeAlreadyExists, "Student with this ID already exists")
	}

	if err := s.studentRepo.Save(ctx, student); err != nil {
		return nil, fmt.Errorf("failed to save student: %w", err)
	}
	resp := ToStudentResponse(student)
	return &resp, nil
}

// GetByStudentID returns a student by code
func (s *StudentService) GetByStudentID(ctx context.Context, studentID string) (*StudentResponse, error) {
	student, err := s.studentRepo.FindByStudentID(ctx, studentID)
	if err != nil {
		return nil, studentLookupError(err, studentID)
	}
	resp := ToStudentResponse(student)
	return &resp, nil
}

// List returns students of a session, class and section
func (s *StudentService) List(ctx context.Context, filter StudentListFilter) (*shared.Paginated[StudentResponse], error) {
	f := fee.StudentFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  "name",
			OrderDir: "asc",
			Search:   filter.Search,
		}.Normalize(),
		SessionID: filter.SessionID,
		ClassName: filter.ClassName,
		Section:   filter.Section,
	}

	students, total, err := s.studentRepo.FindAll(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	items := make([]StudentResponse, len(students))
	for i := range students {
		items[i] = ToStudentResponse(&students[i])
	}
	page := shared.NewPaginated(items, total, f.Page, f.PageSize)
	return &page, nil
}

// studentLookupError gives a not-found lookup a message naming the student
func studentLookupError(err error, studentID string) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewDomainError(shared.CodeNotFound, "Student not found: "+studentID)
	}
	return fmt.Errorf("failed to get student: %w", err)
}
