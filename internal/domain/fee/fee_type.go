package fee

import (
	"strings"
	"time"

	"github.com/schoolfees/backend/internal/domain/shared"
)

const maxFeeTypeNameLength = 100

// FeeType is a named category of charge such as "Tuition Fee".
// Bill items refer to it by name, so names are unique.
type FeeType struct {
	ID          int64
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewFeeType creates an active fee type
func NewFeeType(name, description string) (*FeeType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Fee type name cannot be empty")
	}
	if len(name) > maxFeeTypeNameLength {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Fee type name cannot exceed 100 characters")
	}
	now := time.Now()
	return &FeeType{
		Name:        name,
		Description: strings.TrimSpace(description),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Ref returns the reference used for name resolution
func (f FeeType) Ref() FeeTypeRef {
	return FeeTypeRef{ID: f.ID, Name: f.Name}
}

// Refs converts a list of fee types into references
func Refs(types []FeeType) []FeeTypeRef {
	refs := make([]FeeTypeRef, len(types))
	for i, t := range types {
		refs[i] = t.Ref()
	}
	return refs
}
