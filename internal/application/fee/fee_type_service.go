package fee

import (
	"context"
	"errors"
	"fmt"

	"github.com/schoolfees/backend/internal/domain/fee"
	"github.com/schoolfees/backend/internal/domain/shared"
)

// FeeTypeService handles fee type operations
type FeeTypeService struct {
	feeTypeRepo fee.FeeTypeRepository
}

// NewFeeTypeService creates a new FeeTypeService
func NewFeeTypeService(feeTypeRepo fee.FeeTypeRepository) *FeeTypeService {
	return &FeeTypeService{feeTypeRepo: feeTypeRepo}
}

// List returns fee types ordered by name
func (s *FeeTypeService) List(ctx context.Context, activeOnly bool) ([]FeeTypeResponse, error) {
	types, err := s.feeTypeRepo.FindAll(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list fee types: %w", err)
	}
	out := make([]FeeTypeResponse, len(types))
	for i := range types {
		out[i] = ToFeeTypeResponse(&types[i])
	}
	return out, nil
}

// Create creates a new fee type
func (s *FeeTypeService) Create(ctx context.Context, req CreateFeeTypeRequest) (*FeeTypeResponse, error) {
	feeType, err := fee.NewFeeType(req.Name, req.Description)
	if err != nil {
		return nil, err
	}

	existing, err := s.feeTypeRepo.FindByName(ctx, feeType.Name)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to check fee type name: %w", err)
	}
	if existing != nil {
		return nil, shared.NewDomainError(shared.CodeAlreadyExists, "Fee type with this name already exists")
	}

	if err := s.feeTypeRepo.Save(ctx, feeType); err != nil {
		return nil, fmt.Errorf("failed to save fee type: %w", err)
	}
	resp := ToFeeTypeResponse(feeType)
	return &resp, nil
}
