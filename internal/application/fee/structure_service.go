package fee

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/schoolfees/backend/internal/domain/fee"
	"github.com/schoolfees/backend/internal/domain/shared"
)

// StructureService maintains class fee structures and student discounts
type StructureService struct {
	structureRepo fee.FeeStructureRepository
	discountRepo  fee.DiscountRepository
	feeTypeRepo   fee.FeeTypeRepository
	studentRepo   fee.StudentRepository
}

// NewStructureService creates a new StructureService
func NewStructureService(
	structureRepo fee.FeeStructureRepository,
	discountRepo fee.DiscountRepository,
	feeTypeRepo fee.FeeTypeRepository,
	studentRepo fee.StudentRepository,
) *StructureService {
	return &StructureService{
		structureRepo: structureRepo,
		discountRepo:  discountRepo,
		feeTypeRepo:   feeTypeRepo,
		studentRepo:   studentRepo,
	}
}

// Get returns the fee structure of a class
func (s *StructureService) Get(ctx context.Context, sessionID int, className string) (*FeeStructureResponse, error) {
	structure, err := s.structureRepo.FindBySessionAndClass(ctx, sessionID, strings.TrimSpace(className))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound,
				fmt.Sprintf("No fee structure for class %s in session %d", className, sessionID))
		}
		return nil, fmt.Errorf("failed to get fee structure: %w", err)
	}
	resp := ToFeeStructureResponse(structure)
	return &resp, nil
}

// Set creates the fee structure of a class or replaces its items
func (s *StructureService) Set(ctx context.Context, req SetFeeStructureRequest) (*FeeStructureResponse, error) {
	items := make([]fee.FeeStructureItem, 0, len(req.Items))
	for _, in := range req.Items {
		feeType, err := s.feeTypeRepo.FindByID(ctx, in.FeeTypeID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError(shared.CodeInvalidInput,
					fmt.Sprintf("Unknown fee type: %d", in.FeeTypeID))
			}
			return nil, fmt.Errorf("failed to get fee type: %w", err)
		}
		items = append(items, fee.FeeStructureItem{
			FeeTypeID:   feeType.ID,
			FeeTypeName: feeType.Name,
			Amount:      in.Amount,
		})
	}

	className := strings.TrimSpace(req.ClassName)
	structure, err := s.structureRepo.FindBySessionAndClass(ctx, req.SessionID, className)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		structure, err = fee.NewFeeStructure(req.SessionID, className, items)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to get fee structure: %w", err)
	default:
		if err := structure.ReplaceItems(items); err != nil {
			return nil, err
		}
	}

	if err := s.structureRepo.Save(ctx, structure); err != nil {
		return nil, fmt.Errorf("failed to save fee structure: %w", err)
	}
	resp := ToFeeStructureResponse(structure)
	return &resp, nil
}

// UpsertDiscount sets a student's discount on one fee type
func (s *StructureService) UpsertDiscount(ctx context.Context, req UpsertDiscountRequest) (*DiscountResponse, error) {
	discount, err := fee.NewStudentDiscount(req.StudentID, req.SessionID, req.FeeTypeID, fee.DiscountType(req.DiscountType), req.Value)
	if err != nil {
		return nil, err
	}

	if _, err := s.studentRepo.FindByStudentID(ctx, discount.StudentID); err != nil {
		return nil, studentLookupError(err, discount.StudentID)
	}
	if _, err := s.feeTypeRepo.FindByID(ctx, discount.FeeTypeID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("Unknown fee type: %d", discount.FeeTypeID))
		}
		return nil, fmt.Errorf("failed to get fee type: %w", err)
	}

	if err := s.discountRepo.Save(ctx, discount); err != nil {
		return nil, fmt.Errorf("failed to save discount: %w", err)
	}
	return &DiscountResponse{
		StudentID:    discount.StudentID,
		SessionID:    discount.SessionID,
		FeeTypeID:    discount.FeeTypeID,
		DiscountType: string(discount.Type),
		Value:        discount.Value,
	}, nil
}
