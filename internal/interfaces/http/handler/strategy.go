package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/schoolfees/backend/internal/domain/shared/strategy"
)

// StrategyRegistry lists the registered payment allocation strategies
type StrategyRegistry interface {
	ListAllocationStrategies() []string
	DefaultAllocation() string
	GetAllocationStrategy(name string) (strategy.BillAllocationStrategy, error)
}

// StrategyHandler exposes the allocation strategies a collection can use
type StrategyHandler struct {
	BaseHandler
	registry StrategyRegistry
}

// NewStrategyHandler creates a new StrategyHandler
func NewStrategyHandler(registry StrategyRegistry) *StrategyHandler {
	return &StrategyHandler{registry: registry}
}

// StrategyInfo represents information about a single strategy
type StrategyInfo struct {
	Name        string `json:"name" example:"fifo"`
	Description string `json:"description" example:"Oldest period first"`
	IsDefault   bool   `json:"is_default" example:"true"`
}

// ListAllocationStrategies godoc
// @Summary      List allocation strategies
// @Description  Returns the strategies that spread a collection over pending bills
// @Tags         fees
// @Produce      json
// @Success      200 {object} dto.Response{data=[]StrategyInfo}
// @Security     BearerAuth
// @Router       /fees/allocation-strategies [get]
func (h *StrategyHandler) ListAllocationStrategies(c *gin.Context) {
	defaultName := h.registry.DefaultAllocation()
	names := h.registry.ListAllocationStrategies()

	infos := make([]StrategyInfo, 0, len(names))
	for _, name := range names {
		s, err := h.registry.GetAllocationStrategy(name)
		if err != nil {
			continue
		}
		infos = append(infos, StrategyInfo{
			Name:        name,
			Description: s.Description(),
			IsDefault:   name == defaultName,
		})
	}
	h.Success(c, infos)
}
