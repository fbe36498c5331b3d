package strategy

import (
	"testing"

	"github.com/schoolfees/backend/internal/domain/shared"
	"github.com/schoolfees/backend/internal/infrastructure/strategy/allocation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryWithDefaults(t *testing.T) {
	r, err := NewRegistryWithDefaults("")
	require.NoError(t, err)

	assert.Equal(t, []string{"fifo", "oldest_bill"}, r.ListAllocationStrategies())
	assert.Equal(t, "fifo", r.DefaultAllocation())

	s, err := r.GetAllocationStrategy("")
	require.NoError(t, err)
	assert.Equal(t, "fifo", s.Name())
}

func TestNewRegistryWithDefaults_UnknownDefault(t *testing.T) {
	_, err := NewRegistryWithDefaults("lifo")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestStrategyRegistry_Register(t *testing.T) {
	r := NewStrategyRegistry()
	require.NoError(t, r.RegisterAllocationStrategy(allocation.NewFIFOAllocationStrategy()))

	err := r.RegisterAllocationStrategy(allocation.NewFIFOAllocationStrategy())
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	_, err = r.GetAllocationStrategy("")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.Nil(t, r.GetAllocationStrategyOrDefault("missing"))

	require.NoError(t, r.SetDefaultAllocation("fifo"))
	assert.Equal(t, "fifo", r.GetAllocationStrategyOrDefault("missing").Name())
	assert.ErrorIs(t, r.SetDefaultAllocation("pricing"), shared.ErrNotFound)
	assert.Equal(t, "fifo", r.DefaultAllocation())
}
