package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omics-warehouse-loader/internal/domain"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	experiment := domain.NewExperiment("exp1", "human")
	require.NoError(t, s.StoreExperiment(ctx, experiment))
	require.NoError(t, s.StoreGene(ctx, domain.NewGene("7157")))
	require.NoError(t, s.StoreGene(ctx, domain.NewGene("7157")))
	require.NoError(t, s.StoreCondition(ctx, experiment, domain.NewCondition("treated", nil)))

	// sinks keep whatever they are given, duplicates included
	assert.Len(t, s.Genes, 2)

	totals := s.Totals()
	assert.Equal(t, 1, totals["experiments"])
	assert.Equal(t, 2, totals["genes"])
	assert.Equal(t, 1, totals["conditions"])
	assert.Zero(t, totals["samples"])

	assert.NoError(t, s.Close())
}
