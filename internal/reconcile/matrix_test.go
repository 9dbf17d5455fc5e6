package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omics-warehouse-loader/internal/domain"
)

var effectSpec = MatrixSpec{
	HeaderStart: "depmap_id",
	Attribute:   "geneEffect",
}

func TestReconcileMatrix(t *testing.T) {
	ctx := context.Background()

	t.Run("secondary ID columns", func(t *testing.T) {
		mockPort := new(MockIdentifierResolver)
		mockPort.On("ResolveCandidates", ctx, domain.HumanTaxonID, "gene", "ENSG00000141510").
			Return([]string{"7157"}, nil)
		mockPort.On("ResolveCandidates", ctx, domain.HumanTaxonID, "gene", "TP53").
			Return([]string{"7157"}, nil)
		r := newTestReconciler(mockPort)

		header := []string{"depmap_id", "TP53 (ENSG00000141510)"}
		rows := NewSliceSource([][]string{
			{"ACH-000001", "-1.25"},
			{"ACH-000002", ""},
		})
		obs, summary, err := r.ReconcileMatrix(ctx, "effect.csv", effectSpec, header, rows)
		require.NoError(t, err)
		require.Len(t, obs, 1)
		assert.Equal(t, "7157", obs[0].Gene.PrimaryIdentifier)
		assert.Equal(t, "ACH-000001", obs[0].RowKey)
		assert.Equal(t, "geneEffect", obs[0].Attribute)
		assert.InDelta(t, -1.25, obs[0].Value, 1e-9)
		assert.Equal(t, 2, summary.Rows)
	})

	t.Run("bare Ensembl columns", func(t *testing.T) {
		mockPort := new(MockIdentifierResolver)
		mockPort.On("ResolveCandidates", ctx, domain.HumanTaxonID, "gene", "ENSG00000141510").
			Return([]string{"7157"}, nil)
		r := newTestReconciler(mockPort)

		header := []string{"depmap_id", "ENSG00000141510"}
		rows := NewSliceSource([][]string{
			{"ACH-000001", "0.5"},
		})
		obs, _, err := r.ReconcileMatrix(ctx, "expr.csv", effectSpec, header, rows)
		require.NoError(t, err)
		require.Len(t, obs, 1)
		assert.Equal(t, "7157", obs[0].Gene.PrimaryIdentifier)
	})

	t.Run("primary ID columns with symbol check", func(t *testing.T) {
		mockPort := new(MockIdentifierResolver)
		mockPort.On("ResolveCandidates", ctx, domain.HumanTaxonID, "gene", "TP53").
			Return([]string{"7157"}, nil)
		r := newTestReconciler(mockPort)

		spec := MatrixSpec{HeaderStart: "depmap_id", Attribute: "geneEffect", IDsArePrimary: true}
		header := []string{"depmap_id", "TP53 (7157)"}
		rows := NewSliceSource([][]string{
			{"ACH-000001", "0.9"},
		})
		obs, _, err := r.ReconcileMatrix(ctx, "effect.csv", spec, header, rows)
		require.NoError(t, err)
		require.Len(t, obs, 1)
		assert.Equal(t, "7157", obs[0].Gene.PrimaryIdentifier)
	})

	t.Run("symbol-confirmed column wins a collision", func(t *testing.T) {
		mockPort := new(MockIdentifierResolver)
		// the outdated symbol has no match, so its column resolves by
		// Ensembl ID alone; the second column's symbol corroborates
		mockPort.On("ResolveCandidates", ctx, domain.HumanTaxonID, "gene", "ENSG00000000001").
			Return([]string{"7157"}, nil)
		mockPort.On("ResolveCandidates", ctx, domain.HumanTaxonID, "gene", "OLDNAME").
			Return([]string{}, nil)
		mockPort.On("ResolveCandidates", ctx, domain.HumanTaxonID, "gene", "ENSG00000141510").
			Return([]string{"7157"}, nil)
		mockPort.On("ResolveCandidates", ctx, domain.HumanTaxonID, "gene", "TP53").
			Return([]string{"7157"}, nil)
		r := newTestReconciler(mockPort)

		header := []string{"depmap_id", "OLDNAME (ENSG00000000001)", "TP53 (ENSG00000141510)"}
		rows := NewSliceSource([][]string{
			{"ACH-000001", "0.1", "0.2"},
		})
		obs, summary, err := r.ReconcileMatrix(ctx, "effect.csv", effectSpec, header, rows)
		require.NoError(t, err)
		require.Len(t, obs, 1, "only one column per gene survives")
		assert.InDelta(t, 0.2, obs[0].Value, 1e-9, "the symbol-confirmed column is kept")
		assert.Equal(t, 1, summary.DuplicateColumns)
	})

	t.Run("first column wins an unconfirmed collision", func(t *testing.T) {
		mockPort := new(MockIdentifierResolver)
		mockPort.On("ResolveCandidates", ctx, domain.HumanTaxonID, "gene", "ENSG00000000001").
			Return([]string{"7157"}, nil)
		mockPort.On("ResolveCandidates", ctx, domain.HumanTaxonID, "gene", "ENSG00000000002").
			Return([]string{"7157"}, nil)
		r := newTestReconciler(mockPort)

		header := []string{"depmap_id", "ENSG00000000001", "ENSG00000000002"}
		rows := NewSliceSource([][]string{
			{"ACH-000001", "0.1", "0.2"},
		})
		obs, summary, err := r.ReconcileMatrix(ctx, "effect.csv", effectSpec, header, rows)
		require.NoError(t, err)
		require.Len(t, obs, 1)
		assert.InDelta(t, 0.1, obs[0].Value, 1e-9)
		assert.Equal(t, 1, summary.DuplicateColumns)
	})

	t.Run("unresolved column is skipped", func(t *testing.T) {
		mockPort := new(MockIdentifierResolver)
		mockPort.On("ResolveCandidates", ctx, domain.HumanTaxonID, "gene", "ENSG00000999999").
			Return([]string{}, nil)
		r := newTestReconciler(mockPort)

		header := []string{"depmap_id", "ENSG00000999999"}
		rows := NewSliceSource([][]string{
			{"ACH-000001", "0.1"},
		})
		obs, summary, err := r.ReconcileMatrix(ctx, "effect.csv", effectSpec, header, rows)
		require.NoError(t, err)
		assert.Empty(t, obs)
		assert.Equal(t, 1, summary.DroppedColumns)
	})

	t.Run("malformed column name is fatal", func(t *testing.T) {
		r := newTestReconciler(new(MockIdentifierResolver))
		header := []string{"depmap_id", "not a gene column"}
		_, _, err := r.ReconcileMatrix(ctx, "effect.csv", effectSpec, header, NewSliceSource(nil))
		require.Error(t, err)
		assert.True(t, domain.IsDocumentError(err))
	})

	t.Run("wrong row-key column is fatal", func(t *testing.T) {
		r := newTestReconciler(new(MockIdentifierResolver))
		header := []string{"cell_line", "ENSG00000141510"}
		_, _, err := r.ReconcileMatrix(ctx, "effect.csv", effectSpec, header, NewSliceSource(nil))
		require.Error(t, err)
		assert.True(t, domain.IsDocumentError(err))
	})
}

func TestSplitColumnName(t *testing.T) {
	tests := []struct {
		colName string
		id      string
		symbol  string
	}{
		{"TP53 (7157)", "7157", "TP53"},
		{"TP53 (ENSG00000141510)", "ENSG00000141510", "TP53"},
		{"ENSG00000141510", "ENSG00000141510", ""},
	}
	for _, tt := range tests {
		id, symbol := splitColumnName(tt.colName)
		assert.Equal(t, tt.id, id)
		assert.Equal(t, tt.symbol, symbol)
	}
}
