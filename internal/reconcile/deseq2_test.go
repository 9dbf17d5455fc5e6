package reconcile

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/omics-warehouse-loader/internal/domain"
	"github.com/omics-warehouse-loader/internal/registry"
	"github.com/omics-warehouse-loader/internal/resolve"
)

// MockIdentifierResolver is a mock implementation of the external resolver port
type MockIdentifierResolver struct {
	mock.Mock
}

func (m *MockIdentifierResolver) ResolveCandidates(ctx context.Context, taxonID, kind, identifier string) ([]string, error) {
	args := m.Called(ctx, taxonID, kind, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func newTestReconciler(port domain.IdentifierResolver) *Reconciler {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // suppress logs during testing
	genes := resolve.NewGeneResolver(domain.HumanTaxonID, port, resolve.NewEntityCache[*domain.Gene](), logger)
	return NewReconciler(genes, logger)
}

// testRegistry builds a registry with a treated and a control condition.
func testRegistry() *registry.Registry {
	reg := registry.NewRegistry()
	reg.Conditions.Add("treated", domain.NewCondition("treated", nil))
	reg.Conditions.Add("control", domain.NewCondition("control", nil))
	return reg
}

var legacyHeader = []string{
	"ensembl", "entrez", "symbol",
	"baseMean", "log2FoldChange", "lfcSE", "stat", "pvalue", "padj",
}

func TestReconcileComparison(t *testing.T) {
	ctx := context.Background()
	comparison := domain.Comparison{Treatment: "treated", Control: "control"}

	t.Run("legacy layout with primary IDs", func(t *testing.T) {
		mockPort := new(MockIdentifierResolver)
		r := newTestReconciler(mockPort)
		reg := testRegistry()
		experiment := domain.NewExperiment("exp1", "human")

		rows := NewSliceSource([][]string{
			{"ENSG00000141510.4", "7157", "TP53", "100.5", "1.2", "0.3", "4.1", "0.001", "0.01"},
			{"ENSG00000123374", "1017", "CDK2", "55.0", "-0.8", "0.2", "-3.5", "0.002", "0.02"},
		})
		results, summary, err := r.ReconcileComparison(ctx, "t_vs_c.tsv", legacyHeader, rows, reg, experiment, comparison)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, 2, summary.Emitted)

		first := results[0]
		assert.Equal(t, "7157", first.Gene.PrimaryIdentifier)
		assert.Equal(t, "ENSG00000141510", first.GeneEnsemblID, "version suffix is stripped")
		assert.Equal(t, "treated", first.Treatment.Name)
		assert.Equal(t, "control", first.Control.Name)
		require.NotNil(t, first.Log2FoldChange)
		assert.InDelta(t, 1.2, *first.Log2FoldChange, 1e-9)

		// primary IDs short-circuit; the port is never consulted
		mockPort.AssertNotCalled(t, "ResolveCandidates", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("NA values leave attributes unset", func(t *testing.T) {
		r := newTestReconciler(new(MockIdentifierResolver))
		reg := testRegistry()

		rows := NewSliceSource([][]string{
			{"ENSG00000141510", "7157", "TP53", "0.0", "NA", "NA", "NA", "NA", "NA"},
		})
		results, _, err := r.ReconcileComparison(ctx, "t_vs_c.tsv", legacyHeader, rows, reg,
			domain.NewExperiment("exp1", "human"), comparison)
		require.NoError(t, err)
		require.Len(t, results, 1)

		result := results[0]
		require.NotNil(t, result.BaseMean, "zero is a real value here, not a sentinel")
		assert.Zero(t, *result.BaseMean)
		assert.Nil(t, result.Log2FoldChange)
		assert.Nil(t, result.PValue)
		assert.Nil(t, result.PAdj)
	})

	t.Run("current layout resolves through the port", func(t *testing.T) {
		mockPort := new(MockIdentifierResolver)
		mockPort.On("ResolveCandidates", ctx, domain.HumanTaxonID, "gene", "ENSG00000141510").
			Return([]string{"7157"}, nil)
		mockPort.On("ResolveCandidates", ctx, domain.HumanTaxonID, "gene", "TP53").
			Return([]string{"7157"}, nil)
		r := newTestReconciler(mockPort)
		reg := testRegistry()

		header := []string{
			"Ensembl", "Entrez", "Gene", "Description",
			"baseMean", "log2FoldChange", "lfcSE", "stat", "pvalue", "padj",
		}
		rows := NewSliceSource([][]string{
			{"ENSG00000141510", "NA", "TP53", "tumor protein p53", "100.5", "1.2", "0.3", "4.1", "0.001", "0.01"},
		})
		results, _, err := r.ReconcileComparison(ctx, "t_vs_c.tsv", header, rows, reg,
			domain.NewExperiment("exp1", "human"), comparison)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "7157", results[0].Gene.PrimaryIdentifier)
	})

	t.Run("unresolved gene drops row only", func(t *testing.T) {
		mockPort := new(MockIdentifierResolver)
		mockPort.On("ResolveCandidates", ctx, domain.HumanTaxonID, "gene", "ENSG00000999999").
			Return([]string{}, nil)
		r := newTestReconciler(mockPort)
		reg := testRegistry()

		rows := NewSliceSource([][]string{
			{"ENSG00000999999", "NA", "NA", "1.0", "1.0", "1.0", "1.0", "1.0", "1.0"},
			{"ENSG00000141510", "7157", "TP53", "1.0", "1.0", "1.0", "1.0", "1.0", "1.0"},
		})
		results, summary, err := r.ReconcileComparison(ctx, "t_vs_c.tsv", legacyHeader, rows, reg,
			domain.NewExperiment("exp1", "human"), comparison)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, 1, summary.DroppedGene)
		assert.Equal(t, 2, summary.Rows)
	})

	t.Run("unknown header is fatal", func(t *testing.T) {
		r := newTestReconciler(new(MockIdentifierResolver))
		header := []string{"gene", "fold_change", "pval"}
		_, _, err := r.ReconcileComparison(ctx, "t_vs_c.tsv", header, NewSliceSource(nil),
			testRegistry(), domain.NewExperiment("exp1", "human"), comparison)
		require.Error(t, err)
		assert.True(t, domain.IsDocumentError(err))
	})

	t.Run("row width mismatch is fatal", func(t *testing.T) {
		r := newTestReconciler(new(MockIdentifierResolver))
		rows := NewSliceSource([][]string{
			{"ENSG00000141510", "7157", "TP53"},
		})
		_, _, err := r.ReconcileComparison(ctx, "t_vs_c.tsv", legacyHeader, rows,
			testRegistry(), domain.NewExperiment("exp1", "human"), comparison)
		require.Error(t, err)
		assert.True(t, domain.IsDocumentError(err))
	})

	t.Run("missing condition drops rows not file", func(t *testing.T) {
		r := newTestReconciler(new(MockIdentifierResolver))
		reg := registry.NewRegistry() // no conditions registered

		rows := NewSliceSource([][]string{
			{"ENSG00000141510", "7157", "TP53", "1.0", "1.0", "1.0", "1.0", "1.0", "1.0"},
		})
		results, summary, err := r.ReconcileComparison(ctx, "t_vs_c.tsv", legacyHeader, rows, reg,
			domain.NewExperiment("exp1", "human"), comparison)
		require.NoError(t, err)
		assert.Empty(t, results)
		assert.Equal(t, 1, summary.DroppedReference)
	})

	t.Run("port error is fatal", func(t *testing.T) {
		mockPort := new(MockIdentifierResolver)
		mockPort.On("ResolveCandidates", ctx, domain.HumanTaxonID, "gene", "ENSG00000141510").
			Return(nil, domain.ErrResolverUnavailable)
		r := newTestReconciler(mockPort)

		rows := NewSliceSource([][]string{
			{"ENSG00000141510", "NA", "NA", "1.0", "1.0", "1.0", "1.0", "1.0", "1.0"},
		})
		_, _, err := r.ReconcileComparison(ctx, "t_vs_c.tsv", legacyHeader, rows,
			testRegistry(), domain.NewExperiment("exp1", "human"), comparison)
		require.Error(t, err)
		assert.True(t, domain.IsDocumentError(err))
		assert.ErrorIs(t, err, domain.ErrResolverUnavailable)
	})
}
