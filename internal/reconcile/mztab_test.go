package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omics-warehouse-loader/internal/domain"
)

func mzTabLines(proteinRows ...[]string) [][]string {
	lines := [][]string{
		{"MTD", "mzTab-version", "1.0.0"},
		{"COM", "exported by OpenMS"},
		{"MTD", "ms_run[1]-location", "file:///data/run1.mzML"},
		{"MTD", "ms_run[2]-location", "file:///data/run2.mzML"},
		{"PRH", "accession", "description", "opt_global_result_type",
			"protein_abundance_study_variable[1]", "protein_abundance_study_variable[2]"},
	}
	return append(lines, proteinRows...)
}

func TestReconcileMzTab(t *testing.T) {
	experiment := domain.NewExperiment("exp1", "human")

	t.Run("samples proteins and abundances", func(t *testing.T) {
		r := newTestReconciler(new(MockIdentifierResolver))
		rows := NewSliceSource(mzTabLines(
			[]string{"PRT", "sp|P04637|P53_HUMAN", "tumor protein p53", "single_protein", "123.4", "null"},
			[]string{"PRT", "tr|Q00987|MDM2_HUMAN", "E3 ligase", "single_protein", "0.0", "55.5"},
		))
		result, err := r.ReconcileMzTab("out.mzTab", rows, experiment)
		require.NoError(t, err)

		require.Len(t, result.Samples, 2)
		assert.Equal(t, "/data/run1", result.Samples[0].Name)
		assert.Equal(t, "/data/run2", result.Samples[1].Name)

		require.Len(t, result.Proteins, 2)
		assert.Equal(t, "P53_HUMAN", result.Proteins[0].PrimaryIdentifier)
		assert.Equal(t, "P04637", result.Proteins[0].PrimaryAccession)

		// "null" and zero abundances are missing values
		require.Len(t, result.Abundances, 2)
		assert.Same(t, result.Samples[0], result.Abundances[0].Sample)
		assert.InDelta(t, 123.4, result.Abundances[0].Abundance, 1e-9)
		assert.Same(t, result.Samples[1], result.Abundances[1].Sample)
		assert.InDelta(t, 55.5, result.Abundances[1].Abundance, 1e-9)
		assert.Equal(t, 2, result.Summary.SkippedValues)
	})

	t.Run("protein_details rows are skipped", func(t *testing.T) {
		r := newTestReconciler(new(MockIdentifierResolver))
		rows := NewSliceSource(mzTabLines(
			[]string{"PRT", "sp|P04637|P53_HUMAN", "", "protein_details", "1.0", "2.0"},
			[]string{"PRT", "sp|Q00987|MDM2_HUMAN", "", "single_protein", "3.0", "4.0"},
		))
		result, err := r.ReconcileMzTab("out.mzTab", rows, experiment)
		require.NoError(t, err)
		require.Len(t, result.Proteins, 1)
		assert.Equal(t, "MDM2_HUMAN", result.Proteins[0].PrimaryIdentifier)
		assert.Len(t, result.Abundances, 2)
	})

	t.Run("repeated accession reuses the protein", func(t *testing.T) {
		r := newTestReconciler(new(MockIdentifierResolver))
		rows := NewSliceSource(mzTabLines(
			[]string{"PRT", "sp|P04637|P53_HUMAN", "", "single_protein", "1.0", "2.0"},
			[]string{"PRT", "sp|P04637|P53_HUMAN", "", "single_protein", "3.0", "4.0"},
		))
		result, err := r.ReconcileMzTab("out.mzTab", rows, experiment)
		require.NoError(t, err)
		require.Len(t, result.Proteins, 1)
		require.Len(t, result.Abundances, 4)
		assert.Same(t, result.Abundances[0].Protein, result.Abundances[2].Protein)
	})

	t.Run("malformed accession is fatal", func(t *testing.T) {
		r := newTestReconciler(new(MockIdentifierResolver))
		rows := NewSliceSource(mzTabLines(
			[]string{"PRT", "P04637", "", "single_protein", "1.0", "2.0"},
		))
		_, err := r.ReconcileMzTab("out.mzTab", rows, experiment)
		require.Error(t, err)
		assert.True(t, domain.IsDocumentError(err))
	})

	t.Run("row width mismatch is fatal", func(t *testing.T) {
		r := newTestReconciler(new(MockIdentifierResolver))
		rows := NewSliceSource(mzTabLines(
			[]string{"PRT", "sp|P04637|P53_HUMAN", "single_protein", "1.0"},
		))
		_, err := r.ReconcileMzTab("out.mzTab", rows, experiment)
		require.Error(t, err)
		assert.True(t, domain.IsDocumentError(err))
	})

	t.Run("missing sample metadata is fatal", func(t *testing.T) {
		r := newTestReconciler(new(MockIdentifierResolver))
		rows := NewSliceSource([][]string{
			{"MTD", "mzTab-version", "1.0.0"},
			{"PRH", "accession", "protein_abundance_study_variable[1]"},
		})
		_, err := r.ReconcileMzTab("out.mzTab", rows, experiment)
		require.Error(t, err)
		assert.True(t, domain.IsDocumentError(err))
	})

	t.Run("missing protein section is fatal", func(t *testing.T) {
		r := newTestReconciler(new(MockIdentifierResolver))
		rows := NewSliceSource([][]string{
			{"MTD", "ms_run[1]-location", "file:///data/run1.mzML"},
		})
		_, err := r.ReconcileMzTab("out.mzTab", rows, experiment)
		require.Error(t, err)
		assert.True(t, domain.IsDocumentError(err))
	})

	t.Run("out-of-order ms_run entries are ignored", func(t *testing.T) {
		r := newTestReconciler(new(MockIdentifierResolver))
		rows := NewSliceSource([][]string{
			{"MTD", "ms_run[2]-location", "file:///data/run2.mzML"},
			{"MTD", "ms_run[1]-location", "file:///data/run1.mzML"},
			{"PRH", "accession", "description", "opt_global_result_type",
				"protein_abundance_study_variable[1]"},
		})
		result, err := r.ReconcileMzTab("out.mzTab", rows, experiment)
		require.NoError(t, err)
		require.Len(t, result.Samples, 1)
		assert.Equal(t, "/data/run1", result.Samples[0].Name)
	})
}

func TestRunSampleName(t *testing.T) {
	assert.Equal(t, "/data/run1", runSampleName("file:///data/run1.mzML"))
	assert.Equal(t, "run2", runSampleName("run2.raw"))
	assert.Equal(t, "bare", runSampleName("bare"))
}
