package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLayout(t *testing.T) {
	t.Run("legacy nine column header", func(t *testing.T) {
		layout, err := detectLayout(deseq2Layouts, legacyHeader)
		require.NoError(t, err)
		assert.Equal(t, "deseq2-legacy", layout.Name)
	})

	t.Run("current ten column header", func(t *testing.T) {
		layout, err := detectLayout(deseq2Layouts, []string{
			"Ensembl", "Entrez", "Gene", "Description",
			"baseMean", "log2FoldChange", "lfcSE", "stat", "pvalue", "padj",
		})
		require.NoError(t, err)
		assert.Equal(t, "deseq2-current", layout.Name)
	})

	t.Run("identifier columns match case-insensitively", func(t *testing.T) {
		layout, err := detectLayout(deseq2Layouts, []string{
			"Ensembl", "Entrez", "Symbol",
			"baseMean", "log2FoldChange", "lfcSE", "stat", "pvalue", "padj",
		})
		require.NoError(t, err)
		assert.Equal(t, "deseq2-legacy", layout.Name)
	})

	t.Run("statistics columns match exactly", func(t *testing.T) {
		_, err := detectLayout(deseq2Layouts, []string{
			"ensembl", "entrez", "symbol",
			"basemean", "log2foldchange", "lfcse", "stat", "pvalue", "padj",
		})
		assert.Error(t, err)
	})

	t.Run("unrecognized header is rejected", func(t *testing.T) {
		_, err := detectLayout(deseq2Layouts, []string{"gene", "fold_change", "pval"})
		assert.Error(t, err)
	})
}

func TestLayoutRoles(t *testing.T) {
	roles := deseq2Layouts[1].Roles()
	assert.Equal(t, 0, roles[RoleSecondaryID])
	assert.Equal(t, 2, roles[RoleSymbol])
	assert.Equal(t, 9, roles[RolePAdj])
}

func TestParseMeasure(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		zeroSentinel bool
		want         *float64
	}{
		{"plain value", "1.5", false, ptr(1.5)},
		{"padded value", " 2.0 ", false, ptr(2.0)},
		{"NA sentinel", "NA", false, nil},
		{"empty", "", false, nil},
		{"null sentinel", "null", false, nil},
		{"zero kept without sentinel", "0.0", false, ptr(0.0)},
		{"zero dropped with sentinel", "0.0", true, nil},
		{"integer zero dropped with sentinel", "0", true, nil},
		{"nonzero kept with sentinel", "0.5", true, ptr(0.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseMeasure(tt.value, tt.zeroSentinel)
			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.InDelta(t, *tt.want, *got, 1e-9)
			}
		})
	}
}

func ptr(v float64) *float64 { return &v }
