package domain

import (
	"github.com/google/uuid"
)

// ComparisonResult is one reconciled row of a differential-expression
// (DESeq2) results table. Numeric fields are nil when the source value was
// the "NA" sentinel or not parseable.
type ComparisonResult struct {
	RecordID       uuid.UUID   `json:"record_id"`
	Gene           *Gene       `json:"-"`
	GeneEnsemblID  string      `json:"gene_ensembl_id,omitempty"`
	Treatment      *Condition  `json:"-"`
	Control        *Condition  `json:"-"`
	Experiment     *Experiment `json:"-"`
	BaseMean       *float64    `json:"base_mean,omitempty"`
	Log2FoldChange *float64    `json:"log2_fold_change,omitempty"`
	LfcSE          *float64    `json:"lfc_se,omitempty"`
	Stat           *float64    `json:"stat,omitempty"`
	PValue         *float64    `json:"pvalue,omitempty"`
	PAdj           *float64    `json:"padj,omitempty"`
}

// FeatureCount is one reconciled cell of a feature-count matrix: one gene
// under one sample column. Depending on the matrix layout the column maps
// either to a named sample (legacy) or to a condition replicate (current);
// exactly one of Sample and Condition is set.
type FeatureCount struct {
	RecordID      uuid.UUID   `json:"record_id"`
	Gene          *Gene       `json:"-"`
	GeneEnsemblID string      `json:"gene_ensembl_id,omitempty"`
	Sample        *Sample     `json:"-"`
	Condition     *Condition  `json:"-"`
	BioReplicate  string      `json:"bio_replicate,omitempty"`
	Experiment    *Experiment `json:"-"`
	Count         *float64    `json:"count,omitempty"` // nil for the zero sentinel
}

// ProteinAbundance is one reconciled protein quantification value from an
// mzTab protein section, tied to one ms_run sample.
type ProteinAbundance struct {
	RecordID   uuid.UUID   `json:"record_id"`
	Protein    *Protein    `json:"-"`
	Sample     *Sample     `json:"-"`
	Experiment *Experiment `json:"-"`
	Abundance  float64     `json:"abundance"`
}

// MatrixObservation is one reconciled cell of a DepMap-style matrix file:
// one gene column crossed with one row entity (e.g. a cell line keyed by its
// DepMap ID). Attribute names the measurement the matrix carries.
type MatrixObservation struct {
	RecordID  uuid.UUID `json:"record_id"`
	Gene      *Gene     `json:"-"`
	RowKey    string    `json:"row_key"`
	Attribute string    `json:"attribute"`
	Value     float64   `json:"value"`
}
