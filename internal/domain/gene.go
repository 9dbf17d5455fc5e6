package domain

import (
	"github.com/google/uuid"
)

// Taxon IDs for the species supported by the identifier resolver.
const (
	HumanTaxonID = "9606"
	MouseTaxonID = "10090"
)

// NotAvailable is the sentinel used by upstream pipelines for missing values.
const NotAvailable = "NA"

// Gene is the canonical gene entity. Within one processing run at most one
// Gene exists per primary identifier; the run-scoped entity cache enforces
// this, so two records referencing the same gene share the same *Gene.
type Gene struct {
	RecordID          uuid.UUID `json:"record_id"`
	PrimaryIdentifier string    `json:"primary_identifier"` // NCBI/Entrez ID
}

// NewGene creates a gene entity keyed by its primary (NCBI/Entrez) identifier.
func NewGene(primaryID string) *Gene {
	return &Gene{
		RecordID:          uuid.New(),
		PrimaryIdentifier: primaryID,
	}
}

// Protein is a canonical protein entity derived from an mzTab accession of
// the form "sp|ACCESSION|NAME".
type Protein struct {
	RecordID          uuid.UUID `json:"record_id"`
	PrimaryIdentifier string    `json:"primary_identifier"` // entry name, e.g. ALBU_HUMAN
	PrimaryAccession  string    `json:"primary_accession"`  // UniProt accession
}

// NewProtein creates a protein entity from its entry name and accession.
func NewProtein(identifier, accession string) *Protein {
	return &Protein{
		RecordID:          uuid.New(),
		PrimaryIdentifier: identifier,
		PrimaryAccession:  accession,
	}
}

// IsValidIdentifier reports whether s can be used for gene resolution:
// non-empty and not the "NA" sentinel.
func IsValidIdentifier(s string) bool {
	return s != "" && s != NotAvailable
}
