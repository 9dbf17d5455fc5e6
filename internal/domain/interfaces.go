package domain

import (
	"context"
)

// IdentifierResolver is the external identifier-resolution port. Given a
// taxon, an entity kind ("gene") and a free-text identifier it returns the
// set of candidate primary identifiers: an empty set means "not found",
// more than one means the identifier is ambiguous. An error is fatal to the
// document being processed, never a per-row condition.
type IdentifierResolver interface {
	ResolveCandidates(ctx context.Context, taxonID, kind, identifier string) ([]string, error)
}

// Warehouse is the persistence sink for reconciled entities. It assigns
// durable identity and performs no deduplication of its own; intra-run
// deduplication is entirely the caller's responsibility.
type Warehouse interface {
	StoreExperiment(ctx context.Context, exp *Experiment) error
	StoreGene(ctx context.Context, gene *Gene) error
	StoreProtein(ctx context.Context, protein *Protein) error
	StoreMaterial(ctx context.Context, exp *Experiment, material Material) error
	StoreTreatment(ctx context.Context, exp *Experiment, treatment Treatment) error
	StoreCondition(ctx context.Context, exp *Experiment, condition *Condition) error
	StoreSample(ctx context.Context, exp *Experiment, sample *Sample) error
	StoreComparisonResult(ctx context.Context, result *ComparisonResult) error
	StoreFeatureCount(ctx context.Context, count *FeatureCount) error
	StoreProteinAbundance(ctx context.Context, abundance *ProteinAbundance) error
	StoreMatrixObservation(ctx context.Context, obs *MatrixObservation) error
	Close() error
}
