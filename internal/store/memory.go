// Package store provides the warehouse sinks reconciled records are
// persisted to: an in-memory store for tests and dry runs, a SQLite store
// for single-file deployments and a PostgreSQL store for the warehouse
// proper. Sinks store what they are given and never deduplicate; entity
// identity is settled upstream by the run-scoped caches.
package store

import (
	"context"
	"sync"

	"github.com/omics-warehouse-loader/internal/domain"
)

// MemoryStore is an in-memory warehouse. It is safe for concurrent use, so
// the status server can read totals while a load is running.
type MemoryStore struct {
	mu sync.RWMutex

	Experiments        []*domain.Experiment
	Genes              []*domain.Gene
	Proteins           []*domain.Protein
	Materials          []domain.Material
	Treatments         []domain.Treatment
	Conditions         []*domain.Condition
	Samples            []*domain.Sample
	ComparisonResults  []*domain.ComparisonResult
	FeatureCounts      []*domain.FeatureCount
	ProteinAbundances  []*domain.ProteinAbundance
	MatrixObservations []*domain.MatrixObservation
}

// NewMemoryStore creates an empty in-memory warehouse.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) StoreExperiment(ctx context.Context, experiment *domain.Experiment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Experiments = append(s.Experiments, experiment)
	return nil
}

func (s *MemoryStore) StoreGene(ctx context.Context, gene *domain.Gene) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Genes = append(s.Genes, gene)
	return nil
}

func (s *MemoryStore) StoreProtein(ctx context.Context, protein *domain.Protein) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Proteins = append(s.Proteins, protein)
	return nil
}

func (s *MemoryStore) StoreMaterial(ctx context.Context, experiment *domain.Experiment, material domain.Material) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Materials = append(s.Materials, material)
	return nil
}

func (s *MemoryStore) StoreTreatment(ctx context.Context, experiment *domain.Experiment, treatment domain.Treatment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Treatments = append(s.Treatments, treatment)
	return nil
}

func (s *MemoryStore) StoreCondition(ctx context.Context, experiment *domain.Experiment, condition *domain.Condition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Conditions = append(s.Conditions, condition)
	return nil
}

func (s *MemoryStore) StoreSample(ctx context.Context, experiment *domain.Experiment, sample *domain.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Samples = append(s.Samples, sample)
	return nil
}

func (s *MemoryStore) StoreComparisonResult(ctx context.Context, result *domain.ComparisonResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ComparisonResults = append(s.ComparisonResults, result)
	return nil
}

func (s *MemoryStore) StoreFeatureCount(ctx context.Context, count *domain.FeatureCount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FeatureCounts = append(s.FeatureCounts, count)
	return nil
}

func (s *MemoryStore) StoreProteinAbundance(ctx context.Context, abundance *domain.ProteinAbundance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ProteinAbundances = append(s.ProteinAbundances, abundance)
	return nil
}

func (s *MemoryStore) StoreMatrixObservation(ctx context.Context, observation *domain.MatrixObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MatrixObservations = append(s.MatrixObservations, observation)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// Totals reports how many records of each kind the store holds.
func (s *MemoryStore) Totals() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]int{
		"experiments":         len(s.Experiments),
		"genes":               len(s.Genes),
		"proteins":            len(s.Proteins),
		"materials":           len(s.Materials),
		"treatments":          len(s.Treatments),
		"conditions":          len(s.Conditions),
		"samples":             len(s.Samples),
		"comparison_results":  len(s.ComparisonResults),
		"feature_counts":      len(s.FeatureCounts),
		"protein_abundances":  len(s.ProteinAbundances),
		"matrix_observations": len(s.MatrixObservations),
	}
}
