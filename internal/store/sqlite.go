package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"

	"github.com/omics-warehouse-loader/internal/domain"
)

// SQLiteStore implements the Warehouse interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite warehouse.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	store := &SQLiteStore{db: db, dbPath: dbPath}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return store, nil
}

// NewSQLiteStoreWithDB wraps an existing database handle. The schema is
// assumed to exist; tests use this with a mocked driver.
func NewSQLiteStoreWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// createSchema creates the warehouse tables.
func (s *SQLiteStore) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS experiments (
		record_id TEXT PRIMARY KEY,
		short_name TEXT NOT NULL,
		species TEXT NOT NULL,
		attributes TEXT DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS genes (
		record_id TEXT PRIMARY KEY,
		primary_identifier TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS proteins (
		record_id TEXT PRIMARY KEY,
		primary_identifier TEXT NOT NULL,
		primary_accession TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS materials (
		experiment_id TEXT NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		details TEXT DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS treatments (
		experiment_id TEXT NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		details TEXT DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS conditions (
		record_id TEXT PRIMARY KEY,
		experiment_id TEXT NOT NULL,
		name TEXT NOT NULL,
		material_name TEXT DEFAULT '',
		treatment_names TEXT DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS samples (
		record_id TEXT PRIMARY KEY,
		condition_id TEXT DEFAULT '',
		name TEXT NOT NULL,
		file TEXT DEFAULT '',
		bio_replicate TEXT DEFAULT '',
		label TEXT DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS comparison_results (
		record_id TEXT PRIMARY KEY,
		experiment_id TEXT NOT NULL,
		gene_id TEXT NOT NULL,
		gene_ensembl_id TEXT DEFAULT '',
		treatment_condition_id TEXT NOT NULL,
		control_condition_id TEXT NOT NULL,
		base_mean REAL,
		log2_fold_change REAL,
		lfc_se REAL,
		stat REAL,
		pvalue REAL,
		padj REAL
	);

	CREATE TABLE IF NOT EXISTS feature_counts (
		record_id TEXT PRIMARY KEY,
		experiment_id TEXT NOT NULL,
		gene_id TEXT NOT NULL,
		gene_ensembl_id TEXT DEFAULT '',
		sample_id TEXT DEFAULT '',
		condition_id TEXT DEFAULT '',
		bio_replicate TEXT DEFAULT '',
		count REAL
	);

	CREATE TABLE IF NOT EXISTS protein_abundances (
		record_id TEXT PRIMARY KEY,
		experiment_id TEXT NOT NULL,
		protein_id TEXT NOT NULL,
		sample_id TEXT NOT NULL,
		abundance REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS matrix_observations (
		record_id TEXT PRIMARY KEY,
		gene_id TEXT NOT NULL,
		row_key TEXT NOT NULL,
		attribute TEXT NOT NULL,
		value REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_genes_primary ON genes(primary_identifier);
	CREATE INDEX IF NOT EXISTS idx_results_gene ON comparison_results(gene_id);
	CREATE INDEX IF NOT EXISTS idx_counts_gene ON feature_counts(gene_id);
	CREATE INDEX IF NOT EXISTS idx_observations_gene ON matrix_observations(gene_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) StoreExperiment(ctx context.Context, experiment *domain.Experiment) error {
	attributes, err := json.Marshal(experiment.Attributes)
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO experiments (record_id, short_name, species, attributes)
		VALUES (?, ?, ?, ?)
	`, experiment.RecordID.String(), experiment.ShortName, experiment.Species, string(attributes))
	if err != nil {
		return fmt.Errorf("failed to insert experiment: %w", err)
	}
	return nil
}

func (s *SQLiteStore) StoreGene(ctx context.Context, gene *domain.Gene) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO genes (record_id, primary_identifier)
		VALUES (?, ?)
	`, gene.RecordID.String(), gene.PrimaryIdentifier)
	if err != nil {
		return fmt.Errorf("failed to insert gene: %w", err)
	}
	return nil
}

func (s *SQLiteStore) StoreProtein(ctx context.Context, protein *domain.Protein) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO proteins (record_id, primary_identifier, primary_accession)
		VALUES (?, ?, ?)
	`, protein.RecordID.String(), protein.PrimaryIdentifier, protein.PrimaryAccession)
	if err != nil {
		return fmt.Errorf("failed to insert protein: %w", err)
	}
	return nil
}

func (s *SQLiteStore) StoreMaterial(ctx context.Context, experiment *domain.Experiment, material domain.Material) error {
	details, err := json.Marshal(material)
	if err != nil {
		return fmt.Errorf("failed to marshal material: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO materials (experiment_id, name, kind, details)
		VALUES (?, ?, ?, ?)
	`, experiment.RecordID.String(), material.MaterialName(), string(material.Kind()), string(details))
	if err != nil {
		return fmt.Errorf("failed to insert material: %w", err)
	}
	return nil
}

func (s *SQLiteStore) StoreTreatment(ctx context.Context, experiment *domain.Experiment, treatment domain.Treatment) error {
	details, err := json.Marshal(treatment)
	if err != nil {
		return fmt.Errorf("failed to marshal treatment: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO treatments (experiment_id, name, kind, details)
		VALUES (?, ?, ?, ?)
	`, experiment.RecordID.String(), treatment.TreatmentName(), string(treatment.Kind()), string(details))
	if err != nil {
		return fmt.Errorf("failed to insert treatment: %w", err)
	}
	return nil
}

func (s *SQLiteStore) StoreCondition(ctx context.Context, experiment *domain.Experiment, condition *domain.Condition) error {
	materialName := ""
	if condition.Material != nil {
		materialName = condition.Material.MaterialName()
	}
	treatmentNames := make([]string, 0, len(condition.Treatments))
	for _, treatment := range condition.Treatments {
		treatmentNames = append(treatmentNames, treatment.TreatmentName())
	}
	names, err := json.Marshal(treatmentNames)
	if err != nil {
		return fmt.Errorf("failed to marshal treatment names: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conditions (record_id, experiment_id, name, material_name, treatment_names)
		VALUES (?, ?, ?, ?, ?)
	`, condition.RecordID.String(), experiment.RecordID.String(), condition.Name, materialName, string(names))
	if err != nil {
		return fmt.Errorf("failed to insert condition: %w", err)
	}
	return nil
}

func (s *SQLiteStore) StoreSample(ctx context.Context, experiment *domain.Experiment, sample *domain.Sample) error {
	conditionID := ""
	if sample.Condition != nil {
		conditionID = sample.Condition.RecordID.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO samples (record_id, condition_id, name, file, bio_replicate, label)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sample.RecordID.String(), conditionID, sample.Name, sample.File, sample.BioReplicate, sample.Label)
	if err != nil {
		return fmt.Errorf("failed to insert sample: %w", err)
	}
	return nil
}

func (s *SQLiteStore) StoreComparisonResult(ctx context.Context, result *domain.ComparisonResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comparison_results (
			record_id, experiment_id, gene_id, gene_ensembl_id,
			treatment_condition_id, control_condition_id,
			base_mean, log2_fold_change, lfc_se, stat, pvalue, padj
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.RecordID.String(),
		recordID(result.Experiment),
		result.Gene.RecordID.String(),
		result.GeneEnsemblID,
		conditionID(result.Treatment),
		conditionID(result.Control),
		result.BaseMean,
		result.Log2FoldChange,
		result.LfcSE,
		result.Stat,
		result.PValue,
		result.PAdj,
	)
	if err != nil {
		return fmt.Errorf("failed to insert comparison result: %w", err)
	}
	return nil
}

func (s *SQLiteStore) StoreFeatureCount(ctx context.Context, count *domain.FeatureCount) error {
	sampleID := ""
	if count.Sample != nil {
		sampleID = count.Sample.RecordID.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feature_counts (
			record_id, experiment_id, gene_id, gene_ensembl_id,
			sample_id, condition_id, bio_replicate, count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		count.RecordID.String(),
		recordID(count.Experiment),
		count.Gene.RecordID.String(),
		count.GeneEnsemblID,
		sampleID,
		conditionID(count.Condition),
		count.BioReplicate,
		count.Count,
	)
	if err != nil {
		return fmt.Errorf("failed to insert feature count: %w", err)
	}
	return nil
}

func (s *SQLiteStore) StoreProteinAbundance(ctx context.Context, abundance *domain.ProteinAbundance) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO protein_abundances (record_id, experiment_id, protein_id, sample_id, abundance)
		VALUES (?, ?, ?, ?, ?)
	`,
		abundance.RecordID.String(),
		recordID(abundance.Experiment),
		abundance.Protein.RecordID.String(),
		abundance.Sample.RecordID.String(),
		abundance.Abundance,
	)
	if err != nil {
		return fmt.Errorf("failed to insert protein abundance: %w", err)
	}
	return nil
}

func (s *SQLiteStore) StoreMatrixObservation(ctx context.Context, observation *domain.MatrixObservation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matrix_observations (record_id, gene_id, row_key, attribute, value)
		VALUES (?, ?, ?, ?, ?)
	`,
		observation.RecordID.String(),
		observation.Gene.RecordID.String(),
		observation.RowKey,
		observation.Attribute,
		observation.Value,
	)
	if err != nil {
		return fmt.Errorf("failed to insert matrix observation: %w", err)
	}
	return nil
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func recordID(experiment *domain.Experiment) string {
	if experiment == nil {
		return uuid.Nil.String()
	}
	return experiment.RecordID.String()
}

func conditionID(condition *domain.Condition) string {
	if condition == nil {
		return ""
	}
	return condition.RecordID.String()
}
