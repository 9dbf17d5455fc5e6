package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/omics-warehouse-loader/internal/domain"
)

// PostgresURL builds the connection URL for migrations.
func PostgresURL(config domain.DatabaseConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		config.Username, config.Password, config.Host, config.Port, config.Database, config.SSLMode)
}

// PostgresStore implements the Warehouse interface on a PostgreSQL
// connection pool. The schema is managed through migrations, see
// the migrations directory.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

// NewPostgresStore creates a new PostgreSQL warehouse connection pool
func NewPostgresStore(ctx context.Context, config domain.DatabaseConfig, logger *logrus.Logger) (*PostgresStore, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		config.Host, config.Port, config.Database, config.Username, config.Password, config.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	// Configure connection pool settings
	poolConfig.MaxConns = config.MaxConns
	poolConfig.MinConns = config.MinConns
	poolConfig.MaxConnLifetime = config.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"host":      config.Host,
		"port":      config.Port,
		"database":  config.Database,
		"max_conns": config.MaxConns,
	}).Info("Warehouse connection pool established")

	return &PostgresStore{pool: pool, log: logger}, nil
}

// Health checks the database connection health
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) StoreExperiment(ctx context.Context, experiment *domain.Experiment) error {
	attributes, err := json.Marshal(experiment.Attributes)
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO experiments (record_id, short_name, species, attributes)
		VALUES ($1, $2, $3, $4)
	`, experiment.RecordID, experiment.ShortName, experiment.Species, attributes)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"experiment": experiment.ShortName,
			"error":      err,
		}).Error("Failed to store experiment")
		return fmt.Errorf("storing experiment: %w", err)
	}
	return nil
}

func (s *PostgresStore) StoreGene(ctx context.Context, gene *domain.Gene) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO genes (record_id, primary_identifier)
		VALUES ($1, $2)
	`, gene.RecordID, gene.PrimaryIdentifier)
	if err != nil {
		return fmt.Errorf("storing gene %s: %w", gene.PrimaryIdentifier, err)
	}
	return nil
}

func (s *PostgresStore) StoreProtein(ctx context.Context, protein *domain.Protein) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO proteins (record_id, primary_identifier, primary_accession)
		VALUES ($1, $2, $3)
	`, protein.RecordID, protein.PrimaryIdentifier, protein.PrimaryAccession)
	if err != nil {
		return fmt.Errorf("storing protein %s: %w", protein.PrimaryAccession, err)
	}
	return nil
}

func (s *PostgresStore) StoreMaterial(ctx context.Context, experiment *domain.Experiment, material domain.Material) error {
	details, err := json.Marshal(material)
	if err != nil {
		return fmt.Errorf("failed to marshal material: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO materials (experiment_id, name, kind, details)
		VALUES ($1, $2, $3, $4)
	`, experiment.RecordID, material.MaterialName(), string(material.Kind()), details)
	if err != nil {
		return fmt.Errorf("storing material %s: %w", material.MaterialName(), err)
	}
	return nil
}

func (s *PostgresStore) StoreTreatment(ctx context.Context, experiment *domain.Experiment, treatment domain.Treatment) error {
	details, err := json.Marshal(treatment)
	if err != nil {
		return fmt.Errorf("failed to marshal treatment: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO treatments (experiment_id, name, kind, details)
		VALUES ($1, $2, $3, $4)
	`, experiment.RecordID, treatment.TreatmentName(), string(treatment.Kind()), details)
	if err != nil {
		return fmt.Errorf("storing treatment %s: %w", treatment.TreatmentName(), err)
	}
	return nil
}

func (s *PostgresStore) StoreCondition(ctx context.Context, experiment *domain.Experiment, condition *domain.Condition) error {
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
	_, err = s.pool.Exec(ctx, `
		INSERT INTO conditions (record_id, experiment_id, name, material_name, treatment_names)
		VALUES ($1, $2, $3, $4, $5)
	`, condition.RecordID, experiment.RecordID, condition.Name, materialName, names)
	if err != nil {
		return fmt.Errorf("storing condition %s: %w", condition.Name, err)
	}
	return nil
}

func (s *PostgresStore) StoreSample(ctx context.Context, experiment *domain.Experiment, sample *domain.Sample) error {
	var conditionRecordID interface{}
	if sample.Condition != nil {
		conditionRecordID = sample.Condition.RecordID
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO samples (record_id, condition_id, name, file, bio_replicate, label)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, sample.RecordID, conditionRecordID, sample.Name, sample.File, sample.BioReplicate, sample.Label)
	if err != nil {
		return fmt.Errorf("storing sample %s: %w", sample.Name, err)
	}
	return nil
}

func (s *PostgresStore) StoreComparisonResult(ctx context.Context, result *domain.ComparisonResult) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO comparison_results (
			record_id, experiment_id, gene_id, gene_ensembl_id,
			treatment_condition_id, control_condition_id,
			base_mean, log2_fold_change, lfc_se, stat, pvalue, padj
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		result.RecordID,
		result.Experiment.RecordID,
		result.Gene.RecordID,
		result.GeneEnsemblID,
		result.Treatment.RecordID,
		result.Control.RecordID,
		result.BaseMean,
		result.Log2FoldChange,
		result.LfcSE,
		result.Stat,
		result.PValue,
		result.PAdj,
	)
	if err != nil {
		return fmt.Errorf("storing comparison result: %w", err)
	}
	return nil
}

func (s *PostgresStore) StoreFeatureCount(ctx context.Context, count *domain.FeatureCount) error {
	var sampleRecordID, conditionRecordID interface{}
	if count.Sample != nil {
		sampleRecordID = count.Sample.RecordID
	}
	if count.Condition != nil {
		conditionRecordID = count.Condition.RecordID
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO feature_counts (
			record_id, experiment_id, gene_id, gene_ensembl_id,
			sample_id, condition_id, bio_replicate, count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		count.RecordID,
		count.Experiment.RecordID,
		count.Gene.RecordID,
		count.GeneEnsemblID,
		sampleRecordID,
		conditionRecordID,
		count.BioReplicate,
		count.Count,
	)
	if err != nil {
		return fmt.Errorf("storing feature count: %w", err)
	}
	return nil
}

func (s *PostgresStore) StoreProteinAbundance(ctx context.Context, abundance *domain.ProteinAbundance) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO protein_abundances (record_id, experiment_id, protein_id, sample_id, abundance)
		VALUES ($1, $2, $3, $4, $5)
	`,
		abundance.RecordID,
		abundance.Experiment.RecordID,
		abundance.Protein.RecordID,
		abundance.Sample.RecordID,
		abundance.Abundance,
	)
	if err != nil {
		return fmt.Errorf("storing protein abundance: %w", err)
	}
	return nil
}

func (s *PostgresStore) StoreMatrixObservation(ctx context.Context, observation *domain.MatrixObservation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO matrix_observations (record_id, gene_id, row_key, attribute, value)
		VALUES ($1, $2, $3, $4, $5)
	`,
		observation.RecordID,
		observation.Gene.RecordID,
		observation.RowKey,
		observation.Attribute,
		observation.Value,
	)
	if err != nil {
		return fmt.Errorf("storing matrix observation: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
		s.log.Info("Warehouse connection pool closed")
	}
	return nil
}
