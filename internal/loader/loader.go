// Package loader orchestrates one batch run: it walks a data directory,
// assembles each experiment metadata document, reconciles the result files
// found next to it and writes everything to the warehouse.
package loader

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/omics-warehouse-loader/internal/domain"
	"github.com/omics-warehouse-loader/internal/metrics"
	"github.com/omics-warehouse-loader/internal/reconcile"
	"github.com/omics-warehouse-loader/internal/registry"
	"github.com/omics-warehouse-loader/internal/resolve"
)

// RunSummary is the outcome of one batch run.
type RunSummary struct {
	Started         time.Time            `json:"started"`
	Elapsed         time.Duration        `json:"elapsed"`
	Documents       int                  `json:"documents"`
	DocumentsFailed int                  `json:"documents_failed"`
	SkippedEntries  int                  `json:"skipped_entries"`
	Resolver        resolve.Stats        `json:"resolver"`
	RecordsStored   map[string]int       `json:"records_stored"`
	Files           []*reconcile.Summary `json:"files,omitempty"`
}

// Loader runs batch loads of experiment directories. One Loader handles one
// run at a time; the gene resolver memo it holds is shared across all
// documents of a run.
type Loader struct {
	assembler  *registry.Assembler
	reconciler *reconcile.Reconciler
	resolver   *resolve.GeneResolver
	warehouse  domain.Warehouse
	metrics    *metrics.Metrics
	files      domain.FilesConfig
	log        *logrus.Logger

	mu      sync.RWMutex
	lastRun *RunSummary
}

// New creates a batch loader. metrics may be nil.
func New(
	assembler *registry.Assembler,
	reconciler *reconcile.Reconciler,
	resolver *resolve.GeneResolver,
	warehouse domain.Warehouse,
	m *metrics.Metrics,
	files domain.FilesConfig,
	logger *logrus.Logger,
) *Loader {
	return &Loader{
		assembler:  assembler,
		reconciler: reconciler,
		resolver:   resolver,
		warehouse:  warehouse,
		metrics:    m,
		files:      files,
		log:        logger,
	}
}

// LastRun returns the summary of the most recent completed run, if any.
func (l *Loader) LastRun() *RunSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastRun
}

// Run loads every experiment metadata document under dataDir. A failing
// document is logged and skipped; the run itself fails only on setup or
// warehouse errors. Resolved genes are flushed to the warehouse once, after
// all documents.
func (l *Loader) Run(ctx context.Context, dataDir string) (*RunSummary, error) {
	start := time.Now()
	summary := &RunSummary{
		Started:       start,
		RecordsStored: make(map[string]int),
	}

	documents, err := findDocuments(dataDir)
	if err != nil {
		return nil, fmt.Errorf("scanning data directory: %w", err)
	}
	if len(documents) == 0 {
		l.log.WithField("dir", dataDir).Warn("No metadata documents found")
	}

	for _, document := range documents {
		summary.Documents++
		loadStart := time.Now()
		if err := l.loadDocument(ctx, document, summary); err != nil {
			summary.DocumentsFailed++
			l.metrics.IncrementDocuments("failed")
			l.log.WithError(err).WithField("document", document).Error("Document load failed")
			continue
		}
		l.metrics.IncrementDocuments("loaded")
		l.metrics.ObserveLoadDuration(time.Since(loadStart))
	}

	if err := l.resolver.Flush(ctx, l.warehouse); err != nil {
		return summary, fmt.Errorf("flushing genes: %w", err)
	}
	stats := l.resolver.Stats()
	summary.Resolver = stats
	summary.RecordsStored["gene"] = l.resolver.Genes().Len()
	summary.Elapsed = time.Since(start)

	l.metrics.AddResolved("resolved", stats.Resolved)
	l.metrics.AddResolved("unresolved", stats.Unresolved)
	l.metrics.AddRecordsStored("gene", summary.RecordsStored["gene"])

	l.log.WithFields(logrus.Fields{
		"documents": summary.Documents,
		"failed":    summary.DocumentsFailed,
		"resolved":  stats.Resolved,
		"genes":     summary.RecordsStored["gene"],
		"elapsed":   summary.Elapsed.Round(time.Millisecond),
	}).Info("Batch run complete")

	l.mu.Lock()
	l.lastRun = summary
	l.mu.Unlock()
	return summary, nil
}

// findDocuments lists the experiment metadata documents under dataDir, one
// JSON file per experiment, in lexical order.
func findDocuments(dataDir string) ([]string, error) {
	var documents []string
	err := filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") {
			documents = append(documents, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return documents, nil
}

// loadDocument assembles one metadata document and reconciles the result
// files found in the same directory.
func (l *Loader) loadDocument(ctx context.Context, path string, summary *RunSummary) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening document: %w", err)
	}
	result, err := l.assembler.Assemble(filepath.Base(path), f)
	f.Close()
	if err != nil {
		return err
	}
	summary.SkippedEntries += len(result.Skipped)

	experiment := result.Experiment
	reg := result.Registry
	if err := l.storeExperimentGraph(ctx, experiment, reg, summary); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	for _, comparison := range experiment.Comparisons {
		file := filepath.Join(dir, comparisonFileName(comparison))
		if err := l.loadComparison(ctx, file, reg, experiment, comparison, summary); err != nil {
			return err
		}
	}
	if err := l.loadCounts(ctx, filepath.Join(dir, l.files.CountsFile), reg, experiment, summary); err != nil {
		return err
	}
	if err := l.loadMzTab(ctx, filepath.Join(dir, l.files.MzTabFile), experiment, summary); err != nil {
		return err
	}
	return nil
}

// comparisonFileName is the conventional result-file name for one
// treatment/control pair.
func comparisonFileName(comparison domain.Comparison) string {
	return fmt.Sprintf("%s_vs_%s_DESeq2.tsv", comparison.Treatment, comparison.Control)
}

func (l *Loader) storeExperimentGraph(ctx context.Context, experiment *domain.Experiment, reg *registry.Registry, summary *RunSummary) error {
	if err := l.warehouse.StoreExperiment(ctx, experiment); err != nil {
		return err
	}
	summary.RecordsStored["experiment"]++
	l.metrics.AddRecordsStored("experiment", 1)

	var storeErr error
	reg.Materials.Each(func(name string, material domain.Material) {
		if storeErr == nil {
			storeErr = l.warehouse.StoreMaterial(ctx, experiment, material)
		}
	})
	if storeErr != nil {
		return storeErr
	}
	reg.Treatments.Each(func(name string, treatment domain.Treatment) {
		if storeErr == nil {
			storeErr = l.warehouse.StoreTreatment(ctx, experiment, treatment)
		}
	})
	if storeErr != nil {
		return storeErr
	}
	reg.Conditions.Each(func(name string, condition *domain.Condition) {
		if storeErr == nil {
			storeErr = l.warehouse.StoreCondition(ctx, experiment, condition)
		}
	})
	if storeErr != nil {
		return storeErr
	}
	reg.Samples.Each(func(name string, sample *domain.Sample) {
		if storeErr == nil {
			storeErr = l.warehouse.StoreSample(ctx, experiment, sample)
		}
	})
	if storeErr != nil {
		return storeErr
	}

	summary.RecordsStored["material"] += reg.Materials.Len()
	summary.RecordsStored["treatment"] += reg.Treatments.Len()
	summary.RecordsStored["condition"] += reg.Conditions.Len()
	summary.RecordsStored["sample"] += reg.Samples.Len()
	l.metrics.AddRecordsStored("material", reg.Materials.Len())
	l.metrics.AddRecordsStored("treatment", reg.Treatments.Len())
	l.metrics.AddRecordsStored("condition", reg.Conditions.Len())
	l.metrics.AddRecordsStored("sample", reg.Samples.Len())
	return nil
}

func (l *Loader) loadComparison(
	ctx context.Context,
	file string,
	reg *registry.Registry,
	experiment *domain.Experiment,
	comparison domain.Comparison,
	summary *RunSummary,
) error {
	header, rows, closeFn, err := openTable(file, '\t')
	if err != nil {
		if os.IsNotExist(err) {
			l.log.WithFields(logrus.Fields{
				"experiment": experiment.ShortName,
				"file":       filepath.Base(file),
			}).Warn("Missing comparison result file, skipping")
			return nil
		}
		return fmt.Errorf("opening %s: %w", filepath.Base(file), err)
	}
	defer closeFn()

	results, fileSummary, err := l.reconciler.ReconcileComparison(
		ctx, filepath.Base(file), header, rows, reg, experiment, comparison)
	if err != nil {
		return err
	}
	for _, result := range results {
		if err := l.warehouse.StoreComparisonResult(ctx, result); err != nil {
			return err
		}
	}
	l.record(summary, fileSummary, "deseq2", "comparison_result", len(results))
	return nil
}

func (l *Loader) loadCounts(
	ctx context.Context,
	file string,
	reg *registry.Registry,
	experiment *domain.Experiment,
	summary *RunSummary,
) error {
	header, rows, closeFn, err := openTable(file, '\t')
	if err != nil {
		if os.IsNotExist(err) {
			l.log.WithField("experiment", experiment.ShortName).Info("No feature-count matrix, skipping")
			return nil
		}
		return fmt.Errorf("opening %s: %w", filepath.Base(file), err)
	}
	defer closeFn()

	counts, fileSummary, err := l.reconciler.ReconcileCounts(
		ctx, filepath.Base(file), header, rows, reg, experiment)
	if err != nil {
		return err
	}
	for _, count := range counts {
		if err := l.warehouse.StoreFeatureCount(ctx, count); err != nil {
			return err
		}
	}
	l.record(summary, fileSummary, "counts", "feature_count", len(counts))
	return nil
}

func (l *Loader) loadMzTab(ctx context.Context, file string, experiment *domain.Experiment, summary *RunSummary) error {
	rows, closeFn, err := openRows(file, '\t')
	if err != nil {
		if os.IsNotExist(err) {
			l.log.WithField("experiment", experiment.ShortName).Info("No proteomics result file, skipping")
			return nil
		}
		return fmt.Errorf("opening %s: %w", filepath.Base(file), err)
	}
	defer closeFn()

	result, err := l.reconciler.ReconcileMzTab(filepath.Base(file), rows, experiment)
	if err != nil {
		return err
	}
	for _, sample := range result.Samples {
		if err := l.warehouse.StoreSample(ctx, experiment, sample); err != nil {
			return err
		}
	}
	for _, protein := range result.Proteins {
		if err := l.warehouse.StoreProtein(ctx, protein); err != nil {
			return err
		}
	}
	for _, abundance := range result.Abundances {
		if err := l.warehouse.StoreProteinAbundance(ctx, abundance); err != nil {
			return err
		}
	}
	summary.RecordsStored["sample"] += len(result.Samples)
	summary.RecordsStored["protein"] += len(result.Proteins)
	l.metrics.AddRecordsStored("sample", len(result.Samples))
	l.metrics.AddRecordsStored("protein", len(result.Proteins))
	l.record(summary, result.Summary, "mztab", "protein_abundance", len(result.Abundances))
	return nil
}

// LoadMatrix loads one gene-keyed matrix file (comma separated, DepMap
// style) outside the regular directory walk. The caller names the
// measurement the matrix carries via spec.Attribute.
func (l *Loader) LoadMatrix(ctx context.Context, path string, spec reconcile.MatrixSpec) (*reconcile.Summary, error) {
	header, rows, closeFn, err := openTable(path, ',')
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	defer closeFn()

	observations, fileSummary, err := l.reconciler.ReconcileMatrix(
		ctx, filepath.Base(path), spec, header, rows)
	if err != nil {
		return nil, err
	}
	for _, observation := range observations {
		if err := l.warehouse.StoreMatrixObservation(ctx, observation); err != nil {
			return nil, err
		}
	}
	l.metrics.AddRecordsStored("matrix_observation", len(observations))
	l.metrics.AddRowsDropped("matrix", fileSummary.DroppedGene)
	l.metrics.AddColumnsDropped("matrix", fileSummary.DroppedColumns)
	return fileSummary, nil
}

// record folds one file summary into the run summary and metrics.
func (l *Loader) record(summary *RunSummary, fileSummary *reconcile.Summary, kind, recordKind string, stored int) {
	summary.Files = append(summary.Files, fileSummary)
	summary.RecordsStored[recordKind] += stored
	l.metrics.AddRecordsStored(recordKind, stored)
	l.metrics.AddRowsDropped(kind, fileSummary.DroppedGene+fileSummary.DroppedReference)
	l.metrics.AddColumnsDropped(kind, fileSummary.DroppedColumns)
}
