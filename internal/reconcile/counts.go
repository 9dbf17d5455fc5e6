package reconcile

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/omics-warehouse-loader/internal/domain"
	"github.com/omics-warehouse-loader/internal/registry"
)

// bioReplicatePattern matches current-format count columns,
// "<condition>_R<n>".
var bioReplicatePattern = regexp.MustCompile(`^(.+)_R(\d+)$`)

// countColumn is the resolved mapping of one data column of a feature-count
// matrix. Exactly one of sample and condition is set; a nil mapping means
// the column was dropped.
type countColumn struct {
	sample       *domain.Sample
	condition    *domain.Condition
	bioReplicate string
}

// ReconcileCounts reconciles a feature-count matrix. The first column is the
// gene identifier; an optional second column carries the gene symbol. Data
// columns are mapped once, before the row loop: to a registered sample
// (legacy layout) or to a condition replicate "<condition>_R<n>" (current
// layout); a column that maps to neither is logged once and dropped.
func (r *Reconciler) ReconcileCounts(
	ctx context.Context,
	file string,
	header []string,
	rows RowSource,
	reg *registry.Registry,
	experiment *domain.Experiment,
) ([]*domain.FeatureCount, *Summary, error) {
	if len(header) < 2 {
		return nil, nil, domain.NewDocumentError(file, "header",
			fmt.Errorf("expected at least 2 columns, got %d", len(header)))
	}
	summary := &Summary{File: file}

	dataStart := 1
	symbolColumn := -1
	if isSymbolColumn(header[1]) {
		symbolColumn = 1
		dataStart = 2
	}

	columns := make([]*countColumn, len(header))
	for i := dataStart; i < len(header); i++ {
		name := header[i]
		if m := bioReplicatePattern.FindStringSubmatch(name); m != nil {
			if condition, ok := reg.Conditions.Get(m[1]); ok {
				columns[i] = &countColumn{condition: condition, bioReplicate: name}
				continue
			}
		}
		if sample, ok := reg.Samples.Get(name); ok {
			columns[i] = &countColumn{sample: sample}
			continue
		}
		r.log.WithFields(logrus.Fields{
			"file":   file,
			"column": name,
		}).Warn("Count column matches no sample or condition replicate")
		summary.DroppedColumns++
	}

	var counts []*domain.FeatureCount
	for {
		row, err := rows.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, domain.NewDocumentError(file, "read", err)
		}
		if len(row) != len(header) {
			return nil, nil, domain.NewDocumentError(file, "rows",
				fmt.Errorf("expected %d columns, got %d", len(header), len(row)))
		}
		summary.Rows++

		symbol := ""
		if symbolColumn >= 0 {
			symbol = row[symbolColumn]
		}
		outcome, err := r.genes.Resolve(ctx, "", row[0], symbol)
		if err != nil {
			return nil, nil, domain.NewDocumentError(file, "gene resolution", err)
		}
		if outcome.Gene == nil {
			summary.DroppedGene++
			continue
		}

		for i := dataStart; i < len(header); i++ {
			column := columns[i]
			if column == nil {
				continue
			}
			count := &domain.FeatureCount{
				RecordID:      uuid.New(),
				Gene:          outcome.Gene,
				GeneEnsemblID: stripVersion(row[0]),
				Sample:        column.sample,
				Condition:     column.condition,
				BioReplicate:  column.bioReplicate,
				Experiment:    experiment,
				Count:         parseMeasure(row[i], true),
			}
			counts = append(counts, count)
			summary.Emitted++
		}
	}

	r.logSummary("feature counts", summary)
	return counts, summary, nil
}

// isSymbolColumn reports whether a second matrix column carries gene
// symbols rather than data.
func isSymbolColumn(name string) bool {
	switch strings.ToLower(name) {
	case "gene_name", "gene", "symbol":
		return true
	}
	return false
}
