package reconcile

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/omics-warehouse-loader/internal/domain"
	"github.com/omics-warehouse-loader/internal/registry"
	"github.com/omics-warehouse-loader/internal/resolve"
)

// Reconciler turns parsed result tables into cross-referenced warehouse
// records for one experiment run.
type Reconciler struct {
	genes *resolve.GeneResolver
	log   *logrus.Logger
}

// NewReconciler creates a reconciler backed by the run-scoped gene resolver.
func NewReconciler(genes *resolve.GeneResolver, logger *logrus.Logger) *Reconciler {
	return &Reconciler{genes: genes, log: logger}
}

// ReconcileComparison reconciles one differential-expression result table
// for the given comparison. Rows whose gene does not resolve, or whose
// condition reference is missing from the registry, are counted and dropped;
// only a malformed table or a resolver port failure aborts the file.
func (r *Reconciler) ReconcileComparison(
	ctx context.Context,
	file string,
	header []string,
	rows RowSource,
	reg *registry.Registry,
	experiment *domain.Experiment,
	comparison domain.Comparison,
) ([]*domain.ComparisonResult, *Summary, error) {
	layout, err := detectLayout(deseq2Layouts, header)
	if err != nil {
		return nil, nil, domain.NewDocumentError(file, "header", err)
	}
	roles := layout.Roles()
	summary := &Summary{File: file}

	treatment, treatmentOK := reg.Conditions.Get(comparison.Treatment)
	control, controlOK := reg.Conditions.Get(comparison.Control)
	if !treatmentOK || !controlOK {
		r.log.WithFields(logrus.Fields{
			"file":      file,
			"treatment": comparison.Treatment,
			"control":   comparison.Control,
		}).Warn("Comparison references a condition missing from the registry")
	}

	var results []*domain.ComparisonResult
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

		secondaryID := roleValue(row, roles, RoleSecondaryID)
		outcome, err := r.genes.Resolve(ctx,
			roleValue(row, roles, RolePrimaryID),
			secondaryID,
			roleValue(row, roles, RoleSymbol))
		if err != nil {
			return nil, nil, domain.NewDocumentError(file, "gene resolution", err)
		}
		if outcome.Gene == nil {
			summary.DroppedGene++
			continue
		}
		if !treatmentOK || !controlOK {
			summary.DroppedReference++
			continue
		}

		result := &domain.ComparisonResult{
			RecordID:       uuid.New(),
			Gene:           outcome.Gene,
			GeneEnsemblID:  stripVersion(secondaryID),
			Treatment:      treatment,
			Control:        control,
			Experiment:     experiment,
			BaseMean:       parseMeasure(roleValue(row, roles, RoleBaseMean), false),
			Log2FoldChange: parseMeasure(roleValue(row, roles, RoleLog2FoldChange), false),
			LfcSE:          parseMeasure(roleValue(row, roles, RoleLfcSE), false),
			Stat:           parseMeasure(roleValue(row, roles, RoleStat), false),
			PValue:         parseMeasure(roleValue(row, roles, RolePValue), false),
			PAdj:           parseMeasure(roleValue(row, roles, RolePAdj), false),
		}
		results = append(results, result)
		summary.Emitted++
	}

	r.logSummary("comparison", summary)
	return results, summary, nil
}

func roleValue(row []string, roles map[ColumnRole]int, role ColumnRole) string {
	if i, ok := roles[role]; ok {
		return row[i]
	}
	return ""
}

func (r *Reconciler) logSummary(table string, summary *Summary) {
	r.log.WithFields(logrus.Fields{
		"table":             table,
		"file":              summary.File,
		"rows":              summary.Rows,
		"emitted":           summary.Emitted,
		"dropped_gene":      summary.DroppedGene,
		"dropped_reference": summary.DroppedReference,
		"dropped_columns":   summary.DroppedColumns,
	}).Info("Reconciled result table")
}
