package reconcile

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/omics-warehouse-loader/internal/domain"
)

// Column-name formats for gene-keyed matrix files: "SYMBOL (ID)" with a
// numeric primary ID, or a bare/parenthesized Ensembl ID.
var (
	primaryColumnPattern   = regexp.MustCompile(`^[^ ]+ \(\d+\)$`)
	secondaryColumnPattern = regexp.MustCompile(`^([^ ]+ \()?ENSG\d+\)?$`)
)

// MatrixSpec describes one gene-keyed matrix file.
type MatrixSpec struct {
	// HeaderStart is the expected first header cell (row-key column name).
	HeaderStart string
	// Attribute names the measurement carried by the matrix cells.
	Attribute string
	// IDsArePrimary is set when column IDs are primary (NCBI) identifiers
	// rather than secondary (Ensembl) ones.
	IDsArePrimary bool
}

// matrixColumn tracks which gene a data column resolved to and whether the
// column's symbol corroborated that resolution.
type matrixColumn struct {
	index        int
	symbolAgreed bool
}

// ReconcileMatrix reconciles a gene-keyed matrix file: one gene per column,
// one row entity (e.g. cell line) per row. Multiple columns can resolve to
// the same canonical gene; exactly one is kept per gene — preferring a
// symbol-corroborated column over an uncorroborated one, else the first seen
// — and the rest are logged and dropped entirely, not merged.
func (r *Reconciler) ReconcileMatrix(
	ctx context.Context,
	file string,
	spec MatrixSpec,
	header []string,
	rows RowSource,
) ([]*domain.MatrixObservation, *Summary, error) {
	if len(header) == 0 || header[0] != spec.HeaderStart {
		return nil, nil, domain.NewDocumentError(file, "header",
			fmt.Errorf("expected header to start with %q", spec.HeaderStart))
	}
	summary := &Summary{File: file}

	columnGenes, err := r.resolveMatrixColumns(ctx, file, spec, header, summary)
	if err != nil {
		return nil, nil, err
	}

	var observations []*domain.MatrixObservation
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

		for i := 1; i < len(row); i++ {
			gene := columnGenes[i-1]
			if gene == nil || row[i] == "" {
				continue
			}
			value, err := strconv.ParseFloat(row[i], 64)
			if err != nil {
				summary.SkippedValues++
				continue
			}
			observations = append(observations, &domain.MatrixObservation{
				RecordID:  uuid.New(),
				Gene:      gene,
				RowKey:    row[0],
				Attribute: spec.Attribute,
				Value:     value,
			})
			summary.Emitted++
		}
	}

	r.logSummary("matrix", summary)
	return observations, summary, nil
}

// resolveMatrixColumns resolves every gene column of the header, collapsing
// duplicates that map to the same primary identifier.
func (r *Reconciler) resolveMatrixColumns(ctx context.Context, file string, spec MatrixSpec, header []string, summary *Summary) ([]*domain.Gene, error) {
	pattern := secondaryColumnPattern
	if spec.IDsArePrimary {
		pattern = primaryColumnPattern
	}

	columnGenes := make([]*domain.Gene, len(header)-1)
	kept := make(map[string]matrixColumn) // primary ID -> kept column

	for i := 1; i < len(header); i++ {
		colName := header[i]
		if !pattern.MatchString(colName) {
			return nil, domain.NewDocumentError(file, "header",
				fmt.Errorf("unexpected format for column name %q", colName))
		}
		id, symbol := splitColumnName(colName)

		var outcome resolveOutcome
		var err error
		if spec.IDsArePrimary {
			outcome, err = r.resolvePrimaryColumn(ctx, id, symbol)
		} else {
			outcome, err = r.resolveSecondaryColumn(ctx, id, symbol)
		}
		if err != nil {
			return nil, domain.NewDocumentError(file, "gene resolution", err)
		}
		if outcome.gene == nil {
			r.log.WithFields(logrus.Fields{
				"file":   file,
				"column": colName,
			}).Warn("Matrix column gene not resolved, skipping column")
			summary.DroppedColumns++
			continue
		}

		primaryID := outcome.gene.PrimaryIdentifier
		existing, collision := kept[primaryID]
		if !collision {
			columnGenes[i-1] = outcome.gene
			kept[primaryID] = matrixColumn{index: i - 1, symbolAgreed: outcome.symbolAgreed}
			continue
		}
		// collision: a symbol-corroborated column takes precedence over an
		// uncorroborated one; otherwise the first column wins
		if !existing.symbolAgreed && outcome.symbolAgreed {
			r.log.WithFields(logrus.Fields{
				"file":    file,
				"gene":    primaryID,
				"kept":    colName,
				"dropped": header[existing.index+1],
			}).Warn("Multiple columns match one gene, keeping symbol-confirmed column")
			columnGenes[existing.index] = nil
			columnGenes[i-1] = outcome.gene
			kept[primaryID] = matrixColumn{index: i - 1, symbolAgreed: true}
		} else {
			r.log.WithFields(logrus.Fields{
				"file":    file,
				"gene":    primaryID,
				"kept":    header[existing.index+1],
				"dropped": colName,
			}).Warn("Multiple columns match one gene, dropping later column")
		}
		summary.DuplicateColumns++
	}
	return columnGenes, nil
}

type resolveOutcome struct {
	gene         *domain.Gene
	symbolAgreed bool
}

// resolveSecondaryColumn resolves a column whose ID is a secondary
// identifier, letting the resolver intersect it with the symbol candidates.
func (r *Reconciler) resolveSecondaryColumn(ctx context.Context, id, symbol string) (resolveOutcome, error) {
	outcome, err := r.genes.Resolve(ctx, "", id, symbol)
	if err != nil {
		return resolveOutcome{}, err
	}
	return resolveOutcome{gene: outcome.Gene, symbolAgreed: outcome.SymbolAgreed}, nil
}

// resolvePrimaryColumn resolves a column carrying a primary identifier. The
// symbol is resolved first on its own as a consistency check, so the primary
// lookup can report whether the symbol corroborates it.
func (r *Reconciler) resolvePrimaryColumn(ctx context.Context, id, symbol string) (resolveOutcome, error) {
	if symbol != "" {
		if _, err := r.genes.Resolve(ctx, "", "", symbol); err != nil {
			return resolveOutcome{}, err
		}
	}
	outcome, err := r.genes.Resolve(ctx, id, "", symbol)
	if err != nil {
		return resolveOutcome{}, err
	}
	return resolveOutcome{gene: outcome.Gene, symbolAgreed: outcome.SymbolAgreed}, nil
}

// splitColumnName splits "SYMBOL (ID)" into its parts; a bare ID yields an
// empty symbol.
func splitColumnName(colName string) (id, symbol string) {
	parts := strings.SplitN(colName, " ", 2)
	if len(parts) == 2 {
		return strings.Trim(parts[1], "()"), parts[0]
	}
	return strings.TrimSuffix(parts[0], ")"), ""
}
