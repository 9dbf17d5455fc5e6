package reconcile

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/omics-warehouse-loader/internal/domain"
	"github.com/omics-warehouse-loader/internal/resolve"
)

// MzTabResult holds everything reconciled from one mzTab file.
type MzTabResult struct {
	Samples    []*domain.Sample
	Proteins   []*domain.Protein
	Abundances []*domain.ProteinAbundance
	Summary    *Summary
}

// ReconcileMzTab reconciles an mzTab proteomics file: ms_run locations in
// the MTD section become samples, and each quantified PRT row becomes one
// protein with per-sample abundances. Rows flagged as protein_details carry
// no quantification and are skipped; "null" and "0.0" abundances are treated
// as missing values.
func (r *Reconciler) ReconcileMzTab(file string, rows RowSource, experiment *domain.Experiment) (*MzTabResult, error) {
	result := &MzTabResult{Summary: &Summary{File: file}}

	header, err := r.parseMzTabHead(file, rows, result)
	if err != nil {
		return nil, err
	}
	if len(result.Samples) == 0 {
		return nil, domain.NewDocumentError(file, "metadata",
			fmt.Errorf("no sample information ('MTD ms_run[...]-location') found"))
	}
	if len(header.columns) == 0 {
		return nil, domain.NewDocumentError(file, "protein section",
			fmt.Errorf("no protein section header (PRH) found"))
	}

	abundanceIndexes := make([]int, len(result.Samples))
	for i := range result.Samples {
		colName := fmt.Sprintf("protein_abundance_study_variable[%d]", i+1)
		index, ok := header.columns[colName]
		if !ok {
			return nil, domain.NewDocumentError(file, "protein section",
				fmt.Errorf("missing column %q", colName))
		}
		abundanceIndexes[i] = index
	}

	if err := r.parseProteinSection(file, rows, header, abundanceIndexes, result, experiment); err != nil {
		return nil, err
	}
	r.logSummary("mzTab", result.Summary)
	return result, nil
}

// mzTabHeader is the parsed PRH line of the protein section.
type mzTabHeader struct {
	columns         map[string]int
	width           int
	resultTypeIndex int // -1 when the opt_global_result_type column is absent
}

// parseMzTabHead walks the metadata section up to and including the protein
// section header. Each ms_run[n]-location line, in order, becomes a sample
// named after the run file with any "file://" prefix and the extension
// stripped.
func (r *Reconciler) parseMzTabHead(file string, rows RowSource, result *MzTabResult) (mzTabHeader, error) {
	header := mzTabHeader{resultTypeIndex: -1}
	for {
		line, err := rows.Next()
		if err == io.EOF {
			return header, nil
		}
		if err != nil {
			return header, domain.NewDocumentError(file, "read", err)
		}
		if len(line) == 0 || line[0] == "COM" {
			continue
		}
		switch line[0] {
		case "MTD":
			key := fmt.Sprintf("ms_run[%d]-location", len(result.Samples)+1)
			if len(line) >= 3 && line[1] == key {
				result.Samples = append(result.Samples, &domain.Sample{
					RecordID: uuid.New(),
					Name:     runSampleName(line[2]),
					File:     line[2],
				})
			}
		case "PRH":
			header.columns = make(map[string]int, len(line)-1)
			for i := 1; i < len(line); i++ {
				header.columns[line[i]] = i
			}
			header.width = len(line)
			if i, ok := header.columns["opt_global_result_type"]; ok {
				header.resultTypeIndex = i
			}
			return header, nil
		}
	}
}

// parseProteinSection walks the PRT rows following the protein section
// header, until the section ends or the file does.
func (r *Reconciler) parseProteinSection(file string, rows RowSource, header mzTabHeader, abundanceIndexes []int, result *MzTabResult, experiment *domain.Experiment) error {
	proteins := resolve.NewEntityCache[*domain.Protein]()
	for {
		line, err := rows.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.NewDocumentError(file, "read", err)
		}
		if len(line) == 0 || line[0] == "COM" {
			continue
		}
		if line[0] != "PRT" {
			break // protein section finished
		}
		if len(line) != header.width {
			return domain.NewDocumentError(file, "protein section",
				fmt.Errorf("expected %d columns (PRH), got %d (PRT)", header.width, len(line)))
		}
		if header.resultTypeIndex >= 0 && line[header.resultTypeIndex] == "protein_details" {
			continue // no quantification
		}
		result.Summary.Rows++

		protein, err := r.proteinFor(proteins, line[1])
		if err != nil {
			return domain.NewDocumentError(file, "protein section", err)
		}
		for i, sample := range result.Samples {
			// OpenMS exports missing values as "null" or an exact zero
			value := parseMeasure(line[abundanceIndexes[i]], true)
			if value == nil {
				result.Summary.SkippedValues++
				continue
			}
			result.Abundances = append(result.Abundances, &domain.ProteinAbundance{
				RecordID:   uuid.New(),
				Protein:    protein,
				Sample:     sample,
				Experiment: experiment,
				Abundance:  *value,
			})
			result.Summary.Emitted++
		}
	}
	result.Proteins = proteins.Values()
	return nil
}

// proteinFor parses a UniProt-style accession of the form "sp|ACC|NAME" (or
// "tr|..." for TrEMBL) and returns the canonical protein for it, creating it
// on first sight.
func (r *Reconciler) proteinFor(proteins *resolve.EntityCache[*domain.Protein], accession string) (*domain.Protein, error) {
	parts := strings.Split(accession, "|")
	if len(parts) != 3 || (parts[0] != "sp" && parts[0] != "tr") {
		return nil, fmt.Errorf("unexpected accession format %q", accession)
	}
	protein, created := proteins.GetOrCreate(parts[1], func() *domain.Protein {
		return domain.NewProtein(parts[2], parts[1])
	})
	if created {
		r.log.WithFields(logrus.Fields{
			"accession":  parts[1],
			"identifier": parts[2],
		}).Debug("New protein")
	}
	return protein, nil
}

// runSampleName derives a sample name from an ms_run location: any
// "file://" prefix and the last file extension are stripped.
func runSampleName(location string) string {
	name := strings.TrimPrefix(location, "file://")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[:i]
	}
	return name
}
