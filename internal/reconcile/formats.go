// Package reconcile matches parsed result tables against the entities of an
// experiment: gene references are resolved through the run-scoped gene
// resolver, condition/sample references through the experiment registry.
// Each table type has a small registry of known header layouts; headers that
// match none are fatal for that file.
package reconcile

import (
	"fmt"
	"strings"
)

// ColumnRole identifies the logical meaning of one result-table column.
type ColumnRole string

const (
	RoleSecondaryID    ColumnRole = "secondaryId"
	RolePrimaryID      ColumnRole = "primaryId"
	RoleSymbol         ColumnRole = "symbol"
	RoleDescription    ColumnRole = "description"
	RoleBaseMean       ColumnRole = "baseMean"
	RoleLog2FoldChange ColumnRole = "log2FoldChange"
	RoleLfcSE          ColumnRole = "lfcSE"
	RoleStat           ColumnRole = "stat"
	RolePValue         ColumnRole = "pvalue"
	RolePAdj           ColumnRole = "padj"
)

// layoutColumn is one expected column of a layout. fold columns match
// case-insensitively; these are the named legacy exceptions, everything else
// matches exactly.
type layoutColumn struct {
	name string
	role ColumnRole
	fold bool
}

// Layout is one known header layout of a table type.
type Layout struct {
	Name    string
	columns []layoutColumn
}

// matches reports whether header has exactly this layout's columns.
func (l *Layout) matches(header []string) bool {
	if len(header) != len(l.columns) {
		return false
	}
	for i, col := range l.columns {
		if col.fold {
			if !strings.EqualFold(header[i], col.name) {
				return false
			}
		} else if header[i] != col.name {
			return false
		}
	}
	return true
}

// Roles returns the column index for each role the layout provides.
func (l *Layout) Roles() map[ColumnRole]int {
	roles := make(map[ColumnRole]int, len(l.columns))
	for i, col := range l.columns {
		if col.role != "" {
			roles[col.role] = i
		}
	}
	return roles
}

// The differential-expression table evolved over time: the legacy export has
// nine lower-case columns, the current one renames the symbol column to
// "Gene" and inserts a description column.
var deseq2Layouts = []*Layout{
	{
		Name: "deseq2-legacy",
		columns: []layoutColumn{
			{name: "ensembl", role: RoleSecondaryID, fold: true},
			{name: "entrez", role: RolePrimaryID, fold: true},
			{name: "symbol", role: RoleSymbol, fold: true},
			{name: "baseMean", role: RoleBaseMean},
			{name: "log2FoldChange", role: RoleLog2FoldChange},
			{name: "lfcSE", role: RoleLfcSE},
			{name: "stat", role: RoleStat},
			{name: "pvalue", role: RolePValue},
			{name: "padj", role: RolePAdj},
		},
	},
	{
		Name: "deseq2-current",
		columns: []layoutColumn{
			{name: "Ensembl", role: RoleSecondaryID, fold: true},
			{name: "Entrez", role: RolePrimaryID, fold: true},
			{name: "Gene", role: RoleSymbol, fold: true},
			{name: "Description", role: RoleDescription, fold: true},
			{name: "baseMean", role: RoleBaseMean},
			{name: "log2FoldChange", role: RoleLog2FoldChange},
			{name: "lfcSE", role: RoleLfcSE},
			{name: "stat", role: RoleStat},
			{name: "pvalue", role: RolePValue},
			{name: "padj", role: RolePAdj},
		},
	},
}

// detectLayout selects the layout matching header. An unrecognized header is
// fatal for the file, never a per-row condition.
func detectLayout(layouts []*Layout, header []string) (*Layout, error) {
	for _, l := range layouts {
		if l.matches(header) {
			return l, nil
		}
	}
	return nil, fmt.Errorf("unrecognized header layout with %d columns: %v", len(header), header)
}

// stripVersion removes a ".N" version suffix from an identifier.
func stripVersion(s string) string {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return s[:i]
	}
	return s
}
