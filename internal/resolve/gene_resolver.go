package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/omics-warehouse-loader/internal/domain"
)

// Outcome is the result of one gene lookup. Gene is nil when the lookup did
// not resolve; SymbolAgreed reports whether the supplied symbol corroborated
// the chosen primary identifier, which matrix reconciliation uses to break
// duplicate-column ties.
type Outcome struct {
	Gene         *domain.Gene
	SymbolAgreed bool
}

// Stats counts lookups for per-run summaries. The counters are run-scoped
// and, like the resolver itself, not safe for concurrent use.
type Stats struct {
	Resolved     int64
	Unresolved   int64
	PortCalls    int64
	GenesCreated int64
}

type memoEntry struct {
	primaryID    string
	symbolAgreed bool
	resolved     bool
}

// GeneResolver resolves heterogeneous gene identifiers (primary NCBI ID,
// secondary Ensembl ID, symbol) to canonical Gene entities. All lookup state
// is scoped to one run: the entity cache guarantees one Gene per primary
// identifier, and results (including failures) are memoized per input
// combination so the external resolver is queried at most once per key.
type GeneResolver struct {
	taxonID string
	port    domain.IdentifierResolver
	genes   *EntityCache[*domain.Gene]

	// memoized outcome per resolution key, including failures
	memo map[string]memoEntry
	// identifier -> primary ID; "" marks an identifier known not to resolve
	secondaryIDs map[string]string
	symbols      map[string]string

	stats Stats
	log   *logrus.Logger
}

// NewGeneResolver creates a resolver for one taxon, backed by the given
// external resolver port and run-scoped entity cache.
func NewGeneResolver(taxonID string, port domain.IdentifierResolver, genes *EntityCache[*domain.Gene], logger *logrus.Logger) *GeneResolver {
	return &GeneResolver{
		taxonID:      taxonID,
		port:         port,
		genes:        genes,
		memo:         make(map[string]memoEntry),
		secondaryIDs: make(map[string]string),
		symbols:      make(map[string]string),
		log:          logger,
	}
}

// Genes exposes the underlying entity cache, e.g. for batch persistence.
func (r *GeneResolver) Genes() *EntityCache[*domain.Gene] { return r.genes }

// Stats returns a snapshot of the lookup counters.
func (r *GeneResolver) Stats() Stats { return r.stats }

// Clear resets all resolution history: the entity cache, the memoized
// outcomes and the counters. Call between batches that must not share state.
func (r *GeneResolver) Clear() {
	r.genes.Clear()
	r.memo = make(map[string]memoEntry)
	r.secondaryIDs = make(map[string]string)
	r.symbols = make(map[string]string)
	r.stats = Stats{}
}

// stripVersion removes a ".N" version suffix, keeping the prefix before the
// first dot.
func stripVersion(s string) string {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return s[:i]
	}
	return s
}

// resolutionKey normalizes the valid subset of {secondary ID, symbol} into
// the memoization key for one lookup.
func resolutionKey(secondaryID, symbol string) string {
	return "s:" + secondaryID + "|y:" + symbol
}

// Resolve looks up a gene by any combination of primary (NCBI) ID, secondary
// (Ensembl) ID and symbol. A valid primary ID short-circuits: the gene is
// fetched or created directly and the external resolver is never consulted.
// Otherwise candidates for the remaining identifiers are fetched through the
// port and combined by set intersection; only an unambiguous single
// candidate resolves. An unresolved lookup returns a zero Outcome and no
// error; an error is returned only for resolver port failures, which are
// fatal to the current document.
func (r *GeneResolver) Resolve(ctx context.Context, primaryID, secondaryID, symbol string) (Outcome, error) {
	secondaryValid := domain.IsValidIdentifier(secondaryID)
	symbolValid := domain.IsValidIdentifier(symbol)
	if secondaryValid {
		secondaryID = stripVersion(secondaryID)
	} else {
		secondaryID = ""
	}
	if symbolValid {
		symbol = stripVersion(symbol)
	} else {
		symbol = ""
	}

	if domain.IsValidIdentifier(primaryID) {
		return r.resolvePrimary(primaryID, secondaryID, symbol), nil
	}

	if !secondaryValid && !symbolValid {
		r.stats.Unresolved++
		r.log.Warn("Gene lookup with no valid identifiers")
		return Outcome{}, nil
	}

	key := resolutionKey(secondaryID, symbol)
	if entry, ok := r.memo[key]; ok {
		if !entry.resolved {
			r.stats.Unresolved++
			return Outcome{}, nil
		}
		gene, _ := r.genes.Get(entry.primaryID)
		r.stats.Resolved++
		return Outcome{Gene: gene, SymbolAgreed: entry.symbolAgreed}, nil
	}

	outcome, err := r.resolveSecondary(ctx, key, secondaryID, symbol)
	if err != nil {
		return Outcome{}, err
	}
	if outcome.Gene != nil {
		r.stats.Resolved++
	} else {
		r.stats.Unresolved++
	}
	return outcome, nil
}

// resolvePrimary handles the primary-ID short-circuit: fetch or create the
// gene keyed by the primary identifier and cross-check the secondary lookup
// tables, warning on conflicts.
func (r *GeneResolver) resolvePrimary(primaryID, secondaryID, symbol string) Outcome {
	gene, created := r.genes.GetOrCreate(primaryID, func() *domain.Gene {
		return domain.NewGene(primaryID)
	})
	if created {
		r.stats.GenesCreated++
	}
	agreed := false
	if secondaryID != "" {
		if known, ok := r.secondaryIDs[secondaryID]; !ok || known == "" {
			r.secondaryIDs[secondaryID] = primaryID
		} else if known != primaryID {
			r.log.WithFields(logrus.Fields{
				"secondary_id": secondaryID,
				"known":        known,
				"supplied":     primaryID,
			}).Warn("Conflicting primary IDs for secondary identifier")
		}
	}
	if symbol != "" {
		if known, ok := r.symbols[symbol]; !ok || known == "" {
			r.symbols[symbol] = primaryID
		} else if known == primaryID {
			agreed = true
		} else {
			r.log.WithFields(logrus.Fields{
				"symbol":   symbol,
				"known":    known,
				"supplied": primaryID,
			}).Warn("Conflicting primary IDs for gene symbol")
		}
	}
	r.stats.Resolved++
	return Outcome{Gene: gene, SymbolAgreed: agreed}
}

// resolveSecondary resolves via the lookup tables and, where an identifier
// has not been seen before, the external resolver port.
func (r *GeneResolver) resolveSecondary(ctx context.Context, key, secondaryID, symbol string) (Outcome, error) {
	idFromSecondary, secondarySeen := "", false
	idFromSymbol, symbolSeen := "", false
	if secondaryID != "" {
		idFromSecondary, secondarySeen = r.secondaryIDs[secondaryID]
	}
	if symbol != "" {
		idFromSymbol, symbolSeen = r.symbols[symbol]
	}

	switch {
	case idFromSecondary != "" && idFromSymbol != "":
		agreed := idFromSecondary == idFromSymbol
		if !agreed {
			// if in doubt, trust the secondary identifier over the symbol
			r.log.WithFields(logrus.Fields{
				"secondary_id":   secondaryID,
				"symbol":         symbol,
				"from_secondary": idFromSecondary,
				"from_symbol":    idFromSymbol,
			}).Warn("Conflicting primary IDs from secondary identifier and symbol")
		}
		return r.finishResolved(key, idFromSecondary, agreed), nil
	case idFromSecondary != "":
		if symbol != "" {
			r.symbols[symbol] = idFromSecondary
		}
		return r.finishResolved(key, idFromSecondary, false), nil
	case idFromSymbol != "":
		if secondaryID != "" {
			r.secondaryIDs[secondaryID] = idFromSymbol
		}
		return r.finishResolved(key, idFromSymbol, true), nil
	case (secondaryID == "" || secondarySeen) && (symbol == "" || symbolSeen):
		// every supplied identifier already failed to resolve
		r.memo[key] = memoEntry{}
		return Outcome{}, nil
	}

	return r.resolveViaPort(ctx, key, secondaryID, secondarySeen, symbol, symbolSeen)
}

// resolveViaPort queries the external resolver for identifiers not seen
// before and combines the candidate sets.
func (r *GeneResolver) resolveViaPort(ctx context.Context, key, secondaryID string, secondarySeen bool, symbol string, symbolSeen bool) (Outcome, error) {
	var fromSecondary, fromSymbol map[string]struct{}
	if secondaryID != "" && !secondarySeen {
		candidates, err := r.port.ResolveCandidates(ctx, r.taxonID, "gene", secondaryID)
		if err != nil {
			return Outcome{}, fmt.Errorf("resolving secondary identifier %q: %w", secondaryID, err)
		}
		r.stats.PortCalls++
		if len(candidates) > 1 {
			r.log.WithFields(logrus.Fields{
				"secondary_id": secondaryID,
				"candidates":   candidates,
			}).Warn("Multiple gene matches for secondary identifier")
		}
		fromSecondary = toSet(candidates)
	}
	if symbol != "" && !symbolSeen {
		candidates, err := r.port.ResolveCandidates(ctx, r.taxonID, "gene", symbol)
		if err != nil {
			return Outcome{}, fmt.Errorf("resolving symbol %q: %w", symbol, err)
		}
		r.stats.PortCalls++
		if len(candidates) > 1 {
			r.log.WithFields(logrus.Fields{
				"symbol":     symbol,
				"candidates": candidates,
			}).Warn("Multiple gene matches for symbol")
		}
		fromSymbol = toSet(candidates)
	}

	combined := combineCandidates(fromSecondary, fromSymbol)
	switch {
	case combined == nil: // no hits at all
		if secondaryID != "" && !secondarySeen {
			r.log.WithField("secondary_id", secondaryID).Warn("No gene found for secondary identifier")
			r.secondaryIDs[secondaryID] = ""
		}
		if symbol != "" && !symbolSeen {
			r.log.WithField("symbol", symbol).Warn("No gene found for symbol")
			r.symbols[symbol] = ""
		}
		r.memo[key] = memoEntry{}
		return Outcome{}, nil
	case len(combined) == 0: // conflicting candidate sets
		r.log.WithFields(logrus.Fields{
			"secondary_id": secondaryID,
			"symbol":       symbol,
		}).Warn("No common gene match for secondary identifier and symbol")
		r.memo[key] = memoEntry{}
		return Outcome{}, nil
	case len(combined) > 1:
		r.log.WithFields(logrus.Fields{
			"secondary_id": secondaryID,
			"symbol":       symbol,
			"matches":      len(combined),
		}).Warn("Multiple conflicting gene matches")
		r.memo[key] = memoEntry{}
		return Outcome{}, nil
	}

	var primaryID string
	for id := range combined {
		primaryID = id
	}
	if secondaryID != "" {
		r.secondaryIDs[secondaryID] = primaryID
	}
	if symbol != "" {
		r.symbols[symbol] = primaryID
	}
	_, agreed := fromSymbol[primaryID]
	return r.finishResolved(key, primaryID, agreed), nil
}

// finishResolved materializes the gene for a successful resolution and
// records the memo entry.
func (r *GeneResolver) finishResolved(key, primaryID string, agreed bool) Outcome {
	gene, created := r.genes.GetOrCreate(primaryID, func() *domain.Gene {
		return domain.NewGene(primaryID)
	})
	if created {
		r.stats.GenesCreated++
	}
	r.memo[key] = memoEntry{primaryID: primaryID, symbolAgreed: agreed, resolved: true}
	return Outcome{Gene: gene, SymbolAgreed: agreed}
}

// Flush stores every gene created during this run in the warehouse. Entities
// are not persisted on resolution, so callers batch persistence here once
// all lookups are done.
func (r *GeneResolver) Flush(ctx context.Context, sink domain.Warehouse) error {
	genes := r.genes.Values()
	for _, gene := range genes {
		if err := sink.StoreGene(ctx, gene); err != nil {
			return fmt.Errorf("storing gene %s: %w", gene.PrimaryIdentifier, err)
		}
	}
	r.log.WithField("genes", len(genes)).Info("Flushed resolved genes to warehouse")
	return nil
}

func toSet(candidates []string) map[string]struct{} {
	set := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		set[c] = struct{}{}
	}
	return set
}

// combineCandidates intersects the two candidate sets when both are
// non-empty, otherwise returns whichever is non-empty. A nil result means
// neither identifier produced any candidate.
func combineCandidates(fromSecondary, fromSymbol map[string]struct{}) map[string]struct{} {
	if len(fromSecondary) > 0 {
		if len(fromSymbol) > 0 {
			intersection := make(map[string]struct{})
			for id := range fromSecondary {
				if _, ok := fromSymbol[id]; ok {
					intersection[id] = struct{}{}
				}
			}
			return intersection
		}
		return fromSecondary
	}
	if len(fromSymbol) > 0 {
		return fromSymbol
	}
	return nil
}
