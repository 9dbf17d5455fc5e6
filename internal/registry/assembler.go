package registry

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/omics-warehouse-loader/internal/domain"
)

// experiment metadata entries copied verbatim (normalized) into attributes
var experimentAttributeEntries = []string{
	"name", "project", "contact person", "date", "provider", "sequencing", "reference",
}

// SkippedEntry records one metadata entry that failed to assemble and was
// skipped. Skips are surfaced as data so callers can log or assert on them.
type SkippedEntry struct {
	Section string
	Key     string
	Reason  string
}

// Result is the outcome of assembling one metadata document.
type Result struct {
	Experiment *domain.Experiment
	Registry   *Registry
	Skipped    []SkippedEntry
}

// Assembler builds an Experiment and its entity registry from a structured
// metadata document. Sections are assembled in a fixed order because later
// sections reference earlier ones by name: experiment attributes, materials,
// treatments, conditions, then comparisons. A malformed individual entry is
// skipped and recorded; only structural failures of the document itself are
// returned as errors.
type Assembler struct {
	log *logrus.Logger
}

// NewAssembler creates a metadata assembler.
func NewAssembler(logger *logrus.Logger) *Assembler {
	return &Assembler{log: logger}
}

// Assemble reads one metadata document and populates a fresh registry.
// document names the source for error reporting.
func (a *Assembler) Assemble(document string, r io.Reader) (*Result, error) {
	var doc metadataDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, domain.NewDocumentError(document, "parse", err)
	}

	shortName, ok := doc.Experiment["short name"]
	if !ok || shortName == "" {
		return nil, domain.NewDocumentError(document, "experiment",
			fmt.Errorf("missing required entry %q", "short name"))
	}
	species := strings.ToLower(doc.Experiment["species"])
	if species == "" {
		species = "human"
	}

	experiment := domain.NewExperiment(shortName, species)
	for _, entry := range experimentAttributeEntries {
		if value, ok := doc.Experiment[entry]; ok {
			experiment.Attributes[attributeName(entry)] = value
		}
	}
	a.log.WithFields(logrus.Fields{
		"experiment": shortName,
		"species":    species,
	}).Info("Assembling experiment metadata")

	result := &Result{
		Experiment: experiment,
		Registry:   NewRegistry(),
	}

	if err := a.assembleMaterials(result, doc.Materials); err != nil {
		return nil, domain.NewDocumentError(document, "materials", err)
	}
	if err := a.assembleTreatments(result, doc.Treatments); err != nil {
		return nil, domain.NewDocumentError(document, "treatments", err)
	}
	if err := a.assembleConditions(result, doc.Conditions); err != nil {
		return nil, domain.NewDocumentError(document, "conditions", err)
	}

	for _, entry := range doc.Comparisons {
		experiment.Comparisons = append(experiment.Comparisons, domain.Comparison{
			Treatment: entry.Treatment.Name,
			Control:   entry.Control.Name,
		})
	}

	return result, nil
}

// skip records and logs one skipped entry.
func (a *Assembler) skip(result *Result, section, key string, err error) {
	entry := SkippedEntry{Section: section, Key: key, Reason: err.Error()}
	result.Skipped = append(result.Skipped, entry)
	a.log.WithFields(logrus.Fields{
		"experiment": result.Experiment.ShortName,
		"section":    section,
		"entry":      key,
	}).Warnf("Skipping metadata entry: %v", err)
}

func (a *Assembler) assembleMaterials(result *Result, raw json.RawMessage) error {
	members, err := orderedMembers(raw)
	if err != nil {
		return err
	}
	for _, m := range members {
		material, err := assembleMaterial(m.name, m.raw)
		if err != nil {
			a.skip(result, "materials", m.name, err)
			continue
		}
		result.Registry.Materials.Add(m.name, material)
	}
	return nil
}

func assembleMaterial(name string, raw json.RawMessage) (domain.Material, error) {
	members, err := orderedMembers(raw)
	if err != nil {
		return nil, err
	}
	if len(members) != 1 {
		return nil, fmt.Errorf("expected exactly one material type tag, got %d", len(members))
	}
	details := stringFields(members[0].raw)
	switch domain.MaterialKind(members[0].name) {
	case domain.MaterialCellLine:
		return &domain.CellLine{
			RecordID:     uuid.New(),
			Name:         name,
			CellLineName: details["name"],
			Tissue:       details["tissue"],
		}, nil
	case domain.MaterialTumour:
		return &domain.Tumour{
			RecordID:       uuid.New(),
			Name:           name,
			PrimaryDisease: details["primary disease"],
			DiseaseSubtype: details["disease subtype"],
			Tissue:         details["tissue"],
		}, nil
	case domain.MaterialTissue:
		return &domain.TissueSample{
			RecordID: uuid.New(),
			Name:     name,
			Tissue:   details["tissue"],
		}, nil
	default:
		return nil, fmt.Errorf("unrecognized material type %q", members[0].name)
	}
}

func (a *Assembler) assembleTreatments(result *Result, raw json.RawMessage) error {
	members, err := orderedMembers(raw)
	if err != nil {
		return err
	}
	for _, m := range members {
		treatment, err := assembleTreatment(m.name, m.raw)
		if err != nil {
			a.skip(result, "treatments", m.name, err)
			continue
		}
		result.Registry.Treatments.Add(m.name, treatment)
	}
	return nil
}

func assembleTreatment(name string, raw json.RawMessage) (domain.Treatment, error) {
	members, err := orderedMembers(raw)
	if err != nil {
		return nil, err
	}
	if len(members) != 1 {
		return nil, fmt.Errorf("expected exactly one treatment type tag, got %d", len(members))
	}
	details := stringFields(members[0].raw)
	// the dose/concentration entry name varies by treatment type; normalize
	// to one field
	dose := details["dose"]
	if dose == "" {
		dose = details["concentration"]
	}
	switch domain.TreatmentKind(members[0].name) {
	case domain.TreatmentInhibitor:
		return &domain.Inhibitor{
			RecordID:          uuid.New(),
			Name:              name,
			CompoundName:      details["name"],
			TargetGene:        details["target gene"],
			Reference:         details["reference"],
			DoseConcentration: dose,
			TimePoint:         details["time point"],
		}, nil
	case domain.TreatmentActivator:
		return &domain.Activator{
			RecordID:          uuid.New(),
			Name:              name,
			CompoundName:      details["name"],
			TargetGene:        details["target gene"],
			Reference:         details["reference"],
			DoseConcentration: dose,
			TimePoint:         details["time point"],
		}, nil
	case domain.TreatmentKnockDown:
		return &domain.KnockDown{
			RecordID:          uuid.New(),
			Name:              name,
			PerturbationType:  details["type"],
			DoseConcentration: dose,
			TimePoint:         details["time point"],
		}, nil
	case domain.TreatmentOverexpression:
		return &domain.Overexpression{
			RecordID:          uuid.New(),
			Name:              name,
			PerturbationType:  details["type"],
			DoseConcentration: dose,
			TimePoint:         details["time point"],
		}, nil
	case domain.TreatmentUntargeted:
		return &domain.Untargeted{
			RecordID:          uuid.New(),
			Name:              name,
			DoseConcentration: dose,
			TimePoint:         details["time point"],
		}, nil
	default:
		return nil, fmt.Errorf("unrecognized treatment type %q", members[0].name)
	}
}

// conditionEntry is the raw shape of one condition. Treatments is a pointer
// so a declared-but-empty list can be told apart from an absent one: the two
// cases follow different drop policies.
type conditionEntry struct {
	Material   string          `json:"material"`
	Treatments *[]string       `json:"treatments"`
	Samples    json.RawMessage `json:"samples"`
}

type sampleEntry struct {
	Label      string   `json:"label"`
	File       string   `json:"file"`       // legacy: single technical replicate
	Replicates []string `json:"replicates"` // current: list of technical replicates
}

func (a *Assembler) assembleConditions(result *Result, raw json.RawMessage) error {
	members, err := orderedMembers(raw)
	if err != nil {
		return err
	}
	for _, m := range members {
		condition, samples, err := a.assembleCondition(result, m.name, m.raw)
		if err != nil {
			a.skip(result, "conditions", m.name, err)
			continue
		}
		result.Registry.Conditions.Add(m.name, condition)
		for _, sample := range samples {
			result.Registry.Samples.Add(sample.Name, sample)
		}
	}
	return nil
}

func (a *Assembler) assembleCondition(result *Result, name string, raw json.RawMessage) (*domain.Condition, []*domain.Sample, error) {
	var entry conditionEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, nil, err
	}

	// the material reference is hard: failure to resolve drops the condition
	material, ok := result.Registry.Materials.Get(entry.Material)
	if !ok {
		return nil, nil, fmt.Errorf("unknown material %q", entry.Material)
	}
	condition := domain.NewCondition(name, material)

	// treatment references are soft: an unresolved name is logged and
	// omitted. A condition that declared treatments but resolved none is
	// dropped entirely; one declared without a treatments entry is kept.
	if entry.Treatments != nil {
		for _, treatmentName := range *entry.Treatments {
			treatment, ok := result.Registry.Treatments.Get(treatmentName)
			if !ok {
				a.log.WithFields(logrus.Fields{
					"experiment": result.Experiment.ShortName,
					"condition":  name,
					"treatment":  treatmentName,
				}).Warn("Unresolved treatment reference on condition")
				continue
			}
			condition.Treatments = append(condition.Treatments, treatment)
		}
		if len(*entry.Treatments) > 0 && len(condition.Treatments) == 0 {
			return nil, nil, fmt.Errorf("none of %d declared treatments resolved", len(*entry.Treatments))
		}
	}

	samples, err := a.assembleSamples(condition, entry.Samples)
	if err != nil {
		return nil, nil, err
	}
	return condition, samples, nil
}

// assembleSamples expands the sample entries of one condition into technical
// replicates. The biological-replicate label "<condition>_R<n>" counts
// sample entries (1-based) within the condition, matching the labels used by
// the analysis pipeline for result-matrix columns.
func (a *Assembler) assembleSamples(condition *domain.Condition, raw json.RawMessage) ([]*domain.Sample, error) {
	members, err := orderedMembers(raw)
	if err != nil {
		return nil, err
	}
	var samples []*domain.Sample
	for i, m := range members {
		bioReplicate := fmt.Sprintf("%s_R%d", condition.Name, i+1)
		var entry sampleEntry
		if err := json.Unmarshal(m.raw, &entry); err != nil {
			return nil, fmt.Errorf("sample %q: %w", m.name, err)
		}
		replicates := entry.Replicates
		if entry.File != "" { // legacy format: one file per sample entry
			replicates = []string{entry.File}
		}
		if len(replicates) == 0 {
			a.log.WithFields(logrus.Fields{
				"condition": condition.Name,
				"sample":    m.name,
			}).Warn("Sample entry without file or replicates")
			continue
		}
		for _, file := range replicates {
			sample := &domain.Sample{
				RecordID:     uuid.New(),
				Name:         baseName(file),
				File:         file,
				BioReplicate: bioReplicate,
				Label:        entry.Label,
				Condition:    condition,
			}
			condition.Samples = append(condition.Samples, sample)
			samples = append(samples, sample)
		}
	}
	return samples, nil
}
