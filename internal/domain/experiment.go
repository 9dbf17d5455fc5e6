package domain

import (
	"github.com/google/uuid"
)

// Experiment is the root entity for one metadata document. It owns all
// materials, treatments, conditions and samples assembled from the document
// and is immutable after assembly.
type Experiment struct {
	RecordID   uuid.UUID         `json:"record_id"`
	ShortName  string            `json:"short_name"`
	Species    string            `json:"species"`
	Attributes map[string]string `json:"attributes,omitempty"` // normalized free-form metadata
	Comparisons []Comparison     `json:"comparisons,omitempty"`
}

// NewExperiment creates an experiment entity for one metadata document.
func NewExperiment(shortName, species string) *Experiment {
	return &Experiment{
		RecordID:   uuid.New(),
		ShortName:  shortName,
		Species:    species,
		Attributes: make(map[string]string),
	}
}

// MaterialKind tags the variant of a material entry.
type MaterialKind string

const (
	MaterialCellLine MaterialKind = "cell line"
	MaterialTumour   MaterialKind = "tumour"
	MaterialTissue   MaterialKind = "tissue"
)

// Material is an experimental material, one of cell line, tumour or tissue.
// Each variant carries only its own attribute set.
type Material interface {
	MaterialName() string
	Kind() MaterialKind
}

// CellLine is a cell-line material.
type CellLine struct {
	RecordID     uuid.UUID `json:"record_id"`
	Name         string    `json:"name"`
	CellLineName string    `json:"cell_line_name,omitempty"`
	Tissue       string    `json:"tissue,omitempty"`
}

func (m *CellLine) MaterialName() string { return m.Name }
func (m *CellLine) Kind() MaterialKind   { return MaterialCellLine }

// Tumour is a tumour material.
type Tumour struct {
	RecordID       uuid.UUID `json:"record_id"`
	Name           string    `json:"name"`
	PrimaryDisease string    `json:"primary_disease,omitempty"`
	DiseaseSubtype string    `json:"disease_subtype,omitempty"`
	Tissue         string    `json:"tissue,omitempty"`
}

func (m *Tumour) MaterialName() string { return m.Name }
func (m *Tumour) Kind() MaterialKind   { return MaterialTumour }

// TissueSample is a plain tissue material.
type TissueSample struct {
	RecordID uuid.UUID `json:"record_id"`
	Name     string    `json:"name"`
	Tissue   string    `json:"tissue,omitempty"`
}

func (m *TissueSample) MaterialName() string { return m.Name }
func (m *TissueSample) Kind() MaterialKind   { return MaterialTissue }

// TreatmentKind tags the variant of a treatment entry.
type TreatmentKind string

const (
	TreatmentInhibitor      TreatmentKind = "inhibitor"
	TreatmentActivator      TreatmentKind = "activator"
	TreatmentKnockDown      TreatmentKind = "knock-down"
	TreatmentOverexpression TreatmentKind = "overexpression"
	TreatmentUntargeted     TreatmentKind = "untargeted"
)

// Treatment is an experimental treatment. The dose/concentration field name
// varies by kind in the source documents and is normalized to one
// DoseConcentration value on each variant.
type Treatment interface {
	TreatmentName() string
	Kind() TreatmentKind
}

// Inhibitor is a targeted compound treatment.
type Inhibitor struct {
	RecordID          uuid.UUID `json:"record_id"`
	Name              string    `json:"name"`
	CompoundName      string    `json:"compound_name,omitempty"`
	TargetGene        string    `json:"target_gene,omitempty"`
	Reference         string    `json:"reference,omitempty"` // external compound reference
	DoseConcentration string    `json:"dose_concentration,omitempty"`
	TimePoint         string    `json:"time_point,omitempty"`
}

func (t *Inhibitor) TreatmentName() string { return t.Name }
func (t *Inhibitor) Kind() TreatmentKind   { return TreatmentInhibitor }

// Activator is a targeted compound treatment that activates its target.
type Activator struct {
	RecordID          uuid.UUID `json:"record_id"`
	Name              string    `json:"name"`
	CompoundName      string    `json:"compound_name,omitempty"`
	TargetGene        string    `json:"target_gene,omitempty"`
	Reference         string    `json:"reference,omitempty"`
	DoseConcentration string    `json:"dose_concentration,omitempty"`
	TimePoint         string    `json:"time_point,omitempty"`
}

func (t *Activator) TreatmentName() string { return t.Name }
func (t *Activator) Kind() TreatmentKind   { return TreatmentActivator }

// KnockDown is a gene knock-down treatment (siRNA, shRNA, ...).
type KnockDown struct {
	RecordID          uuid.UUID `json:"record_id"`
	Name              string    `json:"name"`
	PerturbationType  string    `json:"perturbation_type,omitempty"`
	DoseConcentration string    `json:"dose_concentration,omitempty"`
	TimePoint         string    `json:"time_point,omitempty"`
}

func (t *KnockDown) TreatmentName() string { return t.Name }
func (t *KnockDown) Kind() TreatmentKind   { return TreatmentKnockDown }

// Overexpression is a gene overexpression treatment.
type Overexpression struct {
	RecordID          uuid.UUID `json:"record_id"`
	Name              string    `json:"name"`
	PerturbationType  string    `json:"perturbation_type,omitempty"`
	DoseConcentration string    `json:"dose_concentration,omitempty"`
	TimePoint         string    `json:"time_point,omitempty"`
}

func (t *Overexpression) TreatmentName() string { return t.Name }
func (t *Overexpression) Kind() TreatmentKind   { return TreatmentOverexpression }

// Untargeted is an untargeted treatment (vehicle, solvent control, ...).
type Untargeted struct {
	RecordID          uuid.UUID `json:"record_id"`
	Name              string    `json:"name"`
	DoseConcentration string    `json:"dose_concentration,omitempty"`
	TimePoint         string    `json:"time_point,omitempty"`
}

func (t *Untargeted) TreatmentName() string { return t.Name }
func (t *Untargeted) Kind() TreatmentKind   { return TreatmentUntargeted }

// Condition is one experimental condition: exactly one material plus zero or
// more treatments, owning the samples measured under it.
type Condition struct {
	RecordID   uuid.UUID   `json:"record_id"`
	Name       string      `json:"name"`
	Material   Material    `json:"-"`
	Treatments []Treatment `json:"-"`
	Samples    []*Sample   `json:"-"`
}

// NewCondition creates a condition referencing its resolved material.
func NewCondition(name string, material Material) *Condition {
	return &Condition{
		RecordID: uuid.New(),
		Name:     name,
		Material: material,
	}
}

// Sample is one technical replicate: a single measurement file within a
// biological replicate of one condition.
type Sample struct {
	RecordID     uuid.UUID `json:"record_id"`
	Name         string    `json:"name"` // file name with extension(s) stripped
	File         string    `json:"file"`
	BioReplicate string    `json:"bio_replicate"` // "<condition>_R<n>"
	Label        string    `json:"label,omitempty"`
	Condition    *Condition `json:"-"`
}

// Comparison is an ordered (treatment condition, control condition) name
// pair. It locates a differential-expression result file and is never
// persisted itself; the names are re-resolved by the reconciler.
type Comparison struct {
	Treatment string `json:"treatment"`
	Control   string `json:"control"`
}
