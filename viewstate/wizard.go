package viewstate

import (
	"github.com/google/uuid"

	"violation-dashboard/models"
)

// WizardStep is a stage of the media analysis flow.
type WizardStep string

const (
	StepGroup   WizardStep = "group"
	StepAnalyze WizardStep = "analyze"
	StepResults WizardStep = "results"
)

// ObjectGroup is a named set of media files analyzed together.
type ObjectGroup struct {
	ID    string   `json:"id"`
	Label string   `json:"label"`
	Files []string `json:"files"`
}

// Wizard is the linear Group → Analyze → Results machine for the media
// analysis flow. Transitions are forward-only and gated: analysis cannot
// start until every group has at least one attached file, and Results is
// reachable only through a successful analyze call.
type Wizard struct {
	step    WizardStep
	groups  []ObjectGroup
	results []models.ViolationRecord
}

// NewWizard starts at the grouping step with no groups.
func NewWizard() *Wizard {
	return &Wizard{step: StepGroup}
}

// Step returns the current stage.
func (w *Wizard) Step() WizardStep {
	return w.step
}

// Groups returns the object groups assembled so far.
func (w *Wizard) Groups() []ObjectGroup {
	return w.groups
}

// Results returns the detections produced by the last successful analysis.
func (w *Wizard) Results() []models.ViolationRecord {
	return w.results
}

// AddGroup creates a new empty group. Only allowed at the grouping step.
func (w *Wizard) AddGroup(label string) (ObjectGroup, error) {
	if w.step != StepGroup {
		return ObjectGroup{}, &TransitionError{Machine: "wizard", From: string(w.step), Reason: "groups can only change at the grouping step"}
	}
	g := ObjectGroup{ID: uuid.NewString(), Label: label}
	w.groups = append(w.groups, g)
	return g, nil
}

// AttachFile adds a file to an existing group.
func (w *Wizard) AttachFile(groupID, filename string) error {
	if w.step != StepGroup {
		return &TransitionError{Machine: "wizard", From: string(w.step), Reason: "groups can only change at the grouping step"}
	}
	for i := range w.groups {
		if w.groups[i].ID == groupID {
			w.groups[i].Files = append(w.groups[i].Files, filename)
			return nil
		}
	}
	return &ValidationError{Field: "group_id", Reason: "no such group"}
}

// StartAnalysis moves Group → Analyze. Rejected unless at least one group
// exists and every group has at least one file; on rejection the wizard stays
// at the grouping step.
func (w *Wizard) StartAnalysis() error {
	if w.step != StepGroup {
		return &TransitionError{Machine: "wizard", From: string(w.step), Reason: "analysis already started"}
	}
	if len(w.groups) == 0 {
		return &ValidationError{Field: "groups", Reason: "no object groups defined"}
	}
	for _, g := range w.groups {
		if len(g.Files) == 0 {
			return &ValidationError{Field: "groups", Reason: "group " + g.Label + " has no attached files"}
		}
	}
	w.step = StepAnalyze
	return nil
}

// CompleteAnalysis moves Analyze → Results with the detections from a
// successful analyze call.
func (w *Wizard) CompleteAnalysis(results []models.ViolationRecord) error {
	if w.step != StepAnalyze {
		return &TransitionError{Machine: "wizard", From: string(w.step), Reason: "no analysis in progress"}
	}
	w.results = results
	w.step = StepResults
	return nil
}

// FailAnalysis returns to the grouping step after a failed analyze call.
// Groups are kept so the user can retry; Results is never reached.
func (w *Wizard) FailAnalysis() {
	if w.step == StepAnalyze {
		w.step = StepGroup
	}
}

// Reset starts a new analysis: back to the grouping step, prior results
// discarded. Assembled groups are kept for reuse.
func (w *Wizard) Reset() {
	w.step = StepGroup
	w.results = nil
}
