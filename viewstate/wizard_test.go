package viewstate

import (
	"testing"

	"violation-dashboard/models"
)

func TestWizardHappyPath(t *testing.T) {
	w := NewWizard()
	if w.Step() != StepGroup {
		t.Fatalf("new wizard at %s, want %s", w.Step(), StepGroup)
	}

	g, err := w.AddGroup("street side")
	if err != nil {
		t.Fatalf("AddGroup() error = %v", err)
	}
	if err := w.AttachFile(g.ID, "frame-001.jpg"); err != nil {
		t.Fatalf("AttachFile() error = %v", err)
	}

	if err := w.StartAnalysis(); err != nil {
		t.Fatalf("StartAnalysis() error = %v", err)
	}
	if w.Step() != StepAnalyze {
		t.Fatalf("after StartAnalysis at %s, want %s", w.Step(), StepAnalyze)
	}

	results := []models.ViolationRecord{{ID: "v1", Category: "parking", Confidence: 0.8}}
	if err := w.CompleteAnalysis(results); err != nil {
		t.Fatalf("CompleteAnalysis() error = %v", err)
	}
	if w.Step() != StepResults {
		t.Errorf("after CompleteAnalysis at %s, want %s", w.Step(), StepResults)
	}
	if len(w.Results()) != 1 || w.Results()[0].ID != "v1" {
		t.Errorf("Results() = %v, want the analysis detections", w.Results())
	}
}

func TestWizardAnalyzeGating(t *testing.T) {
	t.Run("no groups", func(t *testing.T) {
		w := NewWizard()
		if err := w.StartAnalysis(); err == nil {
			t.Error("StartAnalysis() with no groups should be rejected")
		}
		if w.Step() != StepGroup {
			t.Errorf("rejected transition moved wizard to %s", w.Step())
		}
	})

	t.Run("group without files", func(t *testing.T) {
		w := NewWizard()
		g1, _ := w.AddGroup("with files")
		w.AttachFile(g1.ID, "a.jpg")
		w.AddGroup("empty")

		if err := w.StartAnalysis(); err == nil {
			t.Error("StartAnalysis() with an empty group should be rejected")
		}
		if w.Step() != StepGroup {
			t.Errorf("rejected transition moved wizard to %s", w.Step())
		}
	})
}

func TestWizardForwardOnly(t *testing.T) {
	w := NewWizard()
	if err := w.CompleteAnalysis(nil); err == nil {
		t.Error("CompleteAnalysis() from Group should be rejected")
	}

	g, _ := w.AddGroup("g")
	w.AttachFile(g.ID, "a.jpg")
	if err := w.StartAnalysis(); err != nil {
		t.Fatalf("StartAnalysis() error = %v", err)
	}
	if _, err := w.AddGroup("late"); err == nil {
		t.Error("AddGroup() after analysis started should be rejected")
	}
	if err := w.StartAnalysis(); err == nil {
		t.Error("StartAnalysis() twice should be rejected")
	}
}

func TestWizardFailAnalysisReturnsToGroup(t *testing.T) {
	w := NewWizard()
	g, _ := w.AddGroup("g")
	w.AttachFile(g.ID, "a.jpg")
	w.StartAnalysis()

	w.FailAnalysis()
	if w.Step() != StepGroup {
		t.Errorf("after failed analysis at %s, want %s", w.Step(), StepGroup)
	}
	if len(w.Groups()) != 1 {
		t.Errorf("failed analysis discarded the groups")
	}
	if len(w.Results()) != 0 {
		t.Errorf("failed analysis produced results: %v", w.Results())
	}
}

func TestWizardReset(t *testing.T) {
	w := NewWizard()
	g, _ := w.AddGroup("g")
	w.AttachFile(g.ID, "a.jpg")
	w.StartAnalysis()
	w.CompleteAnalysis([]models.ViolationRecord{{ID: "v1"}})

	w.Reset()
	if w.Step() != StepGroup {
		t.Errorf("after Reset at %s, want %s", w.Step(), StepGroup)
	}
	if len(w.Results()) != 0 {
		t.Errorf("Reset kept prior results: %v", w.Results())
	}
}

func TestWizardAttachFileUnknownGroup(t *testing.T) {
	w := NewWizard()
	if err := w.AttachFile("missing", "a.jpg"); err == nil {
		t.Error("AttachFile() on unknown group should be rejected")
	}
}
