package viewstate

// EntityKind names the entity type held by an edit dialog.
type EntityKind string

const (
	KindUser      EntityKind = "user"
	KindViolation EntityKind = "violation"
)

// EditDialog is the Closed/Open(entity) machine behind the edit and delete
// dialogs. Opening snapshots the entity into Scratch; edits go against the
// scratch copy only. Closing without saving discards it, so the original is
// never mutated until a save commits against the backend.
type EditDialog[T any] struct {
	open    bool
	kind    EntityKind
	Scratch T
}

// Open snapshots the entity and opens the dialog. Callers pass a deep copy
// when T holds pointers (models.ViolationRecord.Clone).
func (d *EditDialog[T]) Open(kind EntityKind, entity T) {
	d.open = true
	d.kind = kind
	d.Scratch = entity
}

// IsOpen reports whether the dialog is showing.
func (d *EditDialog[T]) IsOpen() bool {
	return d.open
}

// Kind returns the entity type of the open dialog.
func (d *EditDialog[T]) Kind() EntityKind {
	return d.kind
}

// Close discards the scratch copy without saving.
func (d *EditDialog[T]) Close() {
	var zero T
	d.open = false
	d.kind = ""
	d.Scratch = zero
}

// Save runs commit with the scratch copy. On success the dialog closes; on
// failure it stays open with the scratch copy intact so the user can retry
// or cancel. A save on a closed dialog is rejected.
func (d *EditDialog[T]) Save(commit func(T) error) error {
	if !d.open {
		return &TransitionError{Machine: "dialog", From: "closed", Reason: "nothing to save"}
	}
	if err := commit(d.Scratch); err != nil {
		return err
	}
	d.Close()
	return nil
}
