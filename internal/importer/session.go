package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/ampet/importer/internal/mapping"
	"github.com/ampet/importer/internal/tabular"

	"github.com/google/uuid"
)

// Step identifies where a session is in the import flow.
type Step string

const (
	StepUpload    Step = "upload"
	StepMapping   Step = "mapping"
	StepPreview   Step = "preview"
	StepImporting Step = "importing"
	StepReport    Step = "report"
)

// PreviewLimit caps how many data rows the preview step exposes.
const PreviewLimit = 5

// ErrInvalidTransition is returned when an operation is called outside
// the step it belongs to.
var ErrInvalidTransition = errors.New("invalid step transition")

// Session is the state machine driving one import flow: upload → mapping
// → preview → importing → report. Each operation is legal in exactly the
// steps it names and fails with ErrInvalidTransition elsewhere, replacing
// ad hoc step flags with checked transitions. A session serves a single
// flow; Reset discards everything and returns to upload.
type Session struct {
	step     Step
	fileName string
	table    tabular.Table
	mapping  mapping.Mapping
	report   Report
}

// NewSession starts a session at the upload step.
func NewSession() *Session {
	return &Session{step: StepUpload, mapping: mapping.Mapping{}}
}

// Step reports the current step.
func (s *Session) Step() Step {
	return s.step
}

// LoadFile parses the uploaded payload and advances upload → mapping with
// a classifier-suggested mapping. Parse failures leave the session at the
// upload step.
func (s *Session) LoadFile(fileName string, payload []byte) error {
	if s.step != StepUpload {
		return s.transitionError(StepUpload)
	}

	table, err := tabular.Parse(fileName, payload)
	if err != nil {
		return err
	}

	s.fileName = fileName
	s.table = table
	s.mapping = mapping.Classify(table.Headers)
	s.step = StepMapping
	return nil
}

// Mapping returns a copy of the current mapping.
func (s *Session) Mapping() mapping.Mapping {
	copied := make(mapping.Mapping, len(s.mapping))
	for field, column := range s.mapping {
		copied[field] = column
	}
	return copied
}

// Table returns the parsed table.
func (s *Session) Table() tabular.Table {
	return s.table
}

// FileName returns the name of the uploaded file.
func (s *Session) FileName() string {
	return s.fileName
}

// SetMapping overrides the column assigned to field. Only legal while the
// mapping step is active; assigning "" unmaps the field. Assigning a
// column already used by another field is allowed.
func (s *Session) SetMapping(field mapping.Field, column string) error {
	if s.step != StepMapping {
		return s.transitionError(StepMapping)
	}
	if column == "" {
		delete(s.mapping, field)
		return nil
	}
	s.mapping[field] = column
	return nil
}

// AdvanceToPreview freezes the mapping and moves mapping → preview. The
// move is gated on the required fields being mapped.
func (s *Session) AdvanceToPreview() error {
	if s.step != StepMapping {
		return s.transitionError(StepMapping)
	}
	if !s.mapping.CanProceed() {
		return ErrMappingIncomplete
	}
	s.step = StepPreview
	return nil
}

// PreviewRows returns up to PreviewLimit data rows for display.
func (s *Session) PreviewRows() [][]string {
	if len(s.table.Rows) <= PreviewLimit {
		return s.table.Rows
	}
	return s.table.Rows[:PreviewLimit]
}

// Back returns preview → mapping so the user can adjust the mapping.
func (s *Session) Back() error {
	if s.step != StepPreview {
		return s.transitionError(StepPreview)
	}
	s.step = StepMapping
	return nil
}

// RunImport moves preview → importing, executes the run, stores the
// report, and finishes at the report step. The importing step is observable
// through the progress callback while Run is underway.
func (s *Session) RunImport(ctx context.Context, service *Service, clinicID uuid.UUID, progress func(percent int)) (Report, error) {
	if s.step != StepPreview {
		return Report{}, s.transitionError(StepPreview)
	}

	s.step = StepImporting
	report, err := service.Run(ctx, RunRequest{
		ClinicID: clinicID,
		FileName: s.fileName,
		Table:    s.table,
		Mapping:  s.Mapping(),
		Progress: progress,
	})
	if err != nil {
		s.step = StepPreview
		return Report{}, err
	}

	s.report = report
	s.step = StepReport
	return report, nil
}

// Report returns the stored report once the session reached the report step.
func (s *Session) Report() (Report, error) {
	if s.step != StepReport {
		return Report{}, s.transitionError(StepReport)
	}
	return s.report, nil
}

// Reset discards all session state and returns to the upload step.
func (s *Session) Reset() {
	*s = *NewSession()
}

func (s *Session) transitionError(want Step) error {
	return fmt.Errorf("%w: step is %s, want %s", ErrInvalidTransition, s.step, want)
}
