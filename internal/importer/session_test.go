package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/ampet/importer/internal/mapping"

	"github.com/google/uuid"
)

const sessionCSV = "Nome,Email,Pet,Especie\nMaria,maria@x.com,Thor,gato\nJoao,joao@x.com,Luna,cachorro\n"

func loadedSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession()
	if err := s.LoadFile("pacientes.csv", []byte(sessionCSV)); err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	return s
}

func TestSessionStartsAtUpload(t *testing.T) {
	s := NewSession()
	if s.Step() != StepUpload {
		t.Fatalf("expected upload step, got %s", s.Step())
	}
}

func TestSessionLoadFileAdvancesToMapping(t *testing.T) {
	s := loadedSession(t)

	if s.Step() != StepMapping {
		t.Fatalf("expected mapping step, got %s", s.Step())
	}
	m := s.Mapping()
	if m.Column(mapping.FieldTutorName) != "Nome" || m.Column(mapping.FieldPetName) != "Pet" {
		t.Fatalf("expected classifier suggestion, got %+v", m)
	}
}

func TestSessionLoadFileFailureStaysAtUpload(t *testing.T) {
	s := NewSession()
	if err := s.LoadFile("pacientes.csv", []byte("Nome,Email\n")); err == nil {
		t.Fatalf("expected parse error for header-only file")
	}
	if s.Step() != StepUpload {
		t.Fatalf("failed load must keep the upload step, got %s", s.Step())
	}
}

func TestSessionMappingGate(t *testing.T) {
	s := loadedSession(t)

	if err := s.SetMapping(mapping.FieldTutorEmail, ""); err != nil {
		t.Fatalf("unmap returned error: %v", err)
	}
	if err := s.AdvanceToPreview(); !errors.Is(err, ErrMappingIncomplete) {
		t.Fatalf("expected ErrMappingIncomplete, got %v", err)
	}
	if s.Step() != StepMapping {
		t.Fatalf("gate must hold the mapping step, got %s", s.Step())
	}

	if err := s.SetMapping(mapping.FieldTutorEmail, "Email"); err != nil {
		t.Fatalf("remap returned error: %v", err)
	}
	if err := s.AdvanceToPreview(); err != nil {
		t.Fatalf("advance returned error: %v", err)
	}
	if s.Step() != StepPreview {
		t.Fatalf("expected preview step, got %s", s.Step())
	}
}

func TestSessionRejectsOutOfStepOperations(t *testing.T) {
	s := loadedSession(t)

	if err := s.LoadFile("outro.csv", []byte(sessionCSV)); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := s.Back(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for back at mapping step, got %v", err)
	}
	if _, err := s.Report(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for report before run, got %v", err)
	}

	if err := s.AdvanceToPreview(); err != nil {
		t.Fatalf("advance returned error: %v", err)
	}
	if err := s.SetMapping(mapping.FieldPetBreed, "Especie"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("mapping is frozen after advancing, got %v", err)
	}
}

func TestSessionBackReturnsToMapping(t *testing.T) {
	s := loadedSession(t)
	if err := s.AdvanceToPreview(); err != nil {
		t.Fatalf("advance returned error: %v", err)
	}
	if err := s.Back(); err != nil {
		t.Fatalf("back returned error: %v", err)
	}
	if s.Step() != StepMapping {
		t.Fatalf("expected mapping step, got %s", s.Step())
	}
}

func TestSessionRunImportProducesReport(t *testing.T) {
	s := loadedSession(t)
	if err := s.AdvanceToPreview(); err != nil {
		t.Fatalf("advance returned error: %v", err)
	}

	service := NewService(newStubAccountRepo(), &stubPetRepo{}, &stubLogRepo{}, nil)
	report, err := s.RunImport(context.Background(), service, uuid.New(), nil)
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	if s.Step() != StepReport {
		t.Fatalf("expected report step, got %s", s.Step())
	}
	if report.TotalRows != 2 || report.SuccessCount != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}

	stored, err := s.Report()
	if err != nil {
		t.Fatalf("report returned error: %v", err)
	}
	if stored.TotalRows != report.TotalRows {
		t.Fatalf("stored report mismatch: %+v vs %+v", stored, report)
	}
}

func TestSessionPreviewRowsLimited(t *testing.T) {
	csv := "Nome,Email,Pet\n"
	for i := 0; i < PreviewLimit+3; i++ {
		csv += "A,a@x.com,Rex\n"
	}
	s := NewSession()
	if err := s.LoadFile("pacientes.csv", []byte(csv)); err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if got := len(s.PreviewRows()); got != PreviewLimit {
		t.Fatalf("expected %d preview rows, got %d", PreviewLimit, got)
	}
}

func TestSessionReset(t *testing.T) {
	s := loadedSession(t)
	s.Reset()
	if s.Step() != StepUpload {
		t.Fatalf("expected upload step after reset, got %s", s.Step())
	}
	if len(s.Table().Rows) != 0 || s.FileName() != "" {
		t.Fatalf("reset must discard session state")
	}
}
