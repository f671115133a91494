package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ampet/importer/internal/domain"
	"github.com/ampet/importer/internal/mapping"
	"github.com/ampet/importer/internal/repository"
	"github.com/ampet/importer/internal/tabular"

	"github.com/google/uuid"
)

type stubAccountRepo struct {
	accounts       map[string]domain.Account
	phones         map[uuid.UUID]string
	createCalls    int
	createErr      error
	findErr        error
	updatePhoneErr error
	phoneCalls     int
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{
		accounts: map[string]domain.Account{},
		phones:   map[uuid.UUID]string{},
	}
}

func (s *stubAccountRepo) FindByEmail(_ context.Context, email string) (domain.Account, error) {
	if s.findErr != nil {
		return domain.Account{}, s.findErr
	}
	account, ok := s.accounts[email]
	if !ok {
		return domain.Account{}, repository.ErrAccountNotFound
	}
	return account, nil
}

func (s *stubAccountRepo) Create(_ context.Context, account domain.Account, temporaryCredential string) (domain.Account, error) {
	s.createCalls++
	if s.createErr != nil {
		return domain.Account{}, s.createErr
	}
	if temporaryCredential == "" {
		return domain.Account{}, errors.New("missing temporary credential")
	}
	if _, exists := s.accounts[account.Email]; exists {
		return domain.Account{}, repository.ErrDuplicateEmail
	}
	s.accounts[account.Email] = account
	return account, nil
}

func (s *stubAccountRepo) UpdatePhone(_ context.Context, accountID uuid.UUID, phone string) error {
	s.phoneCalls++
	if s.updatePhoneErr != nil {
		return s.updatePhoneErr
	}
	s.phones[accountID] = phone
	return nil
}

type stubPetRepo struct {
	created   []domain.Pet
	failNames map[string]error
}

func (s *stubPetRepo) Create(_ context.Context, pet domain.Pet) (domain.Pet, error) {
	if err, ok := s.failNames[pet.Name]; ok {
		return domain.Pet{}, err
	}
	s.created = append(s.created, pet)
	return pet, nil
}

type stubLogRepo struct {
	entries []domain.ImportLogEntry
}

func (s *stubLogRepo) Record(_ context.Context, entry domain.ImportLogEntry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubLogRepo) List(_ context.Context, _ uuid.UUID, _ string, _ int, _ int) ([]domain.ImportLogEntry, error) {
	return s.entries, nil
}

func parseCSV(t *testing.T, data string) tabular.Table {
	t.Helper()
	table, err := tabular.Parse("pacientes.csv", []byte(data))
	if err != nil {
		t.Fatalf("parse returned error: %v", err)
	}
	return table
}

func runService(t *testing.T, data string, accounts *stubAccountRepo, pets *stubPetRepo, logs *stubLogRepo) Report {
	t.Helper()
	table := parseCSV(t, data)
	service := NewService(accounts, pets, logs, nil)
	report, err := service.Run(context.Background(), RunRequest{
		ClinicID: uuid.New(),
		FileName: "pacientes.csv",
		Table:    table,
		Mapping:  mapping.Classify(table.Headers),
	})
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	return report
}

func TestRunImportsSingleRow(t *testing.T) {
	accounts := newStubAccountRepo()
	pets := &stubPetRepo{}
	logs := &stubLogRepo{}

	data := "Nome,Email,Pet,Especie\nMaria Silva,maria@x.com,Thor,cachorro\n"
	report := runService(t, data, accounts, pets, logs)

	if report.TotalRows != 1 || report.SuccessCount != 1 || len(report.Errors) != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	account, ok := accounts.accounts["maria@x.com"]
	if !ok {
		t.Fatalf("expected tutor account to be created")
	}
	if account.FullName != "Maria Silva" || account.Role != domain.RoleTutor {
		t.Fatalf("unexpected account: %+v", account)
	}

	if len(pets.created) != 1 {
		t.Fatalf("expected 1 pet, got %d", len(pets.created))
	}
	pet := pets.created[0]
	if pet.Name != "Thor" {
		t.Fatalf("unexpected pet name %q", pet.Name)
	}
	if pet.Species != domain.SpeciesDog {
		t.Fatalf("expected species dog for 'cachorro', got %s", pet.Species)
	}
	if pet.TutorID != account.ID {
		t.Fatalf("pet not linked to tutor account")
	}
	if pet.RegistrationSource != domain.RegistrationSourceImport {
		t.Fatalf("expected provenance tag %q, got %q", domain.RegistrationSourceImport, pet.RegistrationSource)
	}
}

func TestRunRecordsMissingRequiredField(t *testing.T) {
	accounts := newStubAccountRepo()
	pets := &stubPetRepo{}
	logs := &stubLogRepo{}

	data := "Nome,Email,Pet,Especie\nMaria Silva,,Thor,cachorro\n"
	report := runService(t, data, accounts, pets, logs)

	if report.TotalRows != 1 || report.SuccessCount != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(report.Errors))
	}
	if report.Errors[0].RowNumber != 2 || report.Errors[0].Reason != "missing required field" {
		t.Fatalf("unexpected outcome: %+v", report.Errors[0])
	}
	if accounts.createCalls != 0 || len(pets.created) != 0 {
		t.Fatalf("no collaborator writes expected for an invalid row")
	}
	if len(logs.entries) != 1 || logs.entries[0].RowNumber == nil || *logs.entries[0].RowNumber != 2 {
		t.Fatalf("expected failure recorded in the import log, got %+v", logs.entries)
	}
}

func TestRunReusesAccountForSharedEmail(t *testing.T) {
	accounts := newStubAccountRepo()
	pets := &stubPetRepo{}

	data := "Nome,Email,Pet\nMaria,maria@x.com,Thor\nMaria,maria@x.com,Luna\n"
	report := runService(t, data, accounts, pets, &stubLogRepo{})

	if report.SuccessCount != 2 {
		t.Fatalf("expected both rows to succeed: %+v", report)
	}
	if accounts.createCalls != 1 {
		t.Fatalf("expected a single create_account call, got %d", accounts.createCalls)
	}
	if len(pets.created) != 2 {
		t.Fatalf("expected 2 pets, got %d", len(pets.created))
	}
	if pets.created[0].TutorID != pets.created[1].TutorID {
		t.Fatalf("both pets should link to the same tutor")
	}
}

func TestRunRowIndependence(t *testing.T) {
	accounts := newStubAccountRepo()
	pets := &stubPetRepo{failNames: map[string]error{"Rex3": errors.New("storage unavailable")}}

	var rows strings.Builder
	rows.WriteString("Nome,Email,Pet\n")
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&rows, "Tutor %d,tutor%d@x.com,Rex%d\n", i, i, i)
	}
	report := runService(t, rows.String(), accounts, pets, &stubLogRepo{})

	if report.TotalRows != 5 {
		t.Fatalf("unexpected total: %+v", report)
	}
	if report.SuccessCount != 4 {
		t.Fatalf("rows 1,2,4,5 should succeed independently: %+v", report)
	}
	if len(report.Errors) != 1 || report.Errors[0].RowNumber != 4 {
		t.Fatalf("expected only file row 4 (data row 3) to fail: %+v", report.Errors)
	}
	if !strings.Contains(report.Errors[0].Reason, "storage unavailable") {
		t.Fatalf("collaborator message should be preserved: %q", report.Errors[0].Reason)
	}
}

func TestRunReportConservation(t *testing.T) {
	accounts := newStubAccountRepo()
	accounts.createErr = errors.New("invalid email format")
	pets := &stubPetRepo{}

	data := "Nome,Email,Pet\nA,a@x.com,Rex\nB,b@x.com,Luna\nC,,Bidu\n"
	report := runService(t, data, accounts, pets, &stubLogRepo{})

	if report.SuccessCount+len(report.Errors) != report.TotalRows {
		t.Fatalf("conservation violated: %+v", report)
	}
	if report.SuccessCount != 0 {
		t.Fatalf("account creation failures should fail every row: %+v", report)
	}
}

func TestRunProgressReporting(t *testing.T) {
	accounts := newStubAccountRepo()
	pets := &stubPetRepo{}

	data := "Nome,Email,Pet\nA,a@x.com,R1\nB,b@x.com,R2\nC,c@x.com,R3\nD,d@x.com,R4\n"
	table := parseCSV(t, data)

	var percents []int
	service := NewService(accounts, pets, &stubLogRepo{}, nil)
	_, err := service.Run(context.Background(), RunRequest{
		ClinicID: uuid.New(),
		FileName: "pacientes.csv",
		Table:    table,
		Mapping:  mapping.Classify(table.Headers),
		Progress: func(percent int) { percents = append(percents, percent) },
	})
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	want := []int{25, 50, 75, 100}
	if len(percents) != len(want) {
		t.Fatalf("expected %d progress updates, got %v", len(want), percents)
	}
	for i, percent := range want {
		if percents[i] != percent {
			t.Fatalf("expected progress %v, got %v", want, percents)
		}
	}
}

func TestRunPhoneUpdateIsBestEffort(t *testing.T) {
	accounts := newStubAccountRepo()
	accounts.updatePhoneErr = errors.New("phone service down")
	pets := &stubPetRepo{}

	data := "Nome,Email,Telefone,Pet\nMaria,maria@x.com,11999990000,Thor\n"
	report := runService(t, data, accounts, pets, &stubLogRepo{})

	if report.SuccessCount != 1 {
		t.Fatalf("phone update failure must not fail the row: %+v", report)
	}
	if accounts.phoneCalls != 1 {
		t.Fatalf("expected one phone update attempt, got %d", accounts.phoneCalls)
	}
}

func TestRunSkipsPhoneUpdateForExistingAccounts(t *testing.T) {
	accounts := newStubAccountRepo()
	existing := domain.NewAccount("Maria", "maria@x.com", domain.RoleTutor)
	accounts.accounts["maria@x.com"] = existing
	pets := &stubPetRepo{}

	data := "Nome,Email,Telefone,Pet\nMaria,maria@x.com,11999990000,Thor\n"
	report := runService(t, data, accounts, pets, &stubLogRepo{})

	if report.SuccessCount != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if accounts.createCalls != 0 {
		t.Fatalf("existing account must be reused")
	}
	if accounts.phoneCalls != 0 {
		t.Fatalf("phone is only written for accounts created during the run")
	}
}

func TestRunLookupFailureBecomesRowError(t *testing.T) {
	accounts := newStubAccountRepo()
	accounts.findErr = errors.New("connection refused")
	pets := &stubPetRepo{}

	data := "Nome,Email,Pet\nMaria,maria@x.com,Thor\n"
	report := runService(t, data, accounts, pets, &stubLogRepo{})

	if report.SuccessCount != 0 || len(report.Errors) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if !strings.Contains(report.Errors[0].Reason, "connection refused") {
		t.Fatalf("collaborator message should be preserved: %q", report.Errors[0].Reason)
	}
}

func TestRunRejectsIncompleteMapping(t *testing.T) {
	table := parseCSV(t, "Nome,Email,Pet\nMaria,maria@x.com,Thor\n")
	service := NewService(newStubAccountRepo(), &stubPetRepo{}, &stubLogRepo{}, nil)

	_, err := service.Run(context.Background(), RunRequest{
		ClinicID: uuid.New(),
		FileName: "pacientes.csv",
		Table:    table,
		Mapping:  mapping.Mapping{mapping.FieldTutorName: "Nome"},
	})
	if !errors.Is(err, ErrMappingIncomplete) {
		t.Fatalf("expected ErrMappingIncomplete, got %v", err)
	}
}
