// Package importer runs the bulk-import pipeline: rows of a parsed table
// are processed sequentially under a finalized column mapping, creating
// tutor accounts and pet records through the platform repositories and
// accumulating per-row outcomes into a report.
package importer

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ampet/importer/internal/domain"
	"github.com/ampet/importer/internal/mapping"
	"github.com/ampet/importer/internal/repository"
	"github.com/ampet/importer/internal/tabular"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrMappingIncomplete is returned when a run is requested before every
// required field has a mapped column.
var ErrMappingIncomplete = errors.New("required fields are not mapped")

const missingRequiredField = "missing required field"

// Service imports tutor and pet records from parsed tables.
type Service struct {
	accounts repository.AccountRepository
	pets     repository.PetRepository
	logs     repository.ImportLogRepository
	logger   *zap.SugaredLogger
}

// NewService creates a new import service.
func NewService(
	accounts repository.AccountRepository,
	pets repository.PetRepository,
	logs repository.ImportLogRepository,
	logger *zap.SugaredLogger,
) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		accounts: accounts,
		pets:     pets,
		logs:     logs,
		logger:   logger,
	}
}

// RunRequest describes one import run.
type RunRequest struct {
	ClinicID uuid.UUID
	FileName string
	Table    tabular.Table
	Mapping  mapping.Mapping

	// Progress, when set, receives the integer completion percentage
	// after every processed row. UI feedback only.
	Progress func(percent int)
}

// Run processes the table rows strictly sequentially. Rows are
// independent: any failure is recorded as that row's outcome and the run
// continues; nothing below the row level aborts the batch. Accounts and
// pets created before a later failure are not rolled back.
//
// Sequential processing is deliberate. Two rows sharing a new tutor
// email rely on the second row's lookup finding the account the first
// row created; parallel execution would reintroduce that race.
func (s *Service) Run(ctx context.Context, req RunRequest) (Report, error) {
	if !req.Mapping.CanProceed() {
		return Report{}, ErrMappingIncomplete
	}

	headers := req.Table.Headers
	columns := columnIndexes{
		tutorName:  req.Mapping.ColumnIndex(mapping.FieldTutorName, headers),
		tutorEmail: req.Mapping.ColumnIndex(mapping.FieldTutorEmail, headers),
		tutorPhone: req.Mapping.ColumnIndex(mapping.FieldTutorPhone, headers),
		petName:    req.Mapping.ColumnIndex(mapping.FieldPetName, headers),
		petSpecies: req.Mapping.ColumnIndex(mapping.FieldPetSpecies, headers),
		petBreed:   req.Mapping.ColumnIndex(mapping.FieldPetBreed, headers),
		microchip:  req.Mapping.ColumnIndex(mapping.FieldMicrochipID, headers),
	}

	total := len(req.Table.Rows)
	outcomes := make([]Outcome, 0, total)

	s.logger.Infow("import run started",
		"clinic_id", req.ClinicID,
		"file", req.FileName,
		"rows", total,
	)

	for i, row := range req.Table.Rows {
		rowNumber := i + 2 // 1-based, header row counted

		outcome := s.importRow(ctx, req, columns, row, rowNumber)
		if !outcome.Success {
			s.recordFailure(ctx, req, rowNumber, outcome.Reason)
		}
		outcomes = append(outcomes, outcome)

		if req.Progress != nil {
			req.Progress((i + 1) * 100 / total)
		}
	}

	report := BuildReport(outcomes)
	s.logger.Infow("import run finished",
		"clinic_id", req.ClinicID,
		"file", req.FileName,
		"imported", report.SuccessCount,
		"failed", len(report.Errors),
	)
	return report, nil
}

type columnIndexes struct {
	tutorName  int
	tutorEmail int
	tutorPhone int
	petName    int
	petSpecies int
	petBreed   int
	microchip  int
}

func (s *Service) importRow(ctx context.Context, req RunRequest, columns columnIndexes, row []string, rowNumber int) Outcome {
	failed := func(reason string) Outcome {
		return Outcome{RowNumber: rowNumber, Reason: reason}
	}

	tutorName := cellAt(row, columns.tutorName)
	tutorEmail := cellAt(row, columns.tutorEmail)
	petName := cellAt(row, columns.petName)

	if tutorName == "" || tutorEmail == "" || petName == "" {
		return failed(missingRequiredField)
	}

	account, err := s.accounts.FindByEmail(ctx, tutorEmail)
	accountCreated := false
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrAccountNotFound):
		account, err = s.accounts.Create(ctx, domain.NewAccount(tutorName, tutorEmail, domain.RoleTutor), generateTemporaryCredential())
		if err != nil {
			return failed(fmt.Sprintf("failed to create tutor account: %v", err))
		}
		accountCreated = true
	default:
		return failed(fmt.Sprintf("failed to look up tutor account: %v", err))
	}

	// Phone is a best-effort secondary write on freshly created accounts;
	// a failure does not roll back the account.
	if accountCreated {
		if phone := cellAt(row, columns.tutorPhone); phone != "" {
			if err := s.accounts.UpdatePhone(ctx, account.ID, phone); err != nil {
				s.logger.Warnw("phone update failed",
					"row", rowNumber,
					"account_id", account.ID,
					"error", err,
				)
			}
		}
	}

	pet := domain.NewPet(account.ID, petName, domain.NormalizeSpecies(cellAt(row, columns.petSpecies)))
	pet.Breed = cellAt(row, columns.petBreed)
	pet.MicrochipID = cellAt(row, columns.microchip)
	pet.RegistrationSource = domain.RegistrationSourceImport

	if _, err := s.pets.Create(ctx, pet); err != nil {
		return failed(fmt.Sprintf("failed to create pet: %v", err))
	}

	return Outcome{RowNumber: rowNumber, Success: true}
}

func cellAt(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

func (s *Service) recordFailure(ctx context.Context, req RunRequest, rowNumber int, reason string) {
	s.logger.Warnw("row import failed",
		"clinic_id", req.ClinicID,
		"file", req.FileName,
		"row", rowNumber,
		"reason", reason,
	)
	if s.logs == nil {
		return
	}
	entry := domain.ImportLogEntry{
		ClinicID:     req.ClinicID,
		FileName:     req.FileName,
		RowNumber:    &rowNumber,
		ErrorMessage: reason,
	}
	if err := s.logs.Record(ctx, entry); err != nil {
		s.logger.Warnw("failed to record import log", "row", rowNumber, "error", err)
	}
}

// generateTemporaryCredential builds the one-time credential new tutor
// accounts are provisioned with. Tutors reset it on first login.
func generateTemporaryCredential() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("Ampet_%s!", uuid.NewString()[:8])
	}
	return fmt.Sprintf("Ampet_%s!", hex.EncodeToString(buf))
}
