package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ampet/importer/internal/auth"
	"github.com/ampet/importer/internal/mapping"
	"github.com/ampet/importer/internal/repository"
	"github.com/ampet/importer/internal/tabular"

	"github.com/google/uuid"
)

// Handler exposes the import pipeline over HTTP.
type Handler struct {
	service *Service
	logs    repository.ImportLogRepository
}

// NewHTTPHandler mounts the preview, run, and log endpoints.
func NewHTTPHandler(service *Service, logs repository.ImportLogRepository) http.Handler {
	h := &Handler{service: service, logs: logs}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /imports/preview", h.preview)
	mux.HandleFunc("POST /imports", h.run)
	mux.HandleFunc("GET /imports/logs", h.listLogs)
	return mux
}

// previewResponse returns the parsed shape of an upload plus the
// classifier's suggested mapping so the client can render the mapping step.
type previewResponse struct {
	FileName         string          `json:"fileName"`
	Headers          []string        `json:"headers"`
	TotalRows        int             `json:"totalRows"`
	SuggestedMapping mapping.Mapping `json:"suggestedMapping"`
	PreviewRows      [][]string      `json:"previewRows"`
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	fileName, payload, ok := readUpload(w, r)
	if !ok {
		return
	}

	table, err := tabular.Parse(fileName, payload)
	if err != nil {
		writeParseError(w, err)
		return
	}

	previewRows := table.Rows
	if len(previewRows) > PreviewLimit {
		previewRows = previewRows[:PreviewLimit]
	}

	writeJSON(w, http.StatusOK, previewResponse{
		FileName:         fileName,
		Headers:          table.Headers,
		TotalRows:        len(table.Rows),
		SuggestedMapping: mapping.Classify(table.Headers),
		PreviewRows:      previewRows,
	})
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	fileName, payload, ok := readUpload(w, r)
	if !ok {
		return
	}

	clinicID, err := uuid.Parse(strings.TrimSpace(r.FormValue("clinicId")))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid clinic id: %v", err), http.StatusBadRequest)
		return
	}
	if err := auth.EnforceClinicScope(r.Context(), clinicID); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	table, err := tabular.Parse(fileName, payload)
	if err != nil {
		writeParseError(w, err)
		return
	}

	fieldMapping := mapping.Classify(table.Headers)
	if raw := strings.TrimSpace(r.FormValue("mapping")); raw != "" {
		fieldMapping = mapping.Mapping{}
		if err := json.Unmarshal([]byte(raw), &fieldMapping); err != nil {
			http.Error(w, fmt.Sprintf("invalid mapping: %v", err), http.StatusBadRequest)
			return
		}
	}
	if !fieldMapping.CanProceed() {
		http.Error(w, ErrMappingIncomplete.Error(), http.StatusUnprocessableEntity)
		return
	}

	report, err := h.service.Run(r.Context(), RunRequest{
		ClinicID: clinicID,
		FileName: fileName,
		Table:    table,
		Mapping:  fieldMapping,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "text/plain") {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_ = report.WriteText(w)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) listLogs(w http.ResponseWriter, r *http.Request) {
	clinicID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("clinicId")))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid clinic id: %v", err), http.StatusBadRequest)
		return
	}
	if err := auth.EnforceClinicScope(r.Context(), clinicID); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	fileName := strings.TrimSpace(r.URL.Query().Get("fileName"))
	if fileName == "" {
		http.Error(w, "fileName is required", http.StatusBadRequest)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	logs, err := h.logs.List(r.Context(), clinicID, fileName, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, logs)
}

func readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	if err := r.ParseMultipartForm(tabular.MaxFileSize); err != nil {
		http.Error(w, fmt.Sprintf("invalid form data: %v", err), http.StatusBadRequest)
		return "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, fmt.Sprintf("file required: %v", err), http.StatusBadRequest)
		return "", nil, false
	}
	defer file.Close()

	payload, err := io.ReadAll(io.LimitReader(file, tabular.MaxFileSize+1))
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read file: %v", err), http.StatusBadRequest)
		return "", nil, false
	}

	return header.Filename, payload, true
}

func writeParseError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, tabular.ErrFileTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	if errors.Is(err, tabular.ErrUnsupportedFormat) {
		status = http.StatusUnsupportedMediaType
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
