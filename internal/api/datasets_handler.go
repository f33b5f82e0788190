package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rpattn/pivotql/internal/domain"
	"github.com/rpattn/pivotql/internal/repository"

	"github.com/google/uuid"
)

// DatasetsHandler manages dataset metadata over REST.
type DatasetsHandler struct {
	datasets repository.DatasetRepository
	records  repository.RecordRepository
}

// NewDatasetsHandler creates the handler for /api/datasets.
func NewDatasetsHandler(datasets repository.DatasetRepository, records repository.RecordRepository) *DatasetsHandler {
	return &DatasetsHandler{datasets: datasets, records: records}
}

type createDatasetRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// datasetSummary is a listed dataset plus the number of records it holds.
type datasetSummary struct {
	domain.Dataset
	RecordCount int64 `json:"recordCount"`
}

func (h *DatasetsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *DatasetsHandler) list(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.datasets.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	summaries := make([]datasetSummary, 0, len(datasets))
	for _, dataset := range datasets {
		count, err := h.records.Count(r.Context(), dataset.ID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		summaries = append(summaries, datasetSummary{Dataset: dataset, RecordCount: count})
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *DatasetsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createDatasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	dataset, err := h.datasets.Create(r.Context(), domain.NewDataset(req.Name, req.Description))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, dataset)
}

// delete removes a dataset; its records and attributes go with it through
// the cascading foreign keys.
func (h *DatasetsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("id")))
	if err != nil {
		http.Error(w, "valid dataset id is required", http.StatusBadRequest)
		return
	}

	if err := h.datasets.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrDatasetNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
