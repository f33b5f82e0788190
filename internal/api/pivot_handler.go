package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/rpattn/pivotql/internal/domain"
	"github.com/rpattn/pivotql/internal/export"
	"github.com/rpattn/pivotql/internal/middleware"
	"github.com/rpattn/pivotql/internal/pivot"
	"github.com/rpattn/pivotql/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PivotHandler serves pivot queries and their spreadsheet exports.
type PivotHandler struct {
	pool     *pgxpool.Pool
	datasets repository.DatasetRepository
}

// NewPivotHandler creates the handler for /api/pivot and /api/pivot/export.
func NewPivotHandler(pool *pgxpool.Pool, datasets repository.DatasetRepository) *PivotHandler {
	return &PivotHandler{pool: pool, datasets: datasets}
}

// pivotResponse is the JSON body of a pivot query.
type pivotResponse struct {
	TotalCount int                 `json:"totalCount"`
	Rows       domain.PivotedTable `json:"rows"`
}

func (h *PivotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	provider, _, err := h.buildProvider(r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, repository.ErrDatasetNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	total, err := provider.TotalCount(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	rows, err := provider.Data(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, pivotResponse{TotalCount: total, Rows: rows})
}

// Export streams the pivoted table as CSV or XLSX.
func (h *PivotHandler) Export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	provider, cfg, err := h.buildProvider(r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, repository.ErrDatasetNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	format := export.Format(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))))
	if format == "" {
		format = export.FormatCSV
	}
	if format != export.FormatCSV && format != export.FormatXLSX {
		http.Error(w, fmt.Sprintf("unsupported format %q", format), http.StatusBadRequest)
		return
	}

	table, err := provider.Data(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	columns, err := provider.DistinctColumns(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=pivot.%s", format))

	err = export.Write(w, format, export.Request{
		Table:       table,
		KeyLabel:    pivot.LastSegment(cfg.GroupFields[0]),
		Columns:     columns,
		ExtraFields: cfg.ExtraFields,
	})
	if err != nil {
		// Headers are already out; all that is left is to log the failure.
		log.Printf("[HTTP] pivot export failed: %v", err)
	}
}

// buildProvider translates query parameters into a pivot provider. The
// dataset parameter accepts a UUID or a dataset name.
func (h *PivotHandler) buildProvider(r *http.Request) (*pivot.Provider, pivot.Config, error) {
	query := r.URL.Query()

	dataset, err := h.resolveDataset(r)
	if err != nil {
		return nil, pivot.Config{}, err
	}

	groupFields := splitParam(query.Get("group"))
	if len(groupFields) == 0 {
		return nil, pivot.Config{}, errors.New("group parameter is required")
	}

	cfg := pivot.Config{
		Source:       repository.NewRecordSource(h.pool, dataset.ID),
		GroupFields:  groupFields,
		ColumnsField: strings.TrimSpace(query.Get("columns")),
		ValuesField:  strings.TrimSpace(query.Get("values")),
		LabelsField:  strings.TrimSpace(query.Get("labels")),
		ExtraFields:  pivot.ParseExtraFields(query.Get("extra")),
	}

	switch from := strings.TrimSpace(query.Get("columnsFrom")); from {
	case "", "records":
	case "attributes":
		cfg.ColumnsSource = repository.NewAttributeSource(h.pool, dataset.ID)
	default:
		return nil, pivot.Config{}, fmt.Errorf("unknown columnsFrom %q", from)
	}

	page, err := parsePage(query.Get("offset"), query.Get("limit"))
	if err != nil {
		return nil, pivot.Config{}, err
	}
	cfg.Page = page

	provider, err := pivot.NewProvider(cfg)
	if err != nil {
		return nil, pivot.Config{}, err
	}
	return provider, cfg, nil
}

// resolveDataset looks the dataset up by id through the request's batching
// loader when one is attached, else directly by id or name.
func (h *PivotHandler) resolveDataset(r *http.Request) (domain.Dataset, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("dataset"))
	if raw == "" {
		return domain.Dataset{}, errors.New("dataset parameter is required")
	}

	if id, err := uuid.Parse(raw); err == nil {
		if loader := middleware.DatasetLoaderFromContext(r.Context()); loader != nil {
			return loader.Load(r.Context(), id)
		}
		return h.datasets.GetByID(r.Context(), id)
	}
	return h.datasets.GetByName(r.Context(), raw)
}

func splitParam(raw string) []string {
	var parts []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func parsePage(offsetRaw, limitRaw string) (*pivot.Page, error) {
	if strings.TrimSpace(offsetRaw) == "" && strings.TrimSpace(limitRaw) == "" {
		return nil, nil
	}

	page := &pivot.Page{}
	var err error
	if strings.TrimSpace(offsetRaw) != "" {
		if page.Offset, err = strconv.Atoi(offsetRaw); err != nil {
			return nil, fmt.Errorf("invalid offset: %w", err)
		}
	}
	if strings.TrimSpace(limitRaw) != "" {
		if page.Limit, err = strconv.Atoi(limitRaw); err != nil {
			return nil, fmt.Errorf("invalid limit: %w", err)
		}
	}
	return page, nil
}
