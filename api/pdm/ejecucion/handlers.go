package ejecucion

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/gorilla/mux"

	"PdmSaas/api"
	"PdmSaas/api/constants"
	"PdmSaas/api/utils"
	"PdmSaas/internal/ingest"
	"PdmSaas/internal/ledger"
)

// Handler serves the budget execution ledger of the caller's organization.
type Handler struct {
	svc           *ledger.Service
	maxUploadSize int64
}

func NewHandler(svc *ledger.Service, maxUploadSize int64) *Handler {
	if maxUploadSize <= 0 {
		maxUploadSize = 32 << 20
	}
	return &Handler{svc: svc, maxUploadSize: maxUploadSize}
}

// Register mounts the ledger routes on r. Callers are expected to have
// applied the organization middleware to r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/upload", h.Upload).Methods(http.MethodPost)
	r.HandleFunc("/preview", h.Preview).Methods(http.MethodPost)
	r.HandleFunc("/uploads", h.Uploads).Methods(http.MethodGet)
	r.HandleFunc("/productos/{code}", h.GetProduct).Methods(http.MethodGet)
	r.HandleFunc("/productos/{code}", h.DeleteProduct).Methods(http.MethodDelete)
	r.HandleFunc("", h.List).Methods(http.MethodGet)
	r.HandleFunc("/", h.List).Methods(http.MethodGet)
}

// Upload handles POST /pdm/ejecucion/upload.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	orgID, ok := api.OrganizationIDFromCtx(r.Context())
	if !ok {
		api.RespondWithError(w, http.StatusUnauthorized, constants.ErrMissingOrganization)
		return
	}
	name, data, year, status, msg := h.readUpload(w, r)
	if status != 0 {
		api.RespondWithError(w, status, msg)
		return
	}

	res, err := h.svc.Upload(r.Context(), ledger.UploadRequest{
		OrganizationID: orgID,
		FiscalYear:     year,
		FileName:       name,
		Data:           data,
	})
	if err != nil {
		respondUploadFailure(w, err)
		return
	}
	api.LogInfo("upload %s for organization %d: %d rows considered, %d inserted", res.UploadID, orgID, res.RowsConsidered, res.RowsInserted)
	api.RespondWithJSON(w, http.StatusOK, res)
}

// Preview handles POST /pdm/ejecucion/preview. Nothing is persisted.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if _, ok := api.OrganizationIDFromCtx(r.Context()); !ok {
		api.RespondWithError(w, http.StatusUnauthorized, constants.ErrMissingOrganization)
		return
	}
	name, data, _, status, msg := h.readUpload(w, r)
	if status != 0 {
		api.RespondWithError(w, status, msg)
		return
	}
	res, err := h.svc.Preview(name, data)
	if err != nil {
		respondUploadFailure(w, err)
		return
	}
	api.RespondWithJSON(w, http.StatusOK, res)
}

// readUpload extracts the multipart file and optional fiscal year. A non-zero
// status means the request was rejected with msg.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, *int, int, string) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, nil, http.StatusRequestEntityTooLarge, constants.ErrFileTooLarge
		}
		return "", nil, nil, http.StatusBadRequest, constants.ErrInvalidForm
	}
	year, err := parseFiscalYear(r.FormValue(constants.FormFiscalYear))
	if err != nil {
		return "", nil, nil, http.StatusBadRequest, constants.ErrInvalidFiscalYear
	}

	file, header, err := r.FormFile(constants.FormFile)
	if err != nil {
		return "", nil, nil, http.StatusBadRequest, constants.ErrMissingFile
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, nil, http.StatusBadRequest, constants.ErrReadFile
	}
	return header.Filename, data, year, 0, ""
}

// GetProduct handles GET /pdm/ejecucion/productos/{code}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	orgID, ok := api.OrganizationIDFromCtx(r.Context())
	if !ok {
		api.RespondWithError(w, http.StatusUnauthorized, constants.ErrMissingOrganization)
		return
	}
	year, err := parseFiscalYear(r.URL.Query().Get(constants.FormFiscalYear))
	if err != nil {
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidFiscalYear)
		return
	}
	summary, err := h.svc.Query(r.Context(), orgID, mux.Vars(r)["code"], year)
	if err != nil {
		api.RespondWithError(w, statusFor(err), err.Error())
		return
	}
	api.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"product": summary,
	})
}

// DeleteProduct handles DELETE /pdm/ejecucion/productos/{code}.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	orgID, ok := api.OrganizationIDFromCtx(r.Context())
	if !ok {
		api.RespondWithError(w, http.StatusUnauthorized, constants.ErrMissingOrganization)
		return
	}
	year, err := parseFiscalYear(r.URL.Query().Get(constants.FormFiscalYear))
	if err != nil {
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidFiscalYear)
		return
	}
	n, err := h.svc.Delete(r.Context(), orgID, mux.Vars(r)["code"], year)
	if err != nil {
		api.RespondWithError(w, statusFor(err), err.Error())
		return
	}
	api.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"deleted": n,
	})
}

// List handles GET /pdm/ejecucion.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orgID, ok := api.OrganizationIDFromCtx(r.Context())
	if !ok {
		api.RespondWithError(w, http.StatusUnauthorized, constants.ErrMissingOrganization)
		return
	}
	year, err := parseFiscalYear(r.URL.Query().Get(constants.FormFiscalYear))
	if err != nil {
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidFiscalYear)
		return
	}
	page, err := utils.ExtractPagination(r)
	if err != nil {
		api.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, total, err := h.svc.List(r.Context(), orgID, year, page.Limit, page.Offset)
	if err != nil {
		api.RespondWithError(w, statusFor(err), err.Error())
		return
	}
	page.SetPaginationStats(total)
	api.RespondWithPage(w, records, page)
}

// Uploads handles GET /pdm/ejecucion/uploads.
func (h *Handler) Uploads(w http.ResponseWriter, r *http.Request) {
	orgID, ok := api.OrganizationIDFromCtx(r.Context())
	if !ok {
		api.RespondWithError(w, http.StatusUnauthorized, constants.ErrMissingOrganization)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidLimit)
			return
		}
		limit = v
	}
	uploads, err := h.svc.Uploads(r.Context(), orgID, limit)
	if err != nil {
		api.RespondWithError(w, statusFor(err), err.Error())
		return
	}
	api.RespondWithPayload(w, true, "", uploads)
}

// respondUploadFailure answers with the upload result envelope so clients
// read failures and successes the same way.
func respondUploadFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		api.LogError("upload failed: %v", err)
	}
	api.RespondWithJSON(w, status, ledger.UploadResult{
		Success: false,
		Message: err.Error(),
		Errors:  []string{err.Error()},
	})
}

func statusFor(err error) int {
	switch {
	case ingest.IsFileFormat(err):
		return http.StatusUnsupportedMediaType
	case ingest.IsSchemaDetection(err):
		return http.StatusUnprocessableEntity
	case ingest.IsUnreadable(err), errors.Is(err, ingest.ErrEmptyFile):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrInvalidOrganization):
		return http.StatusUnauthorized
	case errors.Is(err, ledger.ErrInvalidProductCode):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrProductNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// parseFiscalYear returns nil for an absent year.
func parseFiscalYear(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	y, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	if y < constants.MinFiscalYear || y > constants.MaxFiscalYear {
		return nil, errors.Errorf("fiscal year %d out of range", y)
	}
	return &y, nil
}
