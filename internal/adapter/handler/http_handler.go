package handler

import (
	"bytes"
	"context"
	"crypto/subtle"
	_ "embed"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/rl1809/lootsheet/internal/core/domain"
	"github.com/rl1809/lootsheet/internal/core/service"
)

const maxBodyBytes = 64 << 10

//go:embed schemas/request.schema.json
var requestSchemaJSON string

var requestSchema = jsonschema.MustCompileString("request.schema.json", requestSchemaJSON)

// Submitter hands a request to an authority.
type Submitter interface {
	Submit(ctx context.Context, req domain.Request) (domain.Request, error)
}

// SheetService is the authority-local part of the service the HTTP API
// exposes.
type SheetService interface {
	Sheet(ctx context.Context, partyID string, isAuthority bool) (*service.SheetView, error)
	ConvertLoot(ctx context.Context, exec service.ExecutionContext, containerID string) (*service.ConversionResult, error)
	DistributeCoins(ctx context.Context, exec service.ExecutionContext, containerID string) ([]service.Share, error)
}

type HTTPHandler struct {
	requester      Submitter
	sheets         SheetService
	authorityID    string
	authorityToken string
	settings       service.Settings
	logger         *zap.Logger
}

type RequestHTTPResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	Code            string `json:"code,omitempty"`
	RequestID       string `json:"requestId,omitempty"`
	AuthorityUserID string `json:"authorityUserId,omitempty"`
}

// NewHTTPHandler serves the API. Callers presenting authorityToken as a
// bearer token act as authorityID; an empty token closes the authority-only
// endpoints.
func NewHTTPHandler(requester Submitter, sheets SheetService, authorityID, authorityToken string, settings service.Settings, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{
		requester:      requester,
		sheets:         sheets,
		authorityID:    authorityID,
		authorityToken: authorityToken,
		settings:       settings,
		logger:         logger,
	}
}

// Routes registers every endpoint on mux.
func (h *HTTPHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("POST /api/requests", h.SubmitRequest)
	mux.HandleFunc("GET /api/sheets/{id}", h.GetSheet)
	mux.HandleFunc("POST /api/containers/{id}/convert", h.authorityOnly(h.ConvertLoot))
	mux.HandleFunc("POST /api/containers/{id}/distribute", h.authorityOnly(h.DistributeCoins))
}

func (h *HTTPHandler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, RequestHTTPResponse{Message: "invalid request body"})
		return
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		writeJSON(w, http.StatusBadRequest, RequestHTTPResponse{Message: "invalid request body"})
		return
	}
	if err := requestSchema.Validate(doc); err != nil {
		writeJSON(w, http.StatusBadRequest, RequestHTTPResponse{
			Message: err.Error(),
			Code:    string(service.CodeInvalidRequest),
		})
		return
	}

	var req domain.Request
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, RequestHTTPResponse{Message: "invalid request body"})
		return
	}

	sent, err := h.requester.Submit(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, RequestHTTPResponse{
		Success:         true,
		Message:         "request dispatched",
		RequestID:       sent.ID,
		AuthorityUserID: sent.AuthorityUserID,
	})
}

func (h *HTTPHandler) GetSheet(w http.ResponseWriter, r *http.Request) {
	sheet, err := h.sheets.Sheet(r.Context(), r.PathValue("id"), h.isAuthority(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

func (h *HTTPHandler) ConvertLoot(w http.ResponseWriter, r *http.Request) {
	res, err := h.sheets.ConvertLoot(r.Context(), h.exec(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *HTTPHandler) DistributeCoins(w http.ResponseWriter, r *http.Request) {
	shares, err := h.sheets.DistributeCoins(r.Context(), h.exec(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if shares == nil {
		shares = []service.Share{}
	}
	writeJSON(w, http.StatusOK, shares)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) isAuthority(r *http.Request) bool {
	if h.authorityToken == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(token), []byte(h.authorityToken)) == 1
}

func (h *HTTPHandler) authorityOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.isAuthority(r) {
			writeJSON(w, http.StatusForbidden, RequestHTTPResponse{Message: "authority token required"})
			return
		}
		next(w, r)
	}
}

func (h *HTTPHandler) exec() service.ExecutionContext {
	return service.ExecutionContext{
		CallingUser: h.authorityID,
		Speaker:     h.authorityID,
		Settings:    h.settings,
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	code := service.GetCode(err)
	status := httpStatus(code)
	message := "internal error"
	if e, ok := asServiceError(err); ok {
		message = e.Reason
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, RequestHTTPResponse{Message: message, Code: string(code)})
}

func httpStatus(code service.Code) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeInsufficientFunds:
		return http.StatusPaymentRequired
	case service.CodeNoActiveAuthority:
		return http.StatusServiceUnavailable
	case service.CodeInvalidRequest:
		return http.StatusBadRequest
	case service.CodeDuplicateRequest:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
