package rest

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	domainErrors "github.com/davidleathers/advice-risk-scorer/internal/domain/errors"
	"github.com/davidleathers/advice-risk-scorer/internal/domain/submission"
	"github.com/davidleathers/advice-risk-scorer/internal/service/fraud"
	registrysvc "github.com/davidleathers/advice-risk-scorer/internal/service/registry"
	"github.com/davidleathers/advice-risk-scorer/internal/service/similarity"
)

const maxBodyBytes = 1 << 20

// RegistryService is the slice of the registry lookup the API exposes
type RegistryService interface {
	ByID(ctx context.Context, regNo string) (*registrysvc.LookupResult, error)
	VerifyCompanyListing(ctx context.Context, companyName string) (*registrysvc.CompanyListing, error)
	Search(ctx context.Context, name string, limit int) ([]registrysvc.Candidate, error)
}

// Handlers serves the advice, advisor and registry endpoints
type Handlers struct {
	analyzer fraud.Service
	registry RegistryService
	errors   *errorHandler
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandlers creates the API handlers
func NewHandlers(analyzer fraud.Service, registry RegistryService, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		analyzer: analyzer,
		registry: registry,
		errors:   &errorHandler{logger: logger},
		logger:   logger,
		now:      time.Now,
	}
}

// CheckAdvice handles POST /api/v1/advice/check
func (h *Handlers) CheckAdvice(w http.ResponseWriter, r *http.Request) {
	var sub submission.Submission
	if err := decodeBody(w, r, &sub); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: messageInvalidInput, Details: err.Error()})
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), sub)
	if err != nil {
		// A failed advisor verification is reported as a bad request,
		// matching validation failures.
		if domainErrors.IsType(err, domainErrors.ErrorTypeRegistryUnavailable) {
			h.errors.handleWithStatus(w, r, err, http.StatusBadRequest)
			return
		}
		h.errors.handle(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type verifyAdvisorRequest struct {
	RegistrationID string `json:"registrationId"`
	Name           string `json:"name"`
}

type advisorView struct {
	RegistrationID string     `json:"registrationId"`
	Name           string     `json:"name"`
	Category       string     `json:"category,omitempty"`
	ValidFrom      *time.Time `json:"validFrom,omitempty"`
	ValidTo        *time.Time `json:"validTo,omitempty"`
	Active         bool       `json:"active"`
}

type verifyAdvisorResponse struct {
	Exists    bool         `json:"exists"`
	NameScore *int         `json:"nameScore,omitempty"`
	Advisor   *advisorView `json:"advisor,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// VerifyAdvisor handles POST /api/v1/advisors/verify
func (h *Handlers) VerifyAdvisor(w http.ResponseWriter, r *http.Request) {
	var req verifyAdvisorRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, verifyAdvisorResponse{Error: messageInvalidInput})
		return
	}
	if strings.TrimSpace(req.RegistrationID) == "" || strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, verifyAdvisorResponse{Error: "Registration ID and name are required"})
		return
	}

	res, err := h.registry.ByID(r.Context(), req.RegistrationID)
	if err != nil {
		h.logger.Error("advisor verification failed",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.String("reg_id", req.RegistrationID),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, verifyAdvisorResponse{Error: messageInternalError})
		return
	}
	if !res.Found || res.Entry == nil {
		writeJSON(w, http.StatusOK, verifyAdvisorResponse{Error: "Advisor with this registration ID not found"})
		return
	}

	score := nameScore(req.Name, res.Entry.EntityName)
	writeJSON(w, http.StatusOK, verifyAdvisorResponse{
		Exists:    true,
		NameScore: &score,
		Advisor: &advisorView{
			RegistrationID: res.Entry.RegNo,
			Name:           res.Entry.EntityName,
			Category:       res.Entry.Category,
			ValidFrom:      res.Entry.ValidFrom,
			ValidTo:        res.Entry.ValidTo,
			Active:         res.Entry.ActiveAt(h.now()),
		},
	})
}

type verifyCompanyRequest struct {
	CompanyName string `json:"companyName"`
}

// VerifyCompany handles POST /api/v1/companies/verify
func (h *Handlers) VerifyCompany(w http.ResponseWriter, r *http.Request) {
	var req verifyCompanyRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: messageInvalidInput, Details: err.Error()})
		return
	}
	if strings.TrimSpace(req.CompanyName) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Company name is required"})
		return
	}

	listing, err := h.registry.VerifyCompanyListing(r.Context(), req.CompanyName)
	if err != nil {
		h.errors.handle(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

type searchResponse struct {
	Query   string                  `json:"query"`
	Results []registrysvc.Candidate `json:"results"`
}

// SearchRegistry handles GET /api/v1/registry/search?name=&limit=
func (h *Handlers) SearchRegistry(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("name"))
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Query parameter name is required"})
		return
	}

	limit := registrysvc.MaxSearchResults
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	results, err := h.registry.Search(r.Context(), name, limit)
	if err != nil {
		h.errors.handle(w, r, err)
		return
	}
	if results == nil {
		results = []registrysvc.Candidate{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: name, Results: results})
}

// decodeBody reads a single JSON object of bounded size
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// nameScore is the whole-string edit similarity of two names as a percentage
func nameScore(claimed, canonical string) int {
	a := strings.ToLower(strings.TrimSpace(claimed))
	b := strings.ToLower(strings.TrimSpace(canonical))
	if a == "" || b == "" {
		return 0
	}
	return int(math.Round(similarity.EditRatio(a, b) * 100))
}
