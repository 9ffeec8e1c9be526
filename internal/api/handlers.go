package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/leadtrail/leadtrail/internal/lead"
)

type createCampaignRequest struct {
	Name           string   `json:"name"`
	CompanyNumbers []string `json:"company_numbers"`
}

type addCompanyNumbersRequest struct {
	CompanyNumbers []string `json:"company_numbers"`
}

type approveDomainRequest struct {
	Domain     string `json:"domain"`
	ApprovedBy string `json:"approved_by"`
}

type employeeReviewRequest struct {
	ApprovedURLs []string `json:"approved_employee_urls"`
	ReviewedBy   string   `json:"reviewed_by"`
}

type quotasResponse struct {
	SERP   lead.SERPQuota  `json:"serp"`
	Hunter *hunterQuotaDTO `json:"hunter,omitempty"`
	Snov   *snovQuotaDTO   `json:"snov,omitempty"`
}

type hunterQuotaDTO struct {
	AvailableCredits float64 `json:"available_credits"`
	PlanName         string  `json:"plan_name,omitempty"`
	Error            string  `json:"error,omitempty"`
}

type snovQuotaDTO struct {
	Balance float64 `json:"balance"`
	Error   string  `json:"error,omitempty"`
}

func (s *Server) createCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "campaign name is required")
		return
	}

	id, err := s.idGen.NewID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "generate campaign id")
		return
	}
	now := s.clock.Now()
	campaign := lead.Campaign{ID: id, Name: req.Name, CreatedAt: now, UpdatedAt: now}
	if err := s.store.CreateCampaign(r.Context(), campaign); err != nil {
		writeError(w, http.StatusInternalServerError, "create campaign")
		return
	}

	added := 0
	if len(req.CompanyNumbers) > 0 {
		added, err = s.store.AddCompanyNumbers(r.Context(), id, req.CompanyNumbers)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "add company numbers")
			return
		}
	}
	writeJSON(w, http.StatusCreated, map[string]any{"campaign": campaign, "companies_added": added})
}

func (s *Server) getCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := s.store.GetCampaign(r.Context(), chi.URLParam(r, "campaign_id"))
	if err != nil {
		if errors.Is(err, lead.ErrNotFound) {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "fetch campaign")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaign": campaign})
}

func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaign_id")
	if _, err := s.store.GetCampaign(r.Context(), campaignID); err != nil {
		if errors.Is(err, lead.ErrNotFound) {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "fetch campaign")
		return
	}
	progress, err := s.store.Progress(r.Context(), campaignID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "fetch progress")
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) addCompanyNumbers(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaign_id")
	var req addCompanyNumbersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.CompanyNumbers) == 0 {
		writeError(w, http.StatusBadRequest, "company_numbers required")
		return
	}
	if _, err := s.store.GetCampaign(r.Context(), campaignID); err != nil {
		if errors.Is(err, lead.ErrNotFound) {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "fetch campaign")
		return
	}
	added, err := s.store.AddCompanyNumbers(r.Context(), campaignID, req.CompanyNumbers)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "add company numbers")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"companies_added": added})
}

func (s *Server) getCompany(w http.ResponseWriter, r *http.Request) {
	company, err := s.store.GetCompany(r.Context(), chi.URLParam(r, "company_id"))
	if err != nil {
		if errors.Is(err, lead.ErrNotFound) {
			writeError(w, http.StatusNotFound, "company not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "fetch company")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"company": company})
}

func (s *Server) getHunt(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetHuntRecord(r.Context(), chi.URLParam(r, "hunt_id"))
	if err != nil {
		if errors.Is(err, lead.ErrNotFound) {
			writeError(w, http.StatusNotFound, "hunt record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "fetch hunt record")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) approveDomain(w http.ResponseWriter, r *http.Request) {
	huntID := chi.URLParam(r, "hunt_id")
	var req approveDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Domain) == "" {
		writeError(w, http.StatusBadRequest, "domain required")
		return
	}
	err := s.store.ApproveDomain(r.Context(), huntID, req.Domain, req.ApprovedBy, s.clock.Now())
	switch {
	case errors.Is(err, lead.ErrNotFound):
		writeError(w, http.StatusNotFound, "hunt record not found")
		return
	case errors.Is(err, lead.ErrNotCandidate):
		writeError(w, http.StatusUnprocessableEntity, "domain is not one of the hunt candidates")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "approve domain")
		return
	}
	rec, err := s.store.GetHuntRecord(r.Context(), huntID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "fetch hunt record")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) submitEmployeeReview(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "company_id")
	var req employeeReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if _, err := s.store.GetCompany(r.Context(), companyID); err != nil {
		if errors.Is(err, lead.ErrNotFound) {
			writeError(w, http.StatusNotFound, "company not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "fetch company")
		return
	}

	id, err := s.idGen.NewID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "generate review id")
		return
	}
	review := lead.EmployeeReview{
		ID:           id,
		CompanyID:    companyID,
		ApprovedURLs: req.ApprovedURLs,
		ReviewedBy:   req.ReviewedBy,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.store.SaveEmployeeReview(r.Context(), review); err != nil {
		writeError(w, http.StatusInternalServerError, "save employee review")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"review": review})
}

func (s *Server) getQuotas(w http.ResponseWriter, r *http.Request) {
	serpQuota, err := s.store.GetSERPQuota(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "fetch search quota")
		return
	}
	resp := quotasResponse{SERP: serpQuota}

	if s.hunter != nil {
		dto := &hunterQuotaDTO{}
		if quota, err := s.hunter.CheckQuota(r.Context()); err != nil {
			dto.Error = err.Error()
		} else {
			dto.AvailableCredits = quota.AvailableCredits
			dto.PlanName = quota.PlanName
		}
		resp.Hunter = dto
	}
	if s.snov != nil {
		dto := &snovQuotaDTO{}
		if balance, err := s.snov.CheckBalance(r.Context()); err != nil {
			dto.Error = err.Error()
		} else {
			dto.Balance = balance
		}
		resp.Snov = dto
	}
	writeJSON(w, http.StatusOK, resp)
}
