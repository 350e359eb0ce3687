package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/http/response"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/repos"
)

// IntrospectionHandler exposes read-only lookups over leads and job runs
// for operators debugging a stuck conversation or a stuck queue entry.
type IntrospectionHandler struct {
	leads   repos.LeadRepo
	jobRuns repos.JobRunRepo
}

func NewIntrospectionHandler(leads repos.LeadRepo, jobRuns repos.JobRunRepo) *IntrospectionHandler {
	return &IntrospectionHandler{leads: leads, jobRuns: jobRuns}
}

// GET /{base}/leads/:lead_id
func (h *IntrospectionHandler) GetLead(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("lead_id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_lead_id", err)
		return
	}
	lead, err := h.leads.GetByLeadID(c.Request.Context(), nil, leadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.RespondError(c, http.StatusNotFound, "lead_not_found", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "lead_lookup_failed", err)
		return
	}
	if lead == nil {
		response.RespondError(c, http.StatusNotFound, "lead_not_found", gorm.ErrRecordNotFound)
		return
	}
	response.RespondOK(c, lead)
}

// GET /{base}/jobs/:job_id
func (h *IntrospectionHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobRuns.GetByID(c.Request.Context(), nil, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.RespondError(c, http.StatusNotFound, "job_not_found", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "job_lookup_failed", err)
		return
	}
	response.RespondOK(c, job)
}
