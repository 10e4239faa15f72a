package dto

import (
	"csafcms/internal/domain/advisory"
	"csafcms/internal/domain/document"
)

// AdvisoryFilter are the list query parameters.
type AdvisoryFilter struct {
	Title         string `form:"title"`
	Owner         string `form:"owner"`
	WorkflowState string `form:"workflowState" binding:"omitempty,oneof=Draft Review Approved RfPublication Published"`
}

// CreateAdvisoryRequest creates an advisory.
type CreateAdvisoryRequest struct {
	Owner string         `json:"owner" binding:"required"`
	CSAF  map[string]any `json:"csaf" binding:"required"`
}

// UpdateAdvisoryRequest replaces owner and CSAF document.
type UpdateAdvisoryRequest struct {
	Owner string         `json:"owner" binding:"required"`
	CSAF  map[string]any `json:"csaf" binding:"required"`
}

// DeleteAdvisoriesRequest deletes several advisories at once.
type DeleteAdvisoriesRequest struct {
	Items []document.IDAndRevision `json:"items" binding:"required,min=1"`
}

// AdvisoryResponse is the full advisory.
type AdvisoryResponse struct {
	ID            string         `json:"advisoryId"`
	Revision      string         `json:"revision"`
	Owner         string         `json:"owner"`
	WorkflowState string         `json:"workflowState"`
	CSAF          map[string]any `json:"csaf"`
}

// FromAdvisory creates AdvisoryResponse from advisory.Advisory.
func FromAdvisory(a *advisory.Advisory) AdvisoryResponse {
	return AdvisoryResponse{
		ID:            a.ID,
		Revision:      a.Revision,
		Owner:         a.Owner,
		WorkflowState: string(a.WorkflowState),
		CSAF:          a.CSAF,
	}
}
