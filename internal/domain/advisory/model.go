// Package advisory stores CSAF advisories as revisioned documents.
package advisory

import (
	"csafcms/internal/domain/document"
	"csafcms/internal/domain/filter"
)

// TypeAdvisory marks advisory documents in the shared database.
const TypeAdvisory = "Advisory"

// WorkflowState is the editorial state of an advisory.
type WorkflowState string

const (
	WorkflowDraft         WorkflowState = "Draft"
	WorkflowReview        WorkflowState = "Review"
	WorkflowApproved      WorkflowState = "Approved"
	WorkflowRfPublication WorkflowState = "RfPublication"
	WorkflowPublished     WorkflowState = "Published"
)

// Stored field references.
var (
	TypeField          = filter.MustField("type")
	OwnerField         = filter.MustField("owner")
	WorkflowStateField = filter.MustField("workflowState")
	CSAFField          = filter.MustField("csaf")
	TitleField         = filter.MustField("csaf", "document", "title")
	TrackingIDField    = filter.MustField("csaf", "document", "tracking", "id")
)

// infoFields is the projection List requests.
var infoFields = []filter.Field{OwnerField, WorkflowStateField, TitleField, TrackingIDField}

// Information is the list view of an advisory.
type Information struct {
	ID            string        `json:"advisoryId"`
	Revision      string        `json:"revision"`
	Owner         string        `json:"owner"`
	WorkflowState WorkflowState `json:"workflowState"`
	Title         string        `json:"title"`
	TrackingID    string        `json:"documentTrackingId"`
}

// Advisory is a full advisory with its CSAF document.
type Advisory struct {
	ID            string
	Revision      string
	Owner         string
	WorkflowState WorkflowState
	CSAF          map[string]any
}

// body is the stored representation.
func (a *Advisory) body() map[string]any {
	return map[string]any{
		TypeField.Dotted():          TypeAdvisory,
		OwnerField.Dotted():         a.Owner,
		WorkflowStateField.Dotted(): string(a.WorkflowState),
		CSAFField.Dotted():          a.CSAF,
	}
}

func informationFrom(doc document.Document) (Information, error) {
	info := Information{ID: doc.ID(), Revision: doc.Rev()}

	var err error
	if info.Owner, err = document.ExtractString(OwnerField, doc); err != nil {
		return Information{}, err
	}
	state, err := document.ExtractString(WorkflowStateField, doc)
	if err != nil {
		return Information{}, err
	}
	info.WorkflowState = WorkflowState(state)
	if info.Title, err = document.ExtractString(TitleField, doc); err != nil {
		return Information{}, err
	}
	if info.TrackingID, err = document.ExtractString(TrackingIDField, doc); err != nil {
		return Information{}, err
	}
	return info, nil
}

func advisoryFrom(doc document.Document) (*Advisory, error) {
	info, err := informationFrom(doc)
	if err != nil {
		return nil, err
	}
	csaf, _, err := document.Extract[map[string]any](CSAFField, doc)
	if err != nil {
		return nil, err
	}
	return &Advisory{
		ID:            info.ID,
		Revision:      info.Revision,
		Owner:         info.Owner,
		WorkflowState: info.WorkflowState,
		CSAF:          csaf,
	}, nil
}
