package advisory

import (
	"context"
	"io"
	"strings"

	"csafcms/internal/core/apperror"
	"csafcms/internal/core/id"
	"csafcms/internal/domain/document"
	"csafcms/internal/domain/filter"
	"csafcms/pkg/logger"
)

const entityName = "advisory"

// Service provides advisory CRUD on top of a document.Store.
// Workflow transitions and CSAF schema validation are not part of it.
type Service struct {
	store document.Store
	hooks *HookRegistry
	log   *logger.Logger
}

// NewService creates an advisory service.
func NewService(store document.Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	svc := &Service{
		store: store,
		hooks: NewHookRegistry(),
		log:   log.WithComponent("advisory"),
	}
	svc.hooks.OnBeforeCreate(validateAdvisory)
	svc.hooks.OnBeforeUpdate(validateAdvisory)
	return svc
}

// Hooks returns the hook registry for external registration.
func (s *Service) Hooks() *HookRegistry {
	return s.hooks
}

// List returns information on every advisory matching all extra expressions.
func (s *Service) List(ctx context.Context, extra ...filter.Expression) ([]Information, error) {
	selector, err := advisorySelector(extra)
	if err != nil {
		return nil, err
	}

	docs, err := s.store.Find(ctx, selector, infoFields)
	if err != nil {
		return nil, err
	}

	result := make([]Information, 0, len(docs))
	for _, doc := range docs {
		info, err := informationFrom(doc)
		if err != nil {
			return nil, withAdvisoryID(err, doc.ID())
		}
		result = append(result, info)
	}
	return result, nil
}

// Export streams the stored documents of the advisories matching all extra
// expressions as the store's find answer. The caller closes the reader.
func (s *Service) Export(ctx context.Context, extra ...filter.Expression) (io.ReadCloser, error) {
	selector, err := advisorySelector(extra)
	if err != nil {
		return nil, err
	}
	return s.store.FindStream(ctx, selector, nil)
}

// advisorySelector matches documents of type Advisory that satisfy extra.
func advisorySelector(extra []filter.Expression) (filter.Selector, error) {
	isAdvisory, err := filter.Equal(TypeAdvisory, TypeField.Segments()...)
	if err != nil {
		return nil, err
	}

	var expr filter.Expression = isAdvisory
	if len(extra) > 0 {
		expr, err = filter.And(append([]filter.Expression{isAdvisory}, extra...)...)
		if err != nil {
			return nil, err
		}
	}
	return filter.Compile(expr)
}

// Get returns the advisory with the given id.
func (s *Service) Get(ctx context.Context, advisoryID string) (*Advisory, error) {
	doc, _, err := s.store.Read(ctx, advisoryID)
	if err != nil {
		return nil, s.normalizeErr(err, advisoryID)
	}

	docType, err := document.ExtractString(TypeField, doc)
	if err != nil {
		return nil, withAdvisoryID(err, advisoryID)
	}
	if docType != TypeAdvisory {
		return nil, apperror.NewNotFound(entityName, advisoryID)
	}

	adv, err := advisoryFrom(doc)
	if err != nil {
		return nil, withAdvisoryID(err, advisoryID)
	}
	return adv, nil
}

// Create stores a new advisory in state Draft and returns its id and revision.
func (s *Service) Create(ctx context.Context, owner string, csaf map[string]any) (string, string, error) {
	adv := &Advisory{
		ID:            id.New(),
		Owner:         owner,
		WorkflowState: WorkflowDraft,
		CSAF:          csaf,
	}
	if err := s.hooks.Run(ctx, BeforeCreate, adv); err != nil {
		return "", "", err
	}

	rev, err := s.store.Create(ctx, adv.ID, adv.body())
	if err != nil {
		return "", "", s.normalizeErr(err, adv.ID)
	}
	adv.Revision = rev

	s.runAfter(ctx, AfterCreate, adv)
	s.log.WithContext(ctx).WithDocument(adv.ID, rev).Info("advisory created")
	return adv.ID, rev, nil
}

// Update replaces owner and CSAF document of an advisory if revision is
// current and returns the new revision. The workflow state is kept.
func (s *Service) Update(ctx context.Context, advisoryID, revision, owner string, csaf map[string]any) (string, error) {
	current, err := s.Get(ctx, advisoryID)
	if err != nil {
		return "", err
	}

	adv := &Advisory{
		ID:            advisoryID,
		Revision:      revision,
		Owner:         owner,
		WorkflowState: current.WorkflowState,
		CSAF:          csaf,
	}
	if err := s.hooks.Run(ctx, BeforeUpdate, adv); err != nil {
		return "", err
	}

	rev, err := s.store.Update(ctx, advisoryID, revision, adv.body())
	if err != nil {
		return "", s.normalizeErr(err, advisoryID)
	}
	adv.Revision = rev

	s.runAfter(ctx, AfterUpdate, adv)
	s.log.WithContext(ctx).WithDocument(advisoryID, rev).Info("advisory updated")
	return rev, nil
}

// Delete removes an advisory if revision is current.
func (s *Service) Delete(ctx context.Context, advisoryID, revision string) error {
	if err := s.store.Delete(ctx, advisoryID, revision); err != nil {
		return s.normalizeErr(err, advisoryID)
	}

	s.runAfter(ctx, AfterDelete, &Advisory{ID: advisoryID, Revision: revision})
	s.log.WithContext(ctx).WithDocument(advisoryID, revision).Info("advisory deleted")
	return nil
}

// DeleteMany removes several advisories in one batch. On PARTIAL_FAILURE the
// items not listed in the error are deleted.
func (s *Service) DeleteMany(ctx context.Context, items []document.IDAndRevision) error {
	if err := s.store.BulkDelete(ctx, items); err != nil {
		return err
	}
	s.log.WithContext(ctx).Infow("advisories deleted", "count", len(items))
	return nil
}

func (s *Service) runAfter(ctx context.Context, event HookEvent, adv *Advisory) {
	if err := s.hooks.Run(ctx, event, adv); err != nil {
		s.log.WithContext(ctx).WithDocument(adv.ID, adv.Revision).Warnw("advisory hook failed",
			"event", string(event),
			"error", err,
		)
	}
}

// normalizeErr names the advisory in store NOT_FOUND and CONFLICT errors.
func (s *Service) normalizeErr(err error, advisoryID string) error {
	appErr, ok := apperror.AsAppError(err)
	if !ok {
		return apperror.NewInternal(err).WithDetail("entity", entityName)
	}
	switch appErr.Code {
	case apperror.CodeNotFound:
		return apperror.NewNotFound(entityName, advisoryID).WithCause(err)
	case apperror.CodeConflict:
		rev, _ := appErr.Details["revision"].(string)
		return apperror.NewConflict(entityName, advisoryID, rev).WithCause(err)
	}
	return err
}

// withAdvisoryID attaches the id of the malformed advisory to an extraction error.
func withAdvisoryID(err error, advisoryID string) error {
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr.WithDetail("advisoryId", advisoryID)
	}
	return err
}

func validateAdvisory(_ context.Context, adv *Advisory) error {
	if strings.TrimSpace(adv.Owner) == "" {
		return apperror.NewInvalidRequest("owner must not be empty")
	}
	if adv.CSAF == nil {
		return apperror.NewInvalidRequest("csaf document must not be empty")
	}
	if _, ok := adv.CSAF["document"].(map[string]any); !ok {
		return apperror.NewInvalidRequest("csaf document must contain a document object").
			WithDetail("path", "csaf.document")
	}
	return nil
}
