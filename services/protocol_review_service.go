package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"protocol-review-api/models"
	"protocol-review-api/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// TransitionRequest is the payload of a workflow action.
type TransitionRequest struct {
	Action              string `json:"action"`
	Decision            string `json:"decision"`
	Comment             string `json:"comment"`
	PrimaryReviewerID   int    `json:"primary_reviewer_id"`
	SecondaryReviewerID *int   `json:"secondary_reviewer_id"`
	ReviewType          string `json:"review_type"`
}

// NewProtocolInput describes a protocol authored by an investigator.
type NewProtocolInput struct {
	Title        string          `json:"title"`
	ProtocolType string          `json:"protocol_type"`
	Description  string          `json:"description"`
	FormData     json.RawMessage `json:"form_data"`
	Submit       bool            `json:"submit"`
}

// ProtocolReviewService applies workflow actions to protocol applications.
type ProtocolReviewService struct {
	store              ProtocolStore
	reviewers          ReviewerDirectory
	notifier           Notifier
	log                *zap.SugaredLogger
	now                func() time.Time
	newUID             func() string
	registrationDigits int
}

// ProtocolReviewOption customizes a ProtocolReviewService.
type ProtocolReviewOption func(*ProtocolReviewService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) ProtocolReviewOption {
	return func(s *ProtocolReviewService) { s.now = now }
}

// WithNotifier sets the post-commit notifier.
func WithNotifier(n Notifier) ProtocolReviewOption {
	return func(s *ProtocolReviewService) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithRegistrationDigits sets the zero-padded width of the serial in registration numbers.
func WithRegistrationDigits(digits int) ProtocolReviewOption {
	return func(s *ProtocolReviewService) {
		if digits > 0 {
			s.registrationDigits = digits
		}
	}
}

// NewProtocolReviewService wires the transition engine.
func NewProtocolReviewService(store ProtocolStore, reviewers ReviewerDirectory, log *zap.SugaredLogger, opts ...ProtocolReviewOption) *ProtocolReviewService {
	s := &ProtocolReviewService{
		store:              store,
		reviewers:          reviewers,
		notifier:           nopNotifier{},
		log:                log,
		now:                time.Now,
		newUID:             uuid.NewString,
		registrationDigits: 5,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateApplication records a new protocol authored by an investigator, as a
// draft or directly submitted.
func (s *ProtocolReviewService) CreateApplication(ctx context.Context, actor Actor, input NewProtocolInput) (*models.ProtocolApplication, error) {
	if actor.Type != models.ActorInvestigator || actor.ID <= 0 {
		return nil, fmt.Errorf("%w: only investigators can author protocols", ErrActorNotPermitted)
	}

	title := utils.SanitizeInput(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	protocolType := models.ProtocolType(normalizeToken(input.ProtocolType))
	if !protocolType.Valid() {
		return nil, fmt.Errorf("%w: unknown protocol type %q", ErrInvalidInput, input.ProtocolType)
	}
	if len(input.FormData) > 0 && !json.Valid(input.FormData) {
		return nil, fmt.Errorf("%w: form_data must be valid JSON", ErrInvalidInput)
	}

	now := s.now().UTC()
	app := models.ProtocolApplication{
		ProtocolType:   protocolType,
		Title:          title,
		InvestigatorID: actor.ID,
		Status:         models.StatusDraft,
		Description:    strings.TrimSpace(input.Description),
		FormData:       datatypes.JSON(input.FormData),
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var event *models.ReviewEvent
	if input.Submit {
		submitted := now
		app.Status = models.StatusSubmitted
		app.SubmissionDate = &submitted
		event = &models.ReviewEvent{
			EventUID:   s.newUID(),
			ActorType:  models.ActorInvestigator,
			ActorID:    actor.ID,
			Action:     models.EventSubmit,
			FromStatus: models.StatusDraft,
			ToStatus:   models.StatusSubmitted,
			CreatedAt:  now,
		}
	}

	if err := s.store.CreateApplication(ctx, &app, event); err != nil {
		s.log.Errorw("failed to create protocol application", "actor", actor.String(), "error", err)
		return nil, err
	}

	s.log.Infow("protocol application created",
		"application_id", app.ID,
		"investigator_id", app.InvestigatorID,
		"status", app.Status,
	)
	return &app, nil
}

// GetApplication returns one application visible to actor.
func (s *ProtocolReviewService) GetApplication(ctx context.Context, actor Actor, id int) (*models.ProtocolApplication, error) {
	app, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, *app) {
		return nil, fmt.Errorf("%w: %s cannot view application %d", ErrActorNotPermitted, actor, id)
	}
	return app, nil
}

// ListApplications lists applications. Investigators only see their own.
func (s *ProtocolReviewService) ListApplications(ctx context.Context, actor Actor, filter ApplicationFilter) ([]models.ProtocolApplication, error) {
	switch actor.Type {
	case models.ActorOffice:
	case models.ActorInvestigator:
		filter.InvestigatorID = actor.ID
	default:
		return nil, ErrActorNotPermitted
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
	}
	return s.store.ListApplications(ctx, filter)
}

// StatusHistory returns the status change log of one application.
func (s *ProtocolReviewService) StatusHistory(ctx context.Context, actor Actor, id int) ([]models.ProtocolStatusHistory, error) {
	if _, err := s.GetApplication(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.store.ListStatusHistory(ctx, id)
}

// SubmitTransition validates req against the current status of the
// application and commits the resulting record and review event together.
// Every validation failure is reported before anything is written.
func (s *ProtocolReviewService) SubmitTransition(ctx context.Context, applicationID int, actor Actor, req TransitionRequest) (*models.ProtocolApplication, error) {
	current, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	key, err := normalizeTransitionRequest(req.Action, req.Decision)
	if err != nil {
		return nil, err
	}
	rule, err := lookupTransition(current.Status, key)
	if err != nil {
		return nil, err
	}

	if !actor.canAct(rule.actor, *current) {
		return nil, fmt.Errorf("%w: %s cannot %s application %d", ErrActorNotPermitted, actor, key, applicationID)
	}

	comment := utils.SanitizeInput(req.Comment)
	if comment == "" && !rule.commentOptional {
		return nil, fmt.Errorf("%w for %s", ErrMissingComment, key)
	}

	now := s.now().UTC()

	var assignment *models.ReviewerAssignment
	if rule.effect == effectAssign {
		resolved, err := s.resolveAssignment(ctx, req, now)
		if err != nil {
			return nil, err
		}
		assignment = &resolved
	}

	updated := s.applyTransition(*current, rule, now, assignment)
	event, err := s.buildEvent(*current, updated, actor, key, rule, comment, assignment, now)
	if err != nil {
		return nil, err
	}

	commit := TransitionCommit{
		Updated:         updated,
		ExpectedStatus:  current.Status,
		ExpectedVersion: current.Version,
		Event:           event,
	}
	if updated.Status != current.Status {
		commit.History = statusHistory(*current, updated, actor, key, comment, now)
	}

	if err := s.store.CommitTransition(ctx, commit); err != nil {
		if errors.Is(err, ErrConcurrentModification) {
			s.log.Warnw("transition lost a concurrent update",
				"application_id", applicationID,
				"action", key.String(),
				"expected_version", current.Version,
			)
		} else {
			s.log.Errorw("failed to commit transition",
				"application_id", applicationID,
				"action", key.String(),
				"error", err,
			)
		}
		return nil, err
	}

	s.log.Infow("protocol transition committed",
		"application_id", applicationID,
		"actor", actor.String(),
		"action", key.String(),
		"from", current.Status,
		"to", updated.Status,
		"event_uid", event.EventUID,
	)
	s.notifier.TransitionCommitted(detachedContext(ctx), updated, event)
	return &updated, nil
}

// resolveAssignment validates the reviewer selection, reloading the pool once
// when a reviewer is unknown to the cached copy.
func (s *ProtocolReviewService) resolveAssignment(ctx context.Context, req TransitionRequest, now time.Time) (models.ReviewerAssignment, error) {
	pool, err := s.reviewers.ActiveReviewers(ctx, false)
	if err != nil {
		return models.ReviewerAssignment{}, err
	}
	assignment, err := ResolveAssignment(pool, req.PrimaryReviewerID, req.SecondaryReviewerID, req.ReviewType, now)
	if !errors.Is(err, ErrUnknownReviewer) {
		return assignment, err
	}

	pool, refreshErr := s.reviewers.ActiveReviewers(ctx, true)
	if refreshErr != nil {
		return models.ReviewerAssignment{}, refreshErr
	}
	return ResolveAssignment(pool, req.PrimaryReviewerID, req.SecondaryReviewerID, req.ReviewType, now)
}

// applyTransition returns the record that results from applying rule to
// current. current itself is left untouched.
func (s *ProtocolReviewService) applyTransition(current models.ProtocolApplication, rule transitionRule, now time.Time, assignment *models.ReviewerAssignment) models.ProtocolApplication {
	next := current
	next.Status = rule.target(current.Status)

	switch rule.effect {
	case effectSubmit:
		submitted := now
		next.SubmissionDate = &submitted
	case effectTriage:
		triaged := now
		next.TriageDate = &triaged
	case effectAssign:
		started := now
		next.ReviewStartDate = &started
		next = next.WithAssignment(assignment)
	case effectApprove:
		approved := now
		expires := approved.AddDate(1, 0, 0)
		next.ApprovalDate = &approved
		next.ExpirationDate = &expires
		if next.RegistrationNumber == nil {
			number := s.registrationNumber(next, now)
			next.RegistrationNumber = &number
		}
	}

	if !next.Status.HoldsAssignment() && next.Assignment() != nil {
		next = next.WithAssignment(nil)
	}

	next.Version = current.Version + 1
	next.UpdatedAt = now
	return next
}

func (s *ProtocolReviewService) registrationNumber(app models.ProtocolApplication, now time.Time) string {
	return fmt.Sprintf("%s-%d-%0*d", strings.ToUpper(string(app.ProtocolType)), now.Year(), s.registrationDigits, app.ID)
}

func (s *ProtocolReviewService) buildEvent(current, updated models.ProtocolApplication, actor Actor, key transitionKey, rule transitionRule, comment string, assignment *models.ReviewerAssignment, now time.Time) (models.ReviewEvent, error) {
	event := models.ReviewEvent{
		EventUID:      s.newUID(),
		ApplicationID: current.ID,
		ActorType:     actor.Type,
		ActorID:       actor.ID,
		Action:        rule.event,
		Comment:       comment,
		FromStatus:    current.Status,
		ToStatus:      updated.Status,
		CreatedAt:     now,
	}

	switch {
	case key.decision != DecisionNone:
		label := string(key.decision)
		event.Decision = &label
	case assignment != nil:
		label := string(assignment.ReviewType)
		event.Decision = &label
	}

	if assignment != nil {
		payload, err := json.Marshal(assignment)
		if err != nil {
			return models.ReviewEvent{}, fmt.Errorf("encode reviewer assignment: %w", err)
		}
		event.Payload = datatypes.JSON(payload)
	}
	return event, nil
}

func statusHistory(current, updated models.ProtocolApplication, actor Actor, key transitionKey, comment string, now time.Time) *models.ProtocolStatusHistory {
	oldStatus := current.Status
	note := fmt.Sprintf("role=%s;action=%s", actor.Type, key)
	history := &models.ProtocolStatusHistory{
		ApplicationID: current.ID,
		OldStatus:     &oldStatus,
		NewStatus:     updated.Status,
		ChangedBy:     actor.ID,
		Notes:         &note,
		CreatedAt:     now,
	}
	if comment != "" {
		reason := comment
		history.Reason = &reason
	}
	return history
}

func canView(actor Actor, app models.ProtocolApplication) bool {
	switch actor.Type {
	case models.ActorOffice:
		return actor.ID > 0
	case models.ActorInvestigator:
		return actor.ID > 0 && actor.ID == app.InvestigatorID
	}
	return false
}
