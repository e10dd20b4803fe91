package services

import (
	"fmt"
	"sort"
	"strings"

	"protocol-review-api/models"
)

// Action is a workflow command issued against a protocol application.
type Action string

const (
	ActionSubmit           Action = "submit"
	ActionTriage           Action = "triage"
	ActionAssignReviewers  Action = "assign_reviewers"
	ActionFinalDecision    Action = "final_decision"
	ActionRequestRevisions Action = "request_revisions"
	ActionReject           Action = "reject"
	ActionResubmit         Action = "resubmit"
	ActionWithdraw         Action = "withdraw"
	ActionPIResponse       Action = "pi_response"
)

// Decision qualifies the triage and final_decision actions.
type Decision string

const (
	DecisionNone                     Decision = ""
	DecisionComplete                 Decision = "complete"
	DecisionRevisionsRequired        Decision = "revisions_required"
	DecisionReject                   Decision = "reject"
	DecisionApprove                  Decision = "approve"
	DecisionApproveWithModifications Decision = "approve_with_modifications"
	DecisionDefer                    Decision = "defer"
	DecisionDisapprove               Decision = "disapprove"
)

type transitionKey struct {
	action   Action
	decision Decision
}

func (k transitionKey) String() string {
	if k.decision == DecisionNone {
		return string(k.action)
	}
	return string(k.action) + ":" + string(k.decision)
}

type effect int

const (
	effectNone effect = iota
	effectSubmit
	effectTriage
	effectAssign
	effectApprove
)

type transitionRule struct {
	from            []models.ProtocolStatus
	to              models.ProtocolStatus // empty keeps the current status
	actor           models.ActorType
	event           models.EventAction
	effect          effect
	commentOptional bool
}

func (r transitionRule) allows(status models.ProtocolStatus) bool {
	for _, from := range r.from {
		if from == status {
			return true
		}
	}
	return false
}

func (r transitionRule) target(current models.ProtocolStatus) models.ProtocolStatus {
	if r.to == "" {
		return current
	}
	return r.to
}

var (
	intakeStatuses = []models.ProtocolStatus{models.StatusSubmitted, models.StatusResubmitted}
	openStatuses   = []models.ProtocolStatus{
		models.StatusSubmitted,
		models.StatusResubmitted,
		models.StatusTriageComplete,
		models.StatusUnderReview,
		models.StatusRevisionsRequested,
	}
	underReview = []models.ProtocolStatus{models.StatusUnderReview}
)

// transitionTable is the single definition of the review workflow.
var transitionTable = map[transitionKey]transitionRule{
	{ActionSubmit, DecisionNone}: {
		from: []models.ProtocolStatus{models.StatusDraft}, to: models.StatusSubmitted,
		actor: models.ActorInvestigator, event: models.EventSubmit, effect: effectSubmit, commentOptional: true,
	},
	{ActionTriage, DecisionComplete}: {
		from: intakeStatuses, to: models.StatusTriageComplete,
		actor: models.ActorOffice, event: models.EventTriageComplete, effect: effectTriage,
	},
	{ActionTriage, DecisionRevisionsRequired}: {
		from: intakeStatuses, to: models.StatusRevisionsRequested,
		actor: models.ActorOffice, event: models.EventRevisionsRequested, effect: effectTriage,
	},
	{ActionTriage, DecisionReject}: {
		from: intakeStatuses, to: models.StatusRejected,
		actor: models.ActorOffice, event: models.EventReject, effect: effectTriage,
	},
	{ActionAssignReviewers, DecisionNone}: {
		from: []models.ProtocolStatus{models.StatusTriageComplete}, to: models.StatusUnderReview,
		actor: models.ActorOffice, event: models.EventAssignReviewers, effect: effectAssign, commentOptional: true,
	},
	{ActionFinalDecision, DecisionApprove}: {
		from: underReview, to: models.StatusApproved,
		actor: models.ActorOffice, event: models.EventFinalDecision, effect: effectApprove,
	},
	{ActionFinalDecision, DecisionApproveWithModifications}: {
		from: underReview, to: models.StatusRevisionsRequested,
		actor: models.ActorOffice, event: models.EventFinalDecision,
	},
	{ActionFinalDecision, DecisionDefer}: {
		from: underReview, to: models.StatusRevisionsRequested,
		actor: models.ActorOffice, event: models.EventFinalDecision,
	},
	{ActionFinalDecision, DecisionDisapprove}: {
		from: underReview, to: models.StatusRejected,
		actor: models.ActorOffice, event: models.EventFinalDecision,
	},
	{ActionRequestRevisions, DecisionNone}: {
		from: underReview, to: models.StatusRevisionsRequested,
		actor: models.ActorOffice, event: models.EventRevisionsRequested,
	},
	{ActionReject, DecisionNone}: {
		from: underReview, to: models.StatusRejected,
		actor: models.ActorOffice, event: models.EventReject,
	},
	{ActionResubmit, DecisionNone}: {
		from: []models.ProtocolStatus{models.StatusRevisionsRequested}, to: models.StatusResubmitted,
		actor: models.ActorInvestigator, event: models.EventResubmit,
	},
	{ActionWithdraw, DecisionNone}: {
		from: openStatuses, to: models.StatusClosed,
		actor: models.ActorInvestigator, event: models.EventWithdraw,
	},
	{ActionPIResponse, DecisionNone}: {
		from: openStatuses,
		actor: models.ActorInvestigator, event: models.EventPIResponse,
	},
}

// Two generations of the protocol screens used different action names; both
// spellings are accepted and folded onto the canonical (action, decision) pair.
var (
	compoundActionSynonyms = map[string]transitionKey{
		"triage_complete":             {ActionTriage, DecisionComplete},
		"triage_completed":            {ActionTriage, DecisionComplete},
		"triage_reject":               {ActionTriage, DecisionReject},
		"triage_revisions":            {ActionTriage, DecisionRevisionsRequired},
		"triage_revisions_required":   {ActionTriage, DecisionRevisionsRequired},
		"approve":                     {ActionFinalDecision, DecisionApprove},
		"approve_with_modifications":  {ActionFinalDecision, DecisionApproveWithModifications},
		"approved_with_modifications": {ActionFinalDecision, DecisionApproveWithModifications},
		"defer":                       {ActionFinalDecision, DecisionDefer},
		"disapprove":                  {ActionFinalDecision, DecisionDisapprove},
	}

	actionSynonyms = map[string]Action{
		"submit":              ActionSubmit,
		"triage":              ActionTriage,
		"assign_reviewers":    ActionAssignReviewers,
		"assign_reviewer":     ActionAssignReviewers,
		"assign":              ActionAssignReviewers,
		"final_decision":      ActionFinalDecision,
		"request_revisions":   ActionRequestRevisions,
		"request_revision":    ActionRequestRevisions,
		"revisions_requested": ActionRequestRevisions,
		"reject":              ActionReject,
		"resubmit":            ActionResubmit,
		"withdraw":            ActionWithdraw,
		"pi_response":         ActionPIResponse,
		"respond":             ActionPIResponse,
	}

	decisionSynonyms = map[string]Decision{
		"":                            DecisionNone,
		"complete":                    DecisionComplete,
		"completed":                   DecisionComplete,
		"revisions_required":          DecisionRevisionsRequired,
		"revisions_requested":         DecisionRevisionsRequired,
		"revisions":                   DecisionRevisionsRequired,
		"revision":                    DecisionRevisionsRequired,
		"reject":                      DecisionReject,
		"rejected":                    DecisionReject,
		"approve":                     DecisionApprove,
		"approved":                    DecisionApprove,
		"approve_with_modifications":  DecisionApproveWithModifications,
		"approved_with_modifications": DecisionApproveWithModifications,
		"approve_with_modification":   DecisionApproveWithModifications,
		"defer":                       DecisionDefer,
		"deferred":                    DecisionDefer,
		"disapprove":                  DecisionDisapprove,
		"disapproved":                 DecisionDisapprove,
	}
)

func normalizeToken(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	return strings.NewReplacer("-", "_", " ", "_").Replace(value)
}

// normalizeTransitionRequest maps the raw action and decision labels onto a
// transition table key.
func normalizeTransitionRequest(rawAction, rawDecision string) (transitionKey, error) {
	actionToken := normalizeToken(rawAction)
	decision, ok := decisionSynonyms[normalizeToken(rawDecision)]
	if !ok {
		return transitionKey{}, fmt.Errorf("%w: unknown decision %q", ErrInvalidTransition, rawDecision)
	}

	var key transitionKey
	if compound, found := compoundActionSynonyms[actionToken]; found {
		if decision != DecisionNone && decision != compound.decision {
			return transitionKey{}, fmt.Errorf("%w: action %q conflicts with decision %q", ErrInvalidTransition, rawAction, rawDecision)
		}
		key = compound
	} else {
		action, found := actionSynonyms[actionToken]
		if !found {
			return transitionKey{}, fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, rawAction)
		}
		key = transitionKey{action: action, decision: decision}
	}

	if _, known := transitionTable[key]; !known {
		return transitionKey{}, fmt.Errorf("%w: unsupported action %s", ErrInvalidTransition, key)
	}
	return key, nil
}

// lookupTransition returns the rule for key when it is legal from status.
func lookupTransition(status models.ProtocolStatus, key transitionKey) (transitionRule, error) {
	rule, ok := transitionTable[key]
	if !ok {
		return transitionRule{}, fmt.Errorf("%w: unsupported action %s", ErrInvalidTransition, key)
	}
	if !rule.allows(status) {
		return transitionRule{}, fmt.Errorf("%w: %s is not allowed from %s", ErrInvalidTransition, key, status)
	}
	return rule, nil
}

// AvailableAction describes an action legal from a given status.
type AvailableAction struct {
	Action   Action                `json:"action"`
	Decision Decision              `json:"decision,omitempty"`
	Actor    models.ActorType      `json:"actor"`
	Next     models.ProtocolStatus `json:"next_status"`
}

// AvailableActions lists the actions legal from status in a stable order.
func AvailableActions(status models.ProtocolStatus) []AvailableAction {
	actions := make([]AvailableAction, 0)
	for key, rule := range transitionTable {
		if !rule.allows(status) {
			continue
		}
		actions = append(actions, AvailableAction{
			Action:   key.action,
			Decision: key.decision,
			Actor:    rule.actor,
			Next:     rule.target(status),
		})
	}
	sort.Slice(actions, func(i, j int) bool {
		if actions[i].Action != actions[j].Action {
			return actions[i].Action < actions[j].Action
		}
		return actions[i].Decision < actions[j].Decision
	})
	return actions
}
