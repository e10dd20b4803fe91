package services

import (
	"context"
	"math/rand"
	"sort"
	"testing"

	"protocol-review-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from     models.ProtocolStatus
		action   Action
		decision Decision
		actor    models.ActorType
		to       models.ProtocolStatus
		event    models.EventAction
	}{
		{models.StatusDraft, ActionSubmit, DecisionNone, models.ActorInvestigator, models.StatusSubmitted, models.EventSubmit},
		{models.StatusSubmitted, ActionTriage, DecisionComplete, models.ActorOffice, models.StatusTriageComplete, models.EventTriageComplete},
		{models.StatusResubmitted, ActionTriage, DecisionComplete, models.ActorOffice, models.StatusTriageComplete, models.EventTriageComplete},
		{models.StatusSubmitted, ActionTriage, DecisionRevisionsRequired, models.ActorOffice, models.StatusRevisionsRequested, models.EventRevisionsRequested},
		{models.StatusResubmitted, ActionTriage, DecisionRevisionsRequired, models.ActorOffice, models.StatusRevisionsRequested, models.EventRevisionsRequested},
		{models.StatusSubmitted, ActionTriage, DecisionReject, models.ActorOffice, models.StatusRejected, models.EventReject},
		{models.StatusResubmitted, ActionTriage, DecisionReject, models.ActorOffice, models.StatusRejected, models.EventReject},
		{models.StatusTriageComplete, ActionAssignReviewers, DecisionNone, models.ActorOffice, models.StatusUnderReview, models.EventAssignReviewers},
		{models.StatusUnderReview, ActionFinalDecision, DecisionApprove, models.ActorOffice, models.StatusApproved, models.EventFinalDecision},
		{models.StatusUnderReview, ActionFinalDecision, DecisionApproveWithModifications, models.ActorOffice, models.StatusRevisionsRequested, models.EventFinalDecision},
		{models.StatusUnderReview, ActionFinalDecision, DecisionDefer, models.ActorOffice, models.StatusRevisionsRequested, models.EventFinalDecision},
		{models.StatusUnderReview, ActionFinalDecision, DecisionDisapprove, models.ActorOffice, models.StatusRejected, models.EventFinalDecision},
		{models.StatusUnderReview, ActionRequestRevisions, DecisionNone, models.ActorOffice, models.StatusRevisionsRequested, models.EventRevisionsRequested},
		{models.StatusUnderReview, ActionReject, DecisionNone, models.ActorOffice, models.StatusRejected, models.EventReject},
		{models.StatusRevisionsRequested, ActionResubmit, DecisionNone, models.ActorInvestigator, models.StatusResubmitted, models.EventResubmit},
		{models.StatusTriageComplete, ActionWithdraw, DecisionNone, models.ActorInvestigator, models.StatusClosed, models.EventWithdraw},
		{models.StatusRevisionsRequested, ActionPIResponse, DecisionNone, models.ActorInvestigator, models.StatusRevisionsRequested, models.EventPIResponse},
	}

	for _, tc := range cases {
		key := transitionKey{tc.action, tc.decision}
		t.Run(string(tc.from)+"/"+key.String(), func(t *testing.T) {
			store := newMemoryStore(reviewerPool()...)
			svc := newTestService(t, store)
			app := seedApplication(store, tc.from)

			rule, err := lookupTransition(tc.from, key)
			require.NoError(t, err)
			assert.Equal(t, tc.actor, rule.actor)

			actor, req := validRequest(key)
			updated, err := svc.SubmitTransition(context.Background(), app.ID, actor, req)
			require.NoError(t, err)

			assert.Equal(t, tc.to, updated.Status)
			assert.Equal(t, app.Version+1, updated.Version)

			events := store.eventsFor(app.ID)
			require.Len(t, events, 1)
			assert.Equal(t, tc.event, events[0].Action)
			assert.Equal(t, tc.from, events[0].FromStatus)
			assert.Equal(t, tc.to, events[0].ToStatus)
			assert.Equal(t, actor.Type, events[0].ActorType)
			assert.Equal(t, actor.ID, events[0].ActorID)
			assert.Equal(t, testNow, events[0].CreatedAt)
		})
	}
}

func TestTransitionsOutsideTableAreRejected(t *testing.T) {
	for _, status := range models.AllProtocolStatuses {
		for key, rule := range transitionTable {
			if rule.allows(status) {
				continue
			}
			t.Run(string(status)+"/"+key.String(), func(t *testing.T) {
				store := newMemoryStore(reviewerPool()...)
				svc := newTestService(t, store)
				app := seedApplication(store, status)

				actor, req := validRequest(key)
				_, err := svc.SubmitTransition(context.Background(), app.ID, actor, req)
				require.ErrorIs(t, err, ErrInvalidTransition)

				stored, err := store.GetApplication(context.Background(), app.ID)
				require.NoError(t, err)
				assert.Equal(t, app, *stored)
				assert.Empty(t, store.eventsFor(app.ID))
			})
		}
	}
}

func TestTerminalStatusesAcceptNothing(t *testing.T) {
	for _, status := range models.AllProtocolStatuses {
		if status.Terminal() {
			assert.Empty(t, AvailableActions(status), status)
		} else {
			assert.NotEmpty(t, AvailableActions(status), status)
		}
	}
}

func TestAvailableActionsUnderReview(t *testing.T) {
	actions := AvailableActions(models.StatusUnderReview)

	investigatorActions := map[Action]bool{ActionPIResponse: true, ActionWithdraw: true}

	var labels []string
	for _, a := range actions {
		labels = append(labels, transitionKey{a.Action, a.Decision}.String())
		want := models.ActorOffice
		if investigatorActions[a.Action] {
			want = models.ActorInvestigator
		}
		assert.Equal(t, want, a.Actor, a.Action)
	}
	assert.Equal(t, []string{
		"final_decision:approve",
		"final_decision:approve_with_modifications",
		"final_decision:defer",
		"final_decision:disapprove",
		"pi_response",
		"reject",
		"request_revisions",
		"withdraw",
	}, labels)
}

func TestNormalizeTransitionRequest(t *testing.T) {
	cases := []struct {
		action   string
		decision string
		want     transitionKey
	}{
		{"triage", "complete", transitionKey{ActionTriage, DecisionComplete}},
		{"Triage", "Completed", transitionKey{ActionTriage, DecisionComplete}},
		{"triage_complete", "", transitionKey{ActionTriage, DecisionComplete}},
		{"triage", "revisions-requested", transitionKey{ActionTriage, DecisionRevisionsRequired}},
		{"triage", "rejected", transitionKey{ActionTriage, DecisionReject}},
		{"assign_reviewer", "", transitionKey{ActionAssignReviewers, DecisionNone}},
		{"assign reviewers", "", transitionKey{ActionAssignReviewers, DecisionNone}},
		{"final_decision", "approved", transitionKey{ActionFinalDecision, DecisionApprove}},
		{"approve", "", transitionKey{ActionFinalDecision, DecisionApprove}},
		{"approved_with_modifications", "", transitionKey{ActionFinalDecision, DecisionApproveWithModifications}},
		{"final_decision", "approve_with_modifications", transitionKey{ActionFinalDecision, DecisionApproveWithModifications}},
		{"defer", "deferred", transitionKey{ActionFinalDecision, DecisionDefer}},
		{"request-revisions", "", transitionKey{ActionRequestRevisions, DecisionNone}},
		{"respond", "", transitionKey{ActionPIResponse, DecisionNone}},
	}

	for _, tc := range cases {
		got, err := normalizeTransitionRequest(tc.action, tc.decision)
		require.NoError(t, err, "%s/%s", tc.action, tc.decision)
		assert.Equal(t, tc.want, got, "%s/%s", tc.action, tc.decision)
	}
}

func TestNormalizeTransitionRequestErrors(t *testing.T) {
	cases := []struct{ action, decision string }{
		{"", ""},
		{"publish", ""},
		{"triage", ""},
		{"triage", "approve"},
		{"triage", "maybe"},
		{"approve", "disapprove"},
		{"reject", "complete"},
		{"final_decision", ""},
	}
	for _, tc := range cases {
		_, err := normalizeTransitionRequest(tc.action, tc.decision)
		assert.ErrorIs(t, err, ErrInvalidTransition, "%s/%s", tc.action, tc.decision)
	}
}

func TestWorkflowRandomWalk(t *testing.T) {
	keys := make([]transitionKey, 0, len(transitionTable))
	for key := range transitionTable {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	rng := rand.New(rand.NewSource(7))
	for walk := 0; walk < 50; walk++ {
		store := newMemoryStore(reviewerPool()...)
		svc := newTestService(t, store)
		app := seedApplication(store, models.StatusDraft)
		version := app.Version

		for step := 0; step < 30; step++ {
			key := keys[rng.Intn(len(keys))]
			actor, req := validRequest(key)
			if rng.Intn(5) == 0 {
				req.Comment = "  "
			}

			before, err := store.GetApplication(context.Background(), app.ID)
			require.NoError(t, err)

			updated, err := svc.SubmitTransition(context.Background(), app.ID, actor, req)
			after, getErr := store.GetApplication(context.Background(), app.ID)
			require.NoError(t, getErr)

			if err != nil {
				assert.Equal(t, *before, *after, "failed action %s must not write", key)
				continue
			}

			version++
			assert.Equal(t, version, updated.Version)
			assert.True(t, updated.Status.Valid(), updated.Status)
			assert.Equal(t, updated.ApprovalDate == nil, updated.ExpirationDate == nil)
			if updated.ApprovalDate != nil {
				assert.True(t, updated.ExpirationDate.Equal(updated.ApprovalDate.AddDate(1, 0, 0)),
					"expiry %s approval %s", *updated.ExpirationDate, *updated.ApprovalDate)
			}
			assert.Equal(t, updated.Status == models.StatusApproved, updated.RegistrationNumber != nil)
			if updated.Assignment() != nil {
				assert.True(t, updated.Status.HoldsAssignment(), updated.Status)
			}
			if updated.Status.Terminal() {
				break
			}
		}
	}
}
