package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"protocol-review-api/models"

	"go.uber.org/zap"
)

const (
	testOfficeID       = 3
	testInvestigatorID = 42
)

var testNow = time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC)

type recordingNotifier struct {
	events []models.ReviewEvent
}

func (n *recordingNotifier) TransitionCommitted(_ context.Context, _ models.ProtocolApplication, event models.ReviewEvent) {
	n.events = append(n.events, event)
}

func newTestLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func newTestService(t *testing.T, store *memoryStore, opts ...ProtocolReviewOption) *ProtocolReviewService {
	t.Helper()
	var seq atomic.Int64
	svc := NewProtocolReviewService(store, NewReviewerPool(store, time.Hour), newTestLogger(),
		append([]ProtocolReviewOption{WithClock(func() time.Time { return testNow })}, opts...)...)
	svc.newUID = func() string {
		return fmt.Sprintf("evt-%03d", seq.Add(1))
	}
	return svc
}

func seedApplication(store *memoryStore, status models.ProtocolStatus) models.ProtocolApplication {
	submitted := testNow.AddDate(0, 0, -7)
	app := models.ProtocolApplication{
		ProtocolType:   models.ProtocolIRB,
		Title:          "Sleep quality in shift nurses",
		InvestigatorID: testInvestigatorID,
		Status:         status,
		CreatedAt:      submitted,
		UpdatedAt:      submitted,
	}
	if status != models.StatusDraft {
		app.SubmissionDate = &submitted
	}
	if status == models.StatusUnderReview {
		app = app.WithAssignment(&models.ReviewerAssignment{
			PrimaryReviewerID: 11,
			ReviewType:        models.ReviewExpedited,
			AssignedAt:        submitted,
		})
	}
	return store.put(app)
}

// validRequest builds a request and actor that satisfy every rule except the
// status check for key.
func validRequest(key transitionKey) (Actor, TransitionRequest) {
	rule := transitionTable[key]
	actor := OfficeActor(testOfficeID)
	if rule.actor == models.ActorInvestigator {
		actor = InvestigatorActor(testInvestigatorID)
	}
	req := TransitionRequest{
		Action:   string(key.action),
		Decision: string(key.decision),
		Comment:  "reviewed " + key.String(),
	}
	if rule.effect == effectAssign {
		req.PrimaryReviewerID = 11
		req.SecondaryReviewerID = intPtr(12)
		req.ReviewType = string(models.ReviewFullBoard)
	}
	return actor, req
}
