package models

// ProtocolStatus is the lifecycle state of a protocol application.
type ProtocolStatus string

const (
	StatusDraft              ProtocolStatus = "draft"
	StatusSubmitted          ProtocolStatus = "submitted"
	StatusResubmitted        ProtocolStatus = "resubmitted"
	StatusTriageComplete     ProtocolStatus = "triage_complete"
	StatusUnderReview        ProtocolStatus = "under_review"
	StatusRevisionsRequested ProtocolStatus = "revisions_requested"
	StatusApproved           ProtocolStatus = "approved"
	StatusRejected           ProtocolStatus = "rejected"
	StatusClosed             ProtocolStatus = "closed"
)

// AllProtocolStatuses lists every legal status in lifecycle order.
var AllProtocolStatuses = []ProtocolStatus{
	StatusDraft,
	StatusSubmitted,
	StatusResubmitted,
	StatusTriageComplete,
	StatusUnderReview,
	StatusRevisionsRequested,
	StatusApproved,
	StatusRejected,
	StatusClosed,
}

// Valid reports whether s is one of the fixed statuses.
func (s ProtocolStatus) Valid() bool {
	for _, status := range AllProtocolStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Terminal reports whether no further workflow action is accepted.
func (s ProtocolStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusClosed
}

// HoldsAssignment reports whether a reviewer assignment may be present in s.
// Only under_review and states reachable exclusively through it qualify.
func (s ProtocolStatus) HoldsAssignment() bool {
	return s == StatusUnderReview || s == StatusApproved
}

// ActorType distinguishes review-office staff from the submitting investigator.
type ActorType string

const (
	ActorOffice       ActorType = "office"
	ActorInvestigator ActorType = "investigator"
)

// Valid reports whether a is a known actor class.
func (a ActorType) Valid() bool {
	return a == ActorOffice || a == ActorInvestigator
}

// EventAction is the action recorded on a review event.
type EventAction string

const (
	EventSubmit             EventAction = "submit"
	EventTriageComplete     EventAction = "triage_complete"
	EventRevisionsRequested EventAction = "revisions_requested"
	EventReject             EventAction = "reject"
	EventAssignReviewers    EventAction = "assign_reviewers"
	EventFinalDecision      EventAction = "final_decision"
	EventPIResponse         EventAction = "pi_response"
	EventWithdraw           EventAction = "withdraw"
	EventResubmit           EventAction = "resubmit"
)

// ReviewType classifies the review a protocol receives once assigned.
type ReviewType string

const (
	ReviewExpedited ReviewType = "expedited"
	ReviewFullBoard ReviewType = "full_board"
	ReviewExempt    ReviewType = "exempt"
)

// Valid reports whether r is one of the fixed review classifications.
func (r ReviewType) Valid() bool {
	switch r {
	case ReviewExpedited, ReviewFullBoard, ReviewExempt:
		return true
	}
	return false
}

// ProtocolType is the regulatory committee a protocol is filed with.
type ProtocolType string

const (
	ProtocolIRB ProtocolType = "irb" // institutional review board
	ProtocolIBC ProtocolType = "ibc" // institutional biosafety committee
)

// Valid reports whether p is a supported committee.
func (p ProtocolType) Valid() bool {
	return p == ProtocolIRB || p == ProtocolIBC
}
