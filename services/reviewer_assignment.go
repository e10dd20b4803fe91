package services

import (
	"fmt"
	"time"

	"protocol-review-api/models"
)

var reviewTypeSynonyms = map[string]models.ReviewType{
	"expedited":  models.ReviewExpedited,
	"expedite":   models.ReviewExpedited,
	"full_board": models.ReviewFullBoard,
	"fullboard":  models.ReviewFullBoard,
	"full":       models.ReviewFullBoard,
	"exempt":     models.ReviewExempt,
	"exemption":  models.ReviewExempt,
}

// ParseReviewType resolves a review-type label onto the fixed set.
func ParseReviewType(raw string) (models.ReviewType, error) {
	if reviewType, ok := reviewTypeSynonyms[normalizeToken(raw)]; ok {
		return reviewType, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidReviewType, raw)
}

// ResolveAssignment validates a primary/secondary reviewer selection against
// the active reviewer pool and builds the assignment value. It has no side effects.
//
// A secondary equal to the primary is reported as ErrDuplicateReviewer before
// either id is looked up. A non-positive secondary id means none was chosen.
func ResolveAssignment(pool []models.ReviewerCandidate, primaryID int, secondaryID *int, reviewType string, assignedAt time.Time) (models.ReviewerAssignment, error) {
	var secondary *int
	if secondaryID != nil && *secondaryID > 0 {
		id := *secondaryID
		secondary = &id
	}

	if secondary != nil && *secondary == primaryID {
		return models.ReviewerAssignment{}, fmt.Errorf("%w: reviewer %d cannot be both primary and secondary", ErrDuplicateReviewer, primaryID)
	}

	active := make(map[int]struct{}, len(pool))
	for _, candidate := range pool {
		if candidate.ActiveBoardMember {
			active[candidate.UserID] = struct{}{}
		}
	}

	if primaryID <= 0 {
		return models.ReviewerAssignment{}, fmt.Errorf("%w: primary reviewer is required", ErrUnknownReviewer)
	}
	if _, ok := active[primaryID]; !ok {
		return models.ReviewerAssignment{}, fmt.Errorf("%w: primary reviewer %d", ErrUnknownReviewer, primaryID)
	}
	if secondary != nil {
		if _, ok := active[*secondary]; !ok {
			return models.ReviewerAssignment{}, fmt.Errorf("%w: secondary reviewer %d", ErrUnknownReviewer, *secondary)
		}
	}

	kind, err := ParseReviewType(reviewType)
	if err != nil {
		return models.ReviewerAssignment{}, err
	}

	return models.ReviewerAssignment{
		PrimaryReviewerID:   primaryID,
		SecondaryReviewerID: secondary,
		ReviewType:          kind,
		AssignedAt:          assignedAt.UTC(),
	}, nil
}
