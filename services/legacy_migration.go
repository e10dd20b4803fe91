package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"protocol-review-api/models"

	"gorm.io/gorm"
)

// legacyResponse is one value of the historical per-protocol comment blob,
// which was keyed by the time the comment was written.
type legacyResponse struct {
	Comment        string `json:"comment"`
	Action         string `json:"action"`
	InvestigatorID int    `json:"investigator_id"`
}

// ParseLegacyResponses decodes a blob export of the form
// {"<application id>": {"<timestamp>": {"comment": ..., "investigator_id": ...}}}.
// Entries with an unusable key are reported and skipped; the rest are returned
// ordered by application id and normalized timestamp.
func ParseLegacyResponses(r io.Reader) ([]models.InvestigatorResponse, []error) {
	var blob map[string]map[string]legacyResponse
	if err := json.NewDecoder(r).Decode(&blob); err != nil {
		return nil, []error{fmt.Errorf("decode legacy responses: %w", err)}
	}

	var (
		responses []models.InvestigatorResponse
		problems  []error
	)
	for appKey, entries := range blob {
		appID, err := strconv.Atoi(strings.TrimSpace(appKey))
		if err != nil || appID <= 0 {
			problems = append(problems, fmt.Errorf("invalid application id %q", appKey))
			continue
		}
		for tsKey, entry := range entries {
			ts, err := ParseEventTimestamp(tsKey)
			if err != nil {
				problems = append(problems, fmt.Errorf("application %d: %w", appID, err))
				continue
			}
			action := strings.TrimSpace(entry.Action)
			if action == "" {
				action = string(models.EventPIResponse)
			}
			key := tsKey
			responses = append(responses, models.InvestigatorResponse{
				ApplicationID:   appID,
				InvestigatorID:  entry.InvestigatorID,
				Action:          action,
				Comment:         entry.Comment,
				LegacyTimestamp: &key,
				CreatedAt:       ts,
			})
		}
	}

	sort.SliceStable(responses, func(i, j int) bool {
		if responses[i].ApplicationID != responses[j].ApplicationID {
			return responses[i].ApplicationID < responses[j].ApplicationID
		}
		if !responses[i].CreatedAt.Equal(responses[j].CreatedAt) {
			return responses[i].CreatedAt.Before(responses[j].CreatedAt)
		}
		return *responses[i].LegacyTimestamp < *responses[j].LegacyTimestamp
	})
	return responses, problems
}

// LegacyMigrator moves historical comment data onto the typed tables.
type LegacyMigrator struct {
	db *gorm.DB
}

// NewLegacyMigrator returns a migrator on db.
func NewLegacyMigrator(db *gorm.DB) *LegacyMigrator {
	return &LegacyMigrator{db: db}
}

// ImportResponses inserts responses not already present, matching on
// application id and legacy timestamp. It returns the number inserted.
func (m *LegacyMigrator) ImportResponses(ctx context.Context, responses []models.InvestigatorResponse) (int, error) {
	inserted := 0
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range responses {
			response := responses[i]
			var existing models.InvestigatorResponse
			err := tx.Where("application_id = ? AND legacy_timestamp = ?", response.ApplicationID, response.LegacyTimestamp).
				First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("lookup legacy response: %w", err)
			}
			if err := tx.Create(&response).Error; err != nil {
				return fmt.Errorf("insert legacy response: %w", err)
			}
			inserted++
		}
		return nil
	})
	return inserted, err
}

// Imported rows without a typed timestamp carry a zero created_at.
const legacyCreatedAtCutoff = "1971-01-01"

const missingCreatedAt = "(created_at IS NULL OR created_at < ?)"

// BackfillEventTimestamps sets created_at from legacy_timestamp on review
// events imported without a typed timestamp. It returns the number updated.
//
// This is the only write to review_events after insert. It is a one-time
// normalization of imported rows: the UPDATE is guarded so a row that already
// has a real created_at is never touched.
func (m *LegacyMigrator) BackfillEventTimestamps(ctx context.Context) (int, []error) {
	var events []models.ReviewEvent
	if err := m.db.WithContext(ctx).
		Where("legacy_timestamp IS NOT NULL AND "+missingCreatedAt, legacyCreatedAtCutoff).
		Order("id ASC").
		Find(&events).Error; err != nil {
		return 0, []error{fmt.Errorf("load legacy events: %w", err)}
	}

	var problems []error
	updated := 0
	for _, event := range events {
		ts, err := ParseEventTimestamp(*event.LegacyTimestamp)
		if err != nil {
			problems = append(problems, fmt.Errorf("review event %d: %w", event.ID, err))
			continue
		}
		if err := m.db.WithContext(ctx).Model(&models.ReviewEvent{}).
			Where("id = ? AND "+missingCreatedAt, event.ID, legacyCreatedAtCutoff).
			Update("created_at", ts).Error; err != nil {
			problems = append(problems, fmt.Errorf("review event %d: %w", event.ID, err))
			continue
		}
		updated++
	}
	return updated, problems
}
