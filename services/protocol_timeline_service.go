package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"protocol-review-api/models"

	"go.uber.org/zap"
)

// TimelineSource names the store a timeline entry came from.
type TimelineSource string

const (
	TimelineSourceReviewEvent          TimelineSource = "review_event"
	TimelineSourceInvestigatorResponse TimelineSource = "investigator_response"
	TimelineSourceApplication          TimelineSource = "application"
)

// TimelineEntry is one item of the merged protocol history.
type TimelineEntry struct {
	Source      TimelineSource   `json:"source"`
	ReferenceID int              `json:"reference_id,omitempty"`
	ActorType   models.ActorType `json:"actor_type"`
	ActorID     int              `json:"actor_id,omitempty"`
	Action      string           `json:"action"`
	Decision    *string          `json:"decision,omitempty"`
	Comment     string           `json:"comment"`
	Timestamp   time.Time        `json:"timestamp"`

	rawTimestamp string
}

// TimelineExclusion reports whether an entry should be hidden from the timeline.
type TimelineExclusion func(TimelineEntry) bool

// SentinelExclusion hides entries whose comment or action equals one of values,
// ignoring case and surrounding whitespace.
func SentinelExclusion(values ...string) TimelineExclusion {
	sentinels := make(map[string]struct{}, len(values))
	for _, v := range values {
		if key := strings.ToLower(strings.TrimSpace(v)); key != "" {
			sentinels[key] = struct{}{}
		}
	}
	return func(entry TimelineEntry) bool {
		if len(sentinels) == 0 {
			return false
		}
		if _, ok := sentinels[strings.ToLower(strings.TrimSpace(entry.Comment))]; ok {
			return true
		}
		_, ok := sentinels[strings.ToLower(strings.TrimSpace(entry.Action))]
		return ok
	}
}

// TimelineReader loads a consistent view of one application's history.
type TimelineReader interface {
	LoadTimelineSnapshot(ctx context.Context, applicationID int) (*TimelineSnapshot, error)
}

// ProtocolTimelineService reconstructs the review history of an application.
type ProtocolTimelineService struct {
	store   TimelineReader
	exclude TimelineExclusion
	log     *zap.SugaredLogger
}

// NewProtocolTimelineService returns a timeline service. A nil exclude hides
// entries equal to the literal "test".
func NewProtocolTimelineService(store TimelineReader, exclude TimelineExclusion, log *zap.SugaredLogger) *ProtocolTimelineService {
	if exclude == nil {
		exclude = SentinelExclusion("test")
	}
	return &ProtocolTimelineService{store: store, exclude: exclude, log: log}
}

// GetTimeline returns the merged history of an application, most recent first.
// It never fails for an application without events; the result is then empty.
func (s *ProtocolTimelineService) GetTimeline(ctx context.Context, actor Actor, applicationID int) ([]TimelineEntry, error) {
	snapshot, err := s.store.LoadTimelineSnapshot(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, snapshot.Application) {
		return nil, fmt.Errorf("%w: %s cannot view application %d", ErrActorNotPermitted, actor, applicationID)
	}

	entries, dropped := mergeTimeline(*snapshot, s.exclude)
	for _, d := range dropped {
		s.log.Warnw("timeline entry dropped",
			"application_id", applicationID,
			"source", d.entry.Source,
			"reference_id", d.entry.ReferenceID,
			"timestamp", d.entry.rawTimestamp,
			"reason", d.reason,
		)
	}
	return entries, nil
}

type droppedEntry struct {
	entry  TimelineEntry
	reason string
}

// mergeTimeline collects entries in source order, normalizes their timestamps,
// drops invalid and excluded ones and sorts the rest newest first. Entries
// with equal timestamps keep their source order.
func mergeTimeline(snapshot TimelineSnapshot, exclude TimelineExclusion) ([]TimelineEntry, []droppedEntry) {
	collected := collectTimelineEntries(snapshot)

	entries := make([]TimelineEntry, 0, len(collected))
	var dropped []droppedEntry
	for _, entry := range collected {
		if strings.TrimSpace(entry.Action) == "" {
			dropped = append(dropped, droppedEntry{entry: entry, reason: "missing action"})
			continue
		}
		ts, err := ParseEventTimestamp(entry.rawTimestamp)
		if err != nil || ts.IsZero() {
			dropped = append(dropped, droppedEntry{entry: entry, reason: "invalid timestamp"})
			continue
		}
		entry.Timestamp = ts
		if exclude != nil && exclude(entry) {
			continue
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, dropped
}

func collectTimelineEntries(snapshot TimelineSnapshot) []TimelineEntry {
	entries := make([]TimelineEntry, 0, len(snapshot.Events)+len(snapshot.Responses)+1)

	hasSubmit := false
	for _, event := range snapshot.Events {
		if event.Action == models.EventSubmit {
			hasSubmit = true
		}
		entries = append(entries, TimelineEntry{
			Source:       TimelineSourceReviewEvent,
			ReferenceID:  event.ID,
			ActorType:    event.ActorType,
			ActorID:      event.ActorID,
			Action:       string(event.Action),
			Decision:     event.Decision,
			Comment:      event.Comment,
			rawTimestamp: rawTimestamp(event.LegacyTimestamp, event.CreatedAt),
		})
	}

	for _, response := range snapshot.Responses {
		action := response.Action
		if strings.TrimSpace(action) == "" {
			action = string(models.EventPIResponse)
		}
		entries = append(entries, TimelineEntry{
			Source:       TimelineSourceInvestigatorResponse,
			ReferenceID:  response.ID,
			ActorType:    models.ActorInvestigator,
			ActorID:      response.InvestigatorID,
			Action:       action,
			Comment:      response.Comment,
			rawTimestamp: rawTimestamp(response.LegacyTimestamp, response.CreatedAt),
		})
	}

	// Records submitted before the event log existed only carry the date.
	app := snapshot.Application
	if !hasSubmit && app.SubmissionDate != nil {
		entries = append(entries, TimelineEntry{
			Source:       TimelineSourceApplication,
			ReferenceID:  app.ID,
			ActorType:    models.ActorInvestigator,
			ActorID:      app.InvestigatorID,
			Action:       string(models.EventSubmit),
			rawTimestamp: FormatEventTimestamp(*app.SubmissionDate),
		})
	}
	return entries
}

func rawTimestamp(legacy *string, createdAt time.Time) string {
	if legacy != nil && strings.TrimSpace(*legacy) != "" {
		return *legacy
	}
	if createdAt.IsZero() {
		return ""
	}
	return FormatEventTimestamp(createdAt)
}
