package models

import (
	"time"

	"gorm.io/datatypes"
)

// ReviewEvent is one immutable entry of the protocol review log.
type ReviewEvent struct {
	ID              int            `gorm:"primaryKey;column:id" json:"id"`
	EventUID        string         `gorm:"column:event_uid;size:36;uniqueIndex" json:"event_uid"`
	ApplicationID   int            `gorm:"column:application_id;not null;index:idx_review_events_app_created,priority:1" json:"application_id"`
	ActorType       ActorType      `gorm:"column:actor_type;size:16;not null" json:"actor_type"`
	ActorID         int            `gorm:"column:actor_id" json:"actor_id"`
	Action          EventAction    `gorm:"column:action;size:32;not null" json:"action"`
	Decision        *string        `gorm:"column:decision;size:64" json:"decision,omitempty"`
	Comment         string         `gorm:"column:comment;type:text" json:"comment"`
	FromStatus      ProtocolStatus `gorm:"column:from_status;size:32" json:"from_status"`
	ToStatus        ProtocolStatus `gorm:"column:to_status;size:32" json:"to_status"`
	Payload         datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`
	LegacyTimestamp *string        `gorm:"column:legacy_timestamp;size:40" json:"legacy_timestamp,omitempty"`
	CreatedAt       time.Time      `gorm:"column:created_at;index:idx_review_events_app_created,priority:2" json:"created_at"`
}

// TableName specifies the table name for ReviewEvent.
func (ReviewEvent) TableName() string {
	return "review_events"
}
