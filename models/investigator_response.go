package models

import "time"

// InvestigatorResponse is a principal investigator reply carried over from the
// legacy comment blobs. LegacyTimestamp keeps the original blob key, which is
// either an epoch-millisecond string or an ISO-8601 date.
type InvestigatorResponse struct {
	ID              int       `gorm:"primaryKey;column:id" json:"id"`
	ApplicationID   int       `gorm:"column:application_id;not null;index" json:"application_id"`
	InvestigatorID  int       `gorm:"column:investigator_id" json:"investigator_id"`
	Action          string    `gorm:"column:action;size:32;not null;default:pi_response" json:"action"`
	Comment         string    `gorm:"column:comment;type:text" json:"comment"`
	LegacyTimestamp *string   `gorm:"column:legacy_timestamp;size:40" json:"legacy_timestamp,omitempty"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the table name for InvestigatorResponse.
func (InvestigatorResponse) TableName() string {
	return "investigator_responses"
}
