package models

import "time"

// ProtocolStatusHistory tracks historical status changes for protocol applications.
type ProtocolStatusHistory struct {
	HistoryID     int             `gorm:"primaryKey;column:history_id" json:"history_id"`
	ApplicationID int             `gorm:"column:application_id;not null;index" json:"application_id"`
	OldStatus     *ProtocolStatus `gorm:"column:old_status;size:32" json:"old_status"`
	NewStatus     ProtocolStatus  `gorm:"column:new_status;size:32;not null" json:"new_status"`
	ChangedBy     int             `gorm:"column:changed_by" json:"changed_by"`
	Reason        *string         `gorm:"column:reason;type:text" json:"reason"`
	Notes         *string         `gorm:"column:notes;size:255" json:"notes"`
	CreatedAt     time.Time       `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the table for ProtocolStatusHistory.
func (ProtocolStatusHistory) TableName() string {
	return "protocol_status_history"
}
