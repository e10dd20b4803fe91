package models

import (
	"time"

	"gorm.io/datatypes"
)

// ReviewerAssignment is the reviewer designation made when a protocol enters formal review.
type ReviewerAssignment struct {
	PrimaryReviewerID   int        `json:"primary_reviewer_id"`
	SecondaryReviewerID *int       `json:"secondary_reviewer_id,omitempty"`
	ReviewType          ReviewType `json:"review_type"`
	AssignedAt          time.Time  `json:"assigned_at"`
}

// ProtocolApplication represents the protocol_applications table.
// Records are mutated only through the transition engine and never deleted.
type ProtocolApplication struct {
	ID                 int                                     `gorm:"primaryKey;column:id" json:"id"`
	RegistrationNumber *string                                 `gorm:"column:registration_number;size:32;uniqueIndex" json:"registration_number"`
	ProtocolType       ProtocolType                            `gorm:"column:protocol_type;size:16;not null" json:"protocol_type"`
	Title              string                                  `gorm:"column:title;size:500;not null" json:"title"`
	InvestigatorID     int                                     `gorm:"column:investigator_id;not null;index" json:"investigator_id"`
	Status             ProtocolStatus                          `gorm:"column:status;size:32;not null;index" json:"status"`
	SubmissionDate     *time.Time                              `gorm:"column:submission_date" json:"submission_date"`
	TriageDate         *time.Time                              `gorm:"column:triage_date" json:"triage_date"`
	ReviewStartDate    *time.Time                              `gorm:"column:review_start_date" json:"review_start_date"`
	ApprovalDate       *time.Time                              `gorm:"column:approval_date" json:"approval_date"`
	ExpirationDate     *time.Time                              `gorm:"column:expiration_date" json:"expiration_date"`
	ReviewerAssignment datatypes.JSONType[*ReviewerAssignment] `gorm:"column:reviewer_assignment" json:"reviewer_assignment"`
	Description        string                                  `gorm:"column:description;type:text" json:"description"`
	FormData           datatypes.JSON                          `gorm:"column:form_data" json:"form_data,omitempty"`
	Version            int                                     `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt          time.Time                               `gorm:"column:created_at" json:"created_at"`
	UpdatedAt          time.Time                               `gorm:"column:updated_at" json:"updated_at"`
}

// TableName specifies the table name for ProtocolApplication.
func (ProtocolApplication) TableName() string {
	return "protocol_applications"
}

// Assignment returns the current reviewer assignment, or nil.
func (p ProtocolApplication) Assignment() *ReviewerAssignment {
	return p.ReviewerAssignment.Data()
}

// WithAssignment returns a copy of p carrying the given assignment.
func (p ProtocolApplication) WithAssignment(a *ReviewerAssignment) ProtocolApplication {
	p.ReviewerAssignment = datatypes.NewJSONType(a)
	return p
}
