package models

// ReviewerCandidate is a read-only projection of personnel eligible to review protocols.
type ReviewerCandidate struct {
	UserID            int    `gorm:"primaryKey;column:user_id" json:"user_id"`
	DisplayName       string `gorm:"column:display_name" json:"display_name"`
	Email             string `gorm:"column:email" json:"email"`
	ActiveBoardMember bool   `gorm:"column:active_board_member" json:"active_board_member"`
}

// TableName specifies the view backing ReviewerCandidate.
func (ReviewerCandidate) TableName() string {
	return "reviewer_candidates"
}
