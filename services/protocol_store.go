package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"protocol-review-api/models"

	"gorm.io/gorm"
)

// ApplicationFilter narrows ListApplications. Zero values match everything.
type ApplicationFilter struct {
	Status         models.ProtocolStatus
	InvestigatorID int
	Limit          int
}

// TransitionCommit is one validated transition ready to persist. Updated
// replaces the stored record only if the stored status and version still match.
type TransitionCommit struct {
	Updated         models.ProtocolApplication
	ExpectedStatus  models.ProtocolStatus
	ExpectedVersion int
	Event           models.ReviewEvent
	History         *models.ProtocolStatusHistory
}

// TimelineSnapshot is a consistent read of everything the timeline merges.
type TimelineSnapshot struct {
	Application models.ProtocolApplication
	Events      []models.ReviewEvent
	Responses   []models.InvestigatorResponse
}

// ProtocolStore persists protocol applications and their append-only logs.
type ProtocolStore interface {
	ReviewerSource

	CreateApplication(ctx context.Context, app *models.ProtocolApplication, event *models.ReviewEvent) error
	GetApplication(ctx context.Context, id int) (*models.ProtocolApplication, error)
	ListApplications(ctx context.Context, filter ApplicationFilter) ([]models.ProtocolApplication, error)
	// CommitTransition writes the record update, the event and the history
	// row atomically. It returns ErrConcurrentModification when the record
	// changed since it was read.
	CommitTransition(ctx context.Context, commit TransitionCommit) error
	LoadTimelineSnapshot(ctx context.Context, applicationID int) (*TimelineSnapshot, error)
	ListStatusHistory(ctx context.Context, applicationID int) ([]models.ProtocolStatusHistory, error)
}

// GormProtocolStore implements ProtocolStore on MySQL through gorm.
type GormProtocolStore struct {
	db *gorm.DB
}

// NewGormProtocolStore returns a store on db.
func NewGormProtocolStore(db *gorm.DB) *GormProtocolStore {
	return &GormProtocolStore{db: db}
}

func (s *GormProtocolStore) CreateApplication(ctx context.Context, app *models.ProtocolApplication, event *models.ReviewEvent) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(app).Error; err != nil {
			return fmt.Errorf("create protocol application: %w", err)
		}

		history := models.ProtocolStatusHistory{
			ApplicationID: app.ID,
			NewStatus:     app.Status,
			ChangedBy:     app.InvestigatorID,
			CreatedAt:     app.CreatedAt,
		}
		note := "created"
		history.Notes = &note
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("log status history: %w", err)
		}

		if event == nil {
			return nil
		}
		event.ApplicationID = app.ID
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("append review event: %w", err)
		}
		return nil
	})
}

func (s *GormProtocolStore) GetApplication(ctx context.Context, id int) (*models.ProtocolApplication, error) {
	return getApplication(s.db.WithContext(ctx), id)
}

func getApplication(db *gorm.DB, id int) (*models.ProtocolApplication, error) {
	var app models.ProtocolApplication
	if err := db.Where("id = ?", id).First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("load protocol application %d: %w", id, err)
	}
	return &app, nil
}

func (s *GormProtocolStore) ListApplications(ctx context.Context, filter ApplicationFilter) ([]models.ProtocolApplication, error) {
	query := s.db.WithContext(ctx).Model(&models.ProtocolApplication{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.InvestigatorID > 0 {
		query = query.Where("investigator_id = ?", filter.InvestigatorID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var apps []models.ProtocolApplication
	if err := query.Order("submission_date DESC, id DESC").Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("list protocol applications: %w", err)
	}
	return apps, nil
}

func (s *GormProtocolStore) CommitTransition(ctx context.Context, commit TransitionCommit) error {
	updated := commit.Updated
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.ProtocolApplication{}).
			Where("id = ? AND status = ? AND version = ?", updated.ID, commit.ExpectedStatus, commit.ExpectedVersion).
			Updates(map[string]interface{}{
				"status":              updated.Status,
				"registration_number": updated.RegistrationNumber,
				"submission_date":     updated.SubmissionDate,
				"triage_date":         updated.TriageDate,
				"review_start_date":   updated.ReviewStartDate,
				"approval_date":       updated.ApprovalDate,
				"expiration_date":     updated.ExpirationDate,
				"reviewer_assignment": updated.ReviewerAssignment,
				"version":             updated.Version,
				"updated_at":          updated.UpdatedAt,
			})
		if result.Error != nil {
			return fmt.Errorf("update protocol application %d: %w", updated.ID, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: protocol application %d changed since it was read", ErrConcurrentModification, updated.ID)
		}

		event := commit.Event
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("append review event: %w", err)
		}

		if commit.History != nil {
			history := *commit.History
			if err := tx.Create(&history).Error; err != nil {
				return fmt.Errorf("log status history: %w", err)
			}
		}
		return nil
	})
}

func (s *GormProtocolStore) LoadTimelineSnapshot(ctx context.Context, applicationID int) (*TimelineSnapshot, error) {
	var snapshot TimelineSnapshot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := getApplication(tx, applicationID)
		if err != nil {
			return err
		}
		snapshot.Application = *app

		if err := tx.Where("application_id = ?", applicationID).Order("id ASC").Find(&snapshot.Events).Error; err != nil {
			return fmt.Errorf("load review events: %w", err)
		}
		if err := tx.Where("application_id = ?", applicationID).Order("id ASC").Find(&snapshot.Responses).Error; err != nil {
			return fmt.Errorf("load investigator responses: %w", err)
		}
		return nil
	}, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *GormProtocolStore) ListStatusHistory(ctx context.Context, applicationID int) ([]models.ProtocolStatusHistory, error) {
	if _, err := s.GetApplication(ctx, applicationID); err != nil {
		return nil, err
	}

	var rows []models.ProtocolStatusHistory
	if err := s.db.WithContext(ctx).Where("application_id = ?", applicationID).Order("history_id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load status history: %w", err)
	}
	return rows, nil
}

func (s *GormProtocolStore) ListReviewerCandidates(ctx context.Context) ([]models.ReviewerCandidate, error) {
	var rows []models.ReviewerCandidate
	if err := s.db.WithContext(ctx).Where("active_board_member = ?", true).Order("display_name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list reviewer candidates: %w", err)
	}
	return rows, nil
}

// InvestigatorContact returns the personnel record of an investigator.
func (s *GormProtocolStore) InvestigatorContact(ctx context.Context, userID int) (models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("user_id = ? AND delete_at IS NULL", userID).First(&user).Error; err != nil {
		return models.User{}, fmt.Errorf("load user %d: %w", userID, err)
	}
	return user, nil
}
