package progress

import (
	"context"
	"errors"
	"math"

	"github.com/MartinWeidner/CourseFox/app/models"
	"gorm.io/gorm"
)

// CompletedThreshold is the percent at which a view counts as completed.
const CompletedThreshold = 90

// ErrInvalidInput marks client input rejected at the boundary. Not retried.
var ErrInvalidInput = errors.New("invalid progress input")

// Tracker records per-user consumption state: watch progress, alert
// dismissals and comment read flags. All writes are upserts or insert-once
// rows, so client retries are harmless.
type Tracker struct {
	repo Repository
}

// NewTracker creates a tracker from an injected repository.
func NewTracker(repo Repository) *Tracker {
	return &Tracker{repo: repo}
}

// NewTrackerFromDB creates a tracker from a GORM DB handle.
func NewTrackerFromDB(db *gorm.DB) *Tracker {
	return NewTracker(NewRepository(db))
}

// RecordProgress stores the latest watch state for (userID, contentID),
// replacing any previous state. The completed flag reflects the latest call
// only: a later, shorter view reverts it. That keeps the record a plain
// function of the last save instead of hidden server-side state.
func (t *Tracker) RecordProgress(ctx context.Context, userID, contentID uint, elapsedSeconds, totalSeconds int) (int, bool, error) {
	if userID == 0 || contentID == 0 {
		return 0, false, ErrInvalidInput
	}
	if elapsedSeconds < 0 || totalSeconds < 0 {
		return 0, false, ErrInvalidInput
	}

	percent := ComputePercent(elapsedSeconds, totalSeconds)
	completed := percent >= CompletedThreshold

	rec := &models.ProgressRecord{
		UserID:         userID,
		ContentID:      contentID,
		ElapsedSeconds: elapsedSeconds,
		TotalSeconds:   totalSeconds,
		Percent:        percent,
		Completed:      completed,
	}
	if err := t.repo.UpsertProgress(ctx, rec); err != nil {
		return 0, false, err
	}
	return percent, completed, nil
}

// ComputePercent derives the completion percent, clamped to 0-100. A zero or
// unknown total always yields 0.
func ComputePercent(elapsedSeconds, totalSeconds int) int {
	if totalSeconds <= 0 {
		return 0
	}
	percent := int(math.Round(float64(elapsedSeconds) / float64(totalSeconds) * 100))
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// GetProgress returns the stored state, or nil when nothing was saved yet.
func (t *Tracker) GetProgress(ctx context.Context, userID, contentID uint) (*models.ProgressRecord, error) {
	rec, err := t.repo.GetProgress(ctx, userID, contentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListProgress returns all progress records for a user, most recent first.
func (t *Tracker) ListProgress(ctx context.Context, userID uint) ([]models.ProgressRecord, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return t.repo.ListByUser(ctx, userID)
}

// DismissAlert marks an alert as read. Dismissing an already dismissed alert
// is a success, not an error; the caller cannot tell the difference and
// should not have to.
func (t *Tracker) DismissAlert(ctx context.Context, alertID, userID uint) (bool, error) {
	if alertID == 0 || userID == 0 {
		return false, ErrInvalidInput
	}
	if _, err := t.repo.InsertAlertReadIfNotExists(ctx, alertID, userID); err != nil {
		return false, err
	}
	return true, nil
}

// MarkCommentRead flags a comment as read with the same insert-once
// discipline as alert dismissal.
func (t *Tracker) MarkCommentRead(ctx context.Context, commentID, userID uint) (bool, error) {
	if commentID == 0 || userID == 0 {
		return false, ErrInvalidInput
	}
	if _, err := t.repo.InsertCommentReadIfNotExists(ctx, commentID, userID); err != nil {
		return false, err
	}
	return true, nil
}
