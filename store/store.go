// Package store persists monitoring state: which accounts to watch, which
// posts were already scanned, detections awaiting operator review, and
// coordination reports. It is a thin layer over gorm; both sqlite and
// postgresql work as backends.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound  = errors.New("store: record not found")
	ErrDuplicate = errors.New("store: record already exists")
)

type Store struct {
	db *gorm.DB
}

// NewStore runs migrations and wraps the database handle.
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&MonitoredAccount{}, &ProcessedPost{}, &Detection{}, &CoordinationReport{}); err != nil {
		return nil, fmt.Errorf("running database migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

// AddMonitoredAccount registers an account for scheduled scanning. Returns
// ErrDuplicate if the username is already on the list.
func (s *Store) AddMonitoredAccount(ctx context.Context, username, platform string) (*MonitoredAccount, error) {
	acct := MonitoredAccount{
		Username: username,
		Platform: platform,
		Active:   true,
	}
	if err := s.db.WithContext(ctx).Create(&acct).Error; err != nil {
		return nil, translateErr(err)
	}
	return &acct, nil
}

func (s *Store) GetMonitoredAccount(ctx context.Context, username string) (*MonitoredAccount, error) {
	var acct MonitoredAccount
	if err := s.db.WithContext(ctx).First(&acct, "username = ?", username).Error; err != nil {
		return nil, translateErr(err)
	}
	return &acct, nil
}

func (s *Store) ListMonitoredAccounts(ctx context.Context, activeOnly bool) ([]MonitoredAccount, error) {
	q := s.db.WithContext(ctx).Order("username")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var accounts []MonitoredAccount
	if err := q.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *Store) SetAccountActive(ctx context.Context, username string, active bool) error {
	res := s.db.WithContext(ctx).Model(&MonitoredAccount{}).
		Where("username = ?", username).
		Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastChecked stamps an account as freshly scanned.
func (s *Store) TouchLastChecked(ctx context.Context, username string) error {
	res := s.db.WithContext(ctx).Model(&MonitoredAccount{}).
		Where("username = ?", username).
		Update("last_checked", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DueAccounts returns active accounts that were never scanned, or whose last
// scan is older than the given age.
func (s *Store) DueAccounts(ctx context.Context, olderThan time.Duration) ([]MonitoredAccount, error) {
	cutoff := time.Now().Add(-olderThan)
	var accounts []MonitoredAccount
	err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Where("last_checked IS NULL OR last_checked <= ?", cutoff).
		Order("last_checked").
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// MarkPostProcessed records a scanned post. Re-marking an already-processed
// post is a no-op.
func (s *Store) MarkPostProcessed(ctx context.Context, post *ProcessedPost) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "post_id"}}, DoNothing: true}).
		Create(post).Error
}

func (s *Store) PostProcessed(ctx context.Context, postID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&ProcessedPost{}).
		Where("post_id = ?", postID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RecordDetection stores a new detection pending review. The row ID is
// populated on return.
func (s *Store) RecordDetection(ctx context.Context, det *Detection) error {
	return s.db.WithContext(ctx).Create(det).Error
}

func (s *Store) GetDetection(ctx context.Context, id uint) (*Detection, error) {
	var det Detection
	if err := s.db.WithContext(ctx).First(&det, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &det, nil
}

// PendingDetections lists detections that have not been reviewed yet, newest
// first.
func (s *Store) PendingDetections(ctx context.Context, limit int) ([]Detection, error) {
	q := s.db.WithContext(ctx).
		Where("warning_sent = ?", false).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var dets []Detection
	if err := q.Find(&dets).Error; err != nil {
		return nil, err
	}
	return dets, nil
}

// DetectionsSince lists detections recorded at or after the given time,
// newest first, reviewed or not.
func (s *Store) DetectionsSince(ctx context.Context, since time.Time, limit int) ([]Detection, error) {
	q := s.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var dets []Detection
	if err := q.Find(&dets).Error; err != nil {
		return nil, err
	}
	return dets, nil
}

// SetWarningStatus marks a detection as reviewed: sent records that the
// review finished, approved whether a warning reply was actually posted.
func (s *Store) SetWarningStatus(ctx context.Context, id uint, sent, approved bool) error {
	res := s.db.WithContext(ctx).Model(&Detection{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"warning_sent":     sent,
			"warning_approved": approved,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) RecordCoordination(ctx context.Context, report *CoordinationReport) error {
	return s.db.WithContext(ctx).Create(report).Error
}

func (s *Store) CoordinationForPost(ctx context.Context, postID string) ([]CoordinationReport, error) {
	var reports []CoordinationReport
	err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("confidence DESC, text").
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// Stats summarizes table counts for the admin surface.
type Stats struct {
	MonitoredAccounts int64 `json:"monitored_accounts"`
	ActiveAccounts    int64 `json:"active_accounts"`
	ProcessedPosts    int64 `json:"processed_posts"`
	Detections        int64 `json:"detections"`
	PendingReview     int64 `json:"pending_review"`
}

func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	var out Stats
	db := s.db.WithContext(ctx)
	if err := db.Model(&MonitoredAccount{}).Count(&out.MonitoredAccounts).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&MonitoredAccount{}).Where("active = ?", true).Count(&out.ActiveAccounts).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&ProcessedPost{}).Count(&out.ProcessedPosts).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&Detection{}).Count(&out.Detections).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&Detection{}).Where("warning_sent = ?", false).Count(&out.PendingReview).Error; err != nil {
		return nil, err
	}
	return &out, nil
}
