package models

import "time"

type DailyActionTracker struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"not null;index:idx_trackers_user_date" json:"user_id"`
	TemplateID     uint       `gorm:"not null" json:"template_id"`
	CenterID       *string    `gorm:"index:idx_trackers_center_date" json:"center_id,omitempty"`
	Date           time.Time  `gorm:"type:date;not null;index:idx_trackers_user_date;index:idx_trackers_center_date" json:"date"`
	CompletedItems []string   `gorm:"serializer:json;not null" json:"completed_items"`
	Notes          *string    `json:"notes,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `gorm:"not null;autoCreateTime:false" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null;autoUpdateTime:false" json:"updated_at"`
}

func (tracker DailyActionTracker) Clone() DailyActionTracker {
	clone := tracker
	clone.CenterID = cloneString(tracker.CenterID)
	clone.CompletedItems = cloneStrings(tracker.CompletedItems)
	clone.Notes = cloneString(tracker.Notes)
	clone.CompletedAt = cloneTime(tracker.CompletedAt)
	return clone
}
