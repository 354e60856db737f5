package models

import "time"

// CourseSession owns the capacity counters. BookedSpots moves exactly once
// per confirmed booking, never per payment event.
type CourseSession struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	TenantID       uint      `gorm:"not null;index" json:"tenant_id"`
	CourseID       uint      `gorm:"not null;index" json:"course_id"`
	StartAt        time.Time `json:"start_at"`
	EndAt          time.Time `json:"end_at"`
	AvailableSpots int       `gorm:"not null" json:"available_spots"`
	BookedSpots    int       `gorm:"not null;default:0" json:"booked_spots"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
