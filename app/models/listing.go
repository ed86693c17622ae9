package models

import "time"

// Listing holds the columns every vendor category table shares. Content
// columns are owned by the listing wizards; billing only flips IsDraft.
type Listing struct {
	ID           string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	UserID       string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	BusinessName string    `gorm:"type:varchar(200)" json:"business_name"`
	City         string    `gorm:"type:varchar(120)" json:"city"`
	State        string    `gorm:"type:varchar(64)" json:"state"`
	IsDraft      bool      `gorm:"not null" json:"is_draft"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type VenueListing struct {
	Listing
	MaxGuests int `json:"max_guests"`
}

func (VenueListing) TableName() string { return "venue_listing" }

type HairMakeupListing struct {
	Listing
	ServiceRadiusMiles int `json:"service_radius_miles"`
}

func (HairMakeupListing) TableName() string { return "hair_makeup_listing" }

type PhotoVideoListing struct {
	Listing
	OffersVideo bool `json:"offers_video"`
}

func (PhotoVideoListing) TableName() string { return "photo_video_listing" }

type DJListing struct {
	Listing
	ProvidesLighting bool `json:"provides_lighting"`
}

func (DJListing) TableName() string { return "dj_listing" }

type WeddingPlannerListing struct {
	Listing
	DayOfCoordination bool `json:"day_of_coordination"`
}

func (WeddingPlannerListing) TableName() string { return "wedding_planner_listing" }
