package model

import (
	"time"
)

// PresenceStatus is the enumerated presence of a profile.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusIdle    PresenceStatus = "idle"
	StatusDnd     PresenceStatus = "dnd"
	StatusOffline PresenceStatus = "offline"
)

// Valid reports whether s is one of the known presence values.
func (s PresenceStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusIdle, StatusDnd, StatusOffline:
		return true
	}
	return false
}

// Profile represents an account identity document
type Profile struct {
	ID          string         `json:"id" bson:"_id"`
	Username    string         `json:"username" bson:"username"`
	DisplayName string         `json:"displayName" bson:"display_name"`
	AvatarURL   string         `json:"avatarUrl,omitempty" bson:"avatar_url,omitempty"`
	Status      PresenceStatus `json:"status" bson:"status"`
	CreatedAt   time.Time      `json:"createdAt" bson:"created_at"`
	UpdatedAt   *time.Time     `json:"updatedAt,omitempty" bson:"updated_at,omitempty"`
}

// Summary returns the public part of the profile shown next to messages.
func (p Profile) Summary() ProfileSummary {
	return ProfileSummary{
		ID:          p.ID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
		Status:      p.Status,
	}
}

// ProfileSummary is the subset of a profile joined onto messages and conversations.
type ProfileSummary struct {
	ID          string         `json:"id" bson:"_id"`
	Username    string         `json:"username,omitempty" bson:"username,omitempty"`
	DisplayName string         `json:"displayName,omitempty" bson:"display_name,omitempty"`
	AvatarURL   string         `json:"avatarUrl,omitempty" bson:"avatar_url,omitempty"`
	Status      PresenceStatus `json:"status,omitempty" bson:"status,omitempty"`
}

// ProfileUpdate carries the owner-editable fields. Nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName *string         `json:"displayName,omitempty"`
	AvatarURL   *string         `json:"avatarUrl,omitempty"`
	Status      *PresenceStatus `json:"status,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.DisplayName == nil && u.AvatarURL == nil && u.Status == nil
}
