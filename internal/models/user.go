package models

import "time"

// User is an application user and the owner of a set of remote images.
// Images keeps insertion order; the newest upload is appended last.
type User struct {
	ID           string     `bson:"_id,omitempty" json:"id"`
	Email        string     `bson:"email" json:"email"`
	FirstName    string     `bson:"firstName" json:"firstName"`
	LastName     string     `bson:"lastName" json:"lastName"`
	PasswordHash string     `bson:"passwordHash,omitempty" json:"-"`
	Images       []ImageRef `bson:"images" json:"images"`
	CreatedAt    time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time  `bson:"updatedAt" json:"updatedAt"`
}
