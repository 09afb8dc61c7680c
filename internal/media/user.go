package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name             string             `bson:"name" json:"name"`
	Email            string             `bson:"email" json:"email"`
	PasswordHash     string             `bson:"password,omitempty" json:"-"`
	Bio              string             `bson:"bio" json:"bio"`
	Location         string             `bson:"location" json:"location"`
	Image            string             `bson:"image" json:"image"`
	Provider         string             `bson:"provider" json:"provider"`
	ProfileCompleted bool               `bson:"profileCompleted" json:"profileCompleted"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Identity is what the session provider vouches for on every request.
type Identity struct {
	UserID string
	Name   string
	Email  string
}

// Poster returns the author snapshot to embed in a new asset.
func (i Identity) Poster() Poster {
	name := i.Name
	if name == "" {
		name = "Unknown"
	}
	return Poster{ID: i.UserID, Name: name, Email: i.Email}
}
