package models

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindImage, KindVideo:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown media kind %q", s)
}

// Default render hints applied when a commit carries none.
var (
	ImageDimensions = Transformation{Width: 720, Height: 1280, Quality: 80}
	VideoDimensions = Transformation{Width: 1080, Height: 1920}
)

func DefaultTransformation(k Kind) Transformation {
	if k == KindVideo {
		return VideoDimensions
	}
	return ImageDimensions
}

// Transformation is a rendering hint for galleries. It is never applied to SourceURL.
type Transformation struct {
	Width   int `bson:"width" json:"width"`
	Height  int `bson:"height" json:"height"`
	Quality int `bson:"quality,omitempty" json:"quality,omitempty"`
}

// WithDefaults fills zero fields from the kind's defaults.
func (t *Transformation) WithDefaults(k Kind) Transformation {
	d := DefaultTransformation(k)
	if t == nil {
		return d
	}
	out := *t
	if out.Width <= 0 {
		out.Width = d.Width
	}
	if out.Height <= 0 {
		out.Height = d.Height
	}
	if out.Quality <= 0 || out.Quality > 100 {
		out.Quality = d.Quality
	}
	return out
}

// Poster is the author snapshot embedded in every asset. Name may lag the profile.
type Poster struct {
	ID    string `bson:"id" json:"id"`
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`
}

// Asset is an uploaded image or video. Images and videos share every field except
// ThumbnailURL, which only videos carry. On the wire and in Mongo the source URL
// is named imageUrl or videoUrl depending on Kind.
type Asset struct {
	ID             primitive.ObjectID
	Kind           Kind
	Title          string
	Description    string
	SourceURL      string
	ThumbnailURL   string
	Transformation Transformation
	Controls       bool
	PostedBy       Poster
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type assetDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Kind           Kind               `bson:"kind" json:"kind"`
	Title          string             `bson:"title" json:"title"`
	Description    string             `bson:"description" json:"description"`
	ImageURL       string             `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	VideoURL       string             `bson:"videoUrl,omitempty" json:"videoUrl,omitempty"`
	ThumbnailURL   string             `bson:"thumbnailUrl,omitempty" json:"thumbnailUrl,omitempty"`
	Transformation Transformation     `bson:"transformation" json:"transformation"`
	Controls       bool               `bson:"controls" json:"controls"`
	PostedBy       Poster             `bson:"postedBy" json:"postedBy"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (a Asset) doc() assetDoc {
	d := assetDoc{
		ID:             a.ID,
		Kind:           a.Kind,
		Title:          a.Title,
		Description:    a.Description,
		Transformation: a.Transformation,
		Controls:       a.Controls,
		PostedBy:       a.PostedBy,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
	if a.Kind == KindVideo {
		d.VideoURL = a.SourceURL
		d.ThumbnailURL = a.ThumbnailURL
	} else {
		d.ImageURL = a.SourceURL
	}
	return d
}

func (a *Asset) fromDoc(d assetDoc) {
	*a = Asset{
		ID:             d.ID,
		Kind:           d.Kind,
		Title:          d.Title,
		Description:    d.Description,
		Transformation: d.Transformation,
		Controls:       d.Controls,
		PostedBy:       d.PostedBy,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	// records written before kind was stored are recognised by their url field
	if a.Kind == "" {
		if d.VideoURL != "" {
			a.Kind = KindVideo
		} else {
			a.Kind = KindImage
		}
	}
	if a.Kind == KindVideo {
		a.SourceURL = d.VideoURL
		a.ThumbnailURL = d.ThumbnailURL
	} else {
		a.SourceURL = d.ImageURL
	}
}

func (a Asset) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.doc())
}

func (a *Asset) UnmarshalJSON(b []byte) error {
	var d assetDoc
	if err := json.Unmarshal(b, &d); err != nil {
		return err
	}
	a.fromDoc(d)
	return nil
}

func (a Asset) MarshalBSON() ([]byte, error) {
	return bson.Marshal(a.doc())
}

func (a *Asset) UnmarshalBSON(b []byte) error {
	var d assetDoc
	if err := bson.Unmarshal(b, &d); err != nil {
		return err
	}
	a.fromDoc(d)
	return nil
}
