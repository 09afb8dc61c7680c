package repository

import (
	"context"
	"fmt"
	"time"

	models "clipsify/internal/media"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MediaRepo struct {
	store       *Store
	collections map[models.Kind]string
}

func NewMediaRepo(store *Store, imageCollection, videoCollection string) *MediaRepo {
	return &MediaRepo{
		store: store,
		collections: map[models.Kind]string{
			models.KindImage: imageCollection,
			models.KindVideo: videoCollection,
		},
	}
}

func (r *MediaRepo) col(ctx context.Context, kind models.Kind) (*mongo.Collection, error) {
	name, ok := r.collections[kind]
	if !ok {
		return nil, fmt.Errorf("no collection for kind %q", kind)
	}
	return r.store.Collection(ctx, name)
}

// EnsureIndexes creates the poster/createdAt index used by the "mine" listings.
func (r *MediaRepo) EnsureIndexes(ctx context.Context) error {
	for kind := range r.collections {
		col, err := r.col(ctx, kind)
		if err != nil {
			return err
		}
		_, err = col.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "postedBy.id", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("poster_created_idx"),
		})
		if err = r.store.observe(err); err != nil {
			return err
		}
	}
	return nil
}

func (r *MediaRepo) Insert(ctx context.Context, a *models.Asset) error {
	col, err := r.col(ctx, a.Kind)
	if err != nil {
		return err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.UpdatedAt = a.CreatedAt
	res, err := col.InsertOne(ctx, a)
	if err = r.store.observe(err); err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		a.ID = oid
	}
	return nil
}

// List returns assets of kind newest first. An empty posterID lists everyone's.
func (r *MediaRepo) List(ctx context.Context, kind models.Kind, posterID string) ([]models.Asset, error) {
	col, err := r.col(ctx, kind)
	if err != nil {
		return nil, err
	}
	filter := bson.M{}
	if posterID != "" {
		filter["postedBy.id"] = posterID
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := col.Find(ctx, filter, opts)
	if err = r.store.observe(err); err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]models.Asset, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, r.store.observe(err)
	}
	return out, nil
}

// UpdatePosterName rewrites the denormalized author name on every asset of kind
// posted by userID and reports how many documents changed.
func (r *MediaRepo) UpdatePosterName(ctx context.Context, kind models.Kind, userID, name string) (int64, error) {
	col, err := r.col(ctx, kind)
	if err != nil {
		return 0, err
	}
	res, err := col.UpdateMany(ctx,
		bson.M{"postedBy.id": userID},
		bson.M{"$set": bson.M{"postedBy.name": name, "updatedAt": time.Now().UTC()}},
	)
	if err = r.store.observe(err); err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MediaRepo) CountByPoster(ctx context.Context, kind models.Kind, userID string) (int64, error) {
	col, err := r.col(ctx, kind)
	if err != nil {
		return 0, err
	}
	n, err := col.CountDocuments(ctx, bson.M{"postedBy.id": userID})
	return n, r.store.observe(err)
}
