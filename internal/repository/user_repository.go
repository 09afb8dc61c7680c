package repository

import (
	"context"
	"errors"
	"time"

	models "clipsify/internal/media"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProfileUpdate carries only the fields the caller wants changed.
type ProfileUpdate struct {
	Name             *string
	Bio              *string
	Location         *string
	ProfileCompleted *bool
}

type UserRepo struct {
	store      *Store
	collection string
}

func NewUserRepo(store *Store, collection string) *UserRepo {
	return &UserRepo{store: store, collection: collection}
}

func (r *UserRepo) EnsureIndexes(ctx context.Context) error {
	col, err := r.store.Collection(ctx, r.collection)
	if err != nil {
		return err
	}
	_, err = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	return r.store.observe(err)
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	col, err := r.store.Collection(ctx, r.collection)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Provider == "" {
		u.Provider = "credentials"
	}
	res, err := col.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err = r.store.observe(err); err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

// GetByID looks a user up by hex ObjectID. Ids that are not ObjectIDs (for
// example OAuth subject ids) report ErrNotFound.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	col, err := r.store.Collection(ctx, r.collection)
	if err != nil {
		return nil, err
	}
	var u models.User
	err = col.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err = r.store.observe(err); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Update(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (*models.User, error) {
	col, err := r.store.Collection(ctx, r.collection)
	if err != nil {
		return nil, err
	}
	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Bio != nil {
		set["bio"] = *upd.Bio
	}
	if upd.Location != nil {
		set["location"] = *upd.Location
	}
	if upd.ProfileCompleted != nil {
		set["profileCompleted"] = *upd.ProfileCompleted
	}
	var u models.User
	err = col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err = r.store.observe(err); err != nil {
		return nil, err
	}
	return &u, nil
}
