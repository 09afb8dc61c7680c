package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	models "clipsify/internal/media"
	"clipsify/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// UserStore is implemented by repository.UserRepo.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, upd repository.ProfileUpdate) (*models.User, error)
}

// NamePropagator rewrites denormalized author names in the background.
type NamePropagator interface {
	PropagateNameAsync(userID, newName string)
}

type ProfileInput struct {
	Name     *string
	Bio      *string
	Location *string
}

type ProfileService struct {
	users      UserStore
	propagator NamePropagator
	log        *zap.Logger
}

func NewProfileService(users UserStore, propagator NamePropagator, log *zap.Logger) *ProfileService {
	return &ProfileService{users: users, propagator: propagator, log: log}
}

// Get resolves the caller's profile by id, falling back to the session email
// for identities whose id is not a stored user id.
func (s *ProfileService) Get(ctx context.Context, who models.Identity) (*models.User, error) {
	u, err := s.users.GetByID(ctx, who.UserID)
	if errors.Is(err, repository.ErrNotFound) && who.Email != "" {
		u, err = s.users.FindByEmail(ctx, who.Email)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return u, nil
}

// Update applies the provided fields, creating the profile from the session on
// first edit. A changed name is pushed to the caller's assets without waiting.
func (s *ProfileService) Update(ctx context.Context, who models.Identity, in ProfileInput) (*models.User, error) {
	name := trimmed(in.Name)
	bio, location := in.Bio, in.Location
	complete := name != "" && trimmed(bio) != "" && trimmed(location) != ""

	current, err := s.Get(ctx, who)
	if errors.Is(err, ErrNotFound) {
		if who.Email == "" {
			return nil, fmt.Errorf("%w: session has no email", ErrValidation)
		}
		u := &models.User{
			Name:             firstNonEmpty(name, who.Name),
			Email:            who.Email,
			Bio:              deref(bio),
			Location:         deref(location),
			Provider:         "oauth",
			ProfileCompleted: complete,
		}
		err := s.users.Create(ctx, u)
		switch {
		case err == nil:
			s.log.Info("profile created", zap.String("email", u.Email))
			s.propagateIfRenamed(who, who.Name, u.Name)
			return u, nil
		case !errors.Is(err, repository.ErrDuplicate):
			return nil, fmt.Errorf("create profile: %w", err)
		}
		// A concurrent first edit won the insert. Apply this edit to its row.
		current, err = s.users.FindByEmail(ctx, who.Email)
		if err != nil {
			return nil, fmt.Errorf("get profile after create race: %w", err)
		}
	} else if err != nil {
		return nil, err
	}

	upd := repository.ProfileUpdate{Bio: bio, Location: location}
	if name != "" {
		upd.Name = &name
	}
	if complete {
		upd.ProfileCompleted = &complete
	}
	u, err := s.users.Update(ctx, current.ID, upd)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	s.propagateIfRenamed(who, current.Name, u.Name)
	return u, nil
}

func (s *ProfileService) propagateIfRenamed(who models.Identity, oldName, newName string) {
	if s.propagator == nil || newName == "" || newName == oldName {
		return
	}
	s.propagator.PropagateNameAsync(who.UserID, newName)
}

func trimmed(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
