package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	models "clipsify/internal/media"
	"clipsify/internal/metrics"

	"go.uber.org/zap"
)

// MediaStore is the persistence the media service needs; repository.MediaRepo implements it.
type MediaStore interface {
	Insert(ctx context.Context, a *models.Asset) error
	List(ctx context.Context, kind models.Kind, posterID string) ([]models.Asset, error)
	UpdatePosterName(ctx context.Context, kind models.Kind, userID, name string) (int64, error)
	CountByPoster(ctx context.Context, kind models.Kind, userID string) (int64, error)
}

// CommitInput is what a client reports after a successful CDN upload.
type CommitInput struct {
	Kind           models.Kind
	Title          string
	Description    string
	MediaURL       string
	ThumbnailURL   string
	Transformation *models.Transformation
	Controls       *bool
}

type Stats struct {
	Images        int64 `json:"images"`
	Videos        int64 `json:"videos"`
	TotalProjects int64 `json:"totalProjects"`
}

type MediaService struct {
	repo MediaStore
	log  *zap.Logger

	propagationTimeout time.Duration
	spawn              func(func())
}

func NewMediaService(repo MediaStore, log *zap.Logger) *MediaService {
	return &MediaService{
		repo:               repo,
		log:                log,
		propagationTimeout: 30 * time.Second,
		spawn:              func(f func()) { go f() },
	}
}

// Commit stores a new asset authored by who. Authorship always comes from the
// session identity, never from the request.
func (s *MediaService) Commit(ctx context.Context, who models.Identity, in CommitInput) (*models.Asset, error) {
	if err := validateCommit(in); err != nil {
		return nil, err
	}

	controls := true
	if in.Controls != nil {
		controls = *in.Controls
	}
	asset := &models.Asset{
		Kind:           in.Kind,
		Title:          strings.TrimSpace(in.Title),
		Description:    strings.TrimSpace(in.Description),
		SourceURL:      in.MediaURL,
		Transformation: in.Transformation.WithDefaults(in.Kind),
		Controls:       controls,
		PostedBy:       who.Poster(),
		CreatedAt:      time.Now().UTC(),
	}
	if in.Kind == models.KindVideo {
		asset.ThumbnailURL = in.ThumbnailURL
		if asset.ThumbnailURL == "" {
			asset.ThumbnailURL = in.MediaURL
		}
	}

	if err := s.repo.Insert(ctx, asset); err != nil {
		metrics.Commits.WithLabelValues(string(in.Kind), "error").Inc()
		return nil, fmt.Errorf("save %s: %w", in.Kind, err)
	}
	metrics.Commits.WithLabelValues(string(in.Kind), "ok").Inc()
	s.log.Info("media committed",
		zap.String("kind", string(asset.Kind)),
		zap.String("id", asset.ID.Hex()),
		zap.String("user_id", who.UserID),
	)
	return asset, nil
}

func validateCommit(in CommitInput) error {
	if _, err := models.ParseKind(string(in.Kind)); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Description) == "" || strings.TrimSpace(in.MediaURL) == "" {
		return fmt.Errorf("%w: Missing required fields", ErrValidation)
	}
	if !isHTTPURL(in.MediaURL) {
		return fmt.Errorf("%w: Invalid media URL", ErrValidation)
	}
	if in.ThumbnailURL != "" && !isHTTPURL(in.ThumbnailURL) {
		return fmt.Errorf("%w: Invalid thumbnail URL", ErrValidation)
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (s *MediaService) ListAll(ctx context.Context, kind models.Kind) ([]models.Asset, error) {
	return s.repo.List(ctx, kind, "")
}

// ListMine lists the caller's assets. An empty userID is rejected rather than
// widened into the global listing.
func (s *MediaService) ListMine(ctx context.Context, kind models.Kind, userID string) ([]models.Asset, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrValidation)
	}
	return s.repo.List(ctx, kind, userID)
}

// PropagateName rewrites postedBy.name on every asset of kind posted by userID.
func (s *MediaService) PropagateName(ctx context.Context, kind models.Kind, userID, newName string) (int64, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return 0, fmt.Errorf("%w: New name is required", ErrValidation)
	}
	if userID == "" {
		return 0, fmt.Errorf("%w: missing user id", ErrValidation)
	}
	return s.repo.UpdatePosterName(ctx, kind, userID, newName)
}

// PropagateNameAsync starts a best-effort rewrite over images and videos and
// returns immediately. Failures are logged and counted, never retried.
func (s *MediaService) PropagateNameAsync(userID, newName string) {
	s.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.propagationTimeout)
		defer cancel()
		for _, kind := range []models.Kind{models.KindImage, models.KindVideo} {
			n, err := s.PropagateName(ctx, kind, userID, newName)
			if err != nil {
				metrics.Propagations.WithLabelValues(string(kind), "error").Inc()
				s.log.Warn("name propagation failed",
					zap.String("kind", string(kind)), zap.String("user_id", userID), zap.Error(err))
				continue
			}
			metrics.Propagations.WithLabelValues(string(kind), "ok").Inc()
			s.log.Debug("name propagated",
				zap.String("kind", string(kind)), zap.String("user_id", userID), zap.Int64("updated", n))
		}
	})
}

func (s *MediaService) Stats(ctx context.Context, userID string) (*Stats, error) {
	images, err := s.repo.CountByPoster(ctx, models.KindImage, userID)
	if err != nil {
		return nil, fmt.Errorf("count images: %w", err)
	}
	videos, err := s.repo.CountByPoster(ctx, models.KindVideo, userID)
	if err != nil {
		return nil, fmt.Errorf("count videos: %w", err)
	}
	return &Stats{Images: images, Videos: videos, TotalProjects: images + videos}, nil
}
