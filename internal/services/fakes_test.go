package service

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"clipsify/internal/cdn"
	models "clipsify/internal/media"
	"clipsify/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memMedia struct {
	mu     sync.Mutex
	assets []models.Asset
	err    error
}

func (m *memMedia) Insert(_ context.Context, a *models.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	a.ID = primitive.NewObjectID()
	a.UpdatedAt = a.CreatedAt
	m.assets = append(m.assets, *a)
	return nil
}

func (m *memMedia) List(_ context.Context, kind models.Kind, posterID string) ([]models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Asset, 0)
	for _, a := range m.assets {
		if a.Kind == kind && (posterID == "" || a.PostedBy.ID == posterID) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memMedia) UpdatePosterName(_ context.Context, kind models.Kind, userID, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for i := range m.assets {
		a := &m.assets[i]
		if a.Kind == kind && a.PostedBy.ID == userID && a.PostedBy.Name != name {
			a.PostedBy.Name = name
			n++
		}
	}
	return n, nil
}

func (m *memMedia) CountByPoster(_ context.Context, kind models.Kind, userID string) (int64, error) {
	list, _ := m.List(context.Background(), kind, userID)
	return int64(len(list)), nil
}

type memUsers struct {
	mu    sync.Mutex
	users []*models.User
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if x.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	cp := *u
	m.users = append(m.users, &cp)
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID.Hex() == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) Update(_ context.Context, id primitive.ObjectID, upd repository.ProfileUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID != id {
			continue
		}
		if upd.Name != nil {
			u.Name = *upd.Name
		}
		if upd.Bio != nil {
			u.Bio = *upd.Bio
		}
		if upd.Location != nil {
			u.Location = *upd.Location
		}
		if upd.ProfileCompleted != nil {
			u.ProfileCompleted = *upd.ProfileCompleted
		}
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

type recordingPropagator struct {
	calls [][2]string
}

func (r *recordingPropagator) PropagateNameAsync(userID, newName string) {
	r.calls = append(r.calls, [2]string{userID, newName})
}

type fakeSigner struct {
	configured bool
	calls      []string
}

func (f *fakeSigner) Configured() bool { return f.configured }

func (f *fakeSigner) SignedURL(src string, _ time.Duration) (string, error) {
	f.calls = append(f.calls, src)
	return src + "?ik-t=1&ik-s=sig", nil
}

type memCache struct {
	vals map[string]string
}

func (m *memCache) Set(_ context.Context, key, val string, _ time.Duration) error {
	if m.vals == nil {
		m.vals = map[string]string{}
	}
	m.vals[key] = val
	return nil
}

func (m *memCache) Get(_ context.Context, key string) (string, error) {
	return m.vals[key], nil
}

type fakeCDN struct {
	got    cdn.UploadInput
	body   []byte
	result *cdn.UploadResult
	err    error
}

func (f *fakeCDN) Upload(_ context.Context, in cdn.UploadInput) (*cdn.UploadResult, error) {
	f.got = in
	f.body, _ = io.ReadAll(in.File)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type memArchive struct {
	key  string
	body []byte
}

func (m *memArchive) Archive(_ context.Context, key, _ string, body io.Reader) error {
	m.key = key
	m.body, _ = io.ReadAll(body)
	return nil
}
