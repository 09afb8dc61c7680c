package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"sync"
	"testing"
	"time"

	"clipsify/internal/auth"
	"clipsify/internal/cdn"
	models "clipsify/internal/media"
	"clipsify/internal/repository"
	service "clipsify/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memMedia struct {
	mu     sync.Mutex
	assets []models.Asset
}

func (m *memMedia) Insert(_ context.Context, a *models.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = primitive.NewObjectID()
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
	var n int64
	for i := range m.assets {
		if m.assets[i].Kind == kind && m.assets[i].PostedBy.ID == userID {
			m.assets[i].PostedBy.Name = name
			n++
		}
	}
	return n, nil
}

func (m *memMedia) CountByPoster(ctx context.Context, kind models.Kind, userID string) (int64, error) {
	l, _ := m.List(ctx, kind, userID)
	return int64(len(l)), nil
}

type memUsers struct {
	mu    sync.Mutex
	users []models.User
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
	m.users = append(m.users, *u)
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID.Hex() == id {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) Update(_ context.Context, id primitive.ObjectID, upd repository.ProfileUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		u := &m.users[i]
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

type fakeUploader struct {
	got cdn.UploadInput
	err error
}

func (f *fakeUploader) Upload(_ context.Context, in cdn.UploadInput) (*cdn.UploadResult, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return &cdn.UploadResult{FileID: "f1", URL: "https://ik.imagekit.io/demo" + in.Folder + "/" + in.FileName}, nil
}

type testEnv struct {
	app    *fiber.App
	media  *memMedia
	users  *memUsers
	upload *fakeUploader
	jwt    *auth.JWTManager
}

func newEnv(t *testing.T, cdnCfg cdn.Config) *testEnv {
	t.Helper()
	log := zap.NewNop()
	jwtm, err := auth.NewJWTManager("handler-test-secret", time.Hour)
	require.NoError(t, err)

	env := &testEnv{media: &memMedia{}, users: &memUsers{}, upload: &fakeUploader{}, jwt: jwtm}
	cdnClient := cdn.New(cdnCfg, nil)
	msvc := service.NewMediaService(env.media, log)

	env.app = fiber.New()
	Register(env.app, Deps{
		Verifier: jwtm,
		Log:      log,
		Auth:     NewAuthHandler(service.NewAccountService(env.users, jwtm), log),
		Upload: NewUploadHandler(
			service.NewUploadAuthIssuer(cdnClient, time.Hour, log),
			service.NewUploadProxy(env.upload, nil, log),
			log,
		),
		Media:    NewMediaHandler(msvc, log),
		Playback: NewPlaybackHandler(service.NewPlaybackResolver(cdnClient, nil, time.Hour, 0, log), log),
		Profile:  NewProfileHandler(service.NewProfileService(env.users, msvc, log), log),
	})
	return env
}

var configured = cdn.Config{
	PublicKey:   "public_test",
	PrivateKey:  "private_test",
	URLEndpoint: "https://ik.imagekit.io/demo",
}

func (e *testEnv) token(t *testing.T, id models.Identity) string {
	t.Helper()
	tok, _, err := e.jwt.Generate(id)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, 5000)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var m map[string]interface{}
	_ = json.Unmarshal(raw, &m)
	return resp.StatusCode, m, raw
}

var ana = models.Identity{UserID: "u-ana", Name: "Ana", Email: "ana@example.com"}

func TestMineRequiresSession(t *testing.T) {
	env := newEnv(t, configured)
	for _, p := range []string{"/api/image/my", "/api/video/my", "/api/stats", "/api/profile"} {
		code, body, _ := env.do(t, http.MethodGet, p, "", nil)
		assert.Equal(t, http.StatusUnauthorized, code, p)
		assert.Equal(t, "Unauthorized", body["error"], p)
	}
	code, _, _ := env.do(t, http.MethodGet, "/api/video/my", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestCommitVideo(t *testing.T) {
	env := newEnv(t, configured)
	tok := env.token(t, ana)

	code, body, _ := env.do(t, http.MethodPost, "/api/video", tok, map[string]interface{}{
		"title":       "Sunset",
		"description": "beach",
		"videoUrl":    "https://ik.imagekit.io/demo/videos/sunset.mp4",
		"postedBy":    map[string]string{"id": "u-mallory", "name": "Mallory"},
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Video saved successfully", body["message"])

	video := body["video"].(map[string]interface{})
	assert.Equal(t, "https://ik.imagekit.io/demo/videos/sunset.mp4", video["videoUrl"])
	assert.Equal(t, video["videoUrl"], video["thumbnailUrl"])
	assert.Equal(t, true, video["controls"])
	posted := video["postedBy"].(map[string]interface{})
	assert.Equal(t, "u-ana", posted["id"])
	assert.Equal(t, "Ana", posted["name"])

	code, _, raw := env.do(t, http.MethodGet, "/api/video/my", tok, nil)
	require.Equal(t, http.StatusOK, code)
	var mine []models.Asset
	require.NoError(t, json.Unmarshal(raw, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "Sunset", mine[0].Title)

	code, _, raw = env.do(t, http.MethodGet, "/api/video/my", env.token(t, models.Identity{UserID: "u-bob"}), nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestCommitImageMissingTitle(t *testing.T) {
	env := newEnv(t, configured)
	code, body, _ := env.do(t, http.MethodPost, "/api/image", env.token(t, ana), map[string]string{
		"title":       "",
		"description": "d",
		"imageUrl":    "https://ik.imagekit.io/demo/cat.png",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing required fields", body["error"])
	assert.Empty(t, env.media.assets)
}

func TestCommitWithoutSessionWritesNothing(t *testing.T) {
	env := newEnv(t, configured)
	code, _, _ := env.do(t, http.MethodPost, "/api/image", "", map[string]string{
		"title": "t", "description": "d", "imageUrl": "https://ik.imagekit.io/demo/cat.png",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Empty(t, env.media.assets)
}

func TestListAllIsPublic(t *testing.T) {
	env := newEnv(t, configured)
	code, _, raw := env.do(t, http.MethodGet, "/api/image", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestAuthorizeUpload(t *testing.T) {
	env := newEnv(t, configured)
	before := time.Now().Unix()
	code, body, _ := env.do(t, http.MethodGet, "/api/auth/imagekit-auth", "", nil)
	require.Equal(t, http.StatusOK, code)

	expire := int64(body["expire"].(float64))
	assert.GreaterOrEqual(t, expire, before)
	assert.LessOrEqual(t, expire, time.Now().Unix()+3600)
	assert.Len(t, body["signature"], 40)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "public_test", body["publicKey"])
	assert.NotContains(t, body, "privateKey")

	code, _, _ = env.do(t, http.MethodGet, "/api/upload", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAuthorizeUploadNotConfigured(t *testing.T) {
	env := newEnv(t, cdn.Config{PublicKey: "public_test"})
	code, body, _ := env.do(t, http.MethodGet, "/api/auth/imagekit-auth", "", nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Authentication for Imagekit failed", body["error"])
}

func TestPublicVideoURL(t *testing.T) {
	env := newEnv(t, configured)

	code, body, _ := env.do(t, http.MethodPost, "/api/video/public", "", map[string]string{"videoUrl": ""})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing video URL", body["error"])

	code, body, _ = env.do(t, http.MethodPost, "/api/video/public", "", map[string]string{
		"videoUrl": "https://ik.imagekit.io/demo/tr:w-300/videos/clip.mp4?tr=h-200",
	})
	require.Equal(t, http.StatusOK, code)
	u := body["publicUrl"].(string)
	assert.Contains(t, u, "https://ik.imagekit.io/demo/videos/clip.mp4?")
	assert.Contains(t, u, "ik-s=")
	assert.NotContains(t, u, "tr:")
	assert.NotContains(t, u, "tr=")
}

func TestPublicVideoURLNotConfigured(t *testing.T) {
	env := newEnv(t, cdn.Config{})
	code, body, _ := env.do(t, http.MethodPost, "/api/video/public", "", map[string]string{"videoUrl": "https://x/v.mp4"})
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "ImageKit configuration missing", body["error"])
}

func TestUpdateName(t *testing.T) {
	env := newEnv(t, configured)
	tok := env.token(t, ana)
	env.media.assets = []models.Asset{
		{Kind: models.KindImage, PostedBy: models.Poster{ID: "u-ana", Name: "Ana"}},
		{Kind: models.KindImage, PostedBy: models.Poster{ID: "u-bob", Name: "Bob"}},
	}

	code, body, _ := env.do(t, http.MethodPut, "/api/image/update-name", tok, map[string]string{"newName": ""})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "New name is required", body["error"])

	code, body, _ = env.do(t, http.MethodPut, "/api/image/update-name", tok, map[string]string{"newName": "Anna"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["updatedCount"])
	assert.Equal(t, "Anna", env.media.assets[0].PostedBy.Name)
	assert.Equal(t, "Bob", env.media.assets[1].PostedBy.Name)
}

func TestRegisterLoginProfileStats(t *testing.T) {
	env := newEnv(t, configured)

	code, body, _ := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "ana@example.com", "password": "s3cret!", "name": "Ana",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "User registered successfully", body["message"])

	code, body, _ = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "ana@example.com", "password": "x", "name": "Ana",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "User already exists", body["error"])

	code, _, _ = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body, _ = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@example.com", "password": "s3cret!"})
	require.Equal(t, http.StatusOK, code)
	tok := body["token"].(string)
	require.NotEmpty(t, tok)
	assert.NotContains(t, body["user"], "password")

	code, body, _ = env.do(t, http.MethodGet, "/api/profile", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Ana", body["name"])
	assert.Equal(t, false, body["profileCompleted"])
	assert.Contains(t, body, "joinDate")

	code, body, _ = env.do(t, http.MethodPut, "/api/profile", tok, map[string]string{
		"name": "Ana", "bio": "filmmaker", "location": "Lisbon",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["user"].(map[string]interface{})["profileCompleted"])

	code, body, _ = env.do(t, http.MethodGet, "/api/stats", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), body["totalProjects"])
}

func TestProfileRenamePropagatesToMine(t *testing.T) {
	env := newEnv(t, configured)
	alex := models.Identity{UserID: "u-alex", Name: "Alex", Email: "alex@example.com"}
	tok := env.token(t, alex)
	env.media.assets = []models.Asset{
		{Kind: models.KindImage, Title: "Harbor", SourceURL: "https://ik.imagekit.io/demo/a.png",
			PostedBy: models.Poster{ID: "u-alex", Name: "Alex", Email: "alex@example.com"}},
		{Kind: models.KindImage, Title: "Field", SourceURL: "https://ik.imagekit.io/demo/b.png",
			PostedBy: models.Poster{ID: "u-bob", Name: "Bob"}},
	}

	code, body, _ := env.do(t, http.MethodPut, "/api/profile", tok, map[string]string{"name": "Alexandra"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Alexandra", body["user"].(map[string]interface{})["name"])

	assert.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/api/image/my", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		resp, err := env.app.Test(req, 5000)
		if err != nil || resp.StatusCode != http.StatusOK {
			return false
		}
		defer resp.Body.Close()
		var mine []models.Asset
		if json.NewDecoder(resp.Body).Decode(&mine) != nil || len(mine) != 1 {
			return false
		}
		return mine[0].PostedBy.ID == "u-alex" && mine[0].PostedBy.Name == "Alexandra"
	}, 2*time.Second, 10*time.Millisecond)

	_, _, raw := env.do(t, http.MethodGet, "/api/image", "", nil)
	var all []models.Asset
	require.NoError(t, json.Unmarshal(raw, &all))
	for _, a := range all {
		if a.PostedBy.ID == "u-bob" {
			assert.Equal(t, "Bob", a.PostedBy.Name)
		}
	}
}

func TestProfileNotFound(t *testing.T) {
	env := newEnv(t, configured)
	code, body, _ := env.do(t, http.MethodGet, "/api/profile", env.token(t, ana), nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "User not found", body["error"])
}

func multipartUpload(t *testing.T, env *testEnv, token, name, contentType string, data []byte) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write(data)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := env.app.Test(req, 5000)
	require.NoError(t, err)
	var m map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&m)
	return resp.StatusCode, m
}

func TestProxyUpload(t *testing.T) {
	env := newEnv(t, configured)
	tok := env.token(t, ana)

	code, _ := multipartUpload(t, env, "", "clip.mp4", "video/mp4", []byte("mp4"))
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := multipartUpload(t, env, tok, "notes.txt", "text/plain", []byte("hi"))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Please upload an image or video file", body["error"])

	code, body = multipartUpload(t, env, tok, "clip.mp4", "video/mp4", []byte("mp4"))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "https://ik.imagekit.io/demo/videos/clip.mp4", body["videoUrl"])
	assert.Equal(t, "f1", body["fileId"])
	assert.Equal(t, "/videos", env.upload.got.Folder)

	env.upload.err = cdn.ErrDenied
	code, _ = multipartUpload(t, env, tok, "clip.mp4", "video/mp4", []byte("mp4"))
	assert.Equal(t, http.StatusBadGateway, code)
}

func TestHealthz(t *testing.T) {
	env := newEnv(t, configured)
	code, _, raw := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", string(raw))
}
