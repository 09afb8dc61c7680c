// Package cdn talks to an ImageKit-compatible media CDN: it mints client upload
// credentials, signs delivery URLs and performs server-side uploads.
package cdn

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	utils "clipsify/internal/utis"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

var (
	ErrNotConfigured = errors.New("cdn configuration missing")
	ErrDenied        = errors.New("cdn rejected credentials")
)

// MaxUploadAuthTTL bounds how far in the future an upload token may expire.
const MaxUploadAuthTTL = time.Hour

type Config struct {
	PublicKey      string
	PrivateKey     string
	URLEndpoint    string
	UploadEndpoint string
}

// Credentials is everything a browser or CLI needs for one direct upload.
type Credentials struct {
	Token       string `json:"token"`
	Expire      int64  `json:"expire"`
	Signature   string `json:"signature"`
	PublicKey   string `json:"publicKey"`
	URLEndpoint string `json:"urlEndpoint"`
}

// UploadResult is the subset of the CDN upload response the service relies on.
type UploadResult struct {
	FileID       string `json:"fileId"`
	Name         string `json:"name"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
	FilePath     string `json:"filePath"`
	Size         int64  `json:"size"`
	FileType     string `json:"fileType"`
}

type Client struct {
	cfg      Config
	rest     *resty.Client
	now      func() time.Time
	newToken func() string
}

func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	cfg.URLEndpoint = strings.TrimRight(cfg.URLEndpoint, "/")
	return &Client{
		cfg:      cfg,
		rest:     resty.NewWithClient(httpClient),
		now:      time.Now,
		newToken: func() string { return uuid.NewString() },
	}
}

func (c *Client) Configured() bool {
	return c.cfg.PublicKey != "" && c.cfg.PrivateKey != "" && c.cfg.URLEndpoint != ""
}

func (c *Client) URLEndpoint() string { return c.cfg.URLEndpoint }

// Credentials mints a single-use upload token expiring ttl from now. The
// signature is HMAC-SHA1 over token+expire keyed by the private key.
func (c *Client) Credentials(ttl time.Duration) (*Credentials, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if ttl <= 0 || ttl > MaxUploadAuthTTL {
		ttl = MaxUploadAuthTTL
	}
	token := c.newToken()
	expire := c.now().Add(ttl).Unix()
	return &Credentials{
		Token:       token,
		Expire:      expire,
		Signature:   c.sign(token + strconv.FormatInt(expire, 10)),
		PublicKey:   c.cfg.PublicKey,
		URLEndpoint: c.cfg.URLEndpoint,
	}, nil
}

// SignedURL returns src with an expiry and signature appended. No transformation
// is added, so the URL always serves the original asset.
func (c *Client) SignedURL(src string, expiresIn time.Duration) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	expiry := strconv.FormatInt(c.now().Add(expiresIn).Unix(), 10)
	signed := strings.TrimPrefix(src, c.cfg.URLEndpoint+"/")

	sep := "?"
	if strings.Contains(src, "?") {
		sep = "&"
	}
	q := url.Values{}
	q.Set("ik-t", expiry)
	q.Set("ik-s", c.sign(signed+expiry))
	return src + sep + q.Encode(), nil
}

func (c *Client) sign(payload string) string {
	mac := hmac.New(sha1.New, []byte(c.cfg.PrivateKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// UploadInput describes a server-side upload.
type UploadInput struct {
	File     io.Reader
	FileName string
	Folder   string
}

// Upload sends a file to the CDN using private key authentication.
func (c *Client) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if !c.Configured() || c.cfg.UploadEndpoint == "" {
		return nil, ErrNotConfigured
	}

	fields := map[string]string{
		"fileName":          in.FileName,
		"useUniqueFileName": "true",
	}
	if in.Folder != "" {
		fields["folder"] = in.Folder
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetBasicAuth(c.cfg.PrivateKey, "").
		SetMultipartFormData(fields).
		SetFileReader("file", in.FileName, in.File).
		SetDoNotParseResponse(true).
		Post(c.cfg.UploadEndpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrUploadFailed, err)
	}
	defer resp.RawBody().Close()
	return DecodeUploadResponse(resp.RawResponse)
}

// DecodeUploadResponse maps a CDN upload response onto a result or an error.
// 401 and 403 become ErrDenied; any other non-2xx becomes utils.ErrUploadFailed.
func DecodeUploadResponse(resp *http.Response) (*UploadResult, error) {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrDenied, readMessage(resp.Body))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: status %d: %s", utils.ErrUploadFailed, resp.StatusCode, readMessage(resp.Body))
	}
	var out UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", utils.ErrUploadFailed, err)
	}
	if out.URL == "" {
		return nil, fmt.Errorf("%w: response has no url", utils.ErrUploadFailed)
	}
	return &out, nil
}

func readMessage(r io.Reader) string {
	var body struct {
		Message string `json:"message"`
	}
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	if json.Unmarshal(b, &body) == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(b))
}
