// Package uploader is the client side of a direct upload: it validates a file,
// fetches short-lived credentials from the API, streams the bytes straight to
// the CDN and then records the result with the API.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path"
	"strconv"
	"strings"
	"time"

	"clipsify/internal/cdn"
	models "clipsify/internal/media"
	utils "clipsify/internal/utis"
)

var (
	ErrAuthRequest = errors.New("upload authorization request failed")
	ErrAuthDenied  = errors.New("upload credentials rejected")
	ErrAborted     = errors.New("upload aborted")
	ErrNetwork     = errors.New("network error during upload")
	ErrServer      = errors.New("cdn failed to process upload")
	ErrCommit      = errors.New("file uploaded but not recorded")
)

const DefaultUploadEndpoint = "https://upload.imagekit.io/api/v1/files/upload"

// ValidationError reports a file rejected before any network call.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return strings.TrimPrefix(e.Err.Error(), utils.ErrInvalidFile.Error()+": ")
}

func (e *ValidationError) Unwrap() error { return e.Err }

func Validate(kind models.Kind, contentType string, size int64) error {
	if err := utils.ValidateMediaFile(string(kind), contentType, size); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// File is a local file to upload. Size must be the exact byte count of Body.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ProgressFunc receives whole percentages in non-decreasing order.
type ProgressFunc func(percent int)

type Client struct {
	Server         string
	UploadEndpoint string
	HTTP           *http.Client
}

func New(server string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Minute}
	}
	return &Client{
		Server:         strings.TrimRight(server, "/"),
		UploadEndpoint: DefaultUploadEndpoint,
		HTTP:           httpClient,
	}
}

// Authorize fetches single-use upload credentials.
func (c *Client) Authorize(ctx context.Context) (*cdn.Credentials, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Server+"/api/auth/imagekit-auth", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthRequest, err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthRequest, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrAuthRequest, resp.StatusCode)
	}
	var creds cdn.Credentials
	if err := json.NewDecoder(resp.Body).Decode(&creds); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrAuthRequest, err)
	}
	if creds.Token == "" || creds.Signature == "" || creds.PublicKey == "" {
		return nil, fmt.Errorf("%w: incomplete credentials", ErrAuthRequest)
	}
	return &creds, nil
}

// Upload validates f, authorizes and streams it to the CDN. Nothing is
// recorded server-side; call Commit with the result.
func (c *Client) Upload(ctx context.Context, f File, kind models.Kind, onProgress ProgressFunc) (*cdn.UploadResult, error) {
	if err := Validate(kind, f.ContentType, f.Size); err != nil {
		return nil, err
	}
	creds, err := c.Authorize(ctx)
	if err != nil {
		return nil, err
	}

	body := io.Reader(f.Body)
	if onProgress != nil && f.Size > 0 {
		body = &progressReader{r: f.Body, total: f.Size, report: onProgress, last: -1}
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeForm(mw, f, body, creds)
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.UploadEndpoint, pr)
	if err != nil {
		_ = pr.Close()
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		_ = pr.CloseWithError(err)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrAborted, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	res, err := cdn.DecodeUploadResponse(resp)
	switch {
	case err == nil:
		return res, nil
	case errors.Is(err, cdn.ErrDenied):
		return nil, fmt.Errorf("%w: %v", ErrAuthDenied, err)
	case ctx.Err() != nil:
		return nil, fmt.Errorf("%w: %v", ErrAborted, ctx.Err())
	default:
		return nil, fmt.Errorf("%w: %v", ErrServer, err)
	}
}

func writeForm(mw *multipart.Writer, f File, body io.Reader, creds *cdn.Credentials) error {
	name := path.Base(f.Name)
	fields := [][2]string{
		{"fileName", name},
		{"publicKey", creds.PublicKey},
		{"signature", creds.Signature},
		{"expire", strconv.FormatInt(creds.Expire, 10)},
		{"token", creds.Token},
		{"useUniqueFileName", "true"},
	}
	for _, fl := range fields {
		if err := mw.WriteField(fl[0], fl[1]); err != nil {
			return err
		}
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", f.ContentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, body)
	return err
}

type progressReader struct {
	r      io.Reader
	total  int64
	sent   int64
	last   int
	report ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		pct := int((p.sent*100 + p.total/2) / p.total)
		if pct > 100 {
			pct = 100
		}
		if pct > p.last {
			p.last = pct
			p.report(pct)
		}
	}
	return n, err
}

// CommitRequest is the metadata recorded after a successful upload.
type CommitRequest struct {
	Title          string
	Description    string
	URL            string
	ThumbnailURL   string
	Transformation *models.Transformation
}

// Commit records an uploaded file. Any failure wraps ErrCommit: the bytes are
// on the CDN but no asset exists.
func (c *Client) Commit(ctx context.Context, sessionToken string, kind models.Kind, in CommitRequest) (*models.Asset, error) {
	payload := map[string]interface{}{
		"title":       in.Title,
		"description": in.Description,
	}
	payload[string(kind)+"Url"] = in.URL
	if kind == models.KindVideo && in.ThumbnailURL != "" {
		payload["thumbnailUrl"] = in.ThumbnailURL
	}
	if in.Transformation != nil {
		payload["transformation"] = in.Transformation
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCommit, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Server+"/api/"+string(kind), bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCommit, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+sessionToken)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCommit, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusCreated {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		return nil, fmt.Errorf("%w: status %d: %s", ErrCommit, resp.StatusCode, e.Error)
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrCommit, err)
	}
	var asset models.Asset
	if err := json.Unmarshal(out[string(kind)], &asset); err != nil {
		return nil, fmt.Errorf("%w: decode asset: %v", ErrCommit, err)
	}
	return &asset, nil
}
