package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/socialhub/socialhub-cli/pkg/api"
	"github.com/socialhub/socialhub-cli/pkg/client"
	"github.com/socialhub/socialhub-cli/pkg/logger"
)

// UploadIDHeader ties the ranges of one upload together on the storage side
const UploadIDHeader = "X-Upload-Id"

// HTTPSink sends each range to the storage object endpoint as its own PUT
// carrying a Content-Range header. The storage service assembles ranges
// sharing an upload id into the final object.
type HTTPSink struct {
	Bucket      string
	Key         string
	ContentType string

	httpClient *http.Client
	baseURL    string
	headers    http.Header

	uploadID string
	total    int64
	written  int
}

// NewHTTPSink targets bucket/key on the configured backend, reusing the
// shared client's transport and auth headers. The API timeout is dropped:
// a range may stream for longer than any single API call, and the
// uploader's context bounds it instead.
func NewHTTPSink(bucket, key, contentType string) *HTTPSink {
	hc := *client.HTTPClient()
	hc.Timeout = 0

	return &HTTPSink{
		Bucket:      bucket,
		Key:         key,
		ContentType: contentType,
		httpClient:  &hc,
		baseURL:     client.BaseURL(),
		headers:     client.Headers(),
	}
}

func (s *HTTPSink) MinChunkSize() int64 { return 0 }

// UploadID returns the id assigned by Begin
func (s *HTTPSink) UploadID() string { return s.uploadID }

func (s *HTTPSink) objectURL() string {
	return strings.TrimRight(s.baseURL, "/") + api.ObjectPath(s.Bucket, s.Key)
}

func (s *HTTPSink) Begin(ctx context.Context, total int64) error {
	s.uploadID = uuid.NewString()
	s.total = total
	s.written = 0
	logger.Debug("HTTP upload begin", "bucket", s.Bucket, "key", s.Key, "upload_id", s.uploadID, "total", total)
	return nil
}

func (s *HTTPSink) newRequest(ctx context.Context, method string, body io.Reader, length int64) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.objectURL(), body)
	if err != nil {
		return nil, err
	}
	for k, v := range s.headers {
		req.Header[k] = append([]string(nil), v...)
	}
	req.Header.Set(UploadIDHeader, s.uploadID)
	req.Header.Set("x-upsert", "true")
	if s.ContentType != "" {
		req.Header.Set("Content-Type", s.ContentType)
	}
	req.ContentLength = length
	return req, nil
}

func (s *HTTPSink) do(req *http.Request) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return &api.APIError{
		StatusCode: resp.StatusCode,
		Code:       "storage_error",
		Message:    strings.TrimSpace(string(msg)),
	}
}

func (s *HTTPSink) WriteChunk(ctx context.Context, chunk Chunk, body io.Reader) error {
	req, err := s.newRequest(ctx, http.MethodPut, body, chunk.Size)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", chunk.Offset, chunk.End(), chunk.Total))

	if err := s.do(req); err != nil {
		return fmt.Errorf("chunk %d: %w", chunk.Index, err)
	}
	s.written++
	return nil
}

// Complete returns the public URL of the object. An empty upload never
// wrote a range, so it stores the empty object here.
func (s *HTTPSink) Complete(ctx context.Context) (string, error) {
	if s.written == 0 {
		req, err := s.newRequest(ctx, http.MethodPut, http.NoBody, 0)
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Range", fmt.Sprintf("bytes */%d", s.total))
		if err := s.do(req); err != nil {
			return "", err
		}
	}
	return api.PublicURL(s.Bucket, s.Key), nil
}

// Abort deletes whatever the storage kept of the upload
func (s *HTTPSink) Abort(ctx context.Context) error {
	if s.uploadID == "" {
		return nil
	}
	req, err := s.newRequest(ctx, http.MethodDelete, http.NoBody, 0)
	if err != nil {
		return err
	}
	err = s.do(req)
	if api.IsNotFound(err) {
		return nil
	}
	return err
}
