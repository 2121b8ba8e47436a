package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/socialhub/socialhub-cli/pkg/auth"
	"github.com/socialhub/socialhub-cli/pkg/config"
	clierrors "github.com/socialhub/socialhub-cli/pkg/errors"
	"github.com/socialhub/socialhub-cli/pkg/formatter"
	"github.com/socialhub/socialhub-cli/pkg/logger"
	"github.com/socialhub/socialhub-cli/pkg/output"
	"github.com/socialhub/socialhub-cli/pkg/tui"
	"github.com/socialhub/socialhub-cli/pkg/upload"
	"golang.org/x/term"
)

// Sink names accepted by upload.sink and --sink
const (
	SinkHTTP = "http"
	SinkS3   = "s3"
)

// UploadOptions controls how a media file is sent
type UploadOptions struct {
	// Sink overrides upload.sink when set
	Sink string
	// NoTUI prints progress lines instead of the interactive bar
	NoTUI bool
}

// MediaUpload is a finished media upload
type MediaUpload struct {
	URL         string        `json:"url"`
	Key         string        `json:"key"`
	Kind        string        `json:"kind"`
	ContentType string        `json:"content_type"`
	Size        int64         `json:"size"`
	Chunks      int           `json:"chunks"`
	Retries     int           `json:"retries"`
	Seconds     float64       `json:"seconds"`
	Result      upload.Result `json:"-"`
}

// UploadService sends local media to object storage with the chunked uploader
type UploadService struct {
	// progressOut receives plain progress lines
	progressOut io.Writer
	// interactive decides between the progress bar and plain lines
	interactive func() bool
}

// NewUploadService creates a new upload service
func NewUploadService() *UploadService {
	return &UploadService{
		progressOut: os.Stderr,
		interactive: func() bool {
			return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

func (s *UploadService) newSink(ctx context.Context, name, key, contentType string) (upload.Sink, error) {
	if name == "" {
		name = config.GetString("upload.sink")
	}
	switch name {
	case "", SinkHTTP:
		return upload.NewHTTPSink(config.GetString("storage.bucket"), key, contentType), nil
	case SinkS3:
		cfg := upload.S3ConfigFromConfig()
		if cfg.Bucket == "" {
			return nil, clierrors.ValidationError("s3.bucket", "must be set to use the s3 sink")
		}
		c, err := upload.NewS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return upload.NewS3Sink(c, cfg, key, contentType), nil
	default:
		return nil, clierrors.ValidationError("sink", fmt.Sprintf("unknown sink %q (use %s or %s)", name, SinkHTTP, SinkS3))
	}
}

// Upload sends the file at path under ownerID's folder. kind restricts
// the accepted media kind when non-empty.
func (s *UploadService) Upload(ctx context.Context, ownerID, path, kind string, opts UploadOptions) (*MediaUpload, error) {
	media, err := upload.InspectMedia(path, kind)
	if err != nil {
		return nil, err
	}

	key := upload.ObjectKey(ownerID, media.Name)
	sink, err := s.newSink(ctx, opts.Sink, key, media.ContentType)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(media.Path)
	if err != nil {
		return nil, clierrors.FileNotFoundError(media.Path)
	}
	defer f.Close()

	logger.Debug("Uploading media", "path", media.Path, "key", key, "size", media.Size, "kind", media.Kind)

	uploadOpts := upload.OptionsFromConfig()
	var res *upload.Result
	if !opts.NoTUI && !output.IsJSON() && s.interactive() {
		res, err = tui.RunUpload(ctx, media.Name, func(onProgress func(upload.Progress)) *upload.Uploader {
			uploadOpts.OnProgress = onProgress
			return upload.New(f, media.Size, sink, uploadOpts)
		})
	} else {
		fmt.Fprintf(s.progressOut, "Uploading %s (%s)\n", media.Name, formatter.Bytes(media.Size))
		uploadOpts.OnProgress = tui.LineReporter(s.progressOut, 10)
		res, err = upload.New(f, media.Size, sink, uploadOpts).Upload(ctx)
	}
	if err != nil {
		if errors.Is(err, upload.ErrCanceled) {
			return nil, clierrors.UploadError("Upload canceled", err)
		}
		return nil, clierrors.UploadError(fmt.Sprintf("Failed to upload %s", media.Name), err)
	}

	logger.Info("Upload complete", "key", key, "chunks", res.Chunks, "retries", res.Retries, "duration", res.Duration)
	return &MediaUpload{
		URL:         res.Location,
		Key:         key,
		Kind:        media.Kind,
		ContentType: media.ContentType,
		Size:        res.Size,
		Chunks:      res.Chunks,
		Retries:     res.Retries,
		Seconds:     res.Duration.Seconds(),
		Result:      *res,
	}, nil
}

// UploadFile is the standalone `upload` command: it sends a file and
// prints where it landed
func (s *UploadService) UploadFile(ctx context.Context, path string, opts UploadOptions) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	m, err := s.Upload(ctx, creds.UserID, path, "", opts)
	if err != nil {
		return err
	}

	if output.IsJSON() {
		return output.Print("", m)
	}
	formatter.PrintSuccess("✓ Uploaded %s in %s", formatter.Bytes(m.Size), m.Result.Duration.Round(10*time.Millisecond))
	return output.PrintRecord("", map[string]interface{}{
		"URL":     m.URL,
		"Key":     m.Key,
		"Type":    m.ContentType,
		"Chunks":  m.Chunks,
		"Retries": m.Retries,
	})
}
