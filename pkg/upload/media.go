package upload

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	clierrors "github.com/socialhub/socialhub-cli/pkg/errors"
)

// Media kinds stored alongside posts and stories
const (
	MediaImage = "image"
	MediaVideo = "video"
)

// MaxImageMB and MaxVideoMB bound what the CLI will send
const (
	MaxImageMB = 20
	MaxVideoMB = 1024
)

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mkv":  "video/x-matroska",
}

// SupportedExtensions lists accepted file extensions for a media kind, or
// all of them when kind is empty
func SupportedExtensions(kind string) []string {
	var exts []string
	for ext, ct := range contentTypes {
		if kind == "" || strings.HasPrefix(ct, kind+"/") {
			exts = append(exts, ext)
		}
	}
	sort.Strings(exts)
	return exts
}

// MediaFile is a validated local file ready to upload
type MediaFile struct {
	Path        string
	Name        string
	Size        int64
	ContentType string
	Kind        string
}

// InspectMedia checks that path is a supported image or video within size
// limits. kind restricts the accepted media kind when non-empty.
func InspectMedia(filePath, kind string) (*MediaFile, error) {
	info, err := os.Stat(filePath)
	if err != nil || info.IsDir() {
		return nil, clierrors.FileNotFoundError(filePath)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	ct, ok := contentTypes[ext]
	if !ok || (kind != "" && !strings.HasPrefix(ct, kind+"/")) {
		return nil, clierrors.MediaFormatError(ext, SupportedExtensions(kind))
	}

	mediaKind := MediaImage
	maxMB := MaxImageMB
	if strings.HasPrefix(ct, "video/") {
		mediaKind = MediaVideo
		maxMB = MaxVideoMB
	}

	sizeMB := float64(info.Size()) / (1 << 20)
	if sizeMB > float64(maxMB) {
		return nil, clierrors.MediaSizeError(sizeMB, maxMB)
	}

	return &MediaFile{
		Path:        filePath,
		Name:        filepath.Base(filePath),
		Size:        info.Size(),
		ContentType: ct,
		Kind:        mediaKind,
	}, nil
}

// ObjectKey builds a unique storage key under the owner's folder
func ObjectKey(ownerID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	day := time.Now().UTC().Format("2006/01/02")
	return path.Join(ownerID, day, fmt.Sprintf("%s%s", uuid.NewString(), ext))
}
