package upload

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	clierrors "github.com/socialhub/socialhub-cli/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, size int) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, make([]byte, size), 0600))
	return p
}

func TestInspectMedia(t *testing.T) {
	video := writeFile(t, "Clip.MP4", 2048)
	m, err := InspectMedia(video, "")
	require.NoError(t, err)
	assert.Equal(t, MediaVideo, m.Kind)
	assert.Equal(t, "video/mp4", m.ContentType)
	assert.Equal(t, int64(2048), m.Size)
	assert.Equal(t, "Clip.MP4", m.Name)

	img := writeFile(t, "photo.jpg", 10)
	m, err = InspectMedia(img, MediaImage)
	require.NoError(t, err)
	assert.Equal(t, MediaImage, m.Kind)
}

func TestInspectMediaRejects(t *testing.T) {
	_, err := InspectMedia(filepath.Join(t.TempDir(), "missing.mp4"), "")
	assert.Equal(t, clierrors.ErrorTypeFileNotFound, clierrors.CategorizeError(err).Type)

	doc := writeFile(t, "notes.txt", 10)
	_, err = InspectMedia(doc, "")
	assert.Equal(t, clierrors.ErrorTypeMediaFormat, clierrors.CategorizeError(err).Type)

	img := writeFile(t, "photo.png", 10)
	_, err = InspectMedia(img, MediaVideo)
	assert.Equal(t, clierrors.ErrorTypeMediaFormat, clierrors.CategorizeError(err).Type)
}

func TestSupportedExtensionsSorted(t *testing.T) {
	exts := SupportedExtensions(MediaVideo)
	assert.Contains(t, exts, ".mp4")
	assert.NotContains(t, exts, ".png")
	for i := 1; i < len(exts); i++ {
		assert.Less(t, exts[i-1], exts[i])
	}
}

func TestObjectKey(t *testing.T) {
	a := ObjectKey("u1", "Holiday.MOV")
	b := ObjectKey("u1", "Holiday.MOV")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "u1/"))
	assert.True(t, strings.HasSuffix(a, ".mov"))
}
