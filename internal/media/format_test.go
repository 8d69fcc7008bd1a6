package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInputsAreDecodable(t *testing.T) {
	for _, ext := range []string{".jpg", ".JPEG", ".png", ".apng", ".gif", ".tif", ".webp", ".avif", ".bmp"} {
		assert.True(t, IsSupportedInput(ext), ext)
	}
	// No HEIC decoder is linked in, so those files are never selected.
	for _, ext := range []string{".heic", ".HEIF", ".txt", ""} {
		assert.False(t, IsSupportedInput(ext), ext)
	}
}

func TestAcceptsQuality(t *testing.T) {
	for _, ext := range []string{".jpg", ".webp", ".avif", ".heic"} {
		assert.True(t, AcceptsQuality(ext), ext)
	}
	for _, ext := range []string{".png", ".gif", ".tiff"} {
		assert.False(t, AcceptsQuality(ext), ext)
	}
}

func TestSubstituteExtension(t *testing.T) {
	assert.Equal(t, ".png", SubstituteExtension(".BMP"))
	assert.Equal(t, ".png", SubstituteExtension(".apng"))
	assert.Equal(t, ".jpg", SubstituteExtension(".heic"))
}
