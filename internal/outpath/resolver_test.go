package outpath

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"squeeze/internal/media"
	"squeeze/internal/settings"
)

func TestResolvePreviewUsesCacheMirror(t *testing.T) {
	root := filepath.FromSlash("/photos")
	cache := filepath.FromSlash("/cache/squeeze")
	d := media.NewDescriptor(filepath.Join(root, "abc", "def", "test.jpg"), root, 0)
	s := settings.Output{Location: settings.InCompressedFolder, CacheDir: cache}

	got, err := Resolve(d, s, false, true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(CacheMirror(cache, root), "abc", "def", "test.jpg"), got)

	s.Location = settings.ReplaceOriginal
	replaced, err := Resolve(d, s, false, false)
	require.NoError(t, err)
	assert.Equal(t, got, replaced)
}

func TestCacheMirrorIsStablePerRoot(t *testing.T) {
	a := CacheMirror("/c", "/photos")
	assert.Equal(t, a, CacheMirror("/c", "/photos"))
	assert.NotEqual(t, a, CacheMirror("/c", "/other"))
}

func TestResolveCompressedFolder(t *testing.T) {
	root := filepath.FromSlash("/work")
	d := media.NewDescriptor(filepath.Join(root, "def", "ghq", "image.png"), root, 0)
	s := settings.Output{Location: settings.InCompressedFolder}

	got, err := Resolve(d, s, false, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "Compressed", "def", "ghq", "image.png"), got)

	got, err = Resolve(d, s, true, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "def", "ghq", "Compressed", "image.png"), got)

	file := filepath.Join(root, "single.png")
	bare := media.NewDescriptor(file, file, 0)
	got, err = Resolve(bare, s, false, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "Compressed", "single.png"), got)
}

func TestResolveSuffixNaming(t *testing.T) {
	dir := filepath.FromSlash("/shots")
	d := media.NewDescriptor(filepath.Join(dir, "IMG_sample.jpg"), dir, 0)
	s := settings.Output{
		Location: settings.SameFolderWithFileNameSuffix,
		Naming:   settings.Naming{ReplaceFrom: "IMG_", ReplaceTo: "PHOTO_"},
	}

	got, err := Resolve(d, s, false, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "PHOTO_sample.jpg"), got)

	s.Naming.Prefix = "p-"
	s.Naming.Suffix = "-s"
	s.Format = media.FormatWebp
	got, err = Resolve(d, s, false, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "p-PHOTO_sample-s.webp"), got)
}

func TestResolveUserFolder(t *testing.T) {
	root := filepath.FromSlash("/in")
	out := filepath.FromSlash("/out")
	d := media.NewDescriptor(filepath.Join(root, "trip", "day1", "a.jpg"), root, 0)
	s := settings.Output{Location: settings.UserSpecificFolder, OutputFolder: out, KeepFolderStructure: true}

	got, err := Resolve(d, s, false, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "trip", "day1", "a.jpg"), got)

	s.KeepFolderStructure = false
	got, err = Resolve(d, s, false, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "a.jpg"), got)

	got, err = Resolve(d, s, true, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "day1", "a.jpg"), got)
}

func TestResolveUnconfiguredFolder(t *testing.T) {
	d := media.NewDescriptor(filepath.FromSlash("/in/a.jpg"), filepath.FromSlash("/in"), 0)
	for _, folder := range []string{"", "   "} {
		s := settings.Output{Location: settings.UserSpecificFolder, OutputFolder: folder}
		_, err := Resolve(d, s, false, false)
		assert.ErrorIs(t, err, ErrOutputFolderUnconfigured)
		_, err = Resolve(d, s, true, false)
		assert.ErrorIs(t, err, ErrOutputFolderUnconfigured)
		assert.ErrorIs(t, Preflight(s), ErrOutputFolderUnconfigured)
	}
}

func TestResolveUnsupportedLocation(t *testing.T) {
	d := media.NewDescriptor(filepath.FromSlash("/in/a.jpg"), filepath.FromSlash("/in"), 0)
	s := settings.Output{Location: settings.Location(42)}
	_, err := Resolve(d, s, false, false)
	assert.ErrorIs(t, err, ErrUnsupportedSetting)
	assert.ErrorIs(t, Preflight(s), ErrUnsupportedSetting)
}

func TestResolveRejectsSourceOutsideRoot(t *testing.T) {
	d := media.NewDescriptor(filepath.FromSlash("/elsewhere/a.jpg"), filepath.FromSlash("/in"), 0)
	_, err := Resolve(d, settings.Output{Location: settings.InCompressedFolder}, false, false)
	assert.Error(t, err)
}

func TestResolveExtension(t *testing.T) {
	tests := []struct {
		src     string
		format  media.Format
		ext     string
		changed bool
	}{
		{".JPEG", media.FormatKeepSame, ".JPEG", false},
		{".JPEG", media.FormatJpg, ".JPEG", false},
		{".jfif", media.FormatJpg, ".jfif", false},
		{".png", media.FormatJpg, ".jpg", true},
		{".jpg", media.FormatWebp, ".webp", true},
		{".TIF", media.FormatTiff, ".TIF", false},
		{".bmp", media.FormatKeepSame, ".png", true},
		{".apng", media.FormatKeepSame, ".png", true},
		{".heic", media.FormatKeepSame, ".jpg", true},
	}
	for _, tt := range tests {
		ext, changed := ResolveExtension(tt.src, tt.format)
		assert.Equal(t, tt.ext, ext, "%s -> %s", tt.src, tt.format)
		assert.Equal(t, tt.changed, changed, "%s -> %s", tt.src, tt.format)
	}
}
