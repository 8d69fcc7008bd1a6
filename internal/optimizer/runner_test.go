package optimizer

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"squeeze/internal/media"
)

func TestExpand(t *testing.T) {
	assert.Equal(t, []string{"oxipng", "-o", "4", "/x/a.png"}, expand([]string{"oxipng", "-o", "4", "{path}"}, "/x/a.png"))
	assert.Equal(t, []string{"gifsicle", "--batch", "/x/a.gif"}, expand([]string{"gifsicle", "--batch"}, "/x/a.gif"))
	assert.Equal(t, []string{"tool", "--in=/p"}, expand([]string{"tool", "--in={path}"}, "/p"))
}

func TestRunWithoutCommandIsNoop(t *testing.T) {
	r := New(map[string][]string{"png": {""}}, zerolog.Nop())
	assert.False(t, r.Has(media.FormatPng))
	assert.NoError(t, r.Run(context.Background(), media.FormatPng, "/nowhere"))

	var nilRunner *Runner
	assert.False(t, nilRunner.Has(media.FormatGif))
}

func TestRunReportsExitStatus(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	r := New(map[string][]string{
		"PNG": {sh, "-c", `test -f "$0"`, "{path}"},
		"gif": {sh, "-c", "echo nope >&2; exit 3"},
	}, zerolog.Nop())

	assert.NoError(t, r.Run(context.Background(), media.FormatPng, path))

	err = r.Run(context.Background(), media.FormatGif, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}
