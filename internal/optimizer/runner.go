// Package optimizer runs external lossless optimizers (oxipng, gifsicle and
// the like) over finished outputs.
package optimizer

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"squeeze/internal/media"
)

// PathPlaceholder is replaced by the output path in command templates.
const PathPlaceholder = "{path}"

// Runner maps a format name to a command template.
type Runner struct {
	commands map[string][]string
	log      zerolog.Logger
}

func New(commands map[string][]string, log zerolog.Logger) *Runner {
	cleaned := make(map[string][]string, len(commands))
	for format, args := range commands {
		if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
			continue
		}
		cleaned[strings.ToLower(format)] = append([]string(nil), args...)
	}
	return &Runner{commands: cleaned, log: log}
}

// Has reports whether a command is configured for format.
func (r *Runner) Has(format media.Format) bool {
	if r == nil {
		return false
	}
	_, ok := r.commands[format.String()]
	return ok
}

// Run optimizes path in place. Only the exit status is inspected; a format
// without a configured command is a no-op.
func (r *Runner) Run(ctx context.Context, format media.Format, path string) error {
	if !r.Has(format) {
		return nil
	}
	args := expand(r.commands[format.String()], path)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		r.log.Debug().Str("command", args[0]).Str("stderr", msg).Err(err).Msg("optimizer failed")
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", args[0], err, msg)
		}
		return fmt.Errorf("%s: %w", args[0], err)
	}
	return nil
}

// expand substitutes the placeholder, appending the path when the template
// has none.
func expand(template []string, path string) []string {
	out := make([]string, 0, len(template)+1)
	substituted := false
	for _, arg := range template {
		if strings.Contains(arg, PathPlaceholder) {
			arg = strings.ReplaceAll(arg, PathPlaceholder, path)
			substituted = true
		}
		out = append(out, arg)
	}
	if !substituted {
		out = append(out, path)
	}
	return out
}
