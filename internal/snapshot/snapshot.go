// Package snapshot implements the SnapshotProvider contract by running
// an external capture command. The default captures the whole desktop
// with macOS screencapture; a window-scoped tool drops in by changing
// the configured command.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DefaultCommand is the capture command used when none is configured.
// -x suppresses the shutter sound; the placeholder is replaced with the
// output path.
const DefaultCommand = "screencapture -x -t png {path}"

// CommandProvider captures the screen by running a command template
// that writes a PNG to {path}.
type CommandProvider struct {
	command string
}

// NewCommandProvider creates a provider for the given command template.
// An empty template selects DefaultCommand.
func NewCommandProvider(command string) *CommandProvider {
	if command == "" {
		command = DefaultCommand
	}
	return &CommandProvider{command: command}
}

// Capture runs the capture command into a temp file and returns its
// bytes. The temp file is removed regardless of outcome.
func (p *CommandProvider) Capture(ctx context.Context) ([]byte, error) {
	path := filepath.Join(os.TempDir(), "cuebridge-"+uuid.New().String()+".png")
	defer os.Remove(path)

	fields := strings.Fields(p.command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("snapshot: empty capture command")
	}
	args := make([]string, 0, len(fields)-1)
	for _, f := range fields[1:] {
		args = append(args, strings.ReplaceAll(f, "{path}", path))
	}

	cmd := exec.CommandContext(ctx, fields[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("snapshot: %s: %w (%s)", fields[0], err, strings.TrimSpace(string(out)))
	}

	image, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read capture: %w", err)
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("snapshot: capture produced an empty file")
	}
	return image, nil
}

// StaticProvider returns a fixed image on every capture. Used by the
// memory backend mode and by tests.
type StaticProvider struct {
	Image []byte
	Err   error
}

func (p *StaticProvider) Capture(ctx context.Context) ([]byte, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Image, nil
}
