package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestCommandProviderCapture(t *testing.T) {
	src := filepath.Join(t.TempDir(), "frame.png")
	if err := os.WriteFile(src, []byte("fake png bytes"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	p := NewCommandProvider(fmt.Sprintf("cp %s {path}", src))
	image, err := p.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if string(image) != "fake png bytes" {
		t.Errorf("image = %q, want the copied bytes", image)
	}
}

func TestCommandProviderCommandFails(t *testing.T) {
	p := NewCommandProvider("false")
	if _, err := p.Capture(context.Background()); err == nil {
		t.Fatal("expected an error when the capture command fails")
	}
}

func TestCommandProviderNoOutput(t *testing.T) {
	// The command succeeds but never writes the file.
	p := NewCommandProvider("true")
	if _, err := p.Capture(context.Background()); err == nil {
		t.Fatal("expected an error when no capture file is produced")
	}
}

func TestCommandProviderDefault(t *testing.T) {
	p := NewCommandProvider("")
	if p.command != DefaultCommand {
		t.Errorf("command = %q, want DefaultCommand", p.command)
	}
}

func TestStaticProvider(t *testing.T) {
	p := &StaticProvider{Image: []byte("png")}
	image, err := p.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if string(image) != "png" {
		t.Errorf("image = %q, want png", image)
	}

	p.Err = errors.New("no display")
	if _, err := p.Capture(context.Background()); err == nil {
		t.Error("expected the injected error")
	}
}
