package jobspec_test

import (
	"errors"
	"testing"

	"titan/internal/entity"
	"titan/internal/errs"
	"titan/internal/jobspec"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := jobspec.DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog() failed: %v", err)
	}

	if got := c.Default(entity.MediaKindVideo); got != "1080p Full HD" {
		t.Errorf("got default video %q", got)
	}

	if got := c.Default(entity.MediaKindAudio); got != "320kbps (Pro)" {
		t.Errorf("got default audio %q", got)
	}

	if !c.Contains(entity.MediaKindVideo, "4K / 2160p Ultra HD") {
		t.Error("expected dual notation label to be offered")
	}

	if c.Contains(entity.MediaKindAudio, "720p HD") {
		t.Error("video label must not be offered for audio")
	}

	for _, kind := range []entity.MediaKind{entity.MediaKindVideo, entity.MediaKindAudio} {
		for _, label := range c.Labels(kind) {
			if _, err := jobspec.Build(kind, label, t.TempDir()); err != nil {
				t.Errorf("catalog label %q does not build: %v", label, err)
			}
		}
	}
}

func TestLoadCatalog(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name: "valid",
			yaml: "video: [\"720p HD\"]\naudio: [\"128kbps (Standard)\"]\n",
		},
		{
			name:    "unparseable video label",
			yaml:    "video: [\"HD\"]\naudio: [\"128kbps (Standard)\"]\n",
			wantErr: errs.ErrInvalidQualityLabel,
		},
		{
			name:    "unparseable audio label",
			yaml:    "video: [\"720p HD\"]\naudio: [\"loud\"]\n",
			wantErr: errs.ErrInvalidQualityLabel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := jobspec.LoadCatalog([]byte(tt.yaml))
			if tt.wantErr == nil && err != nil {
				t.Fatalf("LoadCatalog() failed: %v", err)
			}

			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := jobspec.LoadCatalog([]byte("video: []\n")); err == nil {
		t.Error("expected error for empty catalog")
	}

	if _, err := jobspec.LoadCatalog([]byte("video: [")); err == nil {
		t.Error("expected error for malformed yaml")
	}
}
