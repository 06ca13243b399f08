package jobspec

import (
	_ "embed"
	"fmt"
	"slices"
	"sync"

	"titan/internal/entity"

	"gopkg.in/yaml.v3"
)

//go:embed qualities.yaml
var qualitiesYAML []byte

// Catalog is the closed set of quality labels offered per media kind.
type Catalog struct {
	Video []string `yaml:"video" json:"video"`
	Audio []string `yaml:"audio" json:"audio"`
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return LoadCatalog(qualitiesYAML)
})

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return defaultCatalog()
}

// LoadCatalog decodes a YAML catalog and checks that every label parses for its kind.
func LoadCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	if len(c.Video) == 0 || len(c.Audio) == 0 {
		return nil, fmt.Errorf("catalog needs at least one video and one audio label")
	}

	for _, label := range c.Video {
		if _, err := ParseResolution(label); err != nil {
			return nil, fmt.Errorf("video label: %w", err)
		}
	}

	for _, label := range c.Audio {
		if _, err := ParseBitrate(label); err != nil {
			return nil, fmt.Errorf("audio label: %w", err)
		}
	}

	return &c, nil
}

// Labels returns the labels offered for kind.
func (c *Catalog) Labels(kind entity.MediaKind) []string {
	switch kind {
	case entity.MediaKindVideo:
		return c.Video
	case entity.MediaKindAudio:
		return c.Audio
	default:
		return nil
	}
}

// Contains reports whether label is offered for kind.
func (c *Catalog) Contains(kind entity.MediaKind, label string) bool {
	return slices.Contains(c.Labels(kind), label)
}

// Default returns the preselected label for kind.
func (c *Catalog) Default(kind entity.MediaKind) string {
	labels := c.Labels(kind)
	if len(labels) == 0 {
		return ""
	}

	return labels[0]
}
