package ramdisk

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest describes the initial image:
//
//	folders:
//	  - /apps/shell
//	files:
//	  - path: /apps/shell/shell.bin
//	    content: "..."
//	  - path: /etc/motd
//	    source: ./motd.txt
type Manifest struct {
	Folders []string       `yaml:"folders"`
	Files   []ManifestFile `yaml:"files"`
}

// ManifestFile takes its data from Content, or from the host file Source
// when set.
type ManifestFile struct {
	Path    string `yaml:"path"`
	Content string `yaml:"content"`
	Source  string `yaml:"source"`
}

func ParseManifest(data []byte) (*Manifest, error) {
	const op = "ramdisk.ParseManifest"

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &m, nil
}

// LoadManifest reads a manifest file and builds the image it describes.
func LoadManifest(path string) (*Ramdisk, error) {
	const op = "ramdisk.LoadManifest"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	r, err := m.Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return r, nil
}

func (m *Manifest) Build() (*Ramdisk, error) {
	const op = "ramdisk.Manifest.Build"

	r := New()
	for _, dir := range m.Folders {
		if _, err := r.MkdirAll(dir); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	for _, f := range m.Files {
		data := []byte(f.Content)
		if f.Source != "" {
			b, err := os.ReadFile(f.Source)
			if err != nil {
				return nil, fmt.Errorf("%s: %s: %w", op, f.Path, err)
			}
			data = b
		}
		if _, err := r.AddFile(f.Path, data); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return r, nil
}
