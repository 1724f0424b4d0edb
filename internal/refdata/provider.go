// Package refdata supplies per-species reference data: the image URL and
// the canonical species page injected into accepted facts. Missing
// entries are content gaps, never errors.
package refdata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Provider looks up reference data by species name.
type Provider interface {
	// ImageURL returns the species image URL, if known.
	ImageURL(species string) (string, bool)

	// SpeciesPage returns the canonical species page URL, if known.
	SpeciesPage(species string) (string, bool)

	// Species returns the sorted list of species with an image entry.
	Species() []string
}

// fileProvider serves reference data from the two JSON databases the
// builder produces.
type fileProvider struct {
	images map[string]string
	links  map[string]string
}

// NewFromFiles loads the image and link databases. Species with empty
// image values are dropped. A missing links file leaves species pages
// unknown rather than failing.
func NewFromFiles(imagePath, linksPath string) (Provider, error) {
	images, err := loadStringMap(imagePath)
	if err != nil {
		return nil, eris.Wrapf(err, "refdata: load image db %s", imagePath)
	}
	for k, v := range images {
		if v == "" {
			delete(images, k)
		}
	}

	links, err := loadStringMap(linksPath)
	if err != nil {
		if !os.IsNotExist(eris.Cause(err)) {
			return nil, eris.Wrapf(err, "refdata: load link db %s", linksPath)
		}
		links = make(map[string]string)
	}

	return &fileProvider{images: images, links: links}, nil
}

func (p *fileProvider) ImageURL(species string) (string, bool) {
	url, ok := p.images[species]
	return url, ok
}

func (p *fileProvider) SpeciesPage(species string) (string, bool) {
	url, ok := p.links[species]
	return url, ok
}

func (p *fileProvider) Species() []string {
	names := make([]string, 0, len(p.images))
	for name := range p.images {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func loadStringMap(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "read file")
	}
	m := make(map[string]string)
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "parse json")
	}
	return m, nil
}

// LoadSpeciesList reads a species-name list from a YAML or JSON file.
// Used by the builder commands to scope a run to a subset of species.
func LoadSpeciesList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "refdata: read species list %s", path)
	}

	var names []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &names)
	default:
		err = json.Unmarshal(data, &names)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "refdata: parse species list %s", path)
	}
	return names, nil
}
