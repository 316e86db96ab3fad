package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/startup-finder/internal/model"
)

// LoadSources reads a scrape-source list from a YAML file:
//
//	- name: TechCrunch Venture
//	  url: https://techcrunch.com/category/venture/
func LoadSources(path string) ([]model.SourceDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read sources file %s", path)
	}

	var sources []model.SourceDescriptor
	if err := yaml.Unmarshal(data, &sources); err != nil {
		return nil, eris.Wrapf(err, "config: parse sources file %s", path)
	}

	for _, src := range sources {
		if src.Name == "" || src.URL == "" {
			return nil, eris.Errorf("config: source entries need both name and url (%s)", path)
		}
	}
	return sources, nil
}
