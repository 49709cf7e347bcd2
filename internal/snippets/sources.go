package snippets

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultLanguage is used for unknown languages, both for the listing and
// for the fallback snippet.
const DefaultLanguage = "python"

// Source is where to find practice files for one language.
type Source struct {
	ListingURL string `yaml:"listing_url"`
	Extension  string `yaml:"extension"`
}

type Sources map[string]Source

func DefaultSources() Sources {
	return Sources{
		"python": {
			ListingURL: "https://api.github.com/repos/bukeme/social-network/contents/chats",
			Extension:  ".py",
		},
		"javascript": {
			ListingURL: "https://api.github.com/repos/Vasu7389/react-project-ideas/contents/day010/personal-portfolio/src/components",
			Extension:  ".js",
		},
		"java": {
			ListingURL: "https://api.github.com/repos/kishanrajput23/Java-Projects-Collections/contents/Admission-counselling-system/src/student/information/system",
			Extension:  ".java",
		},
	}
}

// Lookup returns the source for language, falling back to DefaultLanguage.
func (s Sources) Lookup(language string) Source {
	if src, ok := s[normalize(language)]; ok {
		return src
	}
	return s[DefaultLanguage]
}

type sourcesFile struct {
	Languages map[string]Source `yaml:"languages"`
}

// LoadSources reads a YAML file of the form
//
//	languages:
//	  go:
//	    listing_url: https://api.github.com/repos/owner/repo/contents/dir
//	    extension: .go
//
// and merges it over DefaultSources.
func LoadSources(path string) (Sources, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snippet sources: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing snippet sources: %w", err)
	}

	sources := DefaultSources()
	for lang, src := range file.Languages {
		if src.ListingURL == "" || src.Extension == "" {
			return nil, fmt.Errorf("snippet source %q: listing_url and extension are required", lang)
		}
		sources[normalize(lang)] = src
	}
	return sources, nil
}

func normalize(language string) string {
	return strings.ToLower(strings.TrimSpace(language))
}
