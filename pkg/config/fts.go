package config

import "fmt"

// FTSConfig selects and tunes the local full-text index driver.
//
// Example:
//
//	fts:
//	  driver: bm25
//	  data_dir: data/index
//	  language: en
type FTSConfig struct {
	// Driver is the registered driver id (bm25, meilisearch). Default: bm25.
	Driver string `yaml:"driver,omitempty"`

	// DataDir is where segment files live (bm25 driver).
	DataDir string `yaml:"data_dir,omitempty"`

	// Language is a BCP-47 tag selecting the analyzer's stemmer.
	Language string `yaml:"language,omitempty"`

	// StripAccents folds diacritics during analysis. Default: true.
	StripAccents *bool `yaml:"strip_accents,omitempty"`

	// MeiliHost / MeiliKey / MeiliIndex configure the meilisearch driver.
	MeiliHost  string `yaml:"meili_host,omitempty"`
	MeiliKey   string `yaml:"meili_key,omitempty"`
	MeiliIndex string `yaml:"meili_index,omitempty"`
}

// SetDefaults applies default values to FTSConfig.
func (c *FTSConfig) SetDefaults() {
	if c.Driver == "" {
		c.Driver = "bm25"
	}
	if c.DataDir == "" {
		c.DataDir = "data/index"
	}
	if c.Language == "" {
		c.Language = "en"
	}
	if c.StripAccents == nil {
		t := true
		c.StripAccents = &t
	}
	if c.MeiliIndex == "" {
		c.MeiliIndex = "documents"
	}
}

// Validate checks the FTS configuration.
func (c *FTSConfig) Validate() error {
	if c.Driver == "" {
		return fmt.Errorf("driver must not be empty")
	}
	if c.Driver == "meilisearch" && c.MeiliHost == "" {
		return fmt.Errorf("meilisearch driver requires meili_host")
	}
	return nil
}
