package search

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

//go:embed selectors.json
var embeddedSelectors embed.FS

// SelectorConfig holds the CSS selectors used to pull product records out of
// marketplace search result pages. Markup drifts, so these live in config
// rather than code.
type SelectorConfig struct {
	Amazon SourceSelectors `json:"amazon"`
	Etsy   SourceSelectors `json:"etsy"`
}

type SourceSelectors struct {
	Item         string `json:"item"`           // one result card
	SourceIDAttr string `json:"source_id_attr"` // attribute on the card carrying the marketplace ID
	Title        string `json:"title"`
	Link         string `json:"link"`
	Image        string `json:"image"`
	Price        string `json:"price"`
}

// LoadConfig tries embedded selectors first, then an external file named by
// SELECTORS_CONFIG_PATH, then hardcoded defaults.
func LoadConfig() SelectorConfig {
	data, err := embeddedSelectors.ReadFile("selectors.json")
	if err == nil {
		sel, parseErr := LoadSelectorsFromBytes(data)
		if parseErr == nil {
			slog.Info("Loaded marketplace selectors from embedded config.")
			return sel
		}
		slog.Warn("Embedded selectors failed to parse. Trying file fallback.", "error", parseErr)
	}

	configPath := os.Getenv("SELECTORS_CONFIG_PATH")
	if configPath == "" {
		configPath = "config/selectors.json"
	}
	if fileSel, err := LoadSelectors(configPath); err == nil {
		slog.Info("Loaded marketplace selectors from external file", "path", configPath)
		return fileSel
	}

	slog.Info("Using hardcoded default marketplace selectors")
	return DefaultSelectors()
}

// LoadSelectors loads selector configuration from a JSON file.
func LoadSelectors(path string) (SelectorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to read selector config file: %w", err)
	}
	return LoadSelectorsFromBytes(data)
}

// LoadSelectorsFromBytes parses selector configuration from raw JSON bytes.
func LoadSelectorsFromBytes(data []byte) (SelectorConfig, error) {
	var config SelectorConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to parse selector config JSON: %w", err)
	}
	return config, nil
}

// DefaultSelectors is the fallback when no JSON config can be loaded. The
// embedded selectors.json should match this.
func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		Amazon: SourceSelectors{
			Item:         `div[data-component-type="s-search-result"]`,
			SourceIDAttr: "data-asin",
			Title:        "h2 a span",
			Link:         "h2 a",
			Image:        "img.s-image",
			Price:        ".a-price .a-offscreen",
		},
		Etsy: SourceSelectors{
			Item:         "div.v2-listing-card",
			SourceIDAttr: "data-listing-id",
			Title:        "h3",
			Link:         "a.listing-link",
			Image:        "img",
			Price:        ".currency-value",
		},
	}
}
