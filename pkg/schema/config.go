package schema

import "strings"

// Format names a generated document shape.
type Format string

const (
	FormatOpenAPI     Format = "openapi"
	FormatDescriptors Format = "descriptors"
)

type generatorConfig struct {
	format         Format
	openAPIVersion string
	info           openapiInfo
	rootComponent  string
}

type openapiInfo struct {
	Title       string
	Version     string
	Description string
}

func defaultGeneratorConfig() generatorConfig {
	return generatorConfig{
		format:         FormatOpenAPI,
		openAPIVersion: "3.0.3",
		info: openapiInfo{
			Title:   "Design Tokens",
			Version: "1.0.0",
		},
		rootComponent: "Tokens",
	}
}

// Option configures Generate.
type Option func(*generatorConfig)

// WithFormat selects the output shape (default: FormatOpenAPI).
func WithFormat(format Format) Option {
	return func(cfg *generatorConfig) {
		if format != "" {
			cfg.format = format
		}
	}
}

// WithOpenAPIVersion overrides the OpenAPI version string (default: 3.0.3).
func WithOpenAPIVersion(version string) Option {
	return func(cfg *generatorConfig) {
		if version = strings.TrimSpace(version); version != "" {
			cfg.openAPIVersion = version
		}
	}
}

// WithInfo sets the info block of the OpenAPI document.
func WithInfo(title, version, description string) Option {
	return func(cfg *generatorConfig) {
		if title != "" {
			cfg.info.Title = title
		}
		if version != "" {
			cfg.info.Version = version
		}
		cfg.info.Description = description
	}
}

// WithRootComponent renames the component holding the tree schema.
func WithRootComponent(name string) Option {
	return func(cfg *generatorConfig) {
		if name = strings.TrimSpace(name); name != "" {
			cfg.rootComponent = name
		}
	}
}
