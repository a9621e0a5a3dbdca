package config

import (
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StylesheetConfig is the stylesheet configuration file kept at project
// root, only include paths are recognized.
type StylesheetConfig struct {
	IncludePaths []string
}

// LoadStylesheetConfig reads name from project root. Missing or malformed
// file and non array includePaths result in empty configuration, this is
// never an error.
func LoadStylesheetConfig(log *zap.Logger, root, name string) *StylesheetConfig {
	if log == nil {
		log = zap.NewNop()
	}
	cfg := &StylesheetConfig{}
	if len(name) == 0 {
		return cfg
	}

	fname := name
	if !filepath.IsAbs(fname) {
		fname = filepath.Join(root, name)
	}
	data, err := os.ReadFile(fname)
	if err != nil {
		log.Debug("Stylesheet configuration not loaded", zap.String("file", fname), zap.Error(err))
		return cfg
	}

	var raw struct {
		IncludePaths any `json:"includePaths"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Debug("Stylesheet configuration is malformed, ignoring", zap.String("file", fname), zap.Error(err))
		return cfg
	}
	list, ok := raw.IncludePaths.([]any)
	if !ok {
		if raw.IncludePaths != nil {
			log.Debug("includePaths is not an array, ignoring", zap.String("file", fname))
		}
		return cfg
	}
	for _, v := range list {
		if s, ok := v.(string); ok && len(s) > 0 {
			cfg.IncludePaths = append(cfg.IncludePaths, s)
		}
	}
	log.Debug("Stylesheet configuration loaded", zap.String("file", fname), zap.Strings("includePaths", cfg.IncludePaths))
	return cfg
}
