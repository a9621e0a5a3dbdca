package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	validator "github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"scssc/common"
	"scssc/fileset"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	PackageConfig struct {
		Name string `yaml:"name" validate:"required,excludesall={}/"`
		Path string `yaml:"path" validate:"required"`
	}

	FileOptionConfig struct {
		Pattern  string `yaml:"pattern" validate:"required"`
		IsImport bool   `yaml:"is_import"`
	}

	ProjectConfig struct {
		Root        string             `yaml:"root" sanitize:"path_clean"`
		ConfigFile  string             `yaml:"config_file" validate:"required"`
		Packages    []PackageConfig    `yaml:"packages" validate:"dive"`
		NodeModules bool               `yaml:"node_modules"`
		FileOptions []FileOptionConfig `yaml:"file_options" validate:"dive"`
		OutputDir   string             `yaml:"output_dir" sanitize:"path_clean" validate:"required"`
		SourceMaps  bool               `yaml:"source_maps"`
	}

	CompilerConfig struct {
		Parallelism   int              `yaml:"parallelism" validate:"gte=0"`
		Cache         common.CacheMode `yaml:"cache"`
		CacheEntries  int              `yaml:"cache_entries" validate:"min=1"`
		CacheDatabase string           `yaml:"cache_database"`
	}

	WatchConfig struct {
		Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Project   ProjectConfig  `yaml:"project"`
		Compiler  CompilerConfig `yaml:"compiler"`
		Watch     WatchConfig    `yaml:"watch"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

var requiredOptions []func(*gencfg.ProcessingOptions)

// checkConfig validates relations between fields.
func checkConfig(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)

	if !cfg.Compiler.Cache.IsValid() {
		sl.ReportError(cfg.Compiler.Cache, "cache", "Cache", "cache_mode", "")
	}
	if cfg.Compiler.Cache == common.CacheModeDisk && len(cfg.Compiler.CacheDatabase) == 0 {
		sl.ReportError(cfg.Compiler.CacheDatabase, "cache_database", "CacheDatabase", "required_for_disk_cache", "")
	}
	seen := make(map[string]bool, len(cfg.Project.Packages))
	for _, p := range cfg.Project.Packages {
		if seen[p.Name] {
			sl.ReportError(p.Name, "name", "Name", "unique_package", p.Name)
		}
		seen[p.Name] = true
	}
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg, gencfg.WithAdditionalChecks(checkConfig)); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}

// ProjectRoot returns absolute project root, current directory when not set.
func (conf *ProjectConfig) ProjectRoot() (string, error) {
	root := conf.Root
	if len(root) == 0 || root == "." {
		return os.Getwd()
	}
	return filepath.Abs(root)
}

// LoaderOptions translates project configuration into file set loader
// options. Relative package paths and output directory are project root
// based.
func (conf *ProjectConfig) LoaderOptions(root string) []fileset.LoaderOption {
	pkgs := conf.LoaderPackages(root)
	rules := make([]fileset.OptionRule, 0, len(conf.FileOptions))
	for _, r := range conf.FileOptions {
		rules = append(rules, fileset.OptionRule{Pattern: r.Pattern, IsImport: r.IsImport})
	}
	return []fileset.LoaderOption{
		fileset.WithPackages(pkgs...),
		fileset.WithOptionRules(rules...),
		fileset.WithNodeModules(conf.NodeModules),
		fileset.WithSkipDirs(conf.Output(root)),
	}
}

// LoaderPackages returns configured packages with absolute paths.
func (conf *ProjectConfig) LoaderPackages(root string) []fileset.Package {
	pkgs := make([]fileset.Package, 0, len(conf.Packages))
	for _, p := range conf.Packages {
		pkgs = append(pkgs, fileset.Package{Name: p.Name, Path: conf.abs(root, p.Path)})
	}
	return pkgs
}

// Output returns absolute output directory.
func (conf *ProjectConfig) Output(root string) string {
	return conf.abs(root, conf.OutputDir)
}

func (conf *ProjectConfig) abs(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}
