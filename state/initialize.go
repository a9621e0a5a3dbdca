package state

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"scssc/config"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start:       time.Now(),
		Stylesheets: &config.StylesheetConfig{},
	}
}

// PrepareProject resolves project root from configuration and loads
// stylesheet configuration kept there.
func (e *LocalEnv) PrepareProject() error {
	if e.Cfg == nil {
		return errors.New("configuration is not loaded")
	}
	log := e.Log
	if log == nil {
		log = zap.NewNop()
	}

	root, err := e.Cfg.Project.ProjectRoot()
	if err != nil {
		return fmt.Errorf("unable to get project root: %w", err)
	}
	fi, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("unable to access project root: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("project root %s is not a directory", root)
	}
	e.ProjectRoot = root
	e.Stylesheets = config.LoadStylesheetConfig(log, root, e.Cfg.Project.ConfigFile)
	return nil
}
