package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAcquisition(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.CloneRoot == c.Paths.ExportRoot {
		return errors.New("paths.clone_root and paths.export_root must differ")
	}
	sep := string(filepath.Separator)
	if strings.HasPrefix(c.Paths.ExportRoot+sep, c.Paths.CloneRoot+sep) {
		return errors.New("paths.export_root must not live inside paths.clone_root")
	}
	return nil
}

func (c *Config) validateAcquisition() error {
	// {name} alone would point a/x and b/x at the same remote.
	for _, placeholder := range []string{placeholderOwner, placeholderName} {
		if !strings.Contains(c.Acquisition.RemoteURLTemplate, placeholder) {
			return fmt.Errorf("acquisition.remote_url_template must contain %s", placeholder)
		}
	}
	if err := ensureNonNegativeMap(map[string]int{
		"acquisition.depth":           c.Acquisition.Depth,
		"acquisition.timeout_seconds": c.Acquisition.TimeoutSeconds,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateExport() error {
	joined := strings.Join(c.Export.Args, " ")
	for _, placeholder := range []string{placeholderInput, placeholderOutput} {
		if !strings.Contains(joined, placeholder) {
			return fmt.Errorf("export.args must reference %s", placeholder)
		}
	}
	if c.Export.TimeoutSeconds < 0 {
		return errors.New("export.timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.Workers < 1 {
		return errors.New("workflow.workers must be positive")
	}
	if c.Workflow.DiagnosticLines < 1 {
		return errors.New("workflow.diagnostic_lines must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensureNonNegativeMap(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	return nil
}
