package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	c.normalizeAcquisition()
	c.normalizeExport()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CloneRoot) == "" {
		c.Paths.CloneRoot = defaultCloneRoot
	}
	if c.Paths.CloneRoot, err = expandPath(strings.TrimSpace(c.Paths.CloneRoot)); err != nil {
		return fmt.Errorf("paths.clone_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.ExportRoot) == "" {
		c.Paths.ExportRoot = defaultExportRoot
	}
	if c.Paths.ExportRoot, err = expandPath(strings.TrimSpace(c.Paths.ExportRoot)); err != nil {
		return fmt.Errorf("paths.export_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCatalog() error {
	file := strings.TrimSpace(c.Catalog.File)
	if file == "" {
		c.Catalog.File = ""
		return nil
	}
	expanded, err := expandPath(file)
	if err != nil {
		return fmt.Errorf("catalog.file: %w", err)
	}
	c.Catalog.File = expanded
	return nil
}

func (c *Config) normalizeAcquisition() {
	if value, ok := os.LookupEnv("HARVEST_GIT_BINARY"); ok && strings.TrimSpace(value) != "" {
		c.Acquisition.GitBinary = value
	}
	c.Acquisition.GitBinary = strings.TrimSpace(c.Acquisition.GitBinary)
	if c.Acquisition.GitBinary == "" {
		c.Acquisition.GitBinary = defaultGitBinary
	}
	c.Acquisition.RemoteURLTemplate = strings.TrimSpace(c.Acquisition.RemoteURLTemplate)
	if c.Acquisition.RemoteURLTemplate == "" {
		c.Acquisition.RemoteURLTemplate = defaultRemoteURLTemplate
	}
}

func (c *Config) normalizeExport() {
	if value, ok := os.LookupEnv("HARVEST_EXPORT_BINARY"); ok && strings.TrimSpace(value) != "" {
		c.Export.Binary = value
	}
	c.Export.Binary = strings.TrimSpace(c.Export.Binary)
	if c.Export.Binary == "" {
		c.Export.Binary = defaultExportBinary
	}
	args := make([]string, 0, len(c.Export.Args))
	for _, arg := range c.Export.Args {
		if arg = strings.TrimSpace(arg); arg != "" {
			args = append(args, arg)
		}
	}
	if len(args) == 0 {
		args = defaultExportArgs()
	}
	c.Export.Args = args
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.Workers == 0 {
		c.Workflow.Workers = defaultWorkers
	}
	if c.Workflow.DiagnosticLines == 0 {
		c.Workflow.DiagnosticLines = defaultDiagnosticLines
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
