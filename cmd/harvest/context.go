package main

import (
	"strings"

	"github.com/spf13/cobra"

	"harvest/internal/catalog"
	"harvest/internal/config"
)

// commandContext carries what the subcommands share: the --config flag, the
// configuration it resolves to and the catalog that configuration names.
// Both are loaded at most once per invocation.
type commandContext struct {
	configFlag *string

	cfg        *config.Config
	configPath string
	configSeen bool
	configErr  error
	loaded     bool

	cat    *catalog.Catalog
	catErr error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureConfig loads and validates configuration. It never creates
// directories; commands that write state do so themselves.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.loaded {
		return c.cfg, c.configErr
	}
	c.loaded = true
	var path string
	if c.configFlag != nil {
		path = strings.TrimSpace(*c.configFlag)
	}
	c.cfg, c.configPath, c.configSeen, c.configErr = config.Load(path)
	return c.cfg, c.configErr
}

// ensureCatalog resolves the catalog named by the loaded configuration. Flag
// overrides of catalog.file must be applied before the first call.
func (c *commandContext) ensureCatalog() (*catalog.Catalog, error) {
	if c.cat != nil || c.catErr != nil {
		return c.cat, c.catErr
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.cat, c.catErr = catalog.Resolve(cfg.Catalog.File)
	return c.cat, c.catErr
}

// catalogSource names where the catalog came from for human output.
func (c *commandContext) catalogSource() string {
	if c.cfg == nil || c.cfg.Catalog.File == "" {
		return "built-in"
	}
	return c.cfg.Catalog.File
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
