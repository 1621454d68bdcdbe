package config

const (
	defaultCloneRoot         = "repos"
	defaultExportRoot        = "exports"
	defaultStateDir          = ".harvest"
	defaultGitBinary         = "git"
	defaultRemoteURLTemplate = "https://github.com/{owner}/{name}.git"
	defaultCloneDepth        = 1
	defaultCloneTimeout      = 600
	defaultExportBinary      = "repomix"
	defaultExportTimeout     = 300
	defaultWorkers           = 1
	defaultDiagnosticLines   = 5
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	placeholderInput         = "{input}"
	placeholderOutput        = "{output}"
	placeholderOwner         = "{owner}"
	placeholderName          = "{name}"
)

func defaultExportArgs() []string {
	return []string{"--style", "plain", "--output", placeholderOutput, placeholderInput}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CloneRoot:  defaultCloneRoot,
			ExportRoot: defaultExportRoot,
			StateDir:   defaultStateDir,
		},
		Acquisition: Acquisition{
			GitBinary:         defaultGitBinary,
			RemoteURLTemplate: defaultRemoteURLTemplate,
			Depth:             defaultCloneDepth,
			TimeoutSeconds:    defaultCloneTimeout,
		},
		Export: Export{
			Binary:         defaultExportBinary,
			Args:           defaultExportArgs(),
			TimeoutSeconds: defaultExportTimeout,
		},
		Workflow: Workflow{
			Workers:         defaultWorkers,
			DiagnosticLines: defaultDiagnosticLines,
			ProgressBar:     true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
