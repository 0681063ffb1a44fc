package flags

import (
	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "PKGTEST"

func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	// Control and Sources may come from the CLI or from the YAML defaults
	// file, so they are validated in NewConfig rather than marked Required.
	Control = &cli.StringFlag{
		Name:    "control",
		Value:   "",
		EnvVars: prefixEnvVars("CONTROL"),
		Usage:   "Path to the tests control file (eg. 'debian/tests/control')",
	}
	Sources = &cli.StringFlag{
		Name:    "sources",
		Value:   "",
		EnvVars: prefixEnvVars("SOURCES"),
		Usage:   "Path to the package metadata file used for dependency placeholder substitution",
	}
	TreeDir = &cli.StringFlag{
		Name:    "tree",
		Value:   ".",
		EnvVars: prefixEnvVars("TREE"),
		Usage:   "Path to the source tree the tests run against",
	}
	TestsDir = &cli.StringFlag{
		Name:    "testsdir",
		Value:   "",
		EnvVars: prefixEnvVars("TESTSDIR"),
		Usage:   "Default directory holding test executables, relative to the tree ('debian/tests' if unset)",
	}
	BuiltTree = &cli.BoolFlag{
		Name:    "built-tree",
		Value:   false,
		EnvVars: prefixEnvVars("BUILT_TREE"),
		Usage:   "Treat the source tree as already built (satisfies the build-needed restriction)",
	}
	IgnoreRestrictions = &cli.StringFlag{
		Name:    "ignore-restrictions",
		Value:   "",
		EnvVars: prefixEnvVars("IGNORE_RESTRICTIONS"),
		Usage:   "Comma-separated restriction names to skip evaluating (eg. 'needs-root,build-needed')",
	}
	Verbose = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Value:   false,
		EnvVars: prefixEnvVars("VERBOSE"),
		Usage:   "Enable debug logging",
	}
	LogDir = &cli.StringFlag{
		Name:    "log-dir",
		Value:   "logs",
		EnvVars: prefixEnvVars("LOG_DIR"),
		Usage:   "Directory to store per-run transcripts",
	}
	ConfigFile = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		EnvVars: prefixEnvVars("CONFIG"),
		Usage:   "Optional YAML file with harness defaults",
	}
	Serve = &cli.BoolFlag{
		Name:    "serve",
		Value:   false,
		EnvVars: prefixEnvVars("SERVE"),
		Usage:   "Expose healthz and metrics HTTP endpoints while running",
	}
)

var Flags = []cli.Flag{
	Control,
	Sources,
	TreeDir,
	TestsDir,
	BuiltTree,
	IgnoreRestrictions,
	Verbose,
	LogDir,
	ConfigFile,
	Serve,
}
