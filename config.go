package pkgtest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/debci/pkgtest/flags"
)

// Config holds the harness configuration
type Config struct {
	Control            string   // tests control file
	Sources            string   // package metadata file
	Tree               string   // source tree the tests run against
	TestsDir           string   // default tests directory override, empty means the built-in default
	BuiltTree          bool     // source tree is already built
	IgnoreRestrictions []string // restriction names to skip evaluating
	SelectedTests      []string // explicit test names to run, empty means all
	LogDir             string   // directory for per-run transcripts
	Serve              bool     // expose healthz/metrics endpoints
	Log                log.Logger
}

// fileConfig mirrors the optional YAML defaults file. CLI flags that were
// set explicitly win over it.
type fileConfig struct {
	Control            string   `yaml:"control"`
	Sources            string   `yaml:"sources"`
	Tree               string   `yaml:"tree"`
	TestsDir           string   `yaml:"testsdir"`
	BuiltTree          bool     `yaml:"built_tree"`
	IgnoreRestrictions []string `yaml:"ignore_restrictions"`
	LogDir             string   `yaml:"log_dir"`
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, logger log.Logger) (*Config, error) {
	var defaults fileConfig
	if path := ctx.String(flags.ConfigFile.Name); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &defaults); err != nil {
			return nil, fmt.Errorf("parsing config file '%s': %w", path, err)
		}
	}

	pick := func(flagName, fileValue string) string {
		if ctx.IsSet(flagName) || fileValue == "" {
			return ctx.String(flagName)
		}
		return fileValue
	}

	control := pick(flags.Control.Name, defaults.Control)
	sources := pick(flags.Sources.Name, defaults.Sources)
	if control == "" {
		return nil, errors.New("tests control file is required")
	}
	if sources == "" {
		return nil, errors.New("package metadata file is required")
	}

	tree := pick(flags.TreeDir.Name, defaults.Tree)
	absTree, err := filepath.Abs(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for tree '%s': %w", tree, err)
	}

	logDir := pick(flags.LogDir.Name, defaults.LogDir)
	if logDir == "" {
		logDir = "logs"
	}
	logDir, err = filepath.Abs(logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
	}

	ignored := defaults.IgnoreRestrictions
	if ctx.IsSet(flags.IgnoreRestrictions.Name) || len(ignored) == 0 {
		ignored = splitList(ctx.String(flags.IgnoreRestrictions.Name))
	}

	builtTree := defaults.BuiltTree
	if ctx.IsSet(flags.BuiltTree.Name) {
		builtTree = ctx.Bool(flags.BuiltTree.Name)
	}

	return &Config{
		Control:            control,
		Sources:            sources,
		Tree:               absTree,
		TestsDir:           pick(flags.TestsDir.Name, defaults.TestsDir),
		BuiltTree:          builtTree,
		IgnoreRestrictions: ignored,
		SelectedTests:      ctx.Args().Slice(),
		LogDir:             logDir,
		Serve:              ctx.Bool(flags.Serve.Name),
		Log:                logger,
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
