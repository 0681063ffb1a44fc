// Package registry loads test groups from a tests control file and the
// source package metadata used to expand their dependency expressions.
package registry

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/debci/pkgtest/types"
)

// Registry manages the test groups discovered for one run.
type Registry struct {
	config Config
	groups []*types.TestGroup
	meta   *types.SourceMetadata
	mu     sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log         log.Logger
	ControlFile string // tests control file, one paragraph per group
	SourcesFile string // package metadata file, for placeholder substitution
	TestsDir    string // default tests directory when a paragraph has none
}

// NewRegistry creates a new registry instance
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.ControlFile == "" {
		return nil, fmt.Errorf("control file is required")
	}
	if cfg.SourcesFile == "" {
		return nil, fmt.Errorf("sources file is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.TestsDir == "" {
		cfg.TestsDir = types.DefaultTestsDirectory
	}

	r := &Registry{config: cfg}
	if err := r.load(); err != nil {
		return nil, err
	}

	cfg.Log.Debug("Registry loaded",
		"len(groups)", len(r.groups),
		"len(binaries)", len(r.meta.Binaries))

	return r, nil
}

func (r *Registry) load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta, err := loadSourceMetadata(r.config.SourcesFile)
	if err != nil {
		return fmt.Errorf("failed to load source metadata: %w", err)
	}
	r.meta = meta

	groups, err := r.loadGroups(r.config.ControlFile)
	if err != nil {
		return fmt.Errorf("failed to load test groups: %w", err)
	}

	// One-time placeholder rewrite, before anything runs.
	for _, g := range groups {
		g.ExpandDepends(meta)
	}
	r.groups = groups

	return nil
}

// knownFields are the control-file fields this harness understands. A
// paragraph carrying anything else is discarded whole, with a warning.
var knownFields = map[string]bool{
	"tests":           true,
	"restrictions":    true,
	"features":        true,
	"depends":         true,
	"tests-directory": true,
}

func (r *Registry) loadGroups(path string) ([]*types.TestGroup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading control file: %w", err)
	}

	paras, err := parseParagraphs(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing control file: %w", err)
	}

	var groups []*types.TestGroup
	for i, para := range paras {
		group, err := r.groupFromParagraph(i, para)
		if err != nil {
			r.config.Log.Warn("Discarding control paragraph", "paragraph", i+1, "reason", err)
			continue
		}
		groups = append(groups, group)
	}

	return groups, nil
}

func (r *Registry) groupFromParagraph(idx int, para paragraph) (*types.TestGroup, error) {
	for _, f := range para.Fields {
		if !knownFields[strings.ToLower(f.Name)] {
			return nil, fmt.Errorf("unknown field %q", f.Name)
		}
	}

	testsValue, ok := para.Get("Tests")
	if !ok || strings.TrimSpace(testsValue) == "" {
		return nil, fmt.Errorf("no tests declared")
	}

	group := &types.TestGroup{
		Name:           fmt.Sprintf("group-%d", idx+1),
		Tests:          strings.Fields(testsValue),
		Depends:        types.DependsPlaceholder,
		TestsDirectory: r.config.TestsDir,
	}
	if v, ok := para.Get("Restrictions"); ok {
		for _, name := range strings.Fields(v) {
			group.Restrictions = append(group.Restrictions, types.Restriction(name))
		}
	}
	if v, ok := para.Get("Features"); ok {
		group.Features = strings.Fields(v)
	}
	if v, ok := para.Get("Depends"); ok {
		group.Depends = v
	}
	if v, ok := para.Get("Tests-Directory"); ok {
		group.TestsDirectory = v
	}

	return group, nil
}

// loadSourceMetadata reads the package metadata file: the first paragraph
// supplies the build prerequisites, every later paragraph names one binary
// package.
func loadSourceMetadata(path string) (*types.SourceMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sources file: %w", err)
	}

	paras, err := parseParagraphs(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing sources file: %w", err)
	}
	if len(paras) == 0 {
		return nil, fmt.Errorf("sources file has no paragraphs")
	}

	meta := &types.SourceMetadata{}

	var deps []string
	if v, ok := paras[0].Get("Build-Depends"); ok && v != "" {
		deps = append(deps, v)
	}
	if v, ok := paras[0].Get("Build-Depends-Indep"); ok && v != "" {
		deps = append(deps, v)
	}
	meta.BuildDeps = strings.Join(deps, ", ")

	for _, para := range paras[1:] {
		if name, ok := para.Get("Package"); ok && name != "" {
			meta.Binaries = append(meta.Binaries, name)
		}
	}

	return meta, nil
}

// Groups returns all discovered test groups in declaration order.
func (r *Registry) Groups() []*types.TestGroup {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.groups
}

// SourceMetadata returns the parsed package metadata.
func (r *Registry) SourceMetadata() *types.SourceMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.meta
}

// GetConfig returns the registry configuration
func (r *Registry) GetConfig() Config {
	return r.config
}
