// Package catalog provides the service catalog backed by the deployment's compose manifest.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"

	"github.com/MyCarrier-DevOps/git-observer/internal/domain"
)

// DefaultComposeFile is the manifest name looked up in the repository root.
const DefaultComposeFile = "docker-compose.yml"

// DefaultTimeout bounds a single catalog load.
const DefaultTimeout = 5 * time.Second

// projectName is a placeholder; only service keys and build contexts are consumed.
const projectName = "git-observer"

// Logger defines the logging interface for the catalog adapter.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
}

// ComposeCatalog implements domain.CatalogSource over a compose file.
// The file is read and parsed on every Load; nothing is cached between events.
type ComposeCatalog struct {
	repoPath    string
	composeFile string
	timeout     time.Duration
	logger      Logger
}

// NewComposeCatalog creates a catalog reading composeFile relative to repoPath.
// Empty composeFile and non-positive timeout select the defaults.
func NewComposeCatalog(repoPath, composeFile string, timeout time.Duration, log Logger) *ComposeCatalog {
	if composeFile == "" {
		composeFile = DefaultComposeFile
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ComposeCatalog{
		repoPath:    repoPath,
		composeFile: composeFile,
		timeout:     timeout,
		logger:      log,
	}
}

// Path returns the absolute or repo-relative path of the manifest.
func (c *ComposeCatalog) Path() string {
	if filepath.IsAbs(c.composeFile) {
		return c.composeFile
	}
	return filepath.Join(c.repoPath, c.composeFile)
}

// Load reads the manifest and returns its services.
// Any read or parse failure wraps domain.ErrCatalogUnavailable.
func (c *ComposeCatalog) Load(ctx context.Context) (*domain.Catalog, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	file := c.Path()
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", domain.ErrCatalogUnavailable, file, err)
	}

	defs, buildErr, err := parseServices(ctx, c.repoPath, file, content)
	if err != nil {
		return nil, err
	}
	if buildErr != nil {
		c.logger.Debug(ctx, "build contexts unavailable, services carry names only", map[string]interface{}{
			"file":  file,
			"error": buildErr.Error(),
		})
	}

	c.logger.Debug(ctx, "loaded service catalog", map[string]interface{}{
		"file":     file,
		"services": len(defs),
	})

	return domain.NewCatalog(defs...), nil
}

// ParseServices parses compose content and returns one definition per key of
// the services mapping, whatever each body holds. Build contexts are filled in
// when the manifest can be modelled; otherwise the names alone are returned.
func ParseServices(ctx context.Context, workingDir, filename string, content []byte) ([]domain.ServiceDefinition, error) {
	defs, _, err := parseServices(ctx, workingDir, filename, content)
	return defs, err
}

// parseServices returns the service definitions, the non-fatal error that
// prevented build contexts from being resolved, and any fatal error.
func parseServices(ctx context.Context, workingDir, filename string, content []byte) ([]domain.ServiceDefinition, error, error) {
	var dict map[string]interface{}
	if err := yaml.Unmarshal(content, &dict); err != nil {
		return nil, nil, fmt.Errorf("%w: invalid YAML syntax: %w", domain.ErrCatalogUnavailable, err)
	}
	if dict == nil {
		return nil, nil, fmt.Errorf("%w: %s is empty", domain.ErrCatalogUnavailable, filename)
	}
	services, ok := serviceBodies(dict["services"])
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s has no services mapping", domain.ErrCatalogUnavailable, filename)
	}

	contexts, buildErr := buildContexts(ctx, workingDir, filename, content, dict, services)

	defs := make([]domain.ServiceDefinition, 0, len(services))
	for name := range services {
		defs = append(defs, domain.ServiceDefinition{Name: name, BuildContext: contexts[name]})
	}
	return defs, buildErr, nil
}

// serviceBodies returns the services mapping keyed by name. Bodies that are
// not mappings, null included, become empty mappings.
func serviceBodies(raw interface{}) (map[string]interface{}, bool) {
	bodies := make(map[string]interface{})
	switch services := raw.(type) {
	case map[string]interface{}:
		for name, body := range services {
			bodies[name] = mappingOrEmpty(body)
		}
	case map[interface{}]interface{}:
		for name, body := range services {
			bodies[fmt.Sprint(name)] = mappingOrEmpty(body)
		}
	default:
		return nil, false
	}
	return bodies, true
}

func mappingOrEmpty(body interface{}) interface{} {
	switch body.(type) {
	case map[string]interface{}, map[interface{}]interface{}:
		return body
	default:
		return map[string]interface{}{}
	}
}

// buildContexts models the manifest with compose-go and returns the build
// context of each service that declares one. Validation, interpolation and
// consistency checks are skipped: the observer only reads the build section.
func buildContexts(
	ctx context.Context,
	workingDir, filename string,
	content []byte,
	dict map[string]interface{},
	services map[string]interface{},
) (map[string]string, error) {
	model := make(map[string]interface{}, len(dict))
	for key, value := range dict {
		model[key] = value
	}
	model["services"] = services

	project, err := loader.LoadWithContext(ctx, types.ConfigDetails{
		WorkingDir: workingDir,
		ConfigFiles: []types.ConfigFile{
			{
				Filename: filename,
				Content:  content,
				Config:   model,
			},
		},
		Environment: types.Mapping{},
	}, func(opts *loader.Options) {
		opts.SetProjectName(projectName, false)
		opts.Profiles = []string{"*"}
		opts.SkipValidation = true
		opts.SkipInterpolation = true
		opts.SkipConsistencyCheck = true
		opts.SkipNormalization = true
		opts.SkipResolveEnvironment = true
		opts.SkipInclude = true
		opts.SkipExtends = true
		opts.ResolvePaths = false
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("timed out modelling %s: %w", filename, err)
		}
		return nil, err
	}

	contexts := make(map[string]string, len(project.Services))
	for name, svc := range project.Services {
		if svc.Build != nil {
			contexts[name] = buildContext(workingDir, svc.Build.Context)
		}
	}
	return contexts, nil
}

// buildContext normalizes a declared build context to a clean repo-relative path.
// Remote contexts, uninterpolated variables and contexts outside the
// repository yield "".
func buildContext(workingDir, context string) string {
	if context == "" {
		return "."
	}
	if strings.Contains(context, "://") || strings.HasPrefix(context, "git@") || strings.Contains(context, "$") {
		return ""
	}
	if filepath.IsAbs(context) {
		rel, err := filepath.Rel(workingDir, context)
		if err != nil {
			return ""
		}
		context = rel
	}
	cleaned := path.Clean(filepath.ToSlash(context))
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return ""
	}
	return cleaned
}
