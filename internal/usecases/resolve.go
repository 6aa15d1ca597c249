package usecases

import (
	"path"
	"strings"

	"github.com/MyCarrier-DevOps/git-observer/internal/domain"
)

// ResolveImpact maps changed files to the services they affect.
//
// With domain.MatchSubstring (the default) a service is impacted when a file path
// contains the service name anywhere, which over-matches: "api" is impacted by
// "docs/api-notes.md". With domain.MatchBuildContext a service is impacted only by
// files under its declared build context.
//
// Files are visited in order and services by name, so the result order is stable.
func ResolveImpact(catalog *domain.Catalog, modifiedFiles []string, mode domain.MatchMode) *domain.ImpactSet {
	impact := domain.NewImpactSet()
	services := catalog.Services()
	if len(services) == 0 {
		return impact
	}

	for _, file := range modifiedFiles {
		for _, svc := range services {
			if matchesService(file, svc, mode) {
				impact.Add(svc)
			}
		}
	}
	return impact
}

func matchesService(file string, svc domain.ServiceDefinition, mode domain.MatchMode) bool {
	if mode != domain.MatchBuildContext {
		return strings.Contains(file, svc.Name)
	}

	if svc.BuildContext == "" {
		return false
	}
	if svc.BuildContext == "." {
		return true
	}
	file = path.Clean(strings.TrimPrefix(file, "./"))
	return file == svc.BuildContext || strings.HasPrefix(file, svc.BuildContext+"/")
}
