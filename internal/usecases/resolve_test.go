package usecases

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MyCarrier-DevOps/git-observer/internal/domain"
)

func catalogOf(names ...string) *domain.Catalog {
	defs := make([]domain.ServiceDefinition, len(names))
	for i, name := range names {
		defs[i] = domain.ServiceDefinition{Name: name}
	}
	return domain.NewCatalog(defs...)
}

func TestResolveImpact_Substring(t *testing.T) {
	tests := []struct {
		name    string
		catalog *domain.Catalog
		files   []string
		want    []string
	}{
		{
			name:    "single service touched",
			catalog: catalogOf("api", "worker", "nginx"),
			files:   []string{"services/api/index.js"},
			want:    []string{"api"},
		},
		{
			name:    "first-seen order across files",
			catalog: catalogOf("api", "worker"),
			files:   []string{"services/worker/y", "services/api/x"},
			want:    []string{"worker", "api"},
		},
		{
			name:    "duplicates collapse",
			catalog: catalogOf("api", "worker"),
			files:   []string{"services/api/a", "services/api/b"},
			want:    []string{"api"},
		},
		{
			name:    "one file can impact several services",
			catalog: catalogOf("api", "worker"),
			files:   []string{"api-worker/shared.go"},
			want:    []string{"api", "worker"},
		},
		{
			name:    "substring over-matches unrelated paths",
			catalog: catalogOf("api"),
			files:   []string{"some/api-docs/readme.md"},
			want:    []string{"api"},
		},
		{
			name:    "no files",
			catalog: catalogOf("api"),
			files:   nil,
			want:    []string{},
		},
		{
			name:    "empty catalog",
			catalog: domain.EmptyCatalog(),
			files:   []string{"services/api/index.js"},
			want:    []string{},
		},
		{
			name:    "nil catalog",
			catalog: nil,
			files:   []string{"services/api/index.js"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveImpact(tt.catalog, tt.files, domain.MatchSubstring)
			assert.Equal(t, tt.want, got.Names())
		})
	}
}

func TestResolveImpact_BuildContext(t *testing.T) {
	catalog := domain.NewCatalog(
		domain.ServiceDefinition{Name: "api", BuildContext: "services/api"},
		domain.ServiceDefinition{Name: "worker", BuildContext: "services/worker"},
		domain.ServiceDefinition{Name: "nginx"},
	)

	tests := []struct {
		name  string
		files []string
		want  []string
	}{
		{name: "file under context", files: []string{"services/api/index.js"}, want: []string{"api"}},
		{name: "leading dot slash is ignored", files: []string{"./services/worker/main.go"}, want: []string{"worker"}},
		{name: "sibling prefix does not match", files: []string{"services/api-docs/readme.md"}, want: []string{}},
		{name: "name elsewhere in path does not match", files: []string{"docs/api/intro.md"}, want: []string{}},
		{name: "service without build context never matches", files: []string{"nginx/nginx.conf"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveImpact(catalog, tt.files, domain.MatchBuildContext)
			assert.Equal(t, tt.want, got.Names())
		})
	}
}

func TestResolveImpact_RootContextMatchesEverything(t *testing.T) {
	catalog := domain.NewCatalog(domain.ServiceDefinition{Name: "app", BuildContext: "."})

	got := ResolveImpact(catalog, []string{"anything/at/all.txt"}, domain.MatchBuildContext)

	assert.Equal(t, []string{"app"}, got.Names())
}

func TestResolveImpact_Monotonic(t *testing.T) {
	catalog := catalogOf("api", "worker", "nginx", "db")
	files := []string{"services/api/a", "README.md", "db/migrations/1.sql", "nginx/conf.d/x", "worker"}

	previous := ResolveImpact(catalog, nil, domain.MatchSubstring)
	for i := range files {
		current := ResolveImpact(catalog, files[:i+1], domain.MatchSubstring)
		for _, name := range previous.Names() {
			assert.True(t, current.Contains(name), "adding %q dropped %q", files[i], name)
		}
		assert.GreaterOrEqual(t, current.Len(), previous.Len())
		previous = current
	}
}

func TestResolveImpact_Idempotent(t *testing.T) {
	catalog := catalogOf("api", "worker", "nginx")
	files := []string{"services/worker/y", "services/api/x", "nginx/nginx.conf"}

	first := ResolveImpact(catalog, files, domain.MatchSubstring)
	second := ResolveImpact(catalog, files, domain.MatchSubstring)

	assert.Equal(t, first.Names(), second.Names())
}
