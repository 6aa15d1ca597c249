package usecases

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MyCarrier-DevOps/git-observer/internal/domain"
)

func impactOf(names ...string) *domain.ImpactSet {
	set := domain.NewImpactSet()
	for _, name := range names {
		set.Add(domain.ServiceDefinition{Name: name})
	}
	return set
}

func TestPlanRebuild(t *testing.T) {
	tests := []struct {
		name         string
		catalog      *domain.Catalog
		impact       *domain.ImpactSet
		wantKind     domain.PlanKind
		wantServices []string
	}{
		{
			name:     "empty catalog and nothing impacted",
			catalog:  domain.EmptyCatalog(),
			impact:   impactOf(),
			wantKind: domain.PlanNone,
		},
		{
			name:     "nothing impacted",
			catalog:  catalogOf("api"),
			impact:   impactOf(),
			wantKind: domain.PlanNone,
		},
		{
			name:     "every service impacted",
			catalog:  catalogOf("api", "worker"),
			impact:   impactOf("worker", "api"),
			wantKind: domain.PlanFull,
		},
		{
			name:         "subset impacted, gateway appended",
			catalog:      catalogOf("api", "worker", "nginx"),
			impact:       impactOf("api"),
			wantKind:     domain.PlanSelective,
			wantServices: []string{"api", "nginx"},
		},
		{
			name:         "impacted gateway is not duplicated and stays last",
			catalog:      catalogOf("api", "worker", "nginx"),
			impact:       impactOf("nginx", "api"),
			wantKind:     domain.PlanSelective,
			wantServices: []string{"api", "nginx"},
		},
		{
			name:         "gateway absent from catalog is still restarted",
			catalog:      catalogOf("api", "worker"),
			impact:       impactOf("api"),
			wantKind:     domain.PlanSelective,
			wantServices: []string{"api", "nginx"},
		},
		{
			name:     "impacted names outside the catalog are ignored",
			catalog:  catalogOf("api"),
			impact:   impactOf("ghost"),
			wantKind: domain.PlanNone,
		},
		{
			name:     "empty catalog never plans full",
			catalog:  domain.EmptyCatalog(),
			impact:   impactOf("api"),
			wantKind: domain.PlanNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := PlanRebuild(tt.catalog, tt.impact, "nginx")

			assert.Equal(t, tt.wantKind, plan.Kind)
			assert.Equal(t, tt.wantServices, plan.Services())
		})
	}
}

func TestPlanRebuild_Scenarios(t *testing.T) {
	t.Run("one service of three", func(t *testing.T) {
		catalog := catalogOf("api", "worker", "nginx")
		impact := ResolveImpact(catalog, []string{"services/api/index.js"}, domain.MatchSubstring)

		plan := PlanRebuild(catalog, impact, "nginx")

		assert.Equal(t, []string{"api"}, impact.Names())
		assert.Equal(t, domain.PlanSelective, plan.Kind)
		assert.Equal(t, []string{"api", "nginx"}, plan.Services())
	})

	t.Run("whole catalog", func(t *testing.T) {
		catalog := catalogOf("api", "worker")
		impact := ResolveImpact(catalog, []string{"services/api/x", "services/worker/y"}, domain.MatchSubstring)

		plan := PlanRebuild(catalog, impact, "nginx")

		assert.Equal(t, domain.PlanFull, plan.Kind)
		assert.Equal(t, []domain.Action{{Op: domain.OpRunFull}}, plan.Actions())
	})

	t.Run("no files", func(t *testing.T) {
		catalog := catalogOf("api")
		impact := ResolveImpact(catalog, []string{}, domain.MatchSubstring)

		plan := PlanRebuild(catalog, impact, "nginx")

		assert.Equal(t, domain.PlanNone, plan.Kind)
		assert.Empty(t, plan.Actions())
	})
}

func TestPlanRebuild_Deterministic(t *testing.T) {
	catalog := catalogOf("api", "worker", "nginx")
	impact := impactOf("worker", "api")

	first := PlanRebuild(catalog, impact, "nginx")
	second := PlanRebuild(catalog, impact, "nginx")

	assert.Equal(t, first, second)
}
