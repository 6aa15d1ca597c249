package usecases

import "github.com/MyCarrier-DevOps/git-observer/internal/domain"

// PlanRebuild classifies the work required for an impact set.
//
//	catalog empty or nothing impacted -> PlanNone
//	every catalog service impacted    -> PlanFull
//	otherwise                         -> PlanSelective, gateway restarted last
//
// Impacted names that are not in the catalog are ignored. The function is pure.
func PlanRebuild(catalog *domain.Catalog, impact *domain.ImpactSet, gateway string) domain.RebuildPlan {
	var impacted []domain.ServiceDefinition
	for _, svc := range impact.Services() {
		if _, ok := catalog.Lookup(svc.Name); ok {
			impacted = append(impacted, svc)
		}
	}

	switch {
	case catalog.Len() == 0 || len(impacted) == 0:
		return domain.RebuildPlan{Kind: domain.PlanNone}
	case len(impacted) == catalog.Len():
		return domain.RebuildPlan{Kind: domain.PlanFull}
	default:
		return domain.RebuildPlan{
			Kind:     domain.PlanSelective,
			Impacted: impacted,
			Gateway:  gateway,
		}
	}
}
