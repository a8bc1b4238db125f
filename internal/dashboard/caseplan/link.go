// Package caseplan resolves which service events belong to a case plan.
package caseplan

import (
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/config"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/models"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/records"
)

// Services links a case plan to its service events. When an explicit
// case-plan link resolves, only the linked events are returned. When it does
// not, the plan owner's full service history is returned with Fallback set.
// The fallback can attribute unrelated services to the plan, so callers must
// show it, never hide it.
func Services(plan records.Record, events []records.Record, cfg config.Engine) models.CasePlanServices {
	planID, planOK := records.ResolveID(plan, cfg.CasePlanIDKeys)

	result := models.CasePlanServices{CasePlanID: planID}
	if !planOK {
		result.CasePlanID = records.NotAvailable
	}

	if planOK {
		for _, event := range events {
			if eventPlanID, ok := records.ResolveID(event, cfg.EventCasePlanKeys); ok && eventPlanID == planID {
				result.Services = append(result.Services, event)
			}
		}
		if len(result.Services) > 0 {
			return result
		}
	}

	// No explicit link resolved: fall back to everything the owner received.
	result.Fallback = true
	ownerID, ok := records.ResolveID(plan, cfg.CasePlanOwnerKeys)
	if !ok {
		return result
	}
	for _, event := range events {
		if eventOwner, ok := records.ResolveID(event, cfg.EventOwnerKeys); ok && eventOwner == ownerID {
			result.Services = append(result.Services, event)
		}
	}
	return result
}
