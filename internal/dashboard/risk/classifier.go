// Package risk classifies entities against composite, time-windowed risk
// rules. All windows anchor to the evaluation time, not event time.
// Classification is pure and per-entity, so batches run in parallel.
package risk

import (
	"context"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/config"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/models"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/records"
)

// Inputs are the workflow records already grouped to one entity.
type Inputs struct {
	Services  []records.Record
	CasePlans []records.Record
	Referrals []records.Record
}

// Classify evaluates every risk rule for one entity.
func Classify(entity records.Record, in Inputs, now time.Time, cfg config.Engine) models.RiskFlags {
	var f models.RiskFlags

	f.HIVPositive = hivPositive(entity, cfg)

	if f.HIVPositive {
		vlDate, vlDateOK := records.ParseFlexibleDate(records.Text(entity, cfg.LastVLDateKeys))
		vlCutoff := now.AddDate(0, -cfg.Risk.VLRecencyMonths, 0)
		f.HIVNoRecentVL = !vlDateOK || vlDate.Before(vlCutoff)

		if result, ok := numericValue(records.Text(entity, cfg.LastVLResultKeys)); ok {
			f.UnsuppressedVL = result >= cfg.Risk.VLSuppressionCopies
		}
	}

	// Absence of events, or nothing parsable, counts as no recent service:
	// the rule fails safe toward flagging.
	serviceCutoff := now.AddDate(0, 0, -cfg.Risk.ServiceWindowDays)
	f.NoServiceInWindow = true
	for _, event := range in.Services {
		date, ok := records.ParseFlexibleDate(records.Text(event, cfg.ServiceDateKeys))
		if ok && !date.Before(serviceCutoff) {
			f.NoServiceInWindow = false
			break
		}
	}

	f.NoActiveCasePlan = len(in.CasePlans) == 0

	referralCutoff := now.AddDate(0, 0, -cfg.Risk.ReferralOverdueDays)
	for _, referral := range in.Referrals {
		status := strings.ToLower(strings.TrimSpace(records.Text(referral, cfg.ReferralStatusKeys)))
		if status == "completed" {
			continue
		}
		date, ok := records.ParseFlexibleDate(records.Text(referral, cfg.ReferralDateKeys))
		if ok && date.Before(referralCutoff) {
			f.OverdueReferral = true
			break
		}
	}

	f.OutOfSchool = outOfSchool(entity, cfg)

	f.HighRisk = (f.HIVPositive && (f.HIVNoRecentVL || f.UnsuppressedVL)) ||
		f.NoServiceInWindow ||
		f.NoActiveCasePlan ||
		f.OutOfSchool

	return f
}

// ClassifyAll classifies a cohort. Entities are independent, so the batch
// fans out across a bounded worker group; results land by index so no
// ordering is lost.
func ClassifyAll(ctx context.Context, entities []records.Record, idKeys []string, byOwner map[string]Inputs, now time.Time, cfg config.Engine) ([]models.EntityRisk, error) {
	results := make([]models.EntityRisk, len(entities))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, entity := range entities {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, ok := records.ResolveID(entity, idKeys)
			var in Inputs
			if ok {
				in = byOwner[id]
			} else {
				id = records.NotAvailable
			}
			results[i] = models.EntityRisk{
				EntityID: id,
				Flags:    Classify(entity, in, now, cfg),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// GroupInputs indexes workflow records by their best-effort owning-entity id.
// Records with an unresolvable owner are dropped from id-keyed aggregation.
func GroupInputs(services, casePlans, referrals []records.Record, cfg config.Engine) map[string]Inputs {
	grouped := make(map[string]Inputs)

	add := func(recs []records.Record, ownerKeys []string, assign func(*Inputs, records.Record)) {
		for _, r := range recs {
			id, ok := records.ResolveID(r, ownerKeys)
			if !ok {
				continue
			}
			in := grouped[id]
			assign(&in, r)
			grouped[id] = in
		}
	}

	add(services, cfg.EventOwnerKeys, func(in *Inputs, r records.Record) { in.Services = append(in.Services, r) })
	add(casePlans, cfg.CasePlanOwnerKeys, func(in *Inputs, r records.Record) { in.CasePlans = append(in.CasePlans, r) })
	add(referrals, cfg.ReferralOwnerKeys, func(in *Inputs, r records.Record) { in.Referrals = append(in.Referrals, r) })

	return grouped
}

func hivPositive(entity records.Record, cfg config.Engine) bool {
	raw := strings.ToLower(strings.TrimSpace(records.Text(entity, cfg.HIVStatusKeys)))
	if raw == "" || raw == strings.ToLower(records.NotAvailable) {
		return false
	}
	for _, v := range cfg.HIVPositiveValues {
		if raw == v {
			return true
		}
	}
	return false
}

func outOfSchool(entity records.Record, cfg config.Engine) bool {
	raw := strings.ToLower(strings.TrimSpace(records.Text(entity, cfg.SchoolStatusKeys)))
	for _, v := range cfg.OutOfSchoolValues {
		if raw == v {
			return true
		}
	}
	return false
}

func numericValue(text string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
