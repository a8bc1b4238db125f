// Package config holds the engine configuration: candidate-key lists, domain
// field names, the cohort-key remap table, and risk thresholds. Nothing here
// is hardcoded into the engine packages; deployments override via a YAML file,
// and scalar and key-list settings also via ECAP_* environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Domain names one service category and the event field keys that record it.
type Domain struct {
	Name      string   `mapstructure:"name" yaml:"name"`
	FieldKeys []string `mapstructure:"field_keys" yaml:"field_keys"`
}

// RiskThresholds are the windows and cutoffs for the risk classifier, all
// anchored to the evaluation time rather than event time.
type RiskThresholds struct {
	VLRecencyMonths     int     `mapstructure:"vl_recency_months" yaml:"vl_recency_months"`
	ServiceWindowDays   int     `mapstructure:"service_window_days" yaml:"service_window_days"`
	ReferralOverdueDays int     `mapstructure:"referral_overdue_days" yaml:"referral_overdue_days"`
	VLSuppressionCopies float64 `mapstructure:"vl_suppression_copies" yaml:"vl_suppression_copies"`
}

// Engine is the full engine configuration.
type Engine struct {
	HouseholdIDKeys   []string `mapstructure:"household_id_keys" yaml:"household_id_keys"`
	PersonIDKeys      []string `mapstructure:"person_id_keys" yaml:"person_id_keys"`
	EventOwnerKeys    []string `mapstructure:"event_owner_keys" yaml:"event_owner_keys"`
	EventCasePlanKeys []string `mapstructure:"event_case_plan_keys" yaml:"event_case_plan_keys"`
	CasePlanIDKeys    []string `mapstructure:"case_plan_id_keys" yaml:"case_plan_id_keys"`
	CasePlanOwnerKeys []string `mapstructure:"case_plan_owner_keys" yaml:"case_plan_owner_keys"`
	ReferralOwnerKeys []string `mapstructure:"referral_owner_keys" yaml:"referral_owner_keys"`

	DistrictKeys    []string `mapstructure:"district_keys" yaml:"district_keys"`
	ServiceDateKeys []string `mapstructure:"service_date_keys" yaml:"service_date_keys"`
	ServiceKeys     []string `mapstructure:"service_keys" yaml:"service_keys"`
	CaseworkerKeys  []string `mapstructure:"caseworker_keys" yaml:"caseworker_keys"`
	BirthdateKeys   []string `mapstructure:"birthdate_keys" yaml:"birthdate_keys"`

	Domains []Domain `mapstructure:"domains" yaml:"domains"`

	// CohortKeyMap maps a cohort filter key to the storage key it reads.
	// Filter keys absent from the map resolve to themselves.
	CohortKeyMap map[string]string `mapstructure:"cohort_key_map" yaml:"cohort_key_map"`

	HIVStatusKeys      []string `mapstructure:"hiv_status_keys" yaml:"hiv_status_keys"`
	HIVPositiveValues  []string `mapstructure:"hiv_positive_values" yaml:"hiv_positive_values"`
	LastVLDateKeys     []string `mapstructure:"last_vl_date_keys" yaml:"last_vl_date_keys"`
	LastVLResultKeys   []string `mapstructure:"last_vl_result_keys" yaml:"last_vl_result_keys"`
	SchoolStatusKeys   []string `mapstructure:"school_status_keys" yaml:"school_status_keys"`
	OutOfSchoolValues  []string `mapstructure:"out_of_school_values" yaml:"out_of_school_values"`
	ReferralStatusKeys []string `mapstructure:"referral_status_keys" yaml:"referral_status_keys"`
	ReferralDateKeys   []string `mapstructure:"referral_date_keys" yaml:"referral_date_keys"`

	Risk RiskThresholds `mapstructure:"risk" yaml:"risk"`

	PageSize int `mapstructure:"page_size" yaml:"page_size"`
}

// Default returns the engine configuration matching the record store's
// current exports. Every list is overridable; these are starting points, not
// contracts.
func Default() Engine {
	return Engine{
		HouseholdIDKeys:   []string{"household_id", "hh_id", "uid", "unique_id"},
		PersonIDKeys:      []string{"uid", "unique_id", "vca_id", "person_id"},
		EventOwnerKeys:    []string{"household_id", "hh_id", "uid", "unique_id", "vca_id"},
		EventCasePlanKeys: []string{"case_plan_id", "caseplan_id", "plan_id"},
		CasePlanIDKeys:    []string{"case_plan_id", "caseplan_id", "plan_id", "id"},
		CasePlanOwnerKeys: []string{"household_id", "hh_id", "uid", "unique_id", "vca_id"},
		ReferralOwnerKeys: []string{"household_id", "hh_id", "uid", "unique_id", "vca_id"},

		DistrictKeys:    []string{"district", "hh_district", "facility_district"},
		ServiceDateKeys: []string{"service_date", "date_of_service", "visit_date", "date"},
		ServiceKeys:     []string{"services", "service_provided", "provided_services"},
		CaseworkerKeys:  []string{"caseworker_name", "cw_name", "case_worker"},
		BirthdateKeys:   []string{"birthdate", "date_of_birth", "dob"},

		Domains: []Domain{
			{Name: "health", FieldKeys: []string{"health_services", "healthy_services"}},
			{Name: "schooled", FieldKeys: []string{"schooled_services", "school_services"}},
			{Name: "safe", FieldKeys: []string{"safe_services", "safety_services"}},
			{Name: "stable", FieldKeys: []string{"stable_services", "stability_services"}},
		},

		CohortKeyMap: map[string]string{
			"calhiv": "is_hiv_positive",
			"hei":    "is_hei",
			"agyw":   "is_agyw",
			"cwlhiv": "is_cwlhiv",
			"csv":    "is_csv",
		},

		HIVStatusKeys:      []string{"hiv_status", "is_hiv_positive", "vca_hiv_status", "caregiver_hiv_status"},
		HIVPositiveValues:  []string{"positive", "reactive", "yes", "true", "1"},
		LastVLDateKeys:     []string{"last_vl_date", "vl_date", "date_last_vl"},
		LastVLResultKeys:   []string{"last_vl_result", "vl_result", "viral_load"},
		SchoolStatusKeys:   []string{"school_status", "schooled", "is_schooled"},
		OutOfSchoolValues:  []string{"out of school", "not in school", "dropped out"},
		ReferralStatusKeys: []string{"status", "referral_status"},
		ReferralDateKeys:   []string{"referral_date", "date_referred", "date"},

		Risk: RiskThresholds{
			VLRecencyMonths:     6,
			ServiceWindowDays:   90,
			ReferralOverdueDays: 30,
			VLSuppressionCopies: 1000,
		},

		PageSize: 25,
	}
}

// Load returns the default configuration overlaid with an optional YAML file
// and ECAP_* environment variables. An empty path skips the file. Key lists
// override from env as comma-separated values; the domain table and the
// cohort-key map are file-only.
func Load(path string) (Engine, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("ECAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Engine{}, fmt.Errorf("read engine config: %w", err)
		}
	}

	// Env values arrive as strings; weak typing turns them back into the
	// field's type, and the default comma hook splits key lists.
	weaklyTyped := func(dc *mapstructure.DecoderConfig) { dc.WeaklyTypedInput = true }
	if err := v.Unmarshal(&cfg, weaklyTyped); err != nil {
		return Engine{}, fmt.Errorf("unmarshal engine config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every overridable key with viper; env vars only apply
// to keys viper knows about.
func setDefaults(v *viper.Viper, d Engine) {
	v.SetDefault("household_id_keys", d.HouseholdIDKeys)
	v.SetDefault("person_id_keys", d.PersonIDKeys)
	v.SetDefault("event_owner_keys", d.EventOwnerKeys)
	v.SetDefault("event_case_plan_keys", d.EventCasePlanKeys)
	v.SetDefault("case_plan_id_keys", d.CasePlanIDKeys)
	v.SetDefault("case_plan_owner_keys", d.CasePlanOwnerKeys)
	v.SetDefault("referral_owner_keys", d.ReferralOwnerKeys)
	v.SetDefault("district_keys", d.DistrictKeys)
	v.SetDefault("service_date_keys", d.ServiceDateKeys)
	v.SetDefault("service_keys", d.ServiceKeys)
	v.SetDefault("caseworker_keys", d.CaseworkerKeys)
	v.SetDefault("birthdate_keys", d.BirthdateKeys)
	v.SetDefault("hiv_status_keys", d.HIVStatusKeys)
	v.SetDefault("hiv_positive_values", d.HIVPositiveValues)
	v.SetDefault("last_vl_date_keys", d.LastVLDateKeys)
	v.SetDefault("last_vl_result_keys", d.LastVLResultKeys)
	v.SetDefault("school_status_keys", d.SchoolStatusKeys)
	v.SetDefault("out_of_school_values", d.OutOfSchoolValues)
	v.SetDefault("referral_status_keys", d.ReferralStatusKeys)
	v.SetDefault("referral_date_keys", d.ReferralDateKeys)
	v.SetDefault("risk.vl_recency_months", d.Risk.VLRecencyMonths)
	v.SetDefault("risk.service_window_days", d.Risk.ServiceWindowDays)
	v.SetDefault("risk.referral_overdue_days", d.Risk.ReferralOverdueDays)
	v.SetDefault("risk.vl_suppression_copies", d.Risk.VLSuppressionCopies)
	v.SetDefault("page_size", d.PageSize)
}

// Dump serializes the effective configuration to YAML so deployments can
// export, edit, and reload the normalization tables.
func (e Engine) Dump() ([]byte, error) {
	b, err := yaml.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal engine config: %w", err)
	}
	return b, nil
}
