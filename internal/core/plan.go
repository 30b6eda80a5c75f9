package core

import (
	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/provider"
)

// Usage levels at which sub-requests are trimmed before they are issued.
const (
	usageTrim      = 0.8
	usageEssential = 0.95
)

// step is one provider sub-request of a plan.
type step struct {
	provider string
	section  provider.Section
	detail   provider.Detail
}

// planned is a step of one call. Disabled steps belong to a registered
// provider that is switched off; they are recorded as incomplete without a
// request.
type planned struct {
	step
	disabled bool
}

// plans lists the sub-requests per kind. A step runs when the call's
// detail level is at least the step's.
var plans = map[media.Kind][]step{
	media.KindMovie: {
		{media.ProviderTrakt, provider.SectionSummary, provider.DetailEssential},
		{media.ProviderTMDb, provider.SectionSummary, provider.DetailEssential},
		{media.ProviderTrakt, provider.SectionStudios, provider.DetailStandard},
		{media.ProviderTrakt, provider.SectionReleases, provider.DetailStandard},
		{media.ProviderTMDb, provider.SectionImages, provider.DetailStandard},
		{media.ProviderFanart, provider.SectionImages, provider.DetailStandard},
		{media.ProviderTrakt, provider.SectionPeople, provider.DetailExtended},
		{media.ProviderIMDb, provider.SectionSummary, provider.DetailExtended},
	},
	media.KindShow: {
		{media.ProviderTrakt, provider.SectionSummary, provider.DetailEssential},
		{media.ProviderTVDb, provider.SectionSummary, provider.DetailEssential},
		{media.ProviderTrakt, provider.SectionStudios, provider.DetailStandard},
		{media.ProviderFanart, provider.SectionImages, provider.DetailStandard},
		{media.ProviderTrakt, provider.SectionPeople, provider.DetailExtended},
		{media.ProviderTMDb, provider.SectionSummary, provider.DetailExtended},
		{media.ProviderIMDb, provider.SectionSummary, provider.DetailExtended},
	},
	media.KindSeason: {
		{media.ProviderTrakt, provider.SectionSummary, provider.DetailEssential},
		{media.ProviderTVDb, provider.SectionSummary, provider.DetailEssential},
		{media.ProviderFanart, provider.SectionImages, provider.DetailStandard},
		{media.ProviderTMDb, provider.SectionSummary, provider.DetailExtended},
		{media.ProviderIMDb, provider.SectionSummary, provider.DetailExtended},
	},
	media.KindEpisode: {
		{media.ProviderTrakt, provider.SectionSeason, provider.DetailEssential},
		{media.ProviderTVDb, provider.SectionSummary, provider.DetailEssential},
		{media.ProviderTMDb, provider.SectionSummary, provider.DetailExtended},
		{media.ProviderIMDb, provider.SectionSummary, provider.DetailExtended},
		{media.ProviderTrakt, provider.SectionPeople, provider.DetailExtended},
	},
	media.KindPack: {
		{media.ProviderTVDb, provider.SectionPack, provider.DetailEssential},
		{media.ProviderTrakt, provider.SectionPack, provider.DetailEssential},
		{media.ProviderTMDb, provider.SectionPack, provider.DetailStandard},
		{media.ProviderIMDb, provider.SectionSummary, provider.DetailExtended},
	},
	media.KindSet: {
		{media.ProviderTMDb, provider.SectionSummary, provider.DetailEssential},
		{media.ProviderTMDb, provider.SectionImages, provider.DetailStandard},
		{media.ProviderFanart, provider.SectionImages, provider.DetailStandard},
	},
}

// detail returns the level a call runs at: the override or the configured
// level, forced down to essential when a provider budget is nearly spent.
func (o *Orchestrator) detail(opts Options) provider.Detail {
	d := o.settings.Detail()
	if opts.Detail != nil {
		d = *opts.Detail
	}
	if o.registry.GlobalUsage() >= usageEssential {
		return provider.DetailEssential
	}
	return d
}

// plan returns the steps for kind at detail that a registered provider can
// serve. Above the trim threshold people and releases are left out.
func (o *Orchestrator) plan(kind media.Kind, detail provider.Detail) []planned {
	trim := o.registry.GlobalUsage() >= usageTrim
	var out []planned
	for _, s := range plans[kind] {
		if s.detail > detail {
			continue
		}
		if trim && (s.section == provider.SectionPeople || s.section == provider.SectionReleases) {
			continue
		}
		p, ok := o.registry.Get(s.provider)
		if !ok || !p.Capabilities().Supports(kind, s.section) {
			continue
		}
		_, enabled := o.registry.Enabled(s.provider)
		out = append(out, planned{step: s, disabled: !enabled})
	}
	return out
}

// providers returns the distinct providers of steps in plan order.
func providers(steps []planned) []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range steps {
		if !seen[s.provider] {
			seen[s.provider] = true
			out = append(out, s.provider)
		}
	}
	return out
}
