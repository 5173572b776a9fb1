// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package catalog

import "strings"

// AliasSpec is the set of index aliases one data source must be
// reachable through, split by backend side.
type AliasSpec struct {
	DataSource    string
	RawAliases    []string
	EnrichAliases []string
}

// aliasOverride lists the alias names for a source whose raw or enriched
// naming diverged historically. A nil side falls back to the default
// naming for that side only; a present side fully replaces it.
type aliasOverride struct {
	raw    []string
	enrich []string
}

// Policy resolves the alias names for a data source. Sources without an
// override follow the "<source>-raw" / "<source>" convention, with the
// namespace separator ":" normalized to "_".
type Policy struct {
	overrides map[string]aliasOverride
}

// NewPolicy returns the policy with the built-in override table for
// sources that do not follow the default naming convention, notably the
// mailing-list backends that all fan into the shared mbox enrichment
// index (and its kafka synonym).
func NewPolicy() *Policy {
	mboxEnrich := []string{"mbox", "mbox_enrich", "kafka"}
	return &Policy{overrides: map[string]aliasOverride{
		"apache": {raw: []string{"apache"}},
		"bugzillarest": {
			raw:    []string{"bugzilla-raw"},
			enrich: []string{"bugzilla"},
		},
		"dockerhub": {
			raw:    []string{"dockerhub-raw"},
			enrich: []string{"dockerhub"},
		},
		"functest": {
			raw:    []string{"functest-raw"},
			enrich: []string{"functest"},
		},
		"git": {
			raw:    []string{"git-raw"},
			enrich: []string{"git", "git_author", "git_enrich"},
		},
		"github": {
			raw: []string{"github-raw"},
			enrich: []string{"github_issues", "github_issues_enrich", "issues_closed",
				"issues_created", "issues_updated"},
		},
		"google_hits": {
			raw:    []string{"google-hits-raw"},
			enrich: []string{"google-hits"},
		},
		"jenkins": {
			raw:    []string{"jenkins-raw"},
			enrich: []string{"jenkins", "jenkins_enrich"},
		},
		"mbox":       {raw: []string{"mbox-raw"}, enrich: mboxEnrich},
		"pipermail":  {raw: []string{"pipermail-raw"}, enrich: mboxEnrich},
		"hyperkitty": {raw: []string{"hyperkitty-raw"}, enrich: mboxEnrich},
		"nntp":       {raw: []string{"nntp-raw"}, enrich: mboxEnrich},
		"groupsio":   {raw: []string{"groupsio-raw"}, enrich: mboxEnrich},
		"phabricator": {
			raw:    []string{"phabricator-raw"},
			enrich: []string{"phabricator", "maniphest"},
		},
		"remo": {
			raw:    []string{"remo-raw"},
			enrich: []string{"remo", "remo-events", "remo2-events", "remo-events_metadata__timestamp"},
		},
		"remo:activities": {
			raw:    []string{"remo_activities-raw"},
			enrich: []string{"remo-activities", "remo2-activities", "remo-activities_metadata__timestamp"},
		},
		"stackexchange": {
			raw:    []string{"stackexchange-raw"},
			enrich: []string{"stackoverflow"},
		},
		"supybot": {
			raw:    []string{"irc-raw"},
			enrich: []string{"irc"},
		},
	}}
}

// Normalize replaces the namespace separator in compound source names,
// e.g. "remo:activities" -> "remo_activities".
func Normalize(source string) string {
	return strings.ReplaceAll(source, ":", "_")
}

// Aliases returns the alias spec for a data source. Each side is either
// its override list or the default name for that side, never a mix.
func (p *Policy) Aliases(source string) AliasSpec {
	spec := AliasSpec{DataSource: source}
	override := p.overrides[source]

	if override.raw != nil {
		spec.RawAliases = append([]string{}, override.raw...)
	} else {
		spec.RawAliases = []string{Normalize(source) + "-raw"}
	}

	if override.enrich != nil {
		spec.EnrichAliases = append([]string{}, override.enrich...)
	} else {
		spec.EnrichAliases = []string{Normalize(source)}
	}
	return spec
}
