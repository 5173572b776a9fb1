// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package catalog

// Rule is one implication over the enabled data-source set: when any
// trigger is present, its targets are added. Triggers are never removed.
type Rule struct {
	Triggers []string
	Targets  []string
}

// Expander applies a fixed list of implication rules to a requested
// data-source set. Rule targets are never themselves triggers, so a
// single pass reaches a fixpoint and Expand is idempotent.
type Expander struct {
	rules []Rule
}

// DefaultRules are the implications the panel set is built around:
// the mailing-list backends all enrich into the shared mbox family, the
// IRC bot keeps its legacy irc name, google_hits and stackexchange are
// renamed in the panels, and phabricator panels query its maniphest
// ticket index.
func DefaultRules() []Rule {
	return []Rule{
		{Triggers: []string{"pipermail", "hyperkitty", "groupsio", "nntp"}, Targets: []string{"mbox"}},
		{Triggers: []string{"supybot"}, Targets: []string{"irc"}},
		{Triggers: []string{"google_hits"}, Targets: []string{"googlehits"}},
		{Triggers: []string{"stackexchange"}, Targets: []string{"stackoverflow"}},
		{Triggers: []string{"phabricator"}, Targets: []string{"maniphest"}},
	}
}

// NewExpander creates an Expander over the given rules. Most callers
// want NewExpander(DefaultRules()).
func NewExpander(rules []Rule) *Expander {
	return &Expander{rules: rules}
}

// Expand returns the effective data-source set for the requested one:
// the input, in order, followed by every fired rule target in rule
// order. The result contains no duplicates; the input is not modified.
func (e *Expander) Expand(sources []string) []string {
	present := make(map[string]bool, len(sources))
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		if present[s] {
			continue
		}
		present[s] = true
		out = append(out, s)
	}

	for _, rule := range e.rules {
		fired := false
		for _, trigger := range rule.Triggers {
			if present[trigger] {
				fired = true
				break
			}
		}
		if !fired {
			continue
		}
		for _, target := range rule.Targets {
			if present[target] {
				continue
			}
			present[target] = true
			out = append(out, target)
		}
	}
	return out
}
