// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package kibiter

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/panelops/panelops/pkg/catalog"
	"github.com/panelops/panelops/pkg/logging"
)

func aliasAction(verb, index, alias string) map[string]any {
	return map[string]any{
		"actions": []any{
			map[string]any{
				verb: map[string]string{"index": index, "alias": alias},
			},
		},
	}
}

// ExistsAlias reports whether the alias resolves on this backend. Any
// lookup failure counts as absent; a real transport problem resurfaces
// on the create that follows.
func (c *Client) ExistsAlias(ctx context.Context, alias string) bool {
	err := c.Get(ctx, "_alias/"+alias, nil)
	if err == nil {
		return true
	}
	if !IsNotFound(err) {
		c.log.Debug("alias lookup failed", "alias", alias, "error", err)
	}
	return false
}

// AliasOwner returns the index the alias currently points at, if any.
func (c *Client) AliasOwner(ctx context.Context, alias string) (string, bool) {
	var owners map[string]json.RawMessage
	if err := c.Get(ctx, "_alias/"+alias, &owners); err != nil || len(owners) == 0 {
		return "", false
	}
	// One owning index in practice; sort for a deterministic pick.
	names := make([]string, 0, len(owners))
	for name := range owners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names[0], true
}

// CreateAlias points alias at index, idempotently: an alias that already
// exists is left untouched and reported as success.
//
// Known limitation: the existence check does not verify that the alias
// points at the requested index. A stale alias created against another
// index is accepted as satisfied; the owning index is logged so the
// mismatch is at least visible.
func (c *Client) CreateAlias(ctx context.Context, index, alias string) error {
	if owner, ok := c.AliasOwner(ctx, alias); ok {
		if owner != index {
			c.log.Debug("alias already exists on another index",
				"alias", alias, "index", index, "owner", owner)
		}
		return nil
	}

	c.log.Debug("adding alias", "alias", alias, "index", index)
	err := c.Post(ctx, "_aliases", aliasAction("add", index, alias), nil)
	if err == nil {
		return nil
	}
	if IsNotFound(err) {
		// The index has not been produced by the upstream pipeline yet.
		c.log.Warn("index does not exist yet, alias not created",
			"alias", alias, "index", index)
		return nil
	}
	return fmt.Errorf("create alias %s on %s: %w", alias, index, err)
}

// RemoveAlias detaches the alias from whichever index currently owns it.
// An alias that does not resolve is a no-op.
func (c *Client) RemoveAlias(ctx context.Context, alias string) error {
	owner, ok := c.AliasOwner(ctx, alias)
	if !ok {
		return nil
	}
	c.log.Debug("removing alias", "alias", alias, "index", owner)
	if err := c.Post(ctx, "_aliases", aliasAction("remove", owner, alias), nil); err != nil {
		return fmt.Errorf("remove alias %s from %s: %w", alias, owner, err)
	}
	return nil
}

// AliasManager reconciles the aliases of one data source against both
// backend sides: raw aliases on the collection store, enrich aliases on
// the enrichment store.
type AliasManager struct {
	raw    *Client
	enrich *Client
	policy *catalog.Policy
	log    *logging.Logger
}

// NewAliasManager wires the two backend clients to the alias policy.
func NewAliasManager(raw, enrich *Client, policy *catalog.Policy, log *logging.Logger) *AliasManager {
	return &AliasManager{raw: raw, enrich: enrich, policy: policy, log: log}
}

// Reconcile creates every alias the policy requires for the data source.
// A missing index is tolerated per CreateAlias; any other failure aborts
// this source's reconciliation and is returned for the caller to report
// before moving on to the next source.
func (m *AliasManager) Reconcile(ctx context.Context, source, rawIndex, enrichIndex string) error {
	spec := m.policy.Aliases(source)
	log := m.log.With("data_source", source)

	for _, alias := range spec.RawAliases {
		if err := m.raw.CreateAlias(ctx, rawIndex, alias); err != nil {
			return fmt.Errorf("raw alias for %s: %w", source, err)
		}
		log.Info("raw alias reconciled", "alias", alias, "index", rawIndex)
	}

	for _, alias := range spec.EnrichAliases {
		if err := m.enrich.CreateAlias(ctx, enrichIndex, alias); err != nil {
			return fmt.Errorf("enrich alias for %s: %w", source, err)
		}
		log.Info("enrich alias reconciled", "alias", alias, "index", enrichIndex)
	}
	return nil
}
