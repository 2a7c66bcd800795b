/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package session

import (
	"context"

	"zktree/ptree"
)

// SetProperties replaces every property at path with props (full
// replacement). The write is validated before it is issued: if props
// contains a property-link whose target cannot be resolved, the node is
// left untouched and a *ptree.BadPropertyLinkError is returned — the same
// preserve-before-mutate discipline common/cfgtree.PTree applies around its
// own ChangesetCommit/ChangesetRevert pair.
func (s *Session) SetProperties(ctx context.Context, path string, props map[string]interface{}) error {
	resolved, err := s.Resolve(ctx, path)
	if err != nil {
		return err
	}
	if err := s.validateLinks(ctx, resolved, props); err != nil {
		return err
	}
	data, err := ptree.Encode(props)
	if err != nil {
		return err
	}
	_, err = s.Set(ctx, resolved, data, -1)
	return err
}

// UpdateProperties merges delta onto a local copy of path's current
// properties and writes the result, with the same pre-write link
// validation as SetProperties.
func (s *Session) UpdateProperties(ctx context.Context, path string, delta map[string]interface{}) error {
	resolved, err := s.Resolve(ctx, path)
	if err != nil {
		return err
	}

	current, err := s.rawProperties(ctx, resolved)
	if err != nil {
		return err
	}

	merged := make(map[string]interface{}, len(current)+len(delta))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range delta {
		merged[k] = v
	}

	if err := s.validateLinks(ctx, resolved, merged); err != nil {
		return err
	}

	data, err := ptree.Encode(merged)
	if err != nil {
		return err
	}
	_, err = s.Set(ctx, resolved, data, -1)
	return err
}

// validateLinks checks that every property-link in props dereferences
// cleanly, without applying any write. It never mutates node state, so
// there is nothing to roll back on failure — the prior snapshot is simply
// never replaced.
func (s *Session) validateLinks(ctx context.Context, nodePath string, props map[string]interface{}) error {
	visited := map[string]bool{nodePath: true}
	for key, value := range props {
		name, isPropLink := ptree.StripPropertyLinkSuffix(key)
		if !isPropLink {
			continue
		}
		if _, err := s.derefPropertyLink(ctx, nodePath, key, value, name, cloneVisited(visited)); err != nil {
			return err
		}
	}
	return nil
}

func cloneVisited(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
