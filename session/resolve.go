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
	"encoding/json"

	"zktree/lowlevel"
	"zktree/ptree"
	"zktree/resolve"
)

// Resolve resolves path into a canonical existing path, following
// node-links and detecting loops.
func (s *Session) Resolve(ctx context.Context, path string) (string, error) {
	return resolve.Resolve(ctx, s, path, nil)
}

// Ln writes a node-link property on source's parent, pointing at target.
// The link's virtual child name is source's own basename.
func (s *Session) Ln(ctx context.Context, target, source string) error {
	parent, name := ptree.Parent(source)
	resolvedParent, err := s.Resolve(ctx, parent)
	if err != nil {
		return err
	}

	props, err := s.rawProperties(ctx, resolvedParent)
	if err != nil {
		return err
	}
	props[name+" ->"] = target

	data, err := ptree.Encode(props)
	if err != nil {
		return err
	}

	_, err = s.Set(ctx, resolvedParent, data, -1)
	return err
}

// GetProperties returns a decoded snapshot of path's properties, with every
// property-link transitively dereferenced.
func (s *Session) GetProperties(ctx context.Context, path string) (map[string]interface{}, error) {
	resolved, err := s.Resolve(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.getPropertiesVisited(ctx, resolved, map[string]bool{resolved: true})
}

// getPropertiesVisited is GetProperties's recursion, threading the visited
// set across every hop of a property-link chain so a cycle spanning more
// than one node is still caught. Each link gets its own copy of the set, so
// two links on one node that reach the same target are not taken for a
// cycle.
func (s *Session) getPropertiesVisited(ctx context.Context, resolved string, visited map[string]bool) (map[string]interface{}, error) {
	raw, err := s.rawProperties(ctx, resolved)
	if err != nil {
		return nil, err
	}

	out := map[string]interface{}{}
	for key, value := range raw {
		if _, isNodeLink := ptree.StripNodeLinkSuffix(key); isNodeLink {
			out[key] = value
			continue
		}
		if name, isPropLink := ptree.StripPropertyLinkSuffix(key); isPropLink {
			v, err := s.derefPropertyLink(ctx, resolved, key, value, name, cloneVisited(visited))
			if err != nil {
				return nil, err
			}
			out[name] = v
			continue
		}
		out[key] = value
	}
	return out, nil
}

func (s *Session) derefPropertyLink(ctx context.Context, nodePath, key string, rawValue interface{}, defaultField string, visited map[string]bool) (interface{}, error) {
	str, ok := rawValue.(string)
	if !ok {
		return nil, &ptree.BadPropertyLinkError{Key: key, Value: toString(rawValue)}
	}

	link, err := ptree.ParsePropertyLinkValue(key, str, defaultField)
	if err != nil {
		return nil, err
	}

	target := ptree.ResolveRelative(nodePath, link.Path)
	resolvedTarget, err := s.Resolve(ctx, target)
	if err != nil {
		return nil, &ptree.BadPropertyLinkError{Key: key, Value: str, Cause: err}
	}
	if visited[resolvedTarget] {
		return nil, &ptree.BadPropertyLinkError{Key: key, Value: str, Cause: &resolve.LinkLoopError{Chain: chainOf(visited, resolvedTarget)}}
	}
	visited[resolvedTarget] = true

	targetProps, err := s.getPropertiesVisited(ctx, resolvedTarget, visited)
	if err != nil {
		return nil, &ptree.BadPropertyLinkError{Key: key, Value: str, Cause: err}
	}

	v, ok := targetProps[link.Field]
	if !ok {
		return nil, &ptree.BadPropertyLinkError{Key: key, Value: str, Cause: &lowlevel.NoNodeError{Path: resolvedTarget + "#" + link.Field}}
	}
	return v, nil
}

func chainOf(visited map[string]bool, last string) []string {
	chain := make([]string, 0, len(visited)+1)
	for p := range visited {
		chain = append(chain, p)
	}
	return append(chain, last)
}

func toString(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
