/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package resolve implements the symbolic-path resolver: dot/dotdot
// normalization plus node-link following, with cycle detection. It depends
// only on a narrow Store view of the live tree, so it can be exercised
// against lowlevel/lltest without pulling in the whole session package.
package resolve

import (
	"context"
	"strings"

	"zktree/lowlevel"
	"zktree/ptree"
)

// Store is the narrow view of the live tree the resolver needs.
type Store interface {
	// Exists reports whether path currently exists.
	Exists(ctx context.Context, path string) (bool, error)

	// NodeLinkTarget looks up the node-link property "name ->" among
	// basePath's properties, returning its target value verbatim (not
	// yet made absolute) when present.
	NodeLinkTarget(ctx context.Context, basePath, name string) (target string, ok bool, err error)
}

// Normalize collapses "/./" and "/<name>/../" segments to a fixed point.
// Leading and trailing slashes are normalized; Normalize("/") is "/".
func Normalize(path string) string {
	raw := strings.Split(path, "/")
	var stack []string
	for _, seg := range raw {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, seg)
		}
	}
	return ptree.Join(stack...)
}

// Resolve resolves path (absolute, or relative to nothing — the resolver
// never accepts relative input directly) into a canonical existing path,
// following node-links and detecting loops. seen carries the chain of
// original textual paths already visited via a link, for cycle detection
// across a single top-level call; callers invoking Resolve directly should
// pass nil.
func Resolve(ctx context.Context, store Store, path string, seen []string) (string, error) {
	resolved, err := resolveOnce(ctx, store, path, seen)
	if err != nil {
		if lowlevel.IsNoNode(err) {
			return "", &lowlevel.NoNodeError{Path: path}
		}
		return "", err
	}
	return resolved, nil
}

func resolveOnce(ctx context.Context, store Store, path string, seen []string) (string, error) {
	if !strings.HasPrefix(path, "/") {
		return "", &lowlevel.NoNodeError{Path: path}
	}

	norm := Normalize(path)

	exists, err := store.Exists(ctx, norm)
	if err != nil {
		return "", err
	}
	if exists {
		return norm, nil
	}

	if contains(seen, norm) {
		return "", &LinkLoopError{Chain: append(append([]string{}, seen...), norm)}
	}

	parent, name := ptree.Parent(norm)
	if name == "" {
		// norm is "/" and does not exist: nothing to split further.
		return "", &lowlevel.NoNodeError{Path: path}
	}

	baseResolved, err := resolveOnce(ctx, store, parent, seen)
	if err != nil {
		return "", err
	}

	candidate := ptree.Child(baseResolved, name)
	exists, err = store.Exists(ctx, candidate)
	if err != nil {
		return "", err
	}
	if exists {
		return candidate, nil
	}

	target, ok, err := store.NodeLinkTarget(ctx, baseResolved, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &lowlevel.NoNodeError{Path: path}
	}

	target = ptree.ResolveRelative(baseResolved, target)
	nextSeen := append(append([]string{}, seen...), norm)
	return resolveOnce(ctx, store, target, nextSeen)
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
