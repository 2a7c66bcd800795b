/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package reconcile

import (
	"context"
	"sort"

	"zktree/ptree"
)

// WalkFunc is called once per visited path, depth-first, pre-order, in
// lexical order of sibling names. children is path's immediate child-name
// list, supplied unconditionally rather than behind a separate "with
// children" flag (cheap to compute alongside the visit, and callers that
// only want the path can simply ignore it).
type WalkFunc func(path string, children []string) error

// Walk visits root and every descendant depth-first. skipEphemeral omits an
// ephemeral node and its entire subtree from the traversal.
func (r *Reconciler) Walk(ctx context.Context, root string, skipEphemeral bool, fn WalkFunc) error {
	resolved, err := r.store.Resolve(ctx, root)
	if err != nil {
		return err
	}
	return r.walk(ctx, resolved, skipEphemeral, fn)
}

func (r *Reconciler) walk(ctx context.Context, path string, skipEphemeral bool, fn WalkFunc) error {
	if skipEphemeral {
		stat, err := r.store.Stat(ctx, path)
		if err != nil {
			return err
		}
		if stat.Ephemeral {
			return nil
		}
	}

	children, err := r.store.Children(ctx, path)
	if err != nil {
		return err
	}
	sort.Strings(children)

	if err := fn(path, children); err != nil {
		return err
	}

	for _, name := range children {
		if err := r.walk(ctx, ptree.Child(path, name), skipEphemeral, fn); err != nil {
			return err
		}
	}
	return nil
}
