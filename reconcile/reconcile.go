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
	"fmt"
	"reflect"
	"sort"

	"github.com/pkg/errors"
	"github.com/satori/uuid"
	"go.uber.org/zap"

	"zktree/dsl"
	"zktree/lowlevel"
	"zktree/ptree"
)

// TrimMode selects what import does with a live child absent from the
// imported DSL.
type TrimMode int

const (
	// TrimWarn prints "extra path not trimmed: <cpath>" and leaves the
	// child alone. This is the engine's zero value, matching the
	// reference tool's default when a caller does not pick explicitly.
	TrimWarn TrimMode = iota
	// TrimDelete recursively deletes the extra child, skipping (and
	// sparing its ancestors) any ephemeral descendant.
	TrimDelete
	// TrimIgnore silently leaves the extra child alone.
	TrimIgnore
)

// Reconciler drives DSL import/export and recursive delete against a Store.
type Reconciler struct {
	store Store
	log   *zap.SugaredLogger
}

// New builds a Reconciler. A nil logger defaults to a no-op one, matching
// session.Options.Logger's default.
func New(store Store, log *zap.SugaredLogger) *Reconciler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Reconciler{store: store, log: log}
}

// Import parses text as DSL and reconciles it onto basePath. The DSL's sole
// top-level node-line represents basePath itself (its properties and links
// apply directly to basePath; its Children are basePath's children). In
// dry_run mode nothing is written and the returned slice carries the diff
// vocabulary lines (see diffProperties/diffLink); otherwise the live tree is
// mutated to match. In either mode the slice also carries the trim lines:
// "extra path not trimmed: ..." under TrimWarn, and deleteRecursive's
// messages under TrimDelete.
func (r *Reconciler) Import(ctx context.Context, text, basePath string, trim TrimMode, acl []lowlevel.ACL, dryRun bool) ([]string, error) {
	tree, err := dsl.Parse(text)
	if err != nil {
		return nil, errors.Wrap(err, "reconcile: parsing import DSL")
	}
	if len(tree.Nodes) != 1 {
		return nil, errors.Errorf("reconcile: import DSL must have exactly one top-level node, got %d", len(tree.Nodes))
	}

	runID := uuid.NewV4()
	r.log.Debugw("import starting", "run_id", runID, "base_path", basePath, "dry_run", dryRun)

	resolved, err := r.store.Resolve(ctx, basePath)
	if err != nil && !lowlevel.IsNoNode(err) {
		return nil, err
	}
	if err != nil {
		resolved = basePath
	}

	var diffs []string
	if err := r.importNode(ctx, tree.Nodes[0], resolved, trim, acl, dryRun, &diffs); err != nil {
		return nil, err
	}
	return diffs, nil
}

func (r *Reconciler) importNode(ctx context.Context, node *dsl.Node, livePath string, trim TrimMode, acl []lowlevel.ACL, dryRun bool, diffs *[]string) error {
	exists, err := r.store.Exists(ctx, livePath)
	if err != nil {
		return err
	}

	desired := dslProperties(node)

	if !exists {
		if dryRun {
			*diffs = append(*diffs, fmt.Sprintf("add %s", livePath))
		} else {
			data, err := ptree.Encode(desired)
			if err != nil {
				return err
			}
			if err := r.store.Create(ctx, livePath, data, acl, false); err != nil {
				return err
			}
		}
	} else {
		live, err := r.store.RawProperties(ctx, livePath)
		if err != nil {
			return err
		}
		if dryRun {
			*diffs = append(*diffs, diffProperties(livePath, live, desired)...)
		} else if err := r.applyProperties(ctx, livePath, live, desired, acl); err != nil {
			return err
		}
	}

	for _, child := range node.Children {
		childPath := ptree.Child(livePath, child.Name)
		if err := r.importNode(ctx, child, childPath, trim, acl, dryRun, diffs); err != nil {
			return err
		}
	}

	if exists {
		if err := r.trimExtraChildren(ctx, node, livePath, trim, dryRun, diffs); err != nil {
			return err
		}
	}

	return nil
}

func (r *Reconciler) trimExtraChildren(ctx context.Context, node *dsl.Node, livePath string, trim TrimMode, dryRun bool, diffs *[]string) error {
	if trim == TrimIgnore {
		return nil
	}

	wanted := map[string]bool{}
	for _, c := range node.Children {
		wanted[c.Name] = true
	}

	liveChildren, err := r.store.Children(ctx, livePath)
	if err != nil {
		return err
	}

	for _, name := range liveChildren {
		if wanted[name] {
			continue
		}
		cpath := ptree.Child(livePath, name)
		switch trim {
		case TrimWarn:
			*diffs = append(*diffs, fmt.Sprintf("extra path not trimmed: %s", cpath))
		case TrimDelete:
			_, messages, err := r.deleteRecursive(ctx, cpath, dryRun, false, false)
			if err != nil {
				return err
			}
			*diffs = append(*diffs, messages...)
		}
	}
	return nil
}

// applyProperties replaces livePath's encoded payload with desired and, if
// acl differs from the node's current ACL, rewrites the ACL too.
func (r *Reconciler) applyProperties(ctx context.Context, path string, live, desired map[string]interface{}, acl []lowlevel.ACL) error {
	if !reflect.DeepEqual(live, desired) {
		data, err := ptree.Encode(desired)
		if err != nil {
			return err
		}
		if _, err := r.store.Set(ctx, path, data, -1); err != nil {
			return err
		}
	}

	if acl == nil {
		return nil
	}
	currentACL, stat, err := r.store.GetACL(ctx, path)
	if err != nil {
		return err
	}
	if aclEqual(currentACL, acl) {
		return nil
	}
	version := int32(-1)
	if stat != nil {
		version = stat.ACLVersion
	}
	_, err = r.store.SetACL(ctx, path, acl, version)
	return err
}

func aclEqual(a, b []lowlevel.ACL) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]lowlevel.ACL(nil), a...)
	sb := append([]lowlevel.ACL(nil), b...)
	less := func(s []lowlevel.ACL) func(i, j int) bool {
		return func(i, j int) bool {
			if s[i].Scheme != s[j].Scheme {
				return s[i].Scheme < s[j].Scheme
			}
			if s[i].ID != s[j].ID {
				return s[i].ID < s[j].ID
			}
			return s[i].Perms < s[j].Perms
		}
	}
	sort.Slice(sa, less(sa))
	sort.Slice(sb, less(sb))
	return reflect.DeepEqual(sa, sb)
}

// dslProperties flattens a DSL node's properties, node-links, and
// property-links into a single raw-payload-shaped mapping.
func dslProperties(node *dsl.Node) map[string]interface{} {
	out := map[string]interface{}{}
	for _, p := range node.Properties {
		out[p.Name] = p.Value
	}
	for _, l := range node.NodeLinks {
		out[l.Name+ptree.NodeLinkSuffix] = l.Target
	}
	for _, l := range node.PropertyLinks {
		value := l.Target
		if l.Field != "" {
			value = l.Target + " " + l.Field
		}
		out[l.Name+ptree.PropertyLinkSuffix] = value
	}
	return out
}

// diffProperties renders the dry-run diff vocabulary for one node's
// properties and links, comparing the live raw payload against the DSL's
// desired one.
func diffProperties(path string, live, desired map[string]interface{}) []string {
	var out []string

	keys := map[string]bool{}
	for k := range live {
		keys[k] = true
	}
	for k := range desired {
		keys[k] = true
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, key := range sorted {
		lv, lok := live[key]
		dv, dok := desired[key]

		if name, isLink := ptree.StripNodeLinkSuffix(key); isLink {
			out = append(out, diffLink(path, name, "->", lv, lok, dv, dok)...)
			continue
		}
		if name, isLink := ptree.StripPropertyLinkSuffix(key); isLink {
			out = append(out, diffLink(path, name, "=>", lv, lok, dv, dok)...)
			continue
		}

		switch {
		case lok && !dok:
			out = append(out, fmt.Sprintf("%s remove property %s = %s", path, key, dsl.Repr(lv)))
		case !lok && dok:
			out = append(out, fmt.Sprintf("%s add property %s = %s", path, key, dsl.Repr(dv)))
		case lok && dok && !reflect.DeepEqual(lv, dv):
			out = append(out, fmt.Sprintf("%s %s change from %s to %s", path, key, dsl.Repr(lv), dsl.Repr(dv)))
		}
	}
	return out
}

func diffLink(path, name, arrow string, lv interface{}, lok bool, dv interface{}, dok bool) []string {
	switch {
	case lok && !dok:
		return []string{fmt.Sprintf("%s remove link %s %s %v", path, name, arrow, lv)}
	case !lok && dok:
		return []string{fmt.Sprintf("%s add link %s %s %v", path, name, arrow, dv)}
	case lok && dok && !reflect.DeepEqual(lv, dv):
		return []string{fmt.Sprintf("%s %s link change from %v to %v", path, name, lv, dv)}
	}
	return nil
}
