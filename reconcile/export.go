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
	"strings"

	"zktree/dsl"
	"zktree/ptree"
)

// zookeeperChildName is the service-internal subtree configctl's ancestor
// tooling always hides from a whole-tree export.
const zookeeperChildName = "zookeeper"

// Export renders basePath and its descendants as DSL text: a stable
// depth-first traversal, two-space indentation per depth, properties before
// links, keys sorted lexicographically. name overrides the root node-line's
// label (basePath's own basename by default; "/" has none, so it falls back
// to "root"). Ephemeral nodes (and their subtrees) are omitted unless
// includeEphemeral is set; at the traversal root only, a child literally
// named "zookeeper" is always omitted.
func (r *Reconciler) Export(ctx context.Context, basePath string, includeEphemeral bool, name string) (string, error) {
	resolved, err := r.store.Resolve(ctx, basePath)
	if err != nil {
		return "", err
	}

	label := name
	if label == "" {
		_, label = ptree.Parent(resolved)
	}
	if label == "" {
		label = "root"
	}

	var sb strings.Builder
	if err := r.exportNode(ctx, resolved, label, 0, includeEphemeral, true, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (r *Reconciler) exportNode(ctx context.Context, path, label string, depth int, includeEphemeral, isRoot bool, sb *strings.Builder) error {
	indent := strings.Repeat("  ", depth)
	sb.WriteString(indent)
	sb.WriteString("/")
	sb.WriteString(label)
	sb.WriteString("\n")

	raw, err := r.store.RawProperties(ctx, path)
	if err != nil {
		return err
	}

	var propNames, nodeLinkNames, propLinkNames []string
	for key := range raw {
		if n, ok := ptree.StripNodeLinkSuffix(key); ok {
			nodeLinkNames = append(nodeLinkNames, n)
			continue
		}
		if n, ok := ptree.StripPropertyLinkSuffix(key); ok {
			propLinkNames = append(propLinkNames, n)
			continue
		}
		propNames = append(propNames, key)
	}
	sort.Strings(propNames)
	sort.Strings(nodeLinkNames)
	sort.Strings(propLinkNames)

	childIndent := strings.Repeat("  ", depth+1)
	for _, name := range propNames {
		sb.WriteString(childIndent)
		sb.WriteString(name)
		sb.WriteString(" = ")
		sb.WriteString(dsl.Repr(raw[name]))
		sb.WriteString("\n")
	}
	for _, name := range nodeLinkNames {
		sb.WriteString(childIndent)
		sb.WriteString(name)
		sb.WriteString(" -> ")
		sb.WriteString(toTarget(raw[name+ptree.NodeLinkSuffix]))
		sb.WriteString("\n")
	}
	for _, name := range propLinkNames {
		value := toTarget(raw[name+ptree.PropertyLinkSuffix])
		target, field := splitLinkValue(value)
		sb.WriteString(childIndent)
		sb.WriteString(name)
		sb.WriteString(" => ")
		sb.WriteString(target)
		if field != "" && field != name {
			sb.WriteString(" ")
			sb.WriteString(field)
		}
		sb.WriteString("\n")
	}

	children, err := r.store.Children(ctx, path)
	if err != nil {
		return err
	}
	sort.Strings(children)

	for _, name := range children {
		if isRoot && name == zookeeperChildName {
			continue
		}
		childPath := ptree.Child(path, name)
		if !includeEphemeral {
			stat, err := r.store.Stat(ctx, childPath)
			if err != nil {
				return err
			}
			if stat.Ephemeral {
				continue
			}
		}
		if err := r.exportNode(ctx, childPath, name, depth+1, includeEphemeral, false, sb); err != nil {
			return err
		}
	}

	return nil
}

func toTarget(v interface{}) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

func splitLinkValue(value string) (target, field string) {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return "", ""
	}
	if len(fields) == 1 {
		return fields[0], ""
	}
	return fields[0], fields[1]
}
