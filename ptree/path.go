/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package ptree implements the node/property data model: canonical paths,
// the property payload encoding rules, and the node-link/property-link key
// conventions. It has no knowledge of a live coordination service; resolve
// and session build on top of it.
package ptree

import (
	"strings"

	"github.com/pkg/errors"
)

// NodeLinkSuffix marks a property as a virtual child pointing elsewhere.
const NodeLinkSuffix = " ->"

// PropertyLinkSuffix marks a property as a dereference of another node's
// property.
const PropertyLinkSuffix = " =>"

// Split breaks a canonical path into its segments, discarding the leading
// empty segment produced by the leading slash. Split("/") yields an empty
// slice.
func Split(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// Join reassembles segments into a canonical absolute path.
func Join(segments ...string) string {
	if len(segments) == 0 {
		return "/"
	}
	return "/" + strings.Join(segments, "/")
}

// Parent returns the (parent, name) split of path. Parent("/a/b") is
// ("/a", "b"); Parent("/a") is ("/", "a").
func Parent(path string) (string, string) {
	segs := Split(path)
	if len(segs) == 0 {
		return "", ""
	}
	name := segs[len(segs)-1]
	parent := Join(segs[:len(segs)-1]...)
	return parent, name
}

// Child appends name as an immediate child of parent.
func Child(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

// ValidateAbsolute rejects a path that is not absolute, or that contains an
// empty or `.`/`..` segment outside the resolver's own normalization pass.
func ValidateAbsolute(path string) error {
	if !strings.HasPrefix(path, "/") {
		return errors.Errorf("bad arguments: relative path %q", path)
	}
	for _, seg := range Split(path) {
		if seg == "" || seg == "." || seg == ".." {
			return errors.Errorf("bad arguments: invalid segment in %q", path)
		}
	}
	return nil
}

// StripNodeLinkSuffix reports whether key carries the node-link suffix and
// returns the virtual child name it encodes.
func StripNodeLinkSuffix(key string) (string, bool) {
	if strings.HasSuffix(key, NodeLinkSuffix) {
		return strings.TrimSuffix(key, NodeLinkSuffix), true
	}
	return "", false
}

// StripPropertyLinkSuffix reports whether key carries the property-link
// suffix and returns the virtual property name it encodes.
func StripPropertyLinkSuffix(key string) (string, bool) {
	if strings.HasSuffix(key, PropertyLinkSuffix) {
		return strings.TrimSuffix(key, PropertyLinkSuffix), true
	}
	return "", false
}
