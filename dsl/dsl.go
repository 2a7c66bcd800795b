/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package dsl parses and renders the indent-sensitive textual tree grammar
// the reconciler imports and exports. It generalizes
// common/configctl's JSON-only import/export round trip (NewPTree/Export) to
// a line-oriented grammar with node-links, property-links, and a restricted
// literal-expression language.
package dsl

import "github.com/pkg/errors"

// Node is one parsed node-line, with its properties, links, and nested
// children in source order.
type Node struct {
	Name string
	Type string

	Properties    []Property
	NodeLinks     []NodeLink
	PropertyLinks []PropertyLink
	Children      []*Node
}

// Property is a single "name = expression" line's parsed result.
type Property struct {
	Name  string
	Value interface{}
}

// NodeLink is a single "name -> target" line.
type NodeLink struct {
	Name   string
	Target string
}

// PropertyLink is a single "name => target [field]" line.
type PropertyLink struct {
	Name   string
	Target string
	Field  string
}

// Tree is a parsed document: the root admits node-lines only.
type Tree struct {
	Nodes []*Node
}

// Tuple distinguishes a parenthesized literal from a bracketed list; both
// decode to an ordered sequence, but Repr renders them with their original
// bracket style.
type Tuple []interface{}

var errEmptyName = errors.New("dsl: empty name")
