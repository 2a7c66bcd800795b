/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package dsl

import (
	"strings"

	"github.com/pkg/errors"
)

type frame struct {
	indent int
	node   *Node // nil for the synthetic root frame
}

// Parse turns DSL text into a Tree. Indentation nests; a property-line or
// link-line encountered with no enclosing node-line is an error, as is a
// duplicate child name within a parent or a duplicate property/link name
// within a node.
func Parse(text string) (*Tree, error) {
	tree := &Tree{}
	stack := []frame{{indent: -1, node: nil}}
	childNames := map[*Node]map[string]bool{nil: {}}
	propNames := map[*Node]map[string]bool{}

	lines := strings.Split(text, "\n")
	for lineNum, raw := range lines {
		raw = strings.TrimRight(raw, "\r")
		indent, content := splitIndent(raw)
		content = stripComment(content)
		content = strings.TrimRight(content, " \t")
		if content == "" {
			continue
		}

		for len(stack) > 1 && stack[len(stack)-1].indent >= indent {
			stack = stack[:len(stack)-1]
		}
		parentFrame := stack[len(stack)-1]

		if strings.HasPrefix(content, "/") {
			node, err := parseNodeLine(content)
			if err != nil {
				return nil, errors.Wrapf(err, "dsl: line %d", lineNum+1)
			}
			names := childNames[parentFrame.node]
			if names == nil {
				names = map[string]bool{}
				childNames[parentFrame.node] = names
			}
			if names[node.Name] {
				return nil, errors.Errorf("dsl: line %d: duplicate child %q", lineNum+1, node.Name)
			}
			names[node.Name] = true

			if parentFrame.node == nil {
				tree.Nodes = append(tree.Nodes, node)
			} else {
				parentFrame.node.Children = append(parentFrame.node.Children, node)
			}
			stack = append(stack, frame{indent: indent, node: node})
			continue
		}

		if parentFrame.node == nil {
			return nil, errors.Errorf("dsl: line %d: property/link line outside any node", lineNum+1)
		}

		name, kind, rest, err := splitAssignment(content)
		if err != nil {
			return nil, errors.Wrapf(err, "dsl: line %d", lineNum+1)
		}

		names := propNames[parentFrame.node]
		if names == nil {
			names = map[string]bool{}
			propNames[parentFrame.node] = names
		}
		if names[name] {
			return nil, errors.Errorf("dsl: line %d: duplicate property %q", lineNum+1, name)
		}
		names[name] = true

		switch kind {
		case kindProperty:
			value, err := EvalExpr(rest)
			if err != nil {
				return nil, errors.Wrapf(err, "dsl: line %d", lineNum+1)
			}
			parentFrame.node.Properties = append(parentFrame.node.Properties, Property{Name: name, Value: value})
		case kindNodeLink:
			parentFrame.node.NodeLinks = append(parentFrame.node.NodeLinks, NodeLink{Name: name, Target: strings.TrimSpace(rest)})
		case kindPropertyLink:
			target, field := splitPropertyLinkRest(rest)
			parentFrame.node.PropertyLinks = append(parentFrame.node.PropertyLinks, PropertyLink{Name: name, Target: target, Field: field})
		}
	}

	return tree, nil
}

func splitIndent(line string) (int, string) {
	n := 0
	for n < len(line) && line[n] == ' ' {
		n++
	}
	return n, line[n:]
}

// stripComment removes a trailing "# ..." comment, ignoring '#' characters
// that appear inside a quoted string.
func stripComment(s string) string {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '#':
			return s[:i]
		}
	}
	return s
}

func parseNodeLine(content string) (*Node, error) {
	rest := content[1:] // strip leading "/"
	name := rest
	typ := ""
	if idx := strings.Index(rest, " : "); idx >= 0 {
		name = rest[:idx]
		typ = rest[idx+3:]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errEmptyName
	}
	return &Node{Name: name, Type: strings.TrimSpace(typ)}, nil
}

const (
	kindProperty = iota
	kindNodeLink
	kindPropertyLink
)

// splitAssignment finds the earliest top-level "=>", "->", or "=" separator
// (surrounding spaces optional; "=>" is checked before "=" since both start
// at the same character) and splits content into name/kind/rest.
func splitAssignment(content string) (name string, kind int, rest string, err error) {
	var quote byte
	for i := 0; i < len(content); i++ {
		c := content[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
			continue
		}
		if strings.HasPrefix(content[i:], "=>") {
			return strings.TrimSpace(content[:i]), kindPropertyLink, content[i+2:], nil
		}
		if strings.HasPrefix(content[i:], "->") {
			return strings.TrimSpace(content[:i]), kindNodeLink, content[i+2:], nil
		}
		if c == '=' {
			return strings.TrimSpace(content[:i]), kindProperty, content[i+1:], nil
		}
	}
	return "", 0, "", errors.Errorf("dsl: no assignment/link found in %q", content)
}

// splitPropertyLinkRest splits a property-link's rest into target and
// optional field, matching ptree's "<path> [<field>]" shape.
func splitPropertyLinkRest(rest string) (target, field string) {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", ""
	}
	if len(fields) == 1 {
		return fields[0], ""
	}
	return fields[0], fields[1]
}
