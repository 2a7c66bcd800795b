/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package ptree

import (
	"strings"

	"github.com/pkg/errors"
)

// BadPropertyLinkError reports a malformed link value, or a failed
// dereference, naming the offending key and the link value that caused it.
type BadPropertyLinkError struct {
	Key   string
	Value string
	Cause error
}

func (e *BadPropertyLinkError) Error() string {
	if e.Cause != nil {
		return errors.Wrapf(e.Cause, "bad property link %q -> %q", e.Key, e.Value).Error()
	}
	return errors.Errorf("bad property link %q -> %q", e.Key, e.Value).Error()
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *BadPropertyLinkError) Unwrap() error { return e.Cause }

// PropertyLinkTarget is the parsed form of a property-link value:
// "<path> [<field>]".
type PropertyLinkTarget struct {
	Path  string
	Field string
}

// ParsePropertyLinkValue splits a property-link value into its path and
// optional field name, defaulting field to defaultField (the virtual
// property's own name) when omitted. Exactly one or two whitespace-separated
// tokens are legal; anything else is a bad-property-link error.
func ParsePropertyLinkValue(key, value, defaultField string) (PropertyLinkTarget, error) {
	fields := strings.Fields(value)
	switch len(fields) {
	case 1:
		return PropertyLinkTarget{Path: fields[0], Field: defaultField}, nil
	case 2:
		return PropertyLinkTarget{Path: fields[0], Field: fields[1]}, nil
	default:
		return PropertyLinkTarget{}, &BadPropertyLinkError{Key: key, Value: value}
	}
}

// ResolveRelative rewrites target so that it is absolute, prefixing it with
// base when it does not already begin with "/".
func ResolveRelative(base, target string) string {
	if strings.HasPrefix(target, "/") {
		return target
	}
	if base == "/" {
		return "/" + target
	}
	return base + "/" + target
}
