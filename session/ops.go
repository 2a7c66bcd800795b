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

	"zktree/lowlevel"
	"zktree/ptree"
)

// Exists reports whether path currently exists. It satisfies
// resolve.Store, so a *Session can be handed directly to resolve.Resolve.
func (s *Session) Exists(ctx context.Context, path string) (bool, error) {
	exists, _, err := s.client.Exists(ctx, path)
	return exists, err
}

// NodeLinkTarget satisfies resolve.Store: it looks up the node-link
// property "name ->" among basePath's properties.
func (s *Session) NodeLinkTarget(ctx context.Context, basePath, name string) (string, bool, error) {
	props, err := s.rawProperties(ctx, basePath)
	if err != nil {
		if lowlevel.IsNoNode(err) {
			return "", false, nil
		}
		return "", false, err
	}
	target, ok := props[name+" ->"]
	if !ok {
		return "", false, nil
	}
	s2, ok := target.(string)
	return s2, ok, nil
}

// rawProperties decodes the node payload at path without following any
// property-links, for internal bookkeeping use (resolver lookups, link
// graph recomputation).
func (s *Session) rawProperties(ctx context.Context, path string) (map[string]interface{}, error) {
	data, _, err := s.client.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return ptree.Decode(data)
}

// RawProperties decodes the node payload at path without following any
// property-links. Unlike the observer-facing property accessors, the
// returned map still carries " ->" and " =>" link entries verbatim; the
// reconciler needs these literal values to compare against a DSL tree's
// links.
func (s *Session) RawProperties(ctx context.Context, path string) (map[string]interface{}, error) {
	return s.rawProperties(ctx, path)
}

// Stat returns path's version/ephemeral metadata.
func (s *Session) Stat(ctx context.Context, path string) (*lowlevel.Stat, error) {
	exists, stat, err := s.client.Exists(ctx, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &lowlevel.NoNodeError{Path: path}
	}
	return stat, nil
}

// Create makes a node at path, bookkeeping it as an ephemeral to be
// restored on reconnect when ephemeral is true. Bookkeeping only happens
// after the remote call succeeds.
func (s *Session) Create(ctx context.Context, path string, data []byte, acl []lowlevel.ACL, ephemeral bool) error {
	if err := s.client.Create(ctx, path, data, acl, ephemeral); err != nil {
		return err
	}
	if ephemeral {
		s.rememberEphemeral(path, data, acl)
	}
	return nil
}

// Delete removes path, forgetting any ephemeral bookkeeping for it once the
// remote call succeeds.
func (s *Session) Delete(ctx context.Context, path string, version int32) error {
	if err := s.client.Delete(ctx, path, version); err != nil {
		return err
	}
	s.forgetEphemeral(path)
	return nil
}

// Set replaces the payload at path, updating ephemeral bookkeeping if path
// is currently tracked as one.
func (s *Session) Set(ctx context.Context, path string, data []byte, version int32) (*lowlevel.Stat, error) {
	stat, err := s.client.Set(ctx, path, data, version)
	if err != nil {
		return nil, err
	}
	s.updateEphemeralData(path, data)
	return stat, nil
}

// SetACL replaces the ACL at path, updating ephemeral bookkeeping if path
// is currently tracked as one.
func (s *Session) SetACL(ctx context.Context, path string, acl []lowlevel.ACL, version int32) (*lowlevel.Stat, error) {
	stat, err := s.client.SetACL(ctx, path, acl, version)
	if err != nil {
		return nil, err
	}
	s.updateEphemeralACL(path, acl)
	return stat, nil
}

// Children lists the immediate child names of path.
func (s *Session) Children(ctx context.Context, path string) ([]string, error) {
	return s.client.Children(ctx, path)
}

// GetACL returns the ACL for path.
func (s *Session) GetACL(ctx context.Context, path string) ([]lowlevel.ACL, *lowlevel.Stat, error) {
	return s.client.GetACL(ctx, path)
}

func (s *Session) updateEphemeralData(path string, data []byte) {
	s.mu.Lock()
	if e, ok := s.ephemerals[path]; ok {
		e.data = data
		s.ephemerals[path] = e
	}
	s.mu.Unlock()
}

func (s *Session) updateEphemeralACL(path string, acl []lowlevel.ACL) {
	s.mu.Lock()
	if e, ok := s.ephemerals[path]; ok {
		e.acl = acl
		s.ephemerals[path] = e
	}
	s.mu.Unlock()
}
