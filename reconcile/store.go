/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package reconcile implements the tree reconciler (DSL import, export, and
// recursive delete) and the depth-first walk, generalizing
// common/configctl's whole-tree JSON replace/export verbs to a per-node
// diff/create/set/trim reconciliation against the node-link/property-link
// DSL in package dsl.
package reconcile

import (
	"context"

	"zktree/lowlevel"
)

// Store is the narrow view of a live tree the reconciler needs. *session.
// Session satisfies it without any explicit adapter.
type Store interface {
	Resolve(ctx context.Context, path string) (string, error)
	Exists(ctx context.Context, path string) (bool, error)
	Stat(ctx context.Context, path string) (*lowlevel.Stat, error)
	RawProperties(ctx context.Context, path string) (map[string]interface{}, error)
	Children(ctx context.Context, path string) ([]string, error)
	GetACL(ctx context.Context, path string) ([]lowlevel.ACL, *lowlevel.Stat, error)
	Create(ctx context.Context, path string, data []byte, acl []lowlevel.ACL, ephemeral bool) error
	Set(ctx context.Context, path string, data []byte, version int32) (*lowlevel.Stat, error)
	SetACL(ctx context.Context, path string, acl []lowlevel.ACL, version int32) (*lowlevel.Stat, error)
	Delete(ctx context.Context, path string, version int32) error
}
