/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package lowlevel defines the contract a coordination-service driver must
// satisfy to back a session.Session.  It is the boundary named by the
// external-collaborator paragraph: transport, heartbeats, and the primitive
// tree operations (exists/create/delete/get/set/get_children/get_acls/
// set_acls), plus session-state callbacks and one-shot watchers.  Nothing in
// this package talks to a network; lowlevel/lltest provides an in-memory
// implementation for tests.
package lowlevel

import "context"

// State is the coordination client's view of its own session.
type State int

// Session states, matching the CONNECTED/SUSPENDED/LOST machine.
const (
	StateUnknown State = iota
	StateConnected
	StateSuspended
	StateLost
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "CONNECTED"
	case StateSuspended:
		return "SUSPENDED"
	case StateLost:
		return "LOST"
	default:
		return "UNKNOWN"
	}
}

// EventKind identifies what changed at a watched path.
type EventKind int

// Event kinds delivered through a one-shot watch channel.
const (
	EventUnknown EventKind = iota
	EventNodeCreated
	EventNodeDeleted
	EventNodeDataChanged
	EventNodeChildrenChanged
)

// Event is a single one-shot watch firing.
type Event struct {
	Kind EventKind
	Path string
}

// Stat carries the version/ephemeral metadata a driver associates with a
// node, mirroring the ZooKeeper Stat structure closely enough for this
// module's purposes.
type Stat struct {
	DataVersion int32
	ACLVersion  int32
	Ephemeral   bool
}

// ACL is one entry of a node's access control list.
type ACL struct {
	Perms  int32
	Scheme string
	ID     string
}

// Permission bits, summing to ALL. Mirrors the wire-adjacent format named in
// the external-interfaces section: a bitmask with at least these bits.
const (
	PermRead   int32 = 1 << 0
	PermWrite  int32 = 1 << 1
	PermCreate int32 = 1 << 2
	PermDelete int32 = 1 << 3
	PermAdmin  int32 = 1 << 4
	PermAll    int32 = PermRead | PermWrite | PermCreate | PermDelete | PermAdmin
)

// WorldACL is the default "READ for world" ACL the registrar writes.
func WorldACL() []ACL {
	return []ACL{{Perms: PermRead, Scheme: "world", ID: "anyone"}}
}

// OpenACL grants every permission to the world; it is the default
// import-tree ACL when the caller supplies none.
func OpenACL() []ACL {
	return []ACL{{Perms: PermAll, Scheme: "world", ID: "anyone"}}
}

// Client is the primitive coordination-service driver a session.Session is
// built on top of. Every method that can fail due to the node not existing,
// existing already, or failing an optimistic-concurrency check must return
// one of the error types in this package, either directly or wrapped with
// github.com/pkg/errors: IsNoNode and its siblings unwrap through Cause()
// only, not through Unwrap().
type Client interface {
	// Exists reports whether path currently exists, and its Stat if so.
	Exists(ctx context.Context, path string) (bool, *Stat, error)

	// Create makes a node at path with the given payload and ACL. If
	// ephemeral is true the node is bound to the current session.
	Create(ctx context.Context, path string, data []byte, acl []ACL, ephemeral bool) error

	// Delete removes path, failing BadVersion if version >= 0 and does
	// not match, and NotEmpty if path has children.
	Delete(ctx context.Context, path string, version int32) error

	// Get returns the current payload and Stat for path.
	Get(ctx context.Context, path string) ([]byte, *Stat, error)

	// Set replaces the payload at path, optimistically checked against
	// version (-1 disables the check).
	Set(ctx context.Context, path string, data []byte, version int32) (*Stat, error)

	// Children lists the immediate child names of path.
	Children(ctx context.Context, path string) ([]string, error)

	// GetACL returns the ACL and Stat for path.
	GetACL(ctx context.Context, path string) ([]ACL, *Stat, error)

	// SetACL replaces the ACL at path, optimistically checked against
	// version.
	SetACL(ctx context.Context, path string, acl []ACL, version int32) (*Stat, error)

	// GetW is like Get, but additionally arms a one-shot watch on path:
	// the returned channel delivers exactly one Event (data changed or
	// node deleted) and is then closed.
	GetW(ctx context.Context, path string) ([]byte, *Stat, <-chan Event, error)

	// ChildrenW is like Children, but additionally arms a one-shot watch
	// on path's child set; the returned channel delivers exactly one
	// Event (children changed or node deleted) and is then closed.
	ChildrenW(ctx context.Context, path string) ([]string, <-chan Event, error)

	// State returns a channel of session-state transitions. The channel
	// is never closed by the driver while the client is open.
	State() <-chan State

	// Close tears down the underlying connection. Idempotent.
	Close() error
}
