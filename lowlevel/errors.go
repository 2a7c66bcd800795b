/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package lowlevel

import "fmt"

// NoNodeError reports that the requested node does not exist at any step of
// an operation.
type NoNodeError struct {
	Path string
}

func (e *NoNodeError) Error() string { return fmt.Sprintf("no node: %s", e.Path) }

// NodeExistsError reports creation over an existing node.
type NodeExistsError struct {
	Path string
}

func (e *NodeExistsError) Error() string { return fmt.Sprintf("node exists: %s", e.Path) }

// BadVersionError reports a failed optimistic-concurrency check on data or
// ACL version.
type BadVersionError struct {
	Path string
}

func (e *BadVersionError) Error() string { return fmt.Sprintf("bad version: %s", e.Path) }

// NotEmptyError reports a delete attempted against a node with children.
type NotEmptyError struct {
	Path string
}

func (e *NotEmptyError) Error() string { return fmt.Sprintf("not empty: %s", e.Path) }

// BadArgumentsError reports a path with `.`/`..` segments, empty segments, or
// a relative path, used outside the resolver.
type BadArgumentsError struct {
	Path string
}

func (e *BadArgumentsError) Error() string { return fmt.Sprintf("bad arguments: %s", e.Path) }

// SessionLostError reports that the underlying session has been declared
// lost by the driver.
type SessionLostError struct{}

func (e *SessionLostError) Error() string { return "session lost" }

// ConnectionLossError reports a transient loss of connection to the
// coordination service.
type ConnectionLossError struct{}

func (e *ConnectionLossError) Error() string { return "connection loss" }

// FailedConnectError reports that the initial connection attempt failed with
// wait=false.
type FailedConnectError struct {
	ConnString string
}

func (e *FailedConnectError) Error() string {
	return fmt.Sprintf("failed to connect: %s", e.ConnString)
}

// IsNoNode reports whether err is (or wraps) a NoNodeError.
func IsNoNode(err error) bool {
	_, ok := Cause(err).(*NoNodeError)
	return ok
}

// IsNodeExists reports whether err is (or wraps) a NodeExistsError.
func IsNodeExists(err error) bool {
	_, ok := Cause(err).(*NodeExistsError)
	return ok
}

// IsBadVersion reports whether err is (or wraps) a BadVersionError.
func IsBadVersion(err error) bool {
	_, ok := Cause(err).(*BadVersionError)
	return ok
}

// causer mirrors github.com/pkg/errors' Cause interface, avoiding an import
// cycle dependency on the concrete package from this low-level contract.
type causer interface {
	Cause() error
}

// Cause unwraps a pkg/errors-wrapped error down to its root, falling back to
// err itself when it does not implement the causer interface.
func Cause(err error) error {
	for {
		c, ok := err.(causer)
		if !ok {
			return err
		}
		next := c.Cause()
		if next == nil {
			return err
		}
		err = next
	}
}
