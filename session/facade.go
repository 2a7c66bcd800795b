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
	"zktree/reconcile"
	"zktree/registrar"
)

// reconciler and registrarFor lazily build the engine objects facade methods
// delegate to. Both are cheap, stateless-besides-the-store wrappers, so a
// fresh one per call avoids adding another lock-guarded field to Session.
func (s *Session) reconciler() *reconcile.Reconciler {
	return reconcile.New(s, s.log)
}

func (s *Session) registrarFor() *registrar.Registrar {
	return registrar.New(s, s.log)
}

// Register writes an ephemeral self-registration node for addr under path.
func (s *Session) Register(ctx context.Context, path, addr string, props map[string]interface{}) error {
	return s.registrarFor().Register(ctx, path, addr, props)
}

// RegisterServer is an alias for Register.
func (s *Session) RegisterServer(ctx context.Context, path, addr string, props map[string]interface{}) error {
	return s.Register(ctx, path, addr, props)
}

// ImportTree reconciles text's DSL onto path. trim selects whether a live
// child absent from the DSL is recursively deleted; the default (false)
// leaves extras alone without even a warning. Callers wanting the
// warn-and-leave engine behavior should call reconcile.New(session, log).
// Import directly with reconcile.TrimWarn.
func (s *Session) ImportTree(ctx context.Context, text, path string, trim bool, acl []lowlevel.ACL, dryRun bool) ([]string, error) {
	mode := reconcile.TrimIgnore
	if trim {
		mode = reconcile.TrimDelete
	}
	if acl == nil {
		acl = lowlevel.OpenACL()
	}
	return s.reconciler().Import(ctx, text, path, mode, acl, dryRun)
}

// ExportTree renders path and its descendants as DSL text.
func (s *Session) ExportTree(ctx context.Context, path string, includeEphemeral bool, name string) (string, error) {
	return s.reconciler().Export(ctx, path, includeEphemeral, name)
}

// DeleteRecursive removes path and every descendant, children first.
func (s *Session) DeleteRecursive(ctx context.Context, path string, dryRun, force, ignoreIfEphemeral bool) ([]string, error) {
	return s.reconciler().DeleteRecursive(ctx, path, dryRun, force, ignoreIfEphemeral)
}

// Walk visits path and every descendant depth-first, in lexical sibling
// order.
func (s *Session) Walk(ctx context.Context, path string, skipEphemeral bool, fn reconcile.WalkFunc) error {
	return s.reconciler().Walk(ctx, path, skipEphemeral, fn)
}
