/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package zkdial is the one place the CLI wrappers reach for a live
// lowlevel.Client. session.Options.Dial is deliberately pluggable (see
// session.Options) so this module never hardcodes a wire protocol; this
// package is where a real coordination-service driver gets wired in once
// one is vendored. Until then, Dial reports a clear error rather than
// silently no-op'ing.
package zkdial

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"zktree/lowlevel"
)

// Dial is the session.Options.Dial hook used by cmd/zk-export and
// cmd/zk-import. It has no wire implementation in this module: lowlevel.
// Client is the external-collaborator boundary, and no driver for it ships
// in this repository. Replace this function (or set session.Options.Dial
// directly) with a real driver's constructor to make the CLI commands
// usable against an actual coordination service.
func Dial(ctx context.Context, connString string, timeout time.Duration) (lowlevel.Client, error) {
	return nil, errors.Errorf("zkdial: no coordination-service driver wired for %q; "+
		"supply one via session.Options.Dial", connString)
}
