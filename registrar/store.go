/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package registrar implements server self-registration: writing an
// ephemeral child, named after the registering address, under a resolved
// path. host:port parsing, a pid property, and a world-read default ACL
// are generalized with Go-native multi-interface IPv4 expansion for the
// blank-host case.
package registrar

import (
	"context"

	"zktree/lowlevel"
)

// Store is the narrow view of a live tree the registrar needs. *session.
// Session satisfies it without any explicit adapter.
type Store interface {
	Resolve(ctx context.Context, path string) (string, error)
	Create(ctx context.Context, path string, data []byte, acl []lowlevel.ACL, ephemeral bool) error
}
