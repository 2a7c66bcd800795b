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

import "errors"

// ErrCancelWatch is the sentinel a callback returns to unsubscribe itself.
// It is not logged as an error; a debug line is emitted instead.
var ErrCancelWatch = errors.New("cancel watch")
