/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package resolve

import "strings"

// LinkLoopError reports a node-link cycle, naming the chain of paths
// visited before the repeat was detected.
type LinkLoopError struct {
	Chain []string
}

func (e *LinkLoopError) Error() string {
	return "link loop: " + strings.Join(e.Chain, " -> ")
}
