/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package reconcile

import (
	"context"
	"fmt"

	"zktree/ptree"
)

// DeleteRecursive removes path and every descendant, children first. An
// ephemeral descendant spares its whole ancestor chain unless force is set;
// ignoreIfEphemeral suppresses the "skipped ephemeral" message for a spared
// node (the caller already expects it and does not want to be told). In
// dry_run mode nothing is deleted; the returned messages describe what
// would have happened.
func (r *Reconciler) DeleteRecursive(ctx context.Context, path string, dryRun, force, ignoreIfEphemeral bool) ([]string, error) {
	_, messages, err := r.deleteRecursive(ctx, path, dryRun, force, ignoreIfEphemeral)
	return messages, err
}

// deleteRecursive returns skipped=true when path (or a descendant) was left
// in place because it is ephemeral and force is false; callers use this to
// spare every ancestor on the way back up.
func (r *Reconciler) deleteRecursive(ctx context.Context, path string, dryRun, force, ignoreIfEphemeral bool) (skipped bool, messages []string, err error) {
	stat, err := r.store.Stat(ctx, path)
	if err != nil {
		return false, nil, err
	}

	children, err := r.store.Children(ctx, path)
	if err != nil {
		return false, nil, err
	}

	childSkipped := false
	for _, name := range children {
		cpath := ptree.Child(path, name)
		sk, msgs, err := r.deleteRecursive(ctx, cpath, dryRun, force, ignoreIfEphemeral)
		if err != nil {
			return false, nil, err
		}
		messages = append(messages, msgs...)
		if sk {
			childSkipped = true
		}
	}

	if childSkipped {
		return true, messages, nil
	}

	if stat.Ephemeral && !force {
		if !ignoreIfEphemeral {
			messages = append(messages, fmt.Sprintf("skipped ephemeral: %s", path))
		}
		return true, messages, nil
	}

	if dryRun {
		messages = append(messages, fmt.Sprintf("delete %s", path))
		return false, messages, nil
	}

	if err := r.store.Delete(ctx, path, -1); err != nil {
		return false, nil, err
	}
	return false, messages, nil
}
