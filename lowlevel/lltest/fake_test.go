/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package lltest

import (
	"context"
	"testing"

	"zktree/lowlevel"

	"github.com/stretchr/testify/require"
)

func TestCreateGetSet(t *testing.T) {
	ctx := context.Background()
	f := NewFake()

	require.NoError(t, f.Create(ctx, "/top", []byte("{}"), lowlevel.WorldACL(), false))
	data, stat, err := f.Get(ctx, "/top")
	require.NoError(t, err)
	require.Equal(t, "{}", string(data))
	require.EqualValues(t, 0, stat.DataVersion)

	newStat, err := f.Set(ctx, "/top", []byte(`{"a":1}`), -1)
	require.NoError(t, err)
	require.EqualValues(t, 1, newStat.DataVersion)
}

func TestCreateExistsNoNode(t *testing.T) {
	ctx := context.Background()
	f := NewFake()

	require.NoError(t, f.Create(ctx, "/top", []byte("{}"), lowlevel.WorldACL(), false))
	err := f.Create(ctx, "/top", []byte("{}"), lowlevel.WorldACL(), false)
	require.Error(t, err)
	_, ok := err.(*lowlevel.NodeExistsError)
	require.True(t, ok, "expected *lowlevel.NodeExistsError, got %T", err)

	_, _, err = f.Get(ctx, "/missing")
	require.Error(t, err)
	_, ok = err.(*lowlevel.NoNodeError)
	require.True(t, ok, "expected *lowlevel.NoNodeError, got %T", err)
}

func TestDeleteNotEmpty(t *testing.T) {
	ctx := context.Background()
	f := NewFake()

	require.NoError(t, f.Create(ctx, "/top", []byte("{}"), lowlevel.WorldACL(), false))
	require.NoError(t, f.Create(ctx, "/top/child", []byte("{}"), lowlevel.WorldACL(), false))

	err := f.Delete(ctx, "/top", -1)
	require.Error(t, err)
	_, ok := err.(*lowlevel.NotEmptyError)
	require.True(t, ok, "expected *lowlevel.NotEmptyError, got %T", err)

	require.NoError(t, f.Delete(ctx, "/top/child", -1))
	require.NoError(t, f.Delete(ctx, "/top", -1))
}

func TestBadVersion(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	require.NoError(t, f.Create(ctx, "/top", []byte("{}"), lowlevel.WorldACL(), false))

	_, err := f.Set(ctx, "/top", []byte("{}"), 5)
	require.Error(t, err)
	_, ok := err.(*lowlevel.BadVersionError)
	require.True(t, ok, "expected *lowlevel.BadVersionError, got %T", err)
}

func TestGetWFiresOnSet(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	require.NoError(t, f.Create(ctx, "/top", []byte("{}"), lowlevel.WorldACL(), false))

	_, _, ch, err := f.GetW(ctx, "/top")
	require.NoError(t, err)

	_, err = f.Set(ctx, "/top", []byte(`{"a":1}`), -1)
	require.NoError(t, err)

	ev, ok := <-ch
	require.True(t, ok)
	require.Equal(t, lowlevel.EventNodeDataChanged, ev.Kind)

	_, ok = <-ch
	require.False(t, ok, "channel should be closed after its one-shot firing")
}

func TestGetWFiresOnDelete(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	require.NoError(t, f.Create(ctx, "/top", []byte("{}"), lowlevel.WorldACL(), false))

	_, _, ch, err := f.GetW(ctx, "/top")
	require.NoError(t, err)

	require.NoError(t, f.Delete(ctx, "/top", -1))

	ev := <-ch
	require.Equal(t, lowlevel.EventNodeDeleted, ev.Kind)
}

func TestChildrenWFiresOnTrigger(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	require.NoError(t, f.Create(ctx, "/top", []byte("{}"), lowlevel.WorldACL(), false))

	children, ch, err := f.ChildrenW(ctx, "/top")
	require.NoError(t, err)
	require.Empty(t, children)

	require.NoError(t, f.Create(ctx, "/top/a", []byte("{}"), lowlevel.WorldACL(), false))
	require.NoError(t, f.TriggerChildrenChanged("/top"))

	ev := <-ch
	require.Equal(t, lowlevel.EventNodeChildrenChanged, ev.Kind)
}

func TestSetState(t *testing.T) {
	f := NewFake()
	<-f.State() // drain the initial CONNECTED

	f.SetState(lowlevel.StateLost)
	require.Equal(t, lowlevel.StateLost, <-f.State())
}
