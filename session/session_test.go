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
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zktree/lowlevel"
	"zktree/lowlevel/lltest"
)

func newTestSession(t *testing.T, fake *lltest.Fake) *Session {
	t.Helper()
	s, err := New(context.Background(), Options{
		ConnString: "test",
		Dial: func(ctx context.Context, connString string, timeout time.Duration) (lowlevel.Client, error) {
			return fake, nil
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPropertiesObserverBasicAndDelete(t *testing.T) {
	ctx := context.Background()
	fake := lltest.NewFake()
	require.NoError(t, fake.Create(ctx, "/top", []byte("{}"), lowlevel.WorldACL(), false))

	s := newTestSession(t, fake)

	obs, err := s.Properties(ctx, "/top")
	require.NoError(t, err)
	require.Empty(t, obs.Current())

	updates := make(chan map[string]interface{}, 4)
	obs.Subscribe(func(props map[string]interface{}) error {
		updates <- props
		return nil
	})
	<-updates // immediate first call

	_, err = fake.Set(ctx, "/top", []byte(`{"a":1}`), -1)
	require.NoError(t, err)

	select {
	case props := <-updates:
		require.EqualValues(t, float64(1), props["a"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for properties update")
	}

	deleted := make(chan struct{}, 1)
	obs.OnDelete(func() { deleted <- struct{}{} })

	require.NoError(t, fake.Delete(ctx, "/top", -1))

	select {
	case <-deleted:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for deletion callback")
	}
	require.Eventually(t, obs.Deleted, time.Second, 10*time.Millisecond)
}

func TestChildrenObserverBasic(t *testing.T) {
	ctx := context.Background()
	fake := lltest.NewFake()
	require.NoError(t, fake.Create(ctx, "/top", []byte("{}"), lowlevel.WorldACL(), false))

	s := newTestSession(t, fake)

	obs, err := s.ChildrenObserver(ctx, "/top")
	require.NoError(t, err)
	require.Empty(t, obs.Current())

	updates := make(chan []string, 4)
	obs.Subscribe(func(children []string) error {
		updates <- children
		return nil
	})
	<-updates

	require.NoError(t, fake.Create(ctx, "/top/a", []byte("{}"), lowlevel.WorldACL(), false))
	require.NoError(t, fake.TriggerChildrenChanged("/top"))

	select {
	case children := <-updates:
		require.Equal(t, []string{"a"}, children)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for children update")
	}
}

func TestEphemeralRestoredAfterSessionLoss(t *testing.T) {
	ctx := context.Background()
	fake := lltest.NewFake()
	<-fake.State() // drain initial CONNECTED

	s := newTestSession(t, fake)

	require.NoError(t, s.Create(ctx, "/eph", []byte("{}"), lowlevel.WorldACL(), true))
	exists, _, err := fake.Exists(ctx, "/eph")
	require.NoError(t, err)
	require.True(t, exists)

	// Simulate the coordination service expiring the ephemeral out from
	// under the client when the session is lost.
	require.NoError(t, fake.Delete(ctx, "/eph", -1))

	fake.SetState(lowlevel.StateLost)
	fake.SetState(lowlevel.StateConnected)

	require.Eventually(t, func() bool {
		exists, _, err := fake.Exists(ctx, "/eph")
		return err == nil && exists
	}, time.Second, 10*time.Millisecond)
}

// TestObserverSurvivesReconnect exercises the watch registry's Rekey path:
// after a LOST/CONNECTED cycle, an observer acquired before the loss must
// still resolve to live state through the same handle the caller already
// holds, even once a GC has run.
func TestObserverSurvivesReconnect(t *testing.T) {
	ctx := context.Background()
	fake := lltest.NewFake()
	require.NoError(t, fake.Create(ctx, "/top", []byte("{}"), lowlevel.WorldACL(), false))

	s := newTestSession(t, fake)

	obs, err := s.Properties(ctx, "/top")
	require.NoError(t, err)

	fake.SetState(lowlevel.StateLost)
	fake.SetState(lowlevel.StateConnected)

	require.Eventually(t, func() bool {
		runtime.GC()
		return obs.Current() != nil
	}, time.Second, 10*time.Millisecond)

	_, err = fake.Set(ctx, "/top", []byte(`{"a":1}`), -1)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		v, ok := obs.Current()["a"]
		return ok && v == float64(1)
	}, time.Second, 10*time.Millisecond)
}

func TestPropertyLinkTransitiveUpdate(t *testing.T) {
	ctx := context.Background()
	fake := lltest.NewFake()
	require.NoError(t, fake.Create(ctx, "/src", []byte(`{"a":1}`), lowlevel.WorldACL(), false))
	require.NoError(t, fake.Create(ctx, "/link", []byte(`{"a =>":"/src a"}`), lowlevel.WorldACL(), false))

	s := newTestSession(t, fake)

	obs, err := s.Properties(ctx, "/link")
	require.NoError(t, err)
	require.EqualValues(t, float64(1), obs.Current()["a"])

	updates := make(chan map[string]interface{}, 4)
	obs.Subscribe(func(props map[string]interface{}) error {
		updates <- props
		return nil
	})
	<-updates // immediate first call

	_, err = fake.Set(ctx, "/src", []byte(`{"a":2}`), -1)
	require.NoError(t, err)

	select {
	case props := <-updates:
		require.EqualValues(t, float64(2), props["a"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for linked property update")
	}
}
