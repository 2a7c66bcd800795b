/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// External test package: registrar_test depends on both registrar and
// session, which session's public facade methods depend on in the other
// direction, so the tests cannot live in package registrar itself.
package registrar_test

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zktree/lowlevel"
	"zktree/lowlevel/lltest"
	"zktree/registrar"
	"zktree/session"
)

func newTestSession(t *testing.T, fake *lltest.Fake) *session.Session {
	t.Helper()
	s, err := session.New(context.Background(), session.Options{
		ConnString: "test",
		Dial: func(ctx context.Context, connString string, timeout time.Duration) (lowlevel.Client, error) {
			return fake, nil
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRegisterExplicitHost(t *testing.T) {
	ctx := context.Background()
	fake := lltest.NewFake()
	require.NoError(t, fake.Create(ctx, "/svc", []byte("{}"), lowlevel.WorldACL(), false))
	require.NoError(t, fake.Create(ctx, "/svc/providers", []byte("{}"), lowlevel.WorldACL(), false))

	s := newTestSession(t, fake)
	r := registrar.New(s, nil)

	require.NoError(t, r.Register(ctx, "/svc/providers", "1.2.3.4:5678", nil))

	data, _, err := fake.Get(ctx, "/svc/providers/1.2.3.4:5678")
	require.NoError(t, err)
	require.JSONEq(t, `{"pid":`+strconv.Itoa(os.Getpid())+`}`, string(data))

	acl, _, err := fake.GetACL(ctx, "/svc/providers/1.2.3.4:5678")
	require.NoError(t, err)
	require.Equal(t, lowlevel.WorldACL(), acl)
}

func TestRegisterBadPort(t *testing.T) {
	ctx := context.Background()
	fake := lltest.NewFake()
	require.NoError(t, fake.Create(ctx, "/svc", []byte("{}"), lowlevel.WorldACL(), false))

	s := newTestSession(t, fake)
	r := registrar.New(s, nil)

	err := r.Register(ctx, "/svc", "host:notaport", nil)
	require.Error(t, err)
}

func TestRegisterObserverAugmentsProps(t *testing.T) {
	ctx := context.Background()
	fake := lltest.NewFake()
	require.NoError(t, fake.Create(ctx, "/svc", []byte("{}"), lowlevel.WorldACL(), false))

	s := newTestSession(t, fake)
	r := registrar.New(s, nil)

	var seenAddr, seenPath string
	r.OnRegistering(func(addr, path string, props map[string]interface{}) {
		seenAddr = addr
		seenPath = path
		props["version"] = "1.0"
	})

	require.NoError(t, r.Register(ctx, "/svc", "9.9.9.9:111", nil))

	require.Equal(t, "9.9.9.9:111", seenAddr)
	require.Equal(t, "/svc", seenPath)

	props, err := s.GetProperties(ctx, "/svc/9.9.9.9:111")
	require.NoError(t, err)
	require.Equal(t, "1.0", props["version"])
}
