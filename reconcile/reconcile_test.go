/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// External test package: reconcile_test depends on both reconcile and
// session, which session's public facade methods depend on in the other
// direction, so the tests cannot live in package reconcile itself.
package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zktree/lowlevel"
	"zktree/lowlevel/lltest"
	"zktree/reconcile"
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

// TestImportDryRunDiffVocabulary exercises a concrete reconcile scenario:
// an existing /t tree compared in dry_run mode against an imported DSL
// text, expecting the exact diff vocabulary lines (order is unconstrained).
func TestImportDryRunDiffVocabulary(t *testing.T) {
	ctx := context.Background()
	fake := lltest.NewFake()
	acl := lowlevel.WorldACL()

	require.NoError(t, fake.Create(ctx, "/t", []byte(`{"a":1,"b":2,"ad ->":"/y","ae ->":"/x"}`), acl, false))
	require.NoError(t, fake.Create(ctx, "/t/c1", []byte("{}"), acl, false))
	require.NoError(t, fake.Create(ctx, "/t/c1/c12", []byte("{}"), acl, false))
	require.NoError(t, fake.Create(ctx, "/t/c2", []byte("{}"), acl, false))

	s := newTestSession(t, fake)
	r := reconcile.New(s, nil)

	text := "/t\n" +
		" a=2\n" +
		" ae->/z\n" +
		" /c1\n" +
		"  /c12\n" +
		"   a=1\n" +
		"   b -> /b\n" +
		"   /c123\n"

	diffs, err := r.Import(ctx, text, "/t", reconcile.TrimWarn, acl, true)
	require.NoError(t, err)

	require.ElementsMatch(t, []string{
		"/t a change from 1 to 2",
		"/t remove link ad -> /y",
		"/t ae link change from /x to /z",
		"/t remove property b = 2",
		"extra path not trimmed: /t/c2",
		"/t/c1/c12 add property a = 1",
		"/t/c1/c12 add link b -> /b",
		"add /t/c1/c12/c123",
	}, diffs)

	// dry_run must not have mutated anything.
	data, _, err := fake.Get(ctx, "/t")
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1,"b":2,"ad ->":"/y","ae ->":"/x"}`, string(data))
}

func TestImportAppliesChanges(t *testing.T) {
	ctx := context.Background()
	fake := lltest.NewFake()
	acl := lowlevel.WorldACL()
	require.NoError(t, fake.Create(ctx, "/t", []byte(`{"a":1}`), acl, false))

	s := newTestSession(t, fake)
	r := reconcile.New(s, nil)

	text := "/t\n a=2\n /child\n  x=\"hi\"\n"
	diffs, err := r.Import(ctx, text, "/t", reconcile.TrimIgnore, acl, false)
	require.NoError(t, err)
	require.Empty(t, diffs)

	props, err := s.GetProperties(ctx, "/t")
	require.NoError(t, err)
	require.EqualValues(t, float64(2), props["a"])

	childProps, err := s.GetProperties(ctx, "/t/child")
	require.NoError(t, err)
	require.Equal(t, "hi", childProps["x"])
}

func TestExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := lltest.NewFake()
	acl := lowlevel.WorldACL()
	require.NoError(t, fake.Create(ctx, "/t", []byte(`{"a":1,"ae ->":"/x"}`), acl, false))
	require.NoError(t, fake.Create(ctx, "/t/c1", []byte("{}"), acl, false))
	require.NoError(t, fake.Create(ctx, "/t/zookeeper", []byte("{}"), acl, false))
	require.NoError(t, fake.Create(ctx, "/t/eph", []byte("{}"), acl, true))

	s := newTestSession(t, fake)
	r := reconcile.New(s, nil)

	text, err := r.Export(ctx, "/t", false, "t")
	require.NoError(t, err)

	require.Contains(t, text, "/t\n")
	require.Contains(t, text, "  a = 1\n")
	require.Contains(t, text, "  ae -> /x\n")
	require.Contains(t, text, "  /c1\n")
	require.NotContains(t, text, "zookeeper")
	require.NotContains(t, text, "eph")
}

func TestExportIncludesEphemeralWhenRequested(t *testing.T) {
	ctx := context.Background()
	fake := lltest.NewFake()
	acl := lowlevel.WorldACL()
	require.NoError(t, fake.Create(ctx, "/t", []byte("{}"), acl, false))
	require.NoError(t, fake.Create(ctx, "/t/eph", []byte("{}"), acl, true))

	s := newTestSession(t, fake)
	r := reconcile.New(s, nil)

	text, err := r.Export(ctx, "/t", true, "t")
	require.NoError(t, err)
	require.Contains(t, text, "/eph\n")
}

func TestDeleteRecursiveSparesEphemeralChain(t *testing.T) {
	ctx := context.Background()
	fake := lltest.NewFake()
	acl := lowlevel.WorldACL()
	require.NoError(t, fake.Create(ctx, "/t", []byte("{}"), acl, false))
	require.NoError(t, fake.Create(ctx, "/t/c1", []byte("{}"), acl, false))
	require.NoError(t, fake.Create(ctx, "/t/c1/eph", []byte("{}"), acl, true))

	s := newTestSession(t, fake)
	r := reconcile.New(s, nil)

	messages, err := r.DeleteRecursive(ctx, "/t", false, false, false)
	require.NoError(t, err)
	require.Contains(t, messages, "skipped ephemeral: /t/c1/eph")

	exists, _, err := fake.Exists(ctx, "/t")
	require.NoError(t, err)
	require.True(t, exists)
	exists, _, err = fake.Exists(ctx, "/t/c1")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestDeleteRecursiveForceDeletesEphemeral(t *testing.T) {
	ctx := context.Background()
	fake := lltest.NewFake()
	acl := lowlevel.WorldACL()
	require.NoError(t, fake.Create(ctx, "/t", []byte("{}"), acl, false))
	require.NoError(t, fake.Create(ctx, "/t/eph", []byte("{}"), acl, true))

	s := newTestSession(t, fake)
	r := reconcile.New(s, nil)

	_, err := r.DeleteRecursive(ctx, "/t", false, true, false)
	require.NoError(t, err)

	exists, _, err := fake.Exists(ctx, "/t")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestWalkVisitsDepthFirst(t *testing.T) {
	ctx := context.Background()
	fake := lltest.NewFake()
	acl := lowlevel.WorldACL()
	require.NoError(t, fake.Create(ctx, "/t", []byte("{}"), acl, false))
	require.NoError(t, fake.Create(ctx, "/t/b", []byte("{}"), acl, false))
	require.NoError(t, fake.Create(ctx, "/t/a", []byte("{}"), acl, false))
	require.NoError(t, fake.Create(ctx, "/t/a/x", []byte("{}"), acl, false))

	s := newTestSession(t, fake)
	r := reconcile.New(s, nil)

	var visited []string
	err := r.Walk(ctx, "/t", false, func(path string, children []string) error {
		visited = append(visited, path)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"/t", "/t/a", "/t/a/x", "/t/b"}, visited)
}
