package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zktree/lowlevel"
)

// fakeStore is a minimal in-memory Store for exercising the resolver in
// isolation, without pulling in lowlevel/lltest or session.
type fakeStore struct {
	nodes map[string]bool
	links map[string]map[string]string // path -> name -> target
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nodes: map[string]bool{"/": true},
		links: map[string]map[string]string{},
	}
}

func (s *fakeStore) add(path string) {
	s.nodes[path] = true
}

func (s *fakeStore) link(basePath, name, target string) {
	if s.links[basePath] == nil {
		s.links[basePath] = map[string]string{}
	}
	s.links[basePath][name] = target
}

func (s *fakeStore) Exists(ctx context.Context, path string) (bool, error) {
	return s.nodes[path], nil
}

func (s *fakeStore) NodeLinkTarget(ctx context.Context, basePath, name string) (string, bool, error) {
	target, ok := s.links[basePath][name]
	return target, ok, nil
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"/":            "/",
		"/a/./b":       "/a/b",
		"/a/b/../c":    "/a/c",
		"/a/../b":      "/b",
		"/a/b/..":      "/a",
		"/../a":        "/a",
		"/a//b":        "/a/b",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestResolveDirectExistence(t *testing.T) {
	store := newFakeStore()
	store.add("/svc")

	got, err := Resolve(context.Background(), store, "/svc", nil)
	require.NoError(t, err)
	assert.Equal(t, "/svc", got)
}

func TestResolveNoNode(t *testing.T) {
	store := newFakeStore()

	_, err := Resolve(context.Background(), store, "/missing", nil)
	require.Error(t, err)
	assert.True(t, lowlevel.IsNoNode(err))
}

func TestResolveNodeLinkCollapse(t *testing.T) {
	store := newFakeStore()
	store.add("/top")
	store.add("/top/a")
	store.link("/top/a", "top", "/top")

	got, err := Resolve(context.Background(), store, "/top/a/top/a/top/a/top", nil)
	require.NoError(t, err)
	assert.Equal(t, "/top", got)
}

func TestResolveLinkLoop(t *testing.T) {
	store := newFakeStore()
	store.link("/", "x", "/y")
	store.link("/", "y", "/x")

	_, err := Resolve(context.Background(), store, "/x", nil)
	require.Error(t, err)
	loopErr, ok := err.(*LinkLoopError)
	require.True(t, ok, "expected *LinkLoopError, got %T", err)
	assert.Equal(t, []string{"/x", "/y", "/x"}, loopErr.Chain)
}

func TestResolveIdempotent(t *testing.T) {
	store := newFakeStore()
	store.add("/top")
	store.add("/top/a")
	store.link("/top/a", "top", "/top")

	first, err := Resolve(context.Background(), store, "/top/a/top", nil)
	require.NoError(t, err)

	second, err := Resolve(context.Background(), store, first, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveTrailingSlashStripped(t *testing.T) {
	store := newFakeStore()
	store.add("/svc")

	got, err := Resolve(context.Background(), store, "/svc/", nil)
	require.NoError(t, err)
	assert.Equal(t, "/svc", got)
}
