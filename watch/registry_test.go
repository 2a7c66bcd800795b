package watch

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddWatchesPop(t *testing.T) {
	r := NewRegistry()
	key := Key{Kind: KindProperties, Path: "/svc"}

	e1, created := r.Add(key, "first")
	assert.True(t, created)
	e2, created := r.Add(key, "second")
	assert.False(t, created)

	assert.Equal(t, 2, r.Len())
	assert.ElementsMatch(t, []interface{}{"first", "second"}, r.Watches(key))

	popped := r.Pop(key)
	assert.ElementsMatch(t, []interface{}{"first", "second"}, popped)
	assert.Equal(t, 0, r.Len())
	assert.Nil(t, r.Watches(key))

	runtime.KeepAlive(e1)
	runtime.KeepAlive(e2)
}

func TestClearReturnsAllKeys(t *testing.T) {
	r := NewRegistry()
	k1 := Key{Kind: KindChildren, Path: "/a"}
	k2 := Key{Kind: KindProperties, Path: "/b"}

	e1, _ := r.Add(k1, "a-obs")
	e2, _ := r.Add(k2, "b-obs")

	all := r.Clear()
	require.Len(t, all, 2)
	assert.Equal(t, []interface{}{"a-obs"}, all[k1])
	assert.Equal(t, []interface{}{"b-obs"}, all[k2])
	assert.Equal(t, 0, r.Len())

	runtime.KeepAlive(e1)
	runtime.KeepAlive(e2)
}

func TestExplicitClose(t *testing.T) {
	r := NewRegistry()
	key := Key{Kind: KindProperties, Path: "/svc"}

	e, _ := r.Add(key, "obs")
	assert.Equal(t, 1, r.Len())

	e.Close()
	assert.Equal(t, 0, r.Len())
	assert.Nil(t, e.Value())
}

func TestSnapshotRekeyPreservesEntry(t *testing.T) {
	r := NewRegistry()
	oldKey := Key{Kind: KindProperties, Path: "/a"}
	newKey := Key{Kind: KindProperties, Path: "/a/b"}

	e, _ := r.Add(oldKey, "obs")

	items := r.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, oldKey, items[0].Key)

	r.Rekey(items[0].ID, newKey)

	assert.Equal(t, newKey, e.Key())
	assert.Equal(t, "obs", e.Value())
	assert.Nil(t, r.Watches(oldKey))
	assert.ElementsMatch(t, []interface{}{"obs"}, r.Watches(newKey))
}

// TestNoLeakOnGC exercises the "no leak on GC" testable property: once the
// last strong reference to an Entry is dropped, the registry's live count
// settles back down without an explicit Close call.
func TestNoLeakOnGC(t *testing.T) {
	r := NewRegistry()
	key := Key{Kind: KindProperties, Path: "/svc"}

	func() {
		e, _ := r.Add(key, "obs")
		_ = e
	}()

	require.Eventually(t, func() bool {
		runtime.GC()
		return r.Len() == 0
	}, time.Second, 10*time.Millisecond)
}
