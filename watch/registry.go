/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package watch implements the thread-safe weak-valued multimap from
// (event-kind, resolved-path) to live observers described by the session
// layer's watch registry. It is generalized from
// cl_common/daemonutils.FanOut's lock-guarded subscriber-list pattern to a
// keyed registry whose entries disappear once nothing outside the registry
// still references them.
//
// Go has no portable weak-pointer primitive before the runtime/weak package
// (Go 1.24), so "weak" here is implemented as a finalizer-based fallback:
// the registry stores an entry's payload only as long as a caller-held
// Entry keeps it pinned. An Entry is a small proxy object with a finalizer;
// the registry never holds the Entry itself, only the payload under its
// numeric id, so dropping the last Entry lets the finalizer run and evict
// the payload in turn.
package watch

import (
	"runtime"
	"sync"
)

// Kind distinguishes the two flavors of watchable event named in §4.3.
type Kind int

// The two watch kinds the session layer arms.
const (
	KindChildren Kind = iota
	KindProperties
)

func (k Kind) String() string {
	if k == KindChildren {
		return "children"
	}
	return "properties"
}

// Key identifies one registry slot: an event kind at a resolved path.
type Key struct {
	Kind Kind
	Path string
}

type slot struct {
	key     Key
	payload interface{}
}

// Registry is a thread-safe mapping from Key to a set of live payloads,
// indexed primarily by a stable numeric id so a payload's Key can change
// (as happens when a watched path's resolution shifts across a reconnect)
// without invalidating any Entry a caller already holds.
type Registry struct {
	mu     sync.Mutex
	byID   map[uint64]*slot
	byKey  map[Key]map[uint64]bool
	nextID uint64
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:  map[uint64]*slot{},
		byKey: map[Key]map[uint64]bool{},
	}
}

// Entry is the caller-visible handle returned by Add. The registry holds no
// reference to the Entry itself — only to its payload, keyed by id — so
// once every copy of an Entry is dropped, its finalizer fires and the
// payload is evicted.
type Entry struct {
	r  *Registry
	id uint64
}

// Add registers payload under key and returns a new Entry pinning it alive,
// plus whether key was newly created by this call.
func (r *Registry) Add(key Key, payload interface{}) (entry *Entry, created bool) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.byID[id] = &slot{key: key, payload: payload}
	m, existed := r.byKey[key]
	if !existed {
		m = map[uint64]bool{}
		r.byKey[key] = m
	}
	m[id] = true
	r.mu.Unlock()

	e := &Entry{r: r, id: id}
	runtime.SetFinalizer(e, finalizeEntry)
	return e, !existed
}

func finalizeEntry(e *Entry) {
	e.r.remove(e.id)
}

func (r *Registry) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	if m, ok := r.byKey[s.key]; ok {
		delete(m, id)
		if len(m) == 0 {
			delete(r.byKey, s.key)
		}
	}
}

// Value returns the payload this Entry still pins, or nil if it has already
// been explicitly closed.
func (e *Entry) Value() interface{} {
	e.r.mu.Lock()
	defer e.r.mu.Unlock()
	s, ok := e.r.byID[e.id]
	if !ok {
		return nil
	}
	return s.payload
}

// Key reports the registry key this Entry is currently filed under.
func (e *Entry) Key() Key {
	e.r.mu.Lock()
	defer e.r.mu.Unlock()
	s, ok := e.r.byID[e.id]
	if !ok {
		return Key{}
	}
	return s.key
}

// Close immediately and explicitly evicts the entry, without waiting for
// GC to notice the Entry is unreachable.
func (e *Entry) Close() {
	runtime.SetFinalizer(e, nil)
	e.r.remove(e.id)
}

// Pop atomically removes and returns every currently live payload for key.
func (r *Registry) Pop(key Key) []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids, ok := r.byKey[key]
	if !ok {
		return nil
	}
	delete(r.byKey, key)
	out := make([]interface{}, 0, len(ids))
	for id := range ids {
		if s, ok := r.byID[id]; ok {
			out = append(out, s.payload)
			delete(r.byID, id)
		}
	}
	return out
}

// Watches returns a non-atomic snapshot of the currently live payloads for
// key, without removing them.
func (r *Registry) Watches(key Key) []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids, ok := r.byKey[key]
	if !ok {
		return nil
	}
	out := make([]interface{}, 0, len(ids))
	for id := range ids {
		if s, ok := r.byID[id]; ok {
			out = append(out, s.payload)
		}
	}
	return out
}

// Clear atomically swaps out the entire registry and returns every live
// payload, grouped by its original Key. The session layer's reconnect
// re-arm does not use it: it reads Snapshot and moves items with Rekey, so
// existing Entries stay valid.
func (r *Registry) Clear() map[Key][]interface{} {
	r.mu.Lock()
	oldByKey := r.byKey
	oldByID := r.byID
	r.byKey = map[Key]map[uint64]bool{}
	r.byID = map[uint64]*slot{}
	r.mu.Unlock()

	out := make(map[Key][]interface{}, len(oldByKey))
	for key, ids := range oldByKey {
		list := make([]interface{}, 0, len(ids))
		for id := range ids {
			if s, ok := oldByID[id]; ok {
				list = append(list, s.payload)
			}
		}
		out[key] = list
	}
	return out
}

// Len counts live payloads across all keys.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// Item is one registry slot as returned by Snapshot.
type Item struct {
	ID      uint64
	Key     Key
	Payload interface{}
}

// Snapshot returns every currently live (id, key, payload) triple without
// removing anything. Unlike Clear, ids survive, so a caller can later move
// an item to a new Key with Rekey without disturbing any Entry a user
// already holds — the session layer's reconnect rearm relies on this to
// re-resolve a watch's path and move it to its new Key in place.
func (r *Registry) Snapshot() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Item, 0, len(r.byID))
	for id, s := range r.byID {
		out = append(out, Item{ID: id, Key: s.key, Payload: s.payload})
	}
	return out
}

// Rekey moves id (if still live) into newKey's bucket, leaving its payload
// and id untouched. A no-op if id is no longer present.
func (r *Registry) Rekey(id uint64, newKey Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return
	}
	if m, ok := r.byKey[s.key]; ok {
		delete(m, id)
		if len(m) == 0 {
			delete(r.byKey, s.key)
		}
	}
	s.key = newKey
	m, ok := r.byKey[newKey]
	if !ok {
		m = map[uint64]bool{}
		r.byKey[newKey] = m
	}
	m[id] = true
}
