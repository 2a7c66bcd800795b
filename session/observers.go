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
	"reflect"
	"sync"

	"zktree/lowlevel"
	"zktree/ptree"
	"zktree/watch"
)

// PropertyCallback receives a properties snapshot on every live update.
type PropertyCallback func(props map[string]interface{}) error

// ChildrenCallback receives a children snapshot on every live update.
type ChildrenCallback func(children []string) error

// DeletionCallback fires exactly once, with no argument, when the watched
// node can no longer be resolved.
type DeletionCallback func()

// Subscription is a single callback's registration; Cancel removes it
// without affecting any other subscription on the same observer.
type Subscription struct {
	cancel func()
}

// Cancel unsubscribes this callback.
func (s *Subscription) Cancel() {
	if s != nil && s.cancel != nil {
		s.cancel()
	}
}

// --- PropertiesObserver -----------------------------------------------

type propState struct {
	mu sync.Mutex

	sess         *Session
	originalPath string
	resolvedPath string
	snapshot     map[string]interface{}
	deleted      bool

	propCallbacks map[uint64]PropertyCallback
	delCallbacks  map[uint64]DeletionCallback
	nextCbID      uint64

	// linked maps a resolved link-target path to the child observer this
	// node's property-links currently depend on, per §4.2's
	// linked-observer housekeeping.
	linked map[string]*PropertiesObserver
}

// PropertiesObserver is a long-lived handle bound to a resolved path,
// presenting a cached, decoded properties snapshot and delivering callbacks
// on data changes, changes to any transitively linked property, and
// deletion.
type PropertiesObserver struct {
	entry *watch.Entry
}

func (o *PropertiesObserver) state() *propState {
	v := o.entry.Value()
	if v == nil {
		return nil
	}
	return v.(*propState)
}

// Current returns the observer's cached properties snapshot.
func (o *PropertiesObserver) Current() map[string]interface{} {
	st := o.state()
	if st == nil {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return cloneProps(st.snapshot)
}

// Deleted reports whether the observer has transitioned to its terminal
// deleted state.
func (o *PropertiesObserver) Deleted() bool {
	st := o.state()
	if st == nil {
		return true
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.deleted
}

// Subscribe registers fn for every future live update, immediately invoking
// it once with the current snapshot, mirroring decorator-style observer
// registration without relying on Go runtime arity introspection. If fn's
// first call returns ErrCancelWatch, it is not registered at all.
func (o *PropertiesObserver) Subscribe(fn PropertyCallback) *Subscription {
	st := o.state()
	if st == nil {
		return &Subscription{}
	}

	cur := o.Current()
	if err := safeCallProperty(st, fn, cur); err != nil {
		return &Subscription{}
	}

	st.mu.Lock()
	id := st.nextCbID
	st.nextCbID++
	st.propCallbacks[id] = fn
	st.mu.Unlock()

	return &Subscription{cancel: func() {
		st.mu.Lock()
		delete(st.propCallbacks, id)
		st.mu.Unlock()
	}}
}

// OnDelete registers fn to be called with no argument when the node is
// deleted. It is never invoked on a live update.
func (o *PropertiesObserver) OnDelete(fn DeletionCallback) *Subscription {
	st := o.state()
	if st == nil {
		fn()
		return &Subscription{}
	}

	st.mu.Lock()
	id := st.nextCbID
	st.nextCbID++
	st.delCallbacks[id] = fn
	alreadyDeleted := st.deleted
	st.mu.Unlock()

	if alreadyDeleted {
		fn()
	}

	return &Subscription{cancel: func() {
		st.mu.Lock()
		delete(st.delCallbacks, id)
		st.mu.Unlock()
	}}
}

// Close releases this observer's registration immediately.
func (o *PropertiesObserver) Close() { o.entry.Close() }

func safeCallProperty(st *propState, fn PropertyCallback, props map[string]interface{}) error {
	err := fn(props)
	if err == ErrCancelWatch {
		st.sess.log.Debugw("property callback cancelled itself", "path", st.originalPath)
	} else if err != nil {
		st.sess.log.Errorw("property callback failed", "path", st.originalPath, "error", err)
	}
	return err
}

func cloneProps(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Properties returns a live PropertiesObserver bound to path's resolved
// location. It blocks until an initial snapshot is available.
func (s *Session) Properties(ctx context.Context, path string) (*PropertiesObserver, error) {
	resolved, err := s.Resolve(ctx, path)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.GetProperties(ctx, resolved)
	if err != nil {
		return nil, err
	}

	st := &propState{
		sess:          s,
		originalPath:  path,
		resolvedPath:  resolved,
		snapshot:      snapshot,
		propCallbacks: map[uint64]PropertyCallback{},
		delCallbacks:  map[uint64]DeletionCallback{},
		linked:        map[string]*PropertiesObserver{},
	}

	key := watch.Key{Kind: watch.KindProperties, Path: resolved}
	entry, _ := s.registry.Add(key, st)
	obs := &PropertiesObserver{entry: entry}

	s.armPropertiesWatch(ctx, st)
	s.recomputeLinks(ctx, st)

	return obs, nil
}

// armPropertiesWatch installs a one-shot data watch at st.resolvedPath and
// spawns the goroutine that adapts it into the continuous-observer model:
// every firing re-issues Get (which both retrieves the value and re-arms
// the watch) before broadcasting.
func (s *Session) armPropertiesWatch(ctx context.Context, st *propState) {
	data, _, ch, err := s.client.GetW(ctx, st.resolvedPath)
	if err != nil {
		if lowlevel.IsNoNode(err) {
			s.markPropertiesDeleted(st)
		} else {
			s.log.Errorw("properties watch dropped: arming failed", "path", st.resolvedPath, "error", err)
		}
		return
	}
	props, err := ptree.Decode(data)
	if err == nil {
		st.mu.Lock()
		st.snapshot = props
		st.mu.Unlock()
	}

	go s.watchPropertiesLoop(st, ch)
}

func (s *Session) watchPropertiesLoop(st *propState, ch <-chan lowlevel.Event) {
	ev, ok := <-ch
	if !ok {
		return
	}

	ctx := context.Background()

	if ev.Kind == lowlevel.EventNodeDeleted {
		s.handlePropertiesDeletion(ctx, st)
		return
	}

	data, _, nextCh, err := s.client.GetW(ctx, st.resolvedPath)
	if err != nil {
		if lowlevel.IsNoNode(err) {
			s.handlePropertiesDeletion(ctx, st)
			return
		}
		s.log.Errorw("failed to re-arm properties watch", "path", st.resolvedPath, "error", err)
		return
	}

	props, err := ptree.Decode(data)
	if err != nil {
		s.log.Errorw("failed to decode properties", "path", st.resolvedPath, "error", err)
		return
	}

	s.broadcastProperties(ctx, st, props)
	s.watchPropertiesLoop(st, nextCh)
}

// handlePropertiesDeletion implements §4.4's deletion-handling rule: a
// "node deleted" firing triggers a re-resolve of the observer's original
// textual path, since a sibling link may now point elsewhere.
func (s *Session) handlePropertiesDeletion(ctx context.Context, st *propState) {
	resolved, err := s.Resolve(ctx, st.originalPath)
	if err != nil {
		s.markPropertiesDeleted(st)
		return
	}

	st.mu.Lock()
	st.resolvedPath = resolved
	st.mu.Unlock()

	s.armPropertiesWatch(ctx, st)
	s.recomputeLinks(ctx, st)
}

func (s *Session) markPropertiesDeleted(st *propState) {
	st.mu.Lock()
	if st.deleted {
		st.mu.Unlock()
		return
	}
	st.deleted = true
	delFns := make([]DeletionCallback, 0, len(st.delCallbacks))
	for _, fn := range st.delCallbacks {
		delFns = append(delFns, fn)
	}
	for target, child := range st.linked {
		child.Close()
		delete(st.linked, target)
	}
	st.mu.Unlock()

	for _, fn := range delFns {
		fn()
	}
}

// broadcastProperties updates the snapshot and fires every live property
// callback; it also recomputes the property-link dependency graph so newly
// added/removed links are tracked.
func (s *Session) broadcastProperties(ctx context.Context, st *propState, raw map[string]interface{}) {
	decoded, err := s.GetProperties(ctx, st.resolvedPath)
	if err != nil {
		decoded = raw
	}

	st.mu.Lock()
	st.snapshot = decoded
	callbacks := make(map[uint64]PropertyCallback, len(st.propCallbacks))
	for id, fn := range st.propCallbacks {
		callbacks[id] = fn
	}
	st.mu.Unlock()

	s.recomputeLinks(ctx, st)

	for id, fn := range callbacks {
		if err := safeCallProperty(st, fn, decoded); err == ErrCancelWatch {
			st.mu.Lock()
			delete(st.propCallbacks, id)
			st.mu.Unlock()
		} else if err != nil {
			st.mu.Lock()
			delete(st.propCallbacks, id)
			st.mu.Unlock()
		}
	}
}

// recomputeLinks implements the PropertiesObserver's linked-observer
// housekeeping: acquire a child observer for every currently-referenced
// property-link target, and release any no-longer-referenced ones.
func (s *Session) recomputeLinks(ctx context.Context, st *propState) {
	raw, err := s.rawProperties(ctx, st.resolvedPath)
	if err != nil {
		return
	}

	wanted := map[string]string{} // resolved target path -> link key, for logging only
	for key, value := range raw {
		_, isPropLink := ptree.StripPropertyLinkSuffix(key)
		if !isPropLink {
			continue
		}
		str, ok := value.(string)
		if !ok {
			continue
		}
		link, err := ptree.ParsePropertyLinkValue(key, str, key)
		if err != nil {
			continue
		}
		target := ptree.ResolveRelative(st.resolvedPath, link.Path)
		resolved, err := s.Resolve(ctx, target)
		if err != nil {
			continue
		}
		wanted[resolved] = key
	}

	st.mu.Lock()
	toAdd := []string{}
	for target := range wanted {
		if _, ok := st.linked[target]; !ok {
			toAdd = append(toAdd, target)
		}
	}
	toRemove := []string{}
	for target := range st.linked {
		if _, ok := wanted[target]; !ok {
			toRemove = append(toRemove, target)
		}
	}
	st.mu.Unlock()

	for _, target := range toRemove {
		st.mu.Lock()
		child := st.linked[target]
		delete(st.linked, target)
		st.mu.Unlock()
		if child != nil {
			child.Close()
		}
	}

	for _, target := range toAdd {
		child, err := s.Properties(ctx, target)
		if err != nil {
			continue
		}
		st.mu.Lock()
		st.linked[target] = child
		st.mu.Unlock()

		// Any change to the linked target re-fires our own observers,
		// with the view changed but our own raw data unchanged.
		child.Subscribe(func(map[string]interface{}) error {
			s.refireFromLink(ctx, st)
			return nil
		})

		// The link target may be deleted and resurrected elsewhere under
		// the same name, so a deletion re-applies our raw data to rebuild
		// the whole link graph rather than just refiring the old view.
		child.OnDelete(func() {
			s.recomputeLinks(ctx, st)
			s.refireFromLink(ctx, st)
		})
	}
}

func (s *Session) refireFromLink(ctx context.Context, st *propState) {
	decoded, err := s.GetProperties(ctx, st.resolvedPath)
	if err != nil {
		return
	}
	st.mu.Lock()
	st.snapshot = decoded
	callbacks := make(map[uint64]PropertyCallback, len(st.propCallbacks))
	for id, fn := range st.propCallbacks {
		callbacks[id] = fn
	}
	st.mu.Unlock()

	for id, fn := range callbacks {
		if err := safeCallProperty(st, fn, decoded); err != nil {
			st.mu.Lock()
			delete(st.propCallbacks, id)
			st.mu.Unlock()
		}
	}
}

// --- ChildrenObserver ---------------------------------------------------

type childState struct {
	mu sync.Mutex

	sess         *Session
	originalPath string
	resolvedPath string
	snapshot     []string
	deleted      bool

	callbacks map[uint64]ChildrenCallback
	delCbs    map[uint64]DeletionCallback
	nextCbID  uint64
}

// ChildrenObserver is a long-lived handle presenting a cached snapshot of a
// resolved path's child names, with callbacks on child-set changes and on
// deletion of the watched node.
type ChildrenObserver struct {
	entry *watch.Entry
}

func (o *ChildrenObserver) state() *childState {
	v := o.entry.Value()
	if v == nil {
		return nil
	}
	return v.(*childState)
}

// Current returns the observer's cached child-name snapshot.
func (o *ChildrenObserver) Current() []string {
	st := o.state()
	if st == nil {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]string, len(st.snapshot))
	copy(out, st.snapshot)
	return out
}

// Subscribe registers fn for every future live update, immediately invoking
// it once with the current snapshot.
func (o *ChildrenObserver) Subscribe(fn ChildrenCallback) *Subscription {
	st := o.state()
	if st == nil {
		return &Subscription{}
	}

	cur := o.Current()
	if err := safeCallChildren(st, fn, cur); err != nil {
		return &Subscription{}
	}

	st.mu.Lock()
	id := st.nextCbID
	st.nextCbID++
	st.callbacks[id] = fn
	st.mu.Unlock()

	return &Subscription{cancel: func() {
		st.mu.Lock()
		delete(st.callbacks, id)
		st.mu.Unlock()
	}}
}

// OnDelete registers fn to be called with no argument when the node is
// deleted.
func (o *ChildrenObserver) OnDelete(fn DeletionCallback) *Subscription {
	st := o.state()
	if st == nil {
		fn()
		return &Subscription{}
	}
	st.mu.Lock()
	id := st.nextCbID
	st.nextCbID++
	st.delCbs[id] = fn
	alreadyDeleted := st.deleted
	st.mu.Unlock()

	if alreadyDeleted {
		fn()
	}

	return &Subscription{cancel: func() {
		st.mu.Lock()
		delete(st.delCbs, id)
		st.mu.Unlock()
	}}
}

// Close releases this observer's registration immediately.
func (o *ChildrenObserver) Close() { o.entry.Close() }

func safeCallChildren(st *childState, fn ChildrenCallback, children []string) error {
	err := fn(children)
	if err == ErrCancelWatch {
		st.sess.log.Debugw("children callback cancelled itself", "path", st.originalPath)
	} else if err != nil {
		st.sess.log.Errorw("children callback failed", "path", st.originalPath, "error", err)
	}
	return err
}

// ChildrenObserver returns a live ChildrenObserver bound to path's resolved
// location. It blocks until an initial snapshot is available.
func (s *Session) ChildrenObserver(ctx context.Context, path string) (*ChildrenObserver, error) {
	resolved, err := s.Resolve(ctx, path)
	if err != nil {
		return nil, err
	}

	children, err := s.client.Children(ctx, resolved)
	if err != nil {
		return nil, err
	}

	st := &childState{
		sess:         s,
		originalPath: path,
		resolvedPath: resolved,
		snapshot:     children,
		callbacks:    map[uint64]ChildrenCallback{},
		delCbs:       map[uint64]DeletionCallback{},
	}

	key := watch.Key{Kind: watch.KindChildren, Path: resolved}
	entry, _ := s.registry.Add(key, st)
	obs := &ChildrenObserver{entry: entry}

	s.armChildrenWatch(ctx, st)

	return obs, nil
}

func (s *Session) armChildrenWatch(ctx context.Context, st *childState) {
	children, ch, err := s.client.ChildrenW(ctx, st.resolvedPath)
	if err != nil {
		if lowlevel.IsNoNode(err) {
			s.markChildrenDeleted(st)
		} else {
			s.log.Errorw("children watch dropped: arming failed", "path", st.resolvedPath, "error", err)
		}
		return
	}
	st.mu.Lock()
	st.snapshot = children
	st.mu.Unlock()

	go s.watchChildrenLoop(st, ch)
}

func (s *Session) watchChildrenLoop(st *childState, ch <-chan lowlevel.Event) {
	ev, ok := <-ch
	if !ok {
		return
	}

	ctx := context.Background()

	if ev.Kind == lowlevel.EventNodeDeleted {
		s.handleChildrenDeletion(ctx, st)
		return
	}

	children, nextCh, err := s.client.ChildrenW(ctx, st.resolvedPath)
	if err != nil {
		if lowlevel.IsNoNode(err) {
			s.handleChildrenDeletion(ctx, st)
			return
		}
		s.log.Errorw("failed to re-arm children watch", "path", st.resolvedPath, "error", err)
		return
	}

	s.broadcastChildren(st, children)
	s.watchChildrenLoop(st, nextCh)
}

func (s *Session) handleChildrenDeletion(ctx context.Context, st *childState) {
	resolved, err := s.Resolve(ctx, st.originalPath)
	if err != nil {
		s.markChildrenDeleted(st)
		return
	}
	st.mu.Lock()
	st.resolvedPath = resolved
	st.mu.Unlock()
	s.armChildrenWatch(ctx, st)
}

func (s *Session) markChildrenDeleted(st *childState) {
	st.mu.Lock()
	if st.deleted {
		st.mu.Unlock()
		return
	}
	st.deleted = true
	delFns := make([]DeletionCallback, 0, len(st.delCbs))
	for _, fn := range st.delCbs {
		delFns = append(delFns, fn)
	}
	st.mu.Unlock()

	for _, fn := range delFns {
		fn()
	}
}

func (s *Session) broadcastChildren(st *childState, children []string) {
	st.mu.Lock()
	st.snapshot = children
	callbacks := make(map[uint64]ChildrenCallback, len(st.callbacks))
	for id, fn := range st.callbacks {
		callbacks[id] = fn
	}
	st.mu.Unlock()

	for id, fn := range callbacks {
		if err := safeCallChildren(st, fn, children); err != nil {
			st.mu.Lock()
			delete(st.callbacks, id)
			st.mu.Unlock()
		}
	}
}

// rearmWatches implements §4.4's post-LOST obligation: re-resolve every
// observer's original path, attach a new primitive watch, and deliver a
// one-shot notification to each observer whose snapshot differs from the
// post-reconnect value. It is the second half of recoverFromLoss, run only
// after ephemeral restoration completes.
//
// It reads a non-destructive Snapshot rather than Clear, and moves each item
// to its (possibly new) resolved-path Key with Rekey once rearmed. Rekey
// preserves the item's id, so any *watch.Entry a caller already holds
// keeps resolving to the same payload throughout — unlike popping the
// payload out and re-Add-ing it, which would mint a new id that the
// caller's existing Entry has no way to learn about.
func (s *Session) rearmWatches(ctx context.Context) {
	for _, item := range s.registry.Snapshot() {
		switch st := item.Payload.(type) {
		case *propState:
			s.rearmOneProperties(ctx, item.ID, st)
		case *childState:
			s.rearmOneChildren(ctx, item.ID, st)
		}
	}
}

func (s *Session) rearmOneProperties(ctx context.Context, id uint64, st *propState) {
	resolved, err := s.Resolve(ctx, st.originalPath)
	if err != nil {
		s.markPropertiesDeleted(st)
		return
	}

	st.mu.Lock()
	st.resolvedPath = resolved
	old := st.snapshot
	st.mu.Unlock()

	s.registry.Rekey(id, watch.Key{Kind: watch.KindProperties, Path: resolved})

	s.armPropertiesWatch(ctx, st)
	s.recomputeLinks(ctx, st)

	st.mu.Lock()
	updated := st.snapshot
	st.mu.Unlock()

	if !reflect.DeepEqual(old, updated) {
		s.broadcastProperties(ctx, st, updated)
	}
}

func (s *Session) rearmOneChildren(ctx context.Context, id uint64, st *childState) {
	resolved, err := s.Resolve(ctx, st.originalPath)
	if err != nil {
		s.markChildrenDeleted(st)
		return
	}

	st.mu.Lock()
	st.resolvedPath = resolved
	old := st.snapshot
	st.mu.Unlock()

	s.registry.Rekey(id, watch.Key{Kind: watch.KindChildren, Path: resolved})

	s.armChildrenWatch(ctx, st)

	st.mu.Lock()
	updated := st.snapshot
	st.mu.Unlock()

	if !reflect.DeepEqual(old, updated) {
		s.broadcastChildren(st, updated)
	}
}
