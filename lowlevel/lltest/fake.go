/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package lltest provides an in-memory lowlevel.Client, for use only in
// tests. It plays the same role for this module's tests that
// common/mockcfg.MockExec plays for cfgapi consumers: a PTree-shaped fake
// with a Logf hook, extended here with the ACL, ephemeral, version and
// one-shot watch bookkeeping mockcfg's cloud config protocol never needed.
package lltest

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"zktree/lowlevel"

	"github.com/pkg/errors"
)

type node struct {
	data        []byte
	acl         []lowlevel.ACL
	ephemeral   bool
	dataVersion int32
	aclVersion  int32
	children    map[string]*node

	dataWatchers     []chan lowlevel.Event
	childrenWatchers []chan lowlevel.Event
}

func newNode(acl []lowlevel.ACL) *node {
	return &node{
		acl:      acl,
		children: map[string]*node{},
	}
}

// Fake is an in-memory, in-process lowlevel.Client backed by a tree of
// nodes held entirely in heap memory. It never performs network I/O, and
// its Logf hook (a no-op func by default) mirrors mockcfg.MockExec's own
// no-op default logger.
type Fake struct {
	mu    sync.Mutex
	root  *node
	state chan lowlevel.State
	Logf  func(format string, args ...interface{})
}

// NewFake returns a Fake with only the root node present.
func NewFake() *Fake {
	f := &Fake{
		root:  newNode(lowlevel.WorldACL()),
		state: make(chan lowlevel.State, 8),
		Logf:  func(string, ...interface{}) {},
	}
	f.state <- lowlevel.StateConnected
	return f
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func (f *Fake) lookup(path string) (*node, bool) {
	n := f.root
	for _, seg := range split(path) {
		child, ok := n.children[seg]
		if !ok {
			return nil, false
		}
		n = child
	}
	return n, true
}

func (f *Fake) lookupParent(path string) (*node, string, error) {
	segs := split(path)
	if len(segs) == 0 {
		return nil, "", &lowlevel.BadArgumentsError{Path: path}
	}
	n := f.root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := n.children[seg]
		if !ok {
			return nil, "", &lowlevel.NoNodeError{Path: path}
		}
		n = child
	}
	return n, segs[len(segs)-1], nil
}

// Exists implements lowlevel.Client.
func (f *Fake) Exists(ctx context.Context, path string) (bool, *lowlevel.Stat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if path == "/" || path == "" {
		return true, statOf(f.root), nil
	}
	n, ok := f.lookup(path)
	if !ok {
		return false, nil, nil
	}
	return true, statOf(n), nil
}

func statOf(n *node) *lowlevel.Stat {
	return &lowlevel.Stat{
		DataVersion: n.dataVersion,
		ACLVersion:  n.aclVersion,
		Ephemeral:   n.ephemeral,
	}
}

// Create implements lowlevel.Client.
func (f *Fake) Create(ctx context.Context, path string, data []byte, acl []lowlevel.ACL, ephemeral bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	parent, name, err := f.lookupParent(path)
	if err != nil {
		return err
	}
	if _, exists := parent.children[name]; exists {
		return &lowlevel.NodeExistsError{Path: path}
	}
	n := newNode(acl)
	n.data = data
	n.ephemeral = ephemeral
	parent.children[name] = n
	f.Logf("lltest: created %s (ephemeral=%v)", path, ephemeral)
	return nil
}

// Delete implements lowlevel.Client.
func (f *Fake) Delete(ctx context.Context, path string, version int32) error {
	f.mu.Lock()
	n, parent, name, err := f.resolveForWrite(path, version, false)
	if err != nil {
		f.mu.Unlock()
		return err
	}
	if len(n.children) > 0 {
		f.mu.Unlock()
		return &lowlevel.NotEmptyError{Path: path}
	}
	delete(parent.children, name)
	watchers := n.dataWatchers
	childWatchers := n.childrenWatchers
	f.mu.Unlock()

	fireAll(watchers, lowlevel.Event{Kind: lowlevel.EventNodeDeleted, Path: path})
	fireAll(childWatchers, lowlevel.Event{Kind: lowlevel.EventNodeDeleted, Path: path})
	return nil
}

// resolveForWrite looks up path and checks the optimistic version, without
// checking child emptiness (the one case Delete needs that Set/SetACL
// don't).
func (f *Fake) resolveForWrite(path string, version int32, acl bool) (*node, *node, string, error) {
	parent, name, err := f.lookupParent(path)
	if err != nil {
		return nil, nil, "", err
	}
	n, ok := parent.children[name]
	if !ok {
		return nil, nil, "", &lowlevel.NoNodeError{Path: path}
	}
	if version >= 0 {
		have := n.dataVersion
		if acl {
			have = n.aclVersion
		}
		if have != version {
			return nil, nil, "", &lowlevel.BadVersionError{Path: path}
		}
	}
	return n, parent, name, nil
}

// Get implements lowlevel.Client.
func (f *Fake) Get(ctx context.Context, path string) ([]byte, *lowlevel.Stat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.lookup(path)
	if !ok {
		return nil, nil, &lowlevel.NoNodeError{Path: path}
	}
	return n.data, statOf(n), nil
}

// Set implements lowlevel.Client.
func (f *Fake) Set(ctx context.Context, path string, data []byte, version int32) (*lowlevel.Stat, error) {
	f.mu.Lock()
	n, _, _, err := f.resolveForWrite(path, version, false)
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}
	n.data = data
	n.dataVersion++
	stat := statOf(n)
	watchers := n.dataWatchers
	n.dataWatchers = nil
	f.mu.Unlock()

	fireAll(watchers, lowlevel.Event{Kind: lowlevel.EventNodeDataChanged, Path: path})
	return stat, nil
}

// Children implements lowlevel.Client.
func (f *Fake) Children(ctx context.Context, path string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.lookup(path)
	if !ok {
		return nil, &lowlevel.NoNodeError{Path: path}
	}
	out := make([]string, 0, len(n.children))
	for name := range n.children {
		out = append(out, name)
	}
	return out, nil
}

// GetACL implements lowlevel.Client.
func (f *Fake) GetACL(ctx context.Context, path string) ([]lowlevel.ACL, *lowlevel.Stat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.lookup(path)
	if !ok {
		return nil, nil, &lowlevel.NoNodeError{Path: path}
	}
	return n.acl, statOf(n), nil
}

// SetACL implements lowlevel.Client.
func (f *Fake) SetACL(ctx context.Context, path string, acl []lowlevel.ACL, version int32) (*lowlevel.Stat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, _, _, err := f.resolveForWrite(path, version, true)
	if err != nil {
		return nil, err
	}
	n.acl = acl
	n.aclVersion++
	return statOf(n), nil
}

// GetW implements lowlevel.Client: it arms a one-shot data watch before
// returning, matching the real driver's "read and watch in the same round
// trip" guarantee.
func (f *Fake) GetW(ctx context.Context, path string) ([]byte, *lowlevel.Stat, <-chan lowlevel.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.lookup(path)
	if !ok {
		return nil, nil, nil, &lowlevel.NoNodeError{Path: path}
	}
	ch := make(chan lowlevel.Event, 1)
	n.dataWatchers = append(n.dataWatchers, ch)
	return n.data, statOf(n), ch, nil
}

// ChildrenW implements lowlevel.Client.
func (f *Fake) ChildrenW(ctx context.Context, path string) ([]string, <-chan lowlevel.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.lookup(path)
	if !ok {
		return nil, nil, &lowlevel.NoNodeError{Path: path}
	}
	out := make([]string, 0, len(n.children))
	for name := range n.children {
		out = append(out, name)
	}
	ch := make(chan lowlevel.Event, 1)
	n.childrenWatchers = append(n.childrenWatchers, ch)
	return out, ch, nil
}

// State implements lowlevel.Client.
func (f *Fake) State() <-chan lowlevel.State {
	return f.state
}

// Close implements lowlevel.Client.
func (f *Fake) Close() error {
	return nil
}

func fireAll(chs []chan lowlevel.Event, ev lowlevel.Event) {
	for _, ch := range chs {
		ch <- ev
		close(ch)
	}
}

// --- Test-only driving hooks --------------------------------------------

// SetState injects a session-state transition, for exercising reconnect
// logic (SUSPENDED/LOST/CONNECTED) without a real network.
func (f *Fake) SetState(st lowlevel.State) {
	f.state <- st
}

// TriggerChildrenChanged fires every armed children watch at path with an
// EventNodeChildrenChanged event, as a real driver would on an actual
// child-set mutation.
func (f *Fake) TriggerChildrenChanged(path string) error {
	f.mu.Lock()
	n, ok := f.lookup(path)
	if !ok {
		f.mu.Unlock()
		return &lowlevel.NoNodeError{Path: path}
	}
	watchers := n.childrenWatchers
	n.childrenWatchers = nil
	f.mu.Unlock()

	fireAll(watchers, lowlevel.Event{Kind: lowlevel.EventNodeChildrenChanged, Path: path})
	return nil
}

// CreateString is a convenience for tests: Create a node whose decoded
// properties are {"string_value": value}. The payload is written as that
// JSON object, not as the raw text ptree.Encode would write for the same
// mapping; both forms decode to the same properties.
func (f *Fake) CreateString(path, value string) error {
	b, err := json.Marshal(map[string]string{"string_value": value})
	if err != nil {
		return errors.Wrap(err, "lltest: marshal")
	}
	return f.Create(context.Background(), path, b, lowlevel.WorldACL(), false)
}
