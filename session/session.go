/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package session owns the low-level coordination-service client and
// implements the CORE engineering of this module: the resilient session
// layer (CONNECTED/SUSPENDED/LOST, ephemeral restoration, watch re-arming),
// the property store (linked-property dereference with cycle detection),
// and the children/properties observer types the rest of the module is
// built on. It is grounded on cl_common/clcfg.Configd and
// ap_common/apcfg.APConfig — both own a connection, a reconnect path, and
// regexp-keyed change/delete handler lists — generalized into the
// CONNECTED/SUSPENDED/LOST lifecycle and ephemeral-then-watch reconnect
// ordering a coordination-service session needs but a config client never
// did.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"zktree/lowlevel"
	"zktree/watch"
	"zktree/zaperr"
)

// DefaultSessionTimeout is used when Options.Timeout is zero.
const DefaultSessionTimeout = 10 * time.Second

// Options configures a new Session, matching clcfg.NewConfigd's
// constructor-argument style rather than introducing a config-file layer.
type Options struct {
	// ConnString is the low-level driver's connection string.
	ConnString string

	// Timeout is the session timeout negotiated with the coordination
	// service. Defaults to DefaultSessionTimeout.
	Timeout time.Duration

	// Wait, when true, makes New retry the initial connection
	// indefinitely, logging an error-level message per attempt, instead of
	// failing after the first window.
	Wait bool

	// Logger receives structured session-lifecycle logs. Defaults to a
	// no-op logger, matching mockcfg.MockExec.Logf's default.
	Logger *zap.SugaredLogger

	// Dial constructs the low-level client. Tests supply
	// lltest.Fake-backed dialers; production callers wire a real driver.
	Dial func(ctx context.Context, connString string, timeout time.Duration) (lowlevel.Client, error)
}

type ephemeral struct {
	data []byte
	acl  []lowlevel.ACL
}

// StateObserver is notified of every session state transition.
type StateObserver func(lowlevel.State)

// Session is the public coordination-service client handle. All of its
// exported methods are safe for concurrent use.
type Session struct {
	opts   Options
	log    *zap.SugaredLogger
	client lowlevel.Client

	mu         sync.Mutex
	state      lowlevel.State
	ephemerals map[string]ephemeral
	stateObs   []StateObserver
	afterLost  bool
	closed     bool

	registry *watch.Registry

	wg   sync.WaitGroup
	done chan struct{}
}

// New establishes a session against the coordination service described by
// opts. With opts.Wait false, a failed initial connection attempt returns a
// *lowlevel.FailedConnectError within roughly one second; with opts.Wait
// true it retries indefinitely.
func New(ctx context.Context, opts Options) (*Session, error) {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultSessionTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Dial == nil {
		return nil, errors.New("session: Options.Dial is required")
	}

	s := &Session{
		opts:       opts,
		log:        opts.Logger,
		ephemerals: map[string]ephemeral{},
		registry:   watch.NewRegistry(),
		done:       make(chan struct{}),
	}

	client, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	s.client = client
	s.state = lowlevel.StateConnected

	s.wg.Add(1)
	go s.monitorState()

	return s, nil
}

func (s *Session) connect(ctx context.Context) (lowlevel.Client, error) {
	if !s.opts.Wait {
		dialCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		client, err := s.opts.Dial(dialCtx, s.opts.ConnString, s.opts.Timeout)
		if err != nil {
			return nil, &lowlevel.FailedConnectError{ConnString: s.opts.ConnString}
		}
		return client, nil
	}

	for attempt := 1; ; attempt++ {
		client, err := s.opts.Dial(ctx, s.opts.ConnString, s.opts.Timeout)
		if err == nil {
			return client, nil
		}
		s.log.Errorw("failed to connect, retrying", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff(attempt)):
		}
	}
}

func backoff(attempt int) time.Duration {
	d := time.Duration(attempt) * 200 * time.Millisecond
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

// monitorState watches the underlying client's session-state transitions
// and drives reconnection bookkeeping. It runs for the lifetime of the
// session.
func (s *Session) monitorState() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case st, ok := <-s.client.State():
			if !ok {
				return
			}
			s.handleStateTransition(st)
		}
	}
}

func (s *Session) handleStateTransition(st lowlevel.State) {
	s.mu.Lock()
	prev := s.state
	s.state = st
	if st == lowlevel.StateLost {
		s.afterLost = true
	}
	wasLost := s.afterLost && st == lowlevel.StateConnected
	if wasLost {
		s.afterLost = false
	}
	observers := append([]StateObserver(nil), s.stateObs...)
	s.mu.Unlock()

	s.log.Infow("session state transition", "from", prev, "to", st)

	for _, obs := range observers {
		obs(st)
	}

	if wasLost {
		s.recoverFromLoss()
	}
}

// recoverFromLoss implements §4.4's mandated ordering: ephemeral recreation
// strictly before watch re-establishment.
func (s *Session) recoverFromLoss() {
	ctx := context.Background()
	s.restoreEphemerals(ctx)
	s.rearmWatches(ctx)
}

// restoreEphemerals re-creates every remembered ephemeral node concurrently;
// failures are logged and do not halt the rest of the restoration.
func (s *Session) restoreEphemerals(ctx context.Context) {
	s.mu.Lock()
	snapshot := make(map[string]ephemeral, len(s.ephemerals))
	for p, e := range s.ephemerals {
		snapshot[p] = e
	}
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for path, e := range snapshot {
		path, e := path, e
		g.Go(func() error {
			err := s.client.Create(gctx, path, e.data, e.acl, true)
			if err != nil && !lowlevel.IsNodeExists(err) {
				s.log.Errorw("ephemeral restore failed", "error", zaperr.Errorw(err.Error(),
					"path", path, "bytes", len(e.data), "acl_entries", len(e.acl)))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// StateObserve registers fn to be called on every future state transition.
func (s *Session) StateObserve(fn StateObserver) {
	s.mu.Lock()
	s.stateObs = append(s.stateObs, fn)
	s.mu.Unlock()
}

// Close idempotently tears down the session: the underlying client is
// closed and the monitor goroutine is stopped.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	err := s.client.Close()
	s.wg.Wait()
	return err
}

func (s *Session) rememberEphemeral(path string, data []byte, acl []lowlevel.ACL) {
	s.mu.Lock()
	s.ephemerals[path] = ephemeral{data: data, acl: acl}
	s.mu.Unlock()
}

func (s *Session) forgetEphemeral(path string) {
	s.mu.Lock()
	delete(s.ephemerals, path)
	s.mu.Unlock()
}
