/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package registrar

import (
	"context"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"zktree/lowlevel"
	"zktree/ptree"
)

// RegisteringFunc is notified of a pending registration before its
// properties are written, so it may augment the mapping (add a version
// string, a health-check URL, whatever the caller's deployment wants
// advertised alongside the address).
type RegisteringFunc func(addr, path string, props map[string]interface{})

// Registrar writes ephemeral self-registration nodes against a Store.
type Registrar struct {
	store Store
	log   *zap.SugaredLogger

	mu        sync.Mutex
	observers []RegisteringFunc
}

// New builds a Registrar. A nil logger defaults to a no-op one.
func New(store Store, log *zap.SugaredLogger) *Registrar {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Registrar{store: store, log: log}
}

// OnRegistering subscribes fn to fire, in registration order, before every
// future Register call writes its node.
func (r *Registrar) OnRegistering(fn RegisteringFunc) {
	r.mu.Lock()
	r.observers = append(r.observers, fn)
	r.mu.Unlock()
}

// Register writes one ephemeral child of path per address addr expands to.
// addr is a "host:port" string; a blank host expands to one child per
// non-loopback IPv4 interface address (falling back to loopback addresses,
// then to the host's own FQDN, if neither yields a usable set). Every
// written node carries the registering process's pid and a default
// world-read ACL, after every OnRegistering subscriber has had a chance to
// add to props.
func (r *Registrar) Register(ctx context.Context, path, addr string, props map[string]interface{}) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return errors.Wrapf(err, "registrar: bad address %q", addr)
	}
	if _, err := strconv.Atoi(port); err != nil {
		return &lowlevel.BadArgumentsError{Path: addr}
	}

	resolvedPath, err := r.store.Resolve(ctx, path)
	if err != nil {
		return err
	}

	hosts, err := r.expandHost(host)
	if err != nil {
		return err
	}

	r.mu.Lock()
	observers := append([]RegisteringFunc(nil), r.observers...)
	r.mu.Unlock()

	for _, h := range hosts {
		full := net.JoinHostPort(h, port)

		nodeProps := map[string]interface{}{}
		for k, v := range props {
			nodeProps[k] = v
		}
		nodeProps["pid"] = os.Getpid()

		for _, obs := range observers {
			obs(full, resolvedPath, nodeProps)
		}

		data, err := ptree.Encode(nodeProps)
		if err != nil {
			return err
		}

		childPath := ptree.Child(resolvedPath, full)
		if err := r.store.Create(ctx, childPath, data, lowlevel.WorldACL(), true); err != nil {
			return err
		}
		r.log.Infow("registered", "path", childPath)
	}
	return nil
}

// RegisterServer is an alias for Register.
func (r *Registrar) RegisterServer(ctx context.Context, path, addr string, props map[string]interface{}) error {
	return r.Register(ctx, path, addr, props)
}

// expandHost implements the blank-host expansion rule: every non-loopback
// IPv4 interface address; loopback addresses if there are none; the host's
// FQDN if interface enumeration itself is unavailable.
func (r *Registrar) expandHost(host string) ([]string, error) {
	if host != "" {
		return []string{host}, nil
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		r.log.Warnw("interface enumeration unavailable, falling back to hostname", "error", err)
		return r.fqdnFallback()
	}

	var nonLoopback, loopback []string
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipNet.IP.To4()
		if ip4 == nil {
			continue
		}
		if ipNet.IP.IsLoopback() {
			loopback = append(loopback, ip4.String())
		} else {
			nonLoopback = append(nonLoopback, ip4.String())
		}
	}

	if len(nonLoopback) > 0 {
		return nonLoopback, nil
	}
	if len(loopback) > 0 {
		return loopback, nil
	}
	return r.fqdnFallback()
}

func (r *Registrar) fqdnFallback() ([]string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.Wrap(err, "registrar: no usable IPv4 address and hostname unavailable")
	}
	return []string{hostname}, nil
}
