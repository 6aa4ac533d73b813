// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package dal emulates the host applet runtime: applet install and
// uninstall, sessions, and command round trips to an applet running its
// command loop on a dedicated goroutine.
package dal

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/usbarmory/GoTEE-bist/bist"
	"github.com/usbarmory/GoTEE-bist/internal/channel"
	"github.com/usbarmory/GoTEE-bist/util"
)

// BistAppID identifies the BIST applet.
const BistAppID = "00000000000000000000000000000001"

const appIDLen = 32

// ServeFunc runs an applet command loop until quit or channel failure.
type ServeFunc func(ch bist.Channel) error

type installed struct {
	digest [blake2b.Size256]byte
}

type session struct {
	handle uint64
	appID  string
	broker *channel.Broker

	// closed when the applet command loop returns, err holds its result
	done chan struct{}
	err  error

	// one command in flight per session
	mu sync.Mutex
}

// Runtime hosts installed applets and their open sessions.
type Runtime struct {
	mu         sync.Mutex
	applets    map[string]ServeFunc
	installed  map[string]installed
	sessions   map[uint64]*session
	nextHandle uint64
}

// NewRuntime returns a runtime that knows the BIST applet.
func NewRuntime() *Runtime {
	r := &Runtime{
		applets:   make(map[string]ServeFunc),
		installed: make(map[string]installed),
		sessions:  make(map[uint64]*session),
	}

	r.Register(BistAppID, bist.Serve)
	return r
}

// Register makes an applet implementation available for install under
// appID.
func (r *Runtime) Register(appID string, serve ServeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.applets[appID] = serve
}

func validAppID(appID string) bool {
	if len(appID) != appIDLen {
		return false
	}
	_, err := hex.DecodeString(appID)
	return err == nil
}

func (r *Runtime) openSessions(appID string) int {
	n := 0
	for _, s := range r.sessions {
		if s.appID == appID {
			n++
		}
	}
	return n
}

// Install loads an applet package under appID.
func (r *Runtime) Install(appID string, pkg []byte) error {
	const op = "install"

	if !validAppID(appID) {
		return newError(op, StatusInvalidUUID)
	}
	if len(pkg) == 0 {
		return newError(op, StatusInvalidPackage)
	}

	digest := blake2b.Sum256(pkg)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.applets[appID]; !ok {
		return newError(op, StatusInvalidPackage)
	}

	if cur, ok := r.installed[appID]; ok && cur.digest == digest {
		return newError(op, StatusIdenticalPackage)
	}

	if r.openSessions(appID) > 0 {
		return newError(op, StatusSessionsExist)
	}

	r.installed[appID] = installed{digest: digest}
	log.Printf("[DAL] installed applet %s digest:%x", appID, digest[:8])

	return nil
}

// Uninstall removes an installed applet without open sessions.
func (r *Runtime) Uninstall(appID string) error {
	const op = "uninstall"

	if !validAppID(appID) {
		return newError(op, StatusInvalidUUID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.installed[appID]; !ok {
		return newError(op, StatusTADoesNotExist)
	}

	if r.openSessions(appID) > 0 {
		return newError(op, StatusSessionsExist)
	}

	delete(r.installed, appID)
	log.Printf("[DAL] uninstalled applet %s", appID)

	return nil
}

// wire carries a frame across the session boundary as bytes, the way the
// monitor copies it between worlds.
func wire(tlv *util.TLV) (*util.TLV, error) {
	raw, err := util.TLV_serialize(util.CreateSerializer(), tlv)
	if err != nil {
		return nil, err
	}
	return util.TLV_deserialize(util.CreateDeserializer(raw))
}

// appletChannel is the applet end of a session broker.
type appletChannel struct {
	b *channel.Broker
}

func (c appletChannel) Wait() (*util.TLV, error) {
	cmd, err := c.b.PopCommand(context.Background())
	if err != nil {
		return nil, err
	}
	return wire(cmd)
}

func (c appletChannel) Respond(rsp *util.TLV) error {
	rsp, err := wire(rsp)
	if err != nil {
		return fmt.Errorf("response frame: %w", err)
	}
	return c.b.PushResponse(rsp)
}

// CreateSession starts the applet installed under appID and returns the
// session handle. When pkg is not empty it must match the installed
// package.
func (r *Runtime) CreateSession(appID string, pkg []byte) (uint64, error) {
	const op = "create session"

	if !validAppID(appID) {
		return 0, newError(op, StatusInvalidUUID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.installed[appID]
	if !ok {
		return 0, newError(op, StatusAppletNotInstalled)
	}

	if len(pkg) > 0 && blake2b.Sum256(pkg) != inst.digest {
		return 0, newError(op, StatusInvalidPackage)
	}

	serve := r.applets[appID]

	r.nextHandle++
	s := &session{
		handle: r.nextHandle,
		appID:  appID,
		broker: channel.NewBroker(channel.DefaultDepth),
		done:   make(chan struct{}),
	}

	go func() {
		s.err = serve(appletChannel{s.broker})
		close(s.done)
	}()

	r.sessions[s.handle] = s
	log.Printf("[DAL] session %d opened for applet %s", s.handle, appID)

	return s.handle, nil
}

func (r *Runtime) session(handle uint64) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[handle]
	return s, ok
}

// drop forgets a session and stops its applet.
func (r *Runtime) drop(s *session) {
	r.mu.Lock()
	delete(r.sessions, s.handle)
	r.mu.Unlock()

	s.broker.Close()
}

// SendAndReceive sends a command to the session applet and returns the
// applet response code and output. Output longer than outLen fails with
// ErrInsufficientBuffer, reporting the required length.
//
// A cancelled ctx aborts the session, as a late response would otherwise be
// delivered to the next command.
func (r *Runtime) SendAndReceive(parent context.Context, handle uint64, commandID int32, input []byte, outLen int) (bist.Status, []byte, error) {
	const op = "send and receive"

	if outLen < 0 {
		return 0, nil, newError(op, StatusInvalidParams)
	}

	s, ok := r.session(handle)
	if !ok {
		return 0, nil, newError(op, StatusInvalidHandle)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cmd, err := util.PackInvoke(commandID, input)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidParams, err)
	}

	if err = s.broker.PushCommand(cmd); err != nil {
		return 0, nil, fmt.Errorf("%s: %w: %v", op, ErrInternal, err)
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	rsp, err := s.broker.PopResponse(ctx)
	if err != nil {
		if parent.Err() != nil {
			log.Printf("[DAL] session %d aborted: %v", handle, err)
			r.drop(s)
			return 0, nil, fmt.Errorf("%s: %w", op, parent.Err())
		}

		select {
		case <-s.done:
			log.Printf("[DAL] session %d applet exited: %v", handle, s.err)
			r.drop(s)
		default:
		}
		return 0, nil, fmt.Errorf("%s: %w: %v", op, ErrInternal, err)
	}

	res, err := util.UnpackResult(rsp)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: %w: %v", op, ErrInternal, err)
	}

	if len(res.Response) > outLen {
		return bist.Status(res.Status), nil, &StatusError{Op: op, Code: StatusInsufficientBuffer, Required: len(res.Response)}
	}

	return bist.Status(res.Status), res.Response, nil
}

// CloseSession stops the session applet and releases the handle.
func (r *Runtime) CloseSession(ctx context.Context, handle uint64) error {
	const op = "close session"

	s, ok := r.session(handle)
	if !ok {
		return newError(op, StatusInvalidHandle)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	defer r.drop(s)

	if err := s.broker.PushCommand(util.PackQuit()); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrInternal, err)
	}

	select {
	case <-s.done:
		if s.err != nil {
			return fmt.Errorf("%s: %w: %v", op, ErrInternal, s.err)
		}
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}

	log.Printf("[DAL] session %d closed", handle)
	return nil
}

// Close aborts all open sessions.
func (r *Runtime) Close() error {
	r.mu.Lock()
	sessions := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := r.CloseSession(context.Background(), s.handle); err != nil && !errors.Is(err, ErrInvalidHandle) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Invoker binds a session to the sample.Invoker interface.
type Invoker struct {
	Runtime *Runtime
	Handle  uint64
	OutLen  int
}

func (i *Invoker) Invoke(ctx context.Context, commandID int32, input []byte) (bist.Status, []byte, error) {
	return i.Runtime.SendAndReceive(ctx, i.Handle, commandID, input, i.OutLen)
}

// HasSession reports whether handle refers to an open session.
func (r *Runtime) HasSession(handle uint64) bool {
	_, ok := r.session(handle)
	return ok
}
