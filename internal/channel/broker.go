// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package channel queues applet command and response frames between the
// Non-secure caller and the trusted applet.
package channel

import (
	"context"
	"errors"
	"sync"

	"github.com/usbarmory/GoTEE-bist/util"
)

const DefaultDepth = 10

var (
	ErrFull   = errors.New("channel full")
	ErrClosed = errors.New("channel closed")
)

// Broker holds the applet command and response queues. Frames are copied
// on the way out so that the receiving side never shares memory with the
// sender.
type Broker struct {
	cmdCh  chan *util.TLV
	rspCh  chan *util.TLV
	closed chan struct{}

	// response taken off rspCh by ResponseLen, not yet collected
	mu      sync.Mutex
	pending *util.TLV

	closeOnce sync.Once
}

func NewBroker(depth int) *Broker {
	if depth <= 0 {
		depth = DefaultDepth
	}

	return &Broker{
		cmdCh:  make(chan *util.TLV, depth),
		rspCh:  make(chan *util.TLV, depth),
		closed: make(chan struct{}),
	}
}

func push(ch chan *util.TLV, closed chan struct{}, tlv *util.TLV) error {
	select {
	case <-closed:
		return ErrClosed
	default:
	}

	select {
	case ch <- tlv:
		return nil
	default:
		return ErrFull
	}
}

func pop(ctx context.Context, ch chan *util.TLV, closed chan struct{}) (*util.TLV, error) {
	select {
	case tlv := <-ch:
		return secureCopy(tlv), nil
	default:
	}

	select {
	case tlv := <-ch:
		return secureCopy(tlv), nil
	case <-closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func secureCopy(tlv *util.TLV) *util.TLV {
	buf := make([]byte, tlv.Length)
	copy(buf, tlv.Value)

	return &util.TLV{
		Tag:    tlv.Tag,
		Length: tlv.Length,
		Value:  buf,
	}
}

func (b *Broker) PushCommand(tlv *util.TLV) error {
	return push(b.cmdCh, b.closed, tlv)
}

func (b *Broker) CommandReady() bool {
	return len(b.cmdCh) > 0
}

func (b *Broker) PopCommand(ctx context.Context) (*util.TLV, error) {
	return pop(ctx, b.cmdCh, b.closed)
}

func (b *Broker) PushResponse(tlv *util.TLV) error {
	return push(b.rspCh, b.closed, tlv)
}

// ResponseLen returns the value length of the next queued response, or 0
// when none is pending. Result frames are never empty.
func (b *Broker) ResponseLen() uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending == nil {
		select {
		case tlv := <-b.rspCh:
			b.pending = tlv
		default:
			return 0
		}
	}

	return b.pending.Length
}

func (b *Broker) PopResponse(ctx context.Context) (*util.TLV, error) {
	b.mu.Lock()
	tlv := b.pending
	b.pending = nil
	b.mu.Unlock()

	if tlv != nil {
		return secureCopy(tlv), nil
	}

	return pop(ctx, b.rspCh, b.closed)
}

// Close wakes up blocked readers, further pushes fail with ErrClosed.
func (b *Broker) Close() {
	b.closeOnce.Do(func() {
		close(b.closed)
	})
}
