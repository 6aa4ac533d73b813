// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package gotee

import (
	"context"
	"errors"
	"fmt"

	"github.com/usbarmory/GoTEE-bist/bist"
	"github.com/usbarmory/GoTEE-bist/internal/channel"
	"github.com/usbarmory/GoTEE-bist/util"
)

// RPC represents the receiver for user mode <--> system RPC over system
// calls issued by the trusted applet.
type RPC struct {
	Broker *channel.Broker
}

// Echo returns a response with the input string.
func (r *RPC) Echo(in string, out *string) error {
	*out = in
	return nil
}

func (r *RPC) CheckChannel(_ *bool, ready *bool) error {
	*ready = r.Broker.CommandReady()
	return nil
}

func (r *RPC) PopChannel(_ *bool, s_tlv *util.TLV) error {
	if s_tlv == nil {
		return errors.New("invalid TLV pointer")
	}

	tlv, err := r.Broker.PopCommand(context.Background())
	if err != nil {
		return err
	}

	*s_tlv = *tlv
	return nil
}

func (r *RPC) SendResponse(rsp *util.TLV, _ *bool) error {
	if rsp == nil {
		return errors.New("invalid TLV pointer")
	}

	return r.Broker.PushResponse(rsp)
}

// submit queues a Non-secure command for the applet. A command that cannot
// be queued is answered with a failure result, so the caller polling for
// a response is not left waiting.
func submit(b *channel.Broker, cmd *util.TLV) error {
	err := b.PushCommand(cmd)
	if err == nil {
		return nil
	}

	rsp, perr := util.PackResult(uint32(bist.Failure), bist.FailureResponse())
	if perr != nil {
		return errors.Join(err, perr)
	}

	if perr = b.PushResponse(rsp); perr != nil {
		return fmt.Errorf("%w, failure result lost: %v", err, perr)
	}

	return err
}
