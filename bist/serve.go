// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bist

import (
	"log"

	"github.com/usbarmory/GoTEE-bist/util"
)

// Channel carries frames between the host runtime and the applet.
type Channel interface {
	// Wait blocks until the next command frame is available.
	Wait() (*util.TLV, error)
	Respond(rsp *util.TLV) error
}

// Serve runs the applet command loop on ch until a quit frame is received
// or the channel fails.
func Serve(ch Channel) error {
	var h Handler

	for {
		cmd, err := ch.Wait()
		if err != nil {
			return err
		}

		if util.IsQuit(cmd) {
			return nil
		}

		status, rsp := h.handleFrame(cmd)

		res, err := util.PackResult(uint32(status), rsp)
		if err != nil {
			return err
		}

		if err = ch.Respond(res); err != nil {
			return err
		}
	}
}

func (h Handler) handleFrame(cmd *util.TLV) (Status, []byte) {
	req, err := util.UnpackInvoke(cmd)
	if err != nil {
		log.Printf("[APPLET] answering malformed command with failure: %v", err)
		return Failure, markerFailure()
	}

	var buf Buffer
	status, outcome := h.InvokeDetailed(req.CommandID, req.Input, &buf)

	log.Printf("[APPLET] command:%d len:%d status:%s (%s)", req.CommandID, len(req.Input), status, outcome)

	return status, buf.Response
}
