// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package util

import (
	"errors"
	"fmt"
)

// Applet command tags.
const (
	TagInvoke = 0x40 // Non-secure -> applet
	TagResult = 0x41 // applet -> Non-secure
	TagQuit   = 0x7F
)

var ErrUnexpectedTag = errors.New("unexpected TLV tag")

// InvokeRequest is the decoded value of a TagInvoke frame.
type InvokeRequest struct {
	CommandID int32
	Input     []byte
}

// InvokeResult is the decoded value of a TagResult frame.
type InvokeResult struct {
	Status   uint32
	Response []byte
}

func pack(tag byte, header any, body []byte) (*TLV, error) {
	buffer := CreateSerializer()
	if _, err := Serialize(buffer, header); err != nil {
		return nil, err
	}
	buffer.Write(body)

	return TLV_pack(tag, false, buffer.Bytes())
}

// checkFrame checks tag and length consistency of a frame.
func checkFrame(tlv *TLV, tag byte) error {
	if tlv == nil {
		return fmt.Errorf("%w: nil frame", ErrShortFrame)
	}
	if TLV_embedded(tlv) {
		return fmt.Errorf("%w: embedded frame %#x", ErrUnexpectedTag, tlv.Tag)
	}
	if tlv.Tag != tag {
		return fmt.Errorf("%w: got %#x, want %#x", ErrUnexpectedTag, tlv.Tag, tag)
	}
	if int(tlv.Length) != len(tlv.Value) {
		return fmt.Errorf("%w: length %d, value %d bytes", ErrShortFrame, tlv.Length, len(tlv.Value))
	}
	return nil
}

// PackInvoke frames a command for the applet.
func PackInvoke(commandID int32, input []byte) (*TLV, error) {
	return pack(TagInvoke, commandID, input)
}

func UnpackInvoke(tlv *TLV) (*InvokeRequest, error) {
	if err := checkFrame(tlv, TagInvoke); err != nil {
		return nil, err
	}

	req := &InvokeRequest{}
	if err := Deserialize(CreateDeserializer(tlv.Value), &req.CommandID); err != nil {
		return nil, fmt.Errorf("%w: command id: %v", ErrShortFrame, err)
	}

	if rest := tlv.Value[4:]; len(rest) > 0 {
		req.Input = make([]byte, len(rest))
		copy(req.Input, rest)
	}
	return req, nil
}

// PackResult frames an applet status and response buffer.
func PackResult(status uint32, response []byte) (*TLV, error) {
	return pack(TagResult, status, response)
}

func UnpackResult(tlv *TLV) (*InvokeResult, error) {
	if err := checkFrame(tlv, TagResult); err != nil {
		return nil, err
	}

	res := &InvokeResult{}
	if err := Deserialize(CreateDeserializer(tlv.Value), &res.Status); err != nil {
		return nil, fmt.Errorf("%w: status: %v", ErrShortFrame, err)
	}

	rest := tlv.Value[4:]
	res.Response = make([]byte, len(rest))
	copy(res.Response, rest)
	return res, nil
}

// PackQuit returns the frame that stops the applet command loop.
func PackQuit() *TLV {
	return &TLV{Tag: TagQuit}
}

func IsQuit(tlv *TLV) bool {
	return tlv != nil && tlv.Tag == TagQuit
}
