// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package util

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const embedBit = 0x80

var ErrShortFrame = errors.New("short TLV frame")

type TLV struct {
	Tag    byte
	Length uint16
	Value  []byte
}

// Serialization Functions
func CreateSerializer() *bytes.Buffer {
	var buffer bytes.Buffer
	return &buffer
}

func Serialize(buffer *bytes.Buffer, value any) ([]byte, error) {
	if err := binary.Write(buffer, binary.BigEndian, value); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func TLV_serialize(buffer *bytes.Buffer, tlv *TLV) ([]byte, error) {
	if _, err := Serialize(buffer, tlv.Tag); err != nil {
		return nil, err
	}
	if _, err := Serialize(buffer, tlv.Length); err != nil {
		return nil, err
	}
	if len(tlv.Value) == 0 {
		return buffer.Bytes(), nil
	}
	return Serialize(buffer, tlv.Value)
}

// Deserialization Functions
func CreateDeserializer(buffer []byte) *bytes.Reader {
	return bytes.NewReader(buffer)
}

func Deserialize(reader *bytes.Reader, value any) error {
	if err := binary.Read(reader, binary.BigEndian, value); err != nil {
		return err
	}
	return nil
}

func TLV_deserialize(reader *bytes.Reader) (*TLV, error) {
	var tlv TLV

	if err := Deserialize(reader, &tlv.Tag); err != nil {
		return nil, fmt.Errorf("%w: tag: %v", ErrShortFrame, err)
	}
	if err := Deserialize(reader, &tlv.Length); err != nil {
		return nil, fmt.Errorf("%w: length: %v", ErrShortFrame, err)
	}
	if int(tlv.Length) > reader.Len() {
		return nil, fmt.Errorf("%w: want %d value bytes, have %d", ErrShortFrame, tlv.Length, reader.Len())
	}

	if tlv.Length == 0 {
		return &tlv, nil
	}

	tlv.Value = make([]byte, tlv.Length)
	if err := Deserialize(reader, tlv.Value); err != nil {
		return nil, fmt.Errorf("%w: value: %v", ErrShortFrame, err)
	}
	return &tlv, nil
}

// TLV Code
func TLV_pack(tag byte, embed bool, value any) (*TLV, error) {
	if tag&embedBit != 0 {
		return nil, fmt.Errorf("tlv embed tag bit already set")
	}

	if embed {
		tag |= embedBit
	}

	buffer := CreateSerializer()
	payload, err := Serialize(buffer, value)
	if err != nil {
		return nil, err
	}
	if len(payload) > math.MaxUint16 {
		return nil, fmt.Errorf("tlv value too long (%d bytes)", len(payload))
	}
	length := uint16(len(payload))
	return &TLV{Tag: tag, Length: length, Value: payload}, nil
}

func TLV_embedded(tlv *TLV) bool {
	return (tlv.Tag & embedBit) > 0
}
