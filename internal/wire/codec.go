// Frame encoding and decoding
//
// Copyright (c) 2021  Philip Kaludercic
//
// This file is part of go-kgp.
//
// go-kgp is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.
//
// go-kgp is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public
// License, version 3, along with go-kgp. If not, see
// <http://www.gnu.org/licenses/>

package wire

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrTooLong is returned when a payload would not fit in a frame.
	ErrTooLong = errors.New("wire: payload too long for a frame")
	// ErrShortFrame is returned when a frame is not exactly FrameSize
	// bytes long; a short write/read is a transport error.
	ErrShortFrame = errors.New("wire: frame is not exactly FrameSize bytes")
	// ErrMalformed is returned when a frame's header cannot be parsed.
	ErrMalformed = errors.New("wire: malformed frame header")
)

// Request is a decoded client-to-server message.
type Request struct {
	Type    Type
	Payload []byte
}

// Response is a decoded (or to-be-encoded) server-to-client message.
type Response struct {
	Type    Type
	Error   Code
	Payload []byte
}

// EncodeRequest renders TYP and PAYLOAD as a zero-padded 512-byte frame.
func EncodeRequest(typ Type, payload []byte) ([FrameSize]byte, error) {
	var buf [FrameSize]byte

	head := strconv.Itoa(int(typ)) + Delim
	if len(head)+len(payload) > FrameSize {
		return buf, ErrTooLong
	}

	n := copy(buf[:], head)
	copy(buf[n:], payload)
	return buf, nil
}

// EncodeResponse renders TYP, CODE and PAYLOAD as a zero-padded
// 512-byte frame.
func EncodeResponse(typ Type, code Code, payload []byte) ([FrameSize]byte, error) {
	var buf [FrameSize]byte

	head := strconv.Itoa(int(typ)) + Delim + strconv.Itoa(int(code)) + Delim
	if len(head)+len(payload) > FrameSize {
		return buf, ErrTooLong
	}

	n := copy(buf[:], head)
	copy(buf[n:], payload)
	return buf, nil
}

// trimPad drops the zero-byte padding appended by Encode* to reach
// FrameSize.
func trimPad(b []byte) []byte {
	return bytes.TrimRight(b, "\x00")
}

// DecodeRequest parses a 512-byte frame received from a client.
// Unknown numeric types are returned as-is; the caller treats them as
// a no-op per the wire protocol's "unknown types are silently
// ignored" rule.
func DecodeRequest(frame []byte) (Request, error) {
	if len(frame) != FrameSize {
		return Request{}, ErrShortFrame
	}

	parts := bytes.SplitN(frame, []byte(Delim), 2)
	if len(parts) != 2 {
		return Request{}, ErrMalformed
	}

	typ, err := strconv.Atoi(string(bytes.TrimSpace(parts[0])))
	if err != nil {
		return Request{}, fmt.Errorf("wire: bad type: %w", err)
	}

	return Request{Type: Type(typ), Payload: trimPad(parts[1])}, nil
}

// DecodeResponse parses a 512-byte frame received from the server.
// It exists mainly so tests can assert the round-trip law
// parse(encode(rsp)) == rsp without a second implementation.
func DecodeResponse(frame []byte) (Response, error) {
	if len(frame) != FrameSize {
		return Response{}, ErrShortFrame
	}

	parts := bytes.SplitN(frame, []byte(Delim), 3)
	if len(parts) != 3 {
		return Response{}, ErrMalformed
	}

	typ, err := strconv.Atoi(string(bytes.TrimSpace(parts[0])))
	if err != nil {
		return Response{}, fmt.Errorf("wire: bad type: %w", err)
	}
	code, err := strconv.Atoi(string(bytes.TrimSpace(parts[1])))
	if err != nil {
		return Response{}, fmt.Errorf("wire: bad error code: %w", err)
	}

	return Response{
		Type:    Type(typ),
		Error:   Code(code),
		Payload: trimPad(parts[2]),
	}, nil
}

// JoinRecords terminates each of REC with the inner record separator
// ("#"), so the result carries the catalogue's trailing "#".
func JoinRecords(rec []string) string {
	out := ""
	for _, r := range rec {
		out += r + RecordSep
	}
	return out
}

// JoinFields joins FIELDS with the inner field separator (";").
func JoinFields(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += FieldSep
		}
		out += f
	}
	return out
}

// SplitRecords splits a payload on the record separator, discarding
// the trailing empty record produced by the catalogue's own trailing
// "#".
func SplitRecords(payload []byte) []string {
	if len(payload) == 0 {
		return nil
	}
	s := string(payload)
	if len(s) > 0 && s[len(s)-1:] == RecordSep {
		s = s[:len(s)-1]
	}
	if s == "" {
		return nil
	}
	return splitString(s, RecordSep)
}

// SplitFields splits a record on the field separator.
func SplitFields(rec string) []string {
	return splitString(rec, FieldSep)
}

func splitString(s, sep string) []string {
	var out []string
	for {
		i := indexOf(s, sep)
		if i < 0 {
			out = append(out, s)
			return out
		}
		out = append(out, s[:i])
		s = s[i+len(sep):]
	}
}

func indexOf(s, sep string) int {
	return bytes.Index([]byte(s), []byte(sep))
}
