// Frame codec tests
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
	"reflect"
	"testing"
)

func TestRequestRoundTrip(t *testing.T) {
	for i, test := range []struct {
		typ     Type
		payload []byte
	}{
		{LOGIN, []byte("alice")},
		{PLAYERSLIST, nil},
		{CREATEGAME, []byte("4")},
		{MAKEMOVE, []byte("1#1#")},
		{LEAVEMESSAGE, []byte("good game")},
	} {
		frame, err := EncodeRequest(test.typ, test.payload)
		if err != nil {
			t.Fatalf("(%d) encode: %v", i, err)
		}
		if len(frame) != FrameSize {
			t.Fatalf("(%d) frame is %d bytes, want %d", i, len(frame), FrameSize)
		}

		req, err := DecodeRequest(frame[:])
		if err != nil {
			t.Fatalf("(%d) decode: %v", i, err)
		}
		if req.Type != test.typ {
			t.Errorf("(%d) type = %d, want %d", i, req.Type, test.typ)
		}
		if !bytes.Equal(req.Payload, test.payload) {
			t.Errorf("(%d) payload = %q, want %q", i, req.Payload, test.payload)
		}
	}
}

func TestResponseRoundTrip(t *testing.T) {
	for i, test := range []struct {
		typ     Type
		code    Code
		payload []byte
	}{
		{LOGINRsp, NONE, nil},
		{LOGINRsp, NICKEXISTS, nil},
		{GAMESLISTRsp, NONE, []byte("3;4;5;alice#")},
		{PRINTRESULTSPCRsp, NONE, []byte("Player alice won the game!")},
	} {
		frame, err := EncodeResponse(test.typ, test.code, test.payload)
		if err != nil {
			t.Fatalf("(%d) encode: %v", i, err)
		}

		rsp, err := DecodeResponse(frame[:])
		if err != nil {
			t.Fatalf("(%d) decode: %v", i, err)
		}
		if rsp.Type != test.typ || rsp.Error != test.code {
			t.Errorf("(%d) got (%d,%d), want (%d,%d)", i, rsp.Type, rsp.Error, test.typ, test.code)
		}
		if !bytes.Equal(rsp.Payload, test.payload) {
			t.Errorf("(%d) payload = %q, want %q", i, rsp.Payload, test.payload)
		}
	}
}

func TestEncodeTooLong(t *testing.T) {
	huge := bytes.Repeat([]byte("x"), FrameSize)
	if _, err := EncodeRequest(LOGIN, huge); err != ErrTooLong {
		t.Errorf("expected ErrTooLong, got %v", err)
	}
}

func TestDecodeShortFrame(t *testing.T) {
	if _, err := DecodeRequest([]byte("too short")); err != ErrShortFrame {
		t.Errorf("expected ErrShortFrame, got %v", err)
	}
}

func TestRecordFieldSplitting(t *testing.T) {
	rec := JoinFields([]string{"7", "4", "5", "alice"})
	if rec != "7;4;5;alice" {
		t.Fatalf("unexpected record: %q", rec)
	}

	payload := JoinRecords([]string{rec, "9;6;3;bob;carl"})
	records := SplitRecords([]byte(payload))
	if !reflect.DeepEqual(records, []string{rec, "9;6;3;bob;carl"}) {
		t.Fatalf("unexpected records: %#v", records)
	}

	fields := SplitFields(records[1])
	if !reflect.DeepEqual(fields, []string{"9", "6", "3", "bob", "carl"}) {
		t.Fatalf("unexpected fields: %#v", fields)
	}
}
