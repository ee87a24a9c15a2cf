// Framed wire protocol
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

// Package wire implements the fixed-size framed protocol spoken
// between a four-in-a-line server and its clients: every logical
// message, request or response, occupies exactly one 512-byte block.
package wire

// FrameSize is the number of bytes every frame occupies on the wire.
const FrameSize = 512

// Delim separates the header fields of a frame from its payload.
const Delim = "\r\n\r\n"

// Record and field separators used inside payloads.
const (
	RecordSep = "#"
	FieldSep  = ";"
)

// Type identifies a request or response message.
type Type int

const (
	_ Type = iota
	LOGIN
	LOGINRsp
	PLAYERSLIST
	PLAYERSLISTRsp
	GAMESLIST
	GAMESLISTRsp
	CREATEGAME
	CREATEGAMERsp
	CONNECTGAME
	CONNECTGAMERsp
	CONNECTSPECTATOR
	CONNECTSPECTATORRsp
	BACKTOMENU
	BACKTOMENURsp
	PRINTBOARD
	PRINTBOARDRsp
	CHECKTURN
	CHECKTURNRsp
	MAKEMOVE
	MAKEMOVERsp
	LEAVEMESSAGE
	LEAVEMESSAGERsp
	LEAVE
	LEAVERsp

	// Unsolicited server-to-client messages; there is no matching
	// request type for any of these.
	PRINTBOARDSPCRsp
	PRINTRESULTSPCRsp
	PRINTWINRsp
	PRINTLOSTRsp
	PRINTDRAWRsp
	CLEANUPRsp
)

// Code is the flat error enum shared by every response.
type Code int

const (
	NONE Code = iota
	NICKEXISTS
	INTERNALSERVERERROR
	WRONGBOARDSIZE
	WRONGGAMEID
	TOOMANYPLAYERS
	TOOMANYSPECTATORS
	WRONGTURN
	WRONGMOVE
	WAITOPPONENT
)
