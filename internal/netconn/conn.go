// Connection descriptor hand-off
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

// Package netconn wraps a client TCP connection with the piece of
// state that replaces the reference server's descriptor-set
// manipulation: a target channel that a single reader goroutine
// always sends decoded frames to. Re-pointing that target is how
// ownership of a connection moves between the lobby and a match
// worker, without ever touching the OS-level socket.
package netconn

import (
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"go-fourline/internal/wire"
)

// Event is produced by a Conn's reader goroutine for whichever owner
// currently holds its Target. Err is set, and Frame is the zero
// value, when the connection has been closed or failed.
type Event struct {
	Conn  *Conn
	Frame wire.Request
	Err   error
}

// Conn is a single client connection together with the bookkeeping
// needed to hand it off between the lobby and a match worker.
type Conn struct {
	id   uint64
	raw  net.Conn
	wmu  sync.Mutex // serializes writes, mirrors the teacher's Client.lock
	tmu  sync.Mutex
	target chan<- Event

	closed int32
}

var nextID uint64

// New wraps RAW and starts its reader goroutine, sending every
// decoded frame (or the terminal error) to TARGET.
func New(raw net.Conn, target chan<- Event) *Conn {
	c := &Conn{
		id:     atomic.AddUint64(&nextID, 1),
		raw:    raw,
		target: target,
	}
	go c.readLoop()
	return c
}

// ID returns a small integer unique among live connections, standing
// in for the reference implementation's socket descriptor.
func (c *Conn) ID() uint64 { return c.id }

func (c *Conn) String() string {
	return fmt.Sprintf("conn#%d(%s)", c.id, c.raw.RemoteAddr())
}

// SetTarget re-points future frames (and the eventual close/error
// event) at CH. This is the descriptor hand-off: the lobby calls it
// when handing a connection to a match worker (at CONNECT_GAME, or
// when a spectator joins a started match); the worker calls it when
// handing a connection back (give-up, spectator BACK_TO_MENU, or
// final cleanup).
func (c *Conn) SetTarget(ch chan<- Event) {
	c.tmu.Lock()
	c.target = ch
	c.tmu.Unlock()
}

func (c *Conn) currentTarget() chan<- Event {
	c.tmu.Lock()
	defer c.tmu.Unlock()
	return c.target
}

// Write sends a single pre-built frame, serialized against concurrent
// writers. A short write is treated as fatal for the connection, per
// the protocol's framing requirement.
func (c *Conn) Write(frame [wire.FrameSize]byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	n, err := c.raw.Write(frame[:])
	if err == nil && n != wire.FrameSize {
		err = io.ErrShortWrite
	}
	if err != nil {
		c.Close()
	}
	return err
}

// Close closes the underlying socket. It is idempotent.
func (c *Conn) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	return c.raw.Close()
}

func (c *Conn) readLoop() {
	var buf [wire.FrameSize]byte
	for {
		if _, err := io.ReadFull(c.raw, buf[:]); err != nil {
			c.currentTarget() <- Event{Conn: c, Err: err}
			return
		}

		req, err := wire.DecodeRequest(buf[:])
		if err != nil {
			// A malformed frame is treated the same as any other
			// unknown request: silently ignored, per the protocol's
			// "unknown types are a no-op" rule.
			continue
		}

		c.currentTarget() <- Event{Conn: c, Frame: req}
	}
}
