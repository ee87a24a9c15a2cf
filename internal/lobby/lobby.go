// Lobby dispatcher
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

// Package lobby implements the server's single dispatcher: it accepts
// connections, logs players in, and handles every request from a
// client that is not currently owned by a match worker. Descriptor
// ownership is modelled by re-pointing a netconn.Conn's target
// channel rather than by manipulating an OS-level descriptor set.
package lobby

import (
	"net"
	"os"
	"os/signal"
	"strconv"

	"github.com/tevino/abool"

	"go-fourline/internal/config"
	"go-fourline/internal/match"
	"go-fourline/internal/netconn"
	"go-fourline/internal/registry"
)

// Lobby is the single dispatcher task. There is exactly one per
// process; it is not safe to run two concurrently against the same
// registries.
type Lobby struct {
	cfg *config.Conf

	players *registry.Players
	games   *registry.Games
	workers *registry.Workers

	listener net.Listener
	accept   chan net.Conn
	events   chan netconn.Event
	released chan match.Release

	// interrupted is flipped by the signal handler and checked at
	// every loop iteration; it replaces the reference server's
	// blocked-outside-select signal masking.
	interrupted *abool.AtomicBool

	conns   map[uint64]*netconn.Conn
	matches map[int]*match.Worker
}

// New builds a Lobby over the given configuration and registries. Run
// must be called to actually start serving.
func New(cfg *config.Conf, players *registry.Players, games *registry.Games, workers *registry.Workers) *Lobby {
	return &Lobby{
		cfg:         cfg,
		players:     players,
		games:       games,
		workers:     workers,
		accept:      make(chan net.Conn),
		events:      make(chan netconn.Event, 64),
		released:    make(chan match.Release, 8),
		interrupted: abool.New(),
		conns:       make(map[uint64]*netconn.Conn),
		matches:     make(map[int]*match.Worker),
	}
}

// Run opens the listening socket and serves until an interrupt signal
// arrives or the listener fails. It returns nil on graceful shutdown.
func (l *Lobby) Run() error {
	addr := net.JoinHostPort(l.cfg.Host, strconv.FormatUint(uint64(l.cfg.Port), 10))
	ln, err := listenTCP(l.cfg.Host, l.cfg.Port, l.cfg.Backlog)
	if err != nil {
		return err
	}
	l.listener = ln
	l.cfg.Log.Printf("listening on %s (backlog %d)", addr, l.cfg.Backlog)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	go l.acceptLoop()

	for !l.interrupted.IsSet() {
		select {
		case conn, ok := <-l.accept:
			if !ok {
				return nil
			}
			l.onAccept(conn)

		case rel := <-l.released:
			l.onRelease(rel)

		case ev := <-l.events:
			l.dispatch(ev)

		case <-sig:
			l.interrupted.Set()
		}
	}

	l.cfg.Log.Printf("shutting down")
	return l.listener.Close()
}

func (l *Lobby) acceptLoop() {
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			close(l.accept)
			return
		}
		l.accept <- conn
	}
}

func (l *Lobby) onAccept(raw net.Conn) {
	c := netconn.New(raw, l.events)
	l.conns[c.ID()] = c
	l.cfg.Debug.Printf("%s: accepted", c)
}

// onRelease re-admits connections a match worker has handed back,
// whether mid-match (a spectator's BACK_TO_MENU) or at final cleanup.
func (l *Lobby) onRelease(rel match.Release) {
	for _, c := range rel.Conns {
		l.conns[c.ID()] = c
	}
	if rel.Final {
		delete(l.matches, rel.GameID)
	}
	l.cfg.Debug.Printf("game %d: %d descriptor(s) returned to lobby", rel.GameID, len(rel.Conns))
}
