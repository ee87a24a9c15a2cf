// Match worker
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

// Package match implements the per-started-game worker: one goroutine
// per live match, running its own event loop over the two players and
// their current spectators until a win, draw, give-up or disconnect
// ends it.
package match

import (
	"fmt"
	"log"
	"strconv"

	"go-fourline/internal/board"
	"go-fourline/internal/netconn"
	"go-fourline/internal/registry"
	"go-fourline/internal/wire"
)

// Release is sent back to the lobby whenever the worker hands one or
// more connections back to it, either mid-match (a spectator leaving
// via BACK_TO_MENU) or at final cleanup. Sending it is itself the
// worker→lobby wake: there is no separate signal byte to write, since
// the lobby is already select-ing on the channel this arrives on.
type Release struct {
	GameID int
	Conns  []*netconn.Conn
	// Final is set on the release issued during terminal cleanup, so
	// the lobby knows this worker is gone and can forget its handle,
	// as opposed to a mid-match partial release (a spectator's
	// BACK_TO_MENU).
	Final bool
}

// Worker runs a single started match to completion.
type Worker struct {
	log *log.Logger

	game      *registry.Game
	games     *registry.Games
	workers   *registry.Workers
	playerReg *registry.Players

	events      chan netconn.Event
	control     chan struct{}
	released    chan<- Release
	lobbyEvents chan<- netconn.Event

	players [2]*netconn.Conn // nil once that slot has left/disconnected
	spect   []*netconn.Conn  // local broadcast set, mirrors game.Spectators

	// lastWasDecisive records whether the termination handleRequest
	// just triggered was a win/draw, as opposed to a give-up, so Run
	// can tell the two apart without threading an extra return value
	// through the select.
	lastWasDecisive bool
}

// New builds a worker for GAME. PLAYERS are the two player
// connections in slot order; SPECTATORS is the snapshot the lobby
// took at CONNECT_GAME time. Callers must still re-target each of
// those connections at Events() before starting the worker goroutine.
// LOBBYEVENTS is the lobby's own event channel, used to re-target a
// connection when it is handed back.
func New(logger *log.Logger, game *registry.Game, games *registry.Games, workers *registry.Workers, playerReg *registry.Players, released chan<- Release, lobbyEvents chan<- netconn.Event, players [2]*netconn.Conn, spectators []*netconn.Conn) *Worker {
	return &Worker{
		log:         logger,
		game:        game,
		games:       games,
		workers:     workers,
		playerReg:   playerReg,
		events:      make(chan netconn.Event, 32),
		control:     make(chan struct{}, 1),
		released:    released,
		lobbyEvents: lobbyEvents,
		players:     players,
		spect:       append([]*netconn.Conn(nil), spectators...),
	}
}

// Events returns the channel the lobby must point the match's
// connections at before starting the worker goroutine.
func (w *Worker) Events() chan netconn.Event { return w.events }

// Control returns the lobby→worker wake channel used to announce a
// newly joined spectator.
func (w *Worker) Control() chan struct{} { return w.control }

// Run executes the match to completion. It is meant to be started
// with `go worker.Run()`.
func (w *Worker) Run() {
	w.log.Printf("game %d: worker started, %d spectators", w.game.ID, len(w.spect))
	decisive := false

loop:
	for {
		select {
		case ev := <-w.events:
			if ev.Err != nil {
				if done := w.handleDisconnect(ev.Conn); done {
					break loop
				}
				continue
			}
			if done := w.handleRequest(ev.Conn, ev.Frame); done {
				decisive = w.lastWasDecisive
				break loop
			}
		case <-w.control:
			w.rescanSpectators()
		}
	}

	w.cleanup(decisive)
}

func respond(conn *netconn.Conn, typ wire.Type, code wire.Code, payload []byte) {
	frame, err := wire.EncodeResponse(typ, code, payload)
	if err != nil {
		// Only happens if a payload we built ourselves is too large,
		// which is a programming error, not a client-visible one.
		panic(err)
	}
	_ = conn.Write(frame)
}

func (w *Worker) handleRequest(conn *netconn.Conn, req wire.Request) (done bool) {
	slot := w.game.Slot(conn)

	switch req.Type {
	case wire.PRINTBOARD:
		respond(conn, wire.PRINTBOARDRsp, wire.NONE, append([]byte(strconv.Itoa(w.game.Board.N)+wire.RecordSep), append(w.game.Board.Cells400(), []byte(wire.RecordSep)...)...))

	case wire.CHECKTURN:
		if slot == w.game.Current {
			respond(conn, wire.CHECKTURNRsp, wire.NONE, []byte("0"))
		} else {
			respond(conn, wire.CHECKTURNRsp, wire.NONE, []byte("1"))
		}

	case wire.MAKEMOVE:
		w.handleMove(conn, slot, req.Payload)
		return w.lastWasDecisive

	case wire.LEAVEMESSAGE:
		w.handleChat(slot, req.Payload)

	case wire.LEAVE:
		if slot >= 0 {
			w.handleGiveUp(slot)
			return true
		}

	case wire.BACKTOMENU:
		w.handleSpectatorLeave(conn)
	}

	return false
}

func (w *Worker) handleMove(conn *netconn.Conn, slot int, payload []byte) {
	w.lastWasDecisive = false

	if slot < 0 || slot != w.game.Current {
		respond(conn, wire.MAKEMOVERsp, wire.WRONGTURN, nil)
		return
	}

	fields := wire.SplitRecords(payload)
	if len(fields) != 2 {
		respond(conn, wire.MAKEMOVERsp, wire.WRONGMOVE, nil)
		return
	}
	x, errX := strconv.Atoi(fields[0])
	y, errY := strconv.Atoi(fields[1])
	if errX != nil || errY != nil {
		respond(conn, wire.MAKEMOVERsp, wire.WRONGMOVE, nil)
		return
	}
	// Wire coordinates are 1-indexed.
	x--
	y--

	pawn := registry.Pawn(slot)
	outcome, ok := w.game.Board.Move(x, y, pawn)
	if !ok {
		respond(conn, wire.MAKEMOVERsp, wire.WRONGMOVE, nil)
		return
	}

	switch outcome {
	case board.Continue:
		w.game.Current = 1 - w.game.Current
		respond(conn, wire.MAKEMOVERsp, wire.NONE, nil)
		w.broadcastBoard()
	case board.Win:
		w.lastWasDecisive = true
		respond(conn, wire.PRINTWINRsp, wire.NONE, nil)
		opponent := w.players[1-slot]
		respond(opponent, wire.PRINTLOSTRsp, wire.NONE, nil)
		nick := "?"
		if w.game.Players[slot] != nil {
			nick = w.game.Players[slot].Nick
		}
		msg := []byte(fmt.Sprintf("Player %s won the game!", nick))
		w.broadcastSpectators(wire.PRINTRESULTSPCRsp, msg)
	case board.Draw:
		w.lastWasDecisive = true
		respond(conn, wire.PRINTDRAWRsp, wire.NONE, nil)
		respond(w.players[1-slot], wire.PRINTDRAWRsp, wire.NONE, nil)
		w.broadcastSpectators(wire.PRINTDRAWRsp, nil)
	}
}

func (w *Worker) handleChat(slot int, payload []byte) {
	if slot < 0 {
		return // spectators do not chat
	}
	respond(w.players[1-slot], wire.LEAVEMESSAGERsp, wire.NONE, payload)
}

func (w *Worker) handleGiveUp(slot int) {
	respond(w.players[slot], wire.LEAVERsp, wire.NONE, nil)
	w.clearGameID(w.players[slot])
	w.release([]*netconn.Conn{w.players[slot]}, false)
	w.players[slot] = nil
}

func (w *Worker) handleSpectatorLeave(conn *netconn.Conn) {
	idx := w.spectatorIndex(conn)
	if idx < 0 {
		return
	}
	respond(conn, wire.BACKTOMENURsp, wire.NONE, nil)
	w.removeSpectatorAt(idx)
	w.clearGameID(conn)
	w.release([]*netconn.Conn{conn}, false)
}

// handleDisconnect reacts to a read error/EOF on CONN, which per the
// protocol's error handling policy means the socket is already gone:
// the player record is dropped and the socket closed without a
// response. It returns true if the match must now terminate (one of
// the two players is gone).
func (w *Worker) handleDisconnect(conn *netconn.Conn) bool {
	w.playerReg.Remove(conn)
	conn.Close()

	for i, p := range w.players {
		if p == conn {
			w.players[i] = nil
			return true
		}
	}
	if idx := w.spectatorIndex(conn); idx >= 0 {
		w.removeSpectatorAt(idx)
	}
	return false
}

// clearGameID drops CONN's association with this match in the player
// registry, once it is no longer part of it (give-up, detach, or
// final cleanup). A nil CONN (an already-absent player slot) is a
// no-op.
func (w *Worker) clearGameID(conn *netconn.Conn) {
	if conn == nil {
		return
	}
	if p := w.playerReg.ByConn(conn); p != nil {
		p.GameID = 0
	}
}

func (w *Worker) spectatorIndex(conn *netconn.Conn) int {
	for i, s := range w.spect {
		if s == conn {
			return i
		}
	}
	return -1
}

func (w *Worker) removeSpectatorAt(idx int) {
	w.spect = append(w.spect[:idx], w.spect[idx+1:]...)

	w.game.Mu.Lock()
	defer w.game.Mu.Unlock()
	for i, s := range w.game.Spectators {
		if s != nil && w.spectatorIndex(s) < 0 {
			w.game.Spectators[i] = nil
			w.game.NumSpectators--
		}
	}
}

// rescanSpectators re-reads Game.Spectators under its lock and adds
// any connection the lobby recorded there that the worker does not
// yet know about to its local broadcast set.
func (w *Worker) rescanSpectators() {
	w.game.Mu.Lock()
	defer w.game.Mu.Unlock()

	for _, s := range w.game.Spectators {
		if s == nil {
			continue
		}
		if w.spectatorIndex(s) < 0 {
			w.spect = append(w.spect, s)
		}
	}
}

func (w *Worker) broadcastBoard() {
	payload := append([]byte(strconv.Itoa(w.game.Board.N)+wire.RecordSep), append(w.game.Board.Cells400(), []byte(wire.RecordSep)...)...)
	w.broadcastSpectators(wire.PRINTBOARDSPCRsp, payload)
}

func (w *Worker) broadcastSpectators(typ wire.Type, payload []byte) {
	for _, s := range w.spect {
		respond(s, typ, wire.NONE, payload)
	}
}

// release hands CONNS back to the lobby: it re-targets their reader
// goroutines at the lobby's event channel and reports them on the
// released channel, which also serves as the worker→lobby wake.
func (w *Worker) release(conns []*netconn.Conn, final bool) {
	live := conns[:0]
	for _, c := range conns {
		if c == nil {
			continue
		}
		c.SetTarget(w.lobbyEvents)
		live = append(live, c)
	}
	if len(live) == 0 {
		return
	}
	w.released <- Release{GameID: w.game.ID, Conns: live, Final: final}
}

// cleanup runs unconditionally when the match ends: every descriptor
// still owned by the worker is returned to the lobby, and --- unless
// the match ended with a win or draw that has already been announced
// --- each surviving peer is told CLEANUP_RSP so its client can
// return to the menu. The worker record and the match itself are then
// destroyed.
func (w *Worker) cleanup(decisive bool) {
	w.log.Printf("game %d: worker exiting, decisive=%v", w.game.ID, decisive)

	var remaining []*netconn.Conn
	for _, p := range w.players {
		if p != nil {
			remaining = append(remaining, p)
		}
	}
	remaining = append(remaining, w.spect...)

	if !decisive {
		for _, c := range remaining {
			respond(c, wire.CLEANUPRsp, wire.NONE, nil)
		}
	}
	for _, c := range remaining {
		w.clearGameID(c)
	}

	w.release(remaining, true)

	w.workers.Remove(w.game.ID)
	w.games.Remove(w.game.ID)
}
