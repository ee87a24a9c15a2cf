// Shared data model
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

// Package registry implements the three thread-safe collections the
// server core is built from: players (by nickname and by connection),
// live matches (by id), and the worker running each started match.
package registry

import (
	"sync"

	"go-fourline/internal/board"
	"go-fourline/internal/netconn"
)

// MaxSpectators is the most spectators a single match may carry.
const MaxSpectators = 5

// MaxNickLen is the most bytes of a login payload that become part of
// a player's nickname; any remainder is dropped, mirroring the
// reference server's fixed-size strncpy into a MAX_NICK_LEN buffer.
const MaxNickLen = 32

// GameState is the lifecycle stage of a Game.
type GameState int

const (
	Waiting GameState = iota
	Started
)

// Player is a logged-in client, identified by its unique nickname.
type Player struct {
	Nick   string
	Conn   *netconn.Conn
	GameID int // 0 when the player is not in a match
}

// Game is a single four-in-a-line match.
//
// Board, Spectators, NumSpectators and Current are mutated by the
// lobby while State is Waiting, and by the owning worker (plus, for
// the spectator slots, the lobby recording a new joiner) once State
// becomes Started; Mu is the critical section that makes that last
// handover safe, per the coordination plane design.
type Game struct {
	Mu sync.Mutex

	ID    int
	Size  int
	Board *board.Board
	State GameState

	// Players[0] plays 'x', Players[1] plays 'o'. Players[1] is nil
	// while State is Waiting.
	Players [2]*Player

	// Spectators holds up to MaxSpectators connections; unused slots
	// are nil.
	Spectators    [MaxSpectators]*netconn.Conn
	NumSpectators int

	// Current is the slot index (0 or 1) whose turn it is. Only
	// meaningful once State is Started.
	Current int
}

// Pawn returns the pawn byte a slot plays.
func Pawn(slot int) byte {
	if slot == 0 {
		return board.PawnX
	}
	return board.PawnO
}

// Slot returns the slot index of CONN in G, or -1 if it is not one of
// the two players.
func (g *Game) Slot(conn *netconn.Conn) int {
	for i, p := range g.Players {
		if p != nil && p.Conn == conn {
			return i
		}
	}
	return -1
}

// Worker is the registry record for the goroutine running a started
// match.
type Worker struct {
	GameID int
	// Control is the lobby→worker wake channel: a send tells the
	// worker to re-scan Game.Spectators for newly joined connections.
	Control chan struct{}
}
