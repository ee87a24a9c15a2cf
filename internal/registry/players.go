// Player registry
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

package registry

import (
	"sync"

	"go-fourline/internal/netconn"
)

// Players is the thread-safe collection of logged-in clients, keyed
// both by their unique nickname and by their connection.
type Players struct {
	mu     sync.Mutex
	byNick map[string]*Player
	byConn map[uint64]*Player
}

// NewPlayers returns an empty player registry.
func NewPlayers() *Players {
	return &Players{
		byNick: make(map[string]*Player),
		byConn: make(map[uint64]*Player),
	}
}

// AddIfAbsent registers a new player under NICK/CONN, failing if the
// nickname is already taken. The existence check and the insertion
// happen under the same lock, so two concurrent logins with the same
// nickname can never both succeed.
func (p *Players) AddIfAbsent(nick string, conn *netconn.Conn) (*Player, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.byNick[nick]; exists {
		return nil, false
	}

	pl := &Player{Nick: nick, Conn: conn}
	p.byNick[nick] = pl
	p.byConn[conn.ID()] = pl
	return pl, true
}

// ByNick looks up a player by nickname.
func (p *Players) ByNick(nick string) *Player {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.byNick[nick]
}

// ByConn looks up a player by connection.
func (p *Players) ByConn(conn *netconn.Conn) *Player {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.byConn[conn.ID()]
}

// Remove deletes the player owning CONN, if any.
func (p *Players) Remove(conn *netconn.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pl, ok := p.byConn[conn.ID()]
	if !ok {
		return
	}
	delete(p.byConn, conn.ID())
	delete(p.byNick, pl.Nick)
}

// Each calls FN for every registered player. The caller must not
// mutate the registry from FN; Each is meant for read-only listing
// endpoints run from the single-threaded lobby loop.
func (p *Players) Each(fn func(*Player)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pl := range p.byNick {
		fn(pl)
	}
}

// Len reports the number of registered players.
func (p *Players) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byNick)
}
