// Request dispatch
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

package lobby

import (
	"math/rand"
	"strconv"

	"go-fourline/internal/board"
	"go-fourline/internal/match"
	"go-fourline/internal/netconn"
	"go-fourline/internal/registry"
	"go-fourline/internal/wire"
)

func respond(conn *netconn.Conn, typ wire.Type, code wire.Code, payload []byte) {
	frame, err := wire.EncodeResponse(typ, code, payload)
	if err != nil {
		panic(err)
	}
	_ = conn.Write(frame)
}

// waitRsp maps a request type that is answered with WAIT_OPPONENT
// while a match is still WAITING to its paired response type.
func waitRsp(req wire.Type) wire.Type {
	switch req {
	case wire.PRINTBOARD:
		return wire.PRINTBOARDRsp
	case wire.CHECKTURN:
		return wire.CHECKTURNRsp
	case wire.MAKEMOVE:
		return wire.MAKEMOVERsp
	case wire.LEAVEMESSAGE:
		return wire.LEAVEMESSAGERsp
	default:
		return req
	}
}

// dispatch routes one event from an owned connection. ev.Err set
// means the connection died; otherwise ev.Frame carries the request.
func (l *Lobby) dispatch(ev netconn.Event) {
	if ev.Err != nil {
		l.onDisconnect(ev.Conn)
		return
	}

	conn := ev.Conn
	req := ev.Frame

	player := l.players.ByConn(conn)
	if player == nil {
		if req.Type == wire.LOGIN {
			l.handleLogin(conn, req.Payload)
		}
		return
	}

	if player.GameID != 0 {
		game := l.games.Lookup(player.GameID)
		if game != nil {
			switch req.Type {
			case wire.LEAVE:
				l.handleLobbyLeave(conn, player, game)
			case wire.BACKTOMENU:
				l.handleLobbyBackToMenu(conn, player, game)
			case wire.PLAYERSLIST:
				l.handlePlayersList(conn)
			case wire.GAMESLIST:
				l.handleGamesList(conn)
			case wire.PRINTBOARD, wire.CHECKTURN, wire.MAKEMOVE, wire.LEAVEMESSAGE:
				respond(conn, waitRsp(req.Type), wire.WAITOPPONENT, nil)
			}
			return
		}
		// The game is gone (cleaned up while this descriptor was
		// still being handed back); fall through as a free agent.
		player.GameID = 0
	}

	switch req.Type {
	case wire.PLAYERSLIST:
		l.handlePlayersList(conn)
	case wire.GAMESLIST:
		l.handleGamesList(conn)
	case wire.CREATEGAME:
		l.handleCreateGame(conn, player, req.Payload)
	case wire.CONNECTGAME:
		l.handleConnectGame(conn, player, req.Payload)
	case wire.CONNECTSPECTATOR:
		l.handleConnectSpectator(conn, player, req.Payload)
	}
}

func (l *Lobby) handleLogin(conn *netconn.Conn, payload []byte) {
	if len(payload) > registry.MaxNickLen {
		payload = payload[:registry.MaxNickLen]
	}
	nick := string(payload)
	if nick == "" {
		respond(conn, wire.LOGINRsp, wire.NICKEXISTS, nil)
		return
	}
	if _, ok := l.players.AddIfAbsent(nick, conn); !ok {
		respond(conn, wire.LOGINRsp, wire.NICKEXISTS, nil)
		return
	}
	l.cfg.Debug.Printf("%s: logged in as %q", conn, nick)
	respond(conn, wire.LOGINRsp, wire.NONE, nil)
}

func (l *Lobby) handlePlayersList(conn *netconn.Conn) {
	var nicks []string
	l.players.Each(func(p *registry.Player) { nicks = append(nicks, p.Nick) })
	respond(conn, wire.PLAYERSLISTRsp, wire.NONE, []byte(wire.JoinRecords(nicks)))
}

func (l *Lobby) handleGamesList(conn *netconn.Conn) {
	var records []string
	l.games.Each(func(g *registry.Game) {
		fields := []string{
			strconv.Itoa(g.ID),
			strconv.Itoa(g.Size),
			strconv.Itoa(registry.MaxSpectators - g.NumSpectators),
		}
		if g.Players[0] != nil {
			fields = append(fields, g.Players[0].Nick)
		}
		if g.Players[1] != nil {
			fields = append(fields, g.Players[1].Nick)
		}
		records = append(records, wire.JoinFields(fields))
	})
	respond(conn, wire.GAMESLISTRsp, wire.NONE, []byte(wire.JoinRecords(records)))
}

func (l *Lobby) handleCreateGame(conn *netconn.Conn, player *registry.Player, payload []byte) {
	n, err := strconv.Atoi(string(payload))
	if err != nil || n < board.MinSize || n > board.MaxSize {
		respond(conn, wire.CREATEGAMERsp, wire.WRONGBOARDSIZE, nil)
		return
	}

	id, err := l.games.NewID()
	if err != nil {
		respond(conn, wire.CREATEGAMERsp, wire.INTERNALSERVERERROR, nil)
		return
	}

	game := &registry.Game{
		ID:    id,
		Size:  n,
		Board: board.New(n),
		State: registry.Waiting,
	}
	game.Players[0] = player
	player.GameID = id
	l.games.Add(game)

	l.cfg.Debug.Printf("%s: created game %d (%dx%d)", conn, id, n, n)
	respond(conn, wire.CREATEGAMERsp, wire.NONE, []byte(strconv.Itoa(id)))
}

func (l *Lobby) handleConnectGame(conn *netconn.Conn, player *registry.Player, payload []byte) {
	id, err := strconv.Atoi(string(payload))
	if err != nil {
		respond(conn, wire.CONNECTGAMERsp, wire.WRONGGAMEID, nil)
		return
	}
	game := l.games.Lookup(id)
	if game == nil {
		respond(conn, wire.CONNECTGAMERsp, wire.WRONGGAMEID, nil)
		return
	}
	if game.Players[1] != nil {
		respond(conn, wire.CONNECTGAMERsp, wire.TOOMANYPLAYERS, nil)
		return
	}

	game.Players[1] = player
	player.GameID = id
	game.State = registry.Started
	game.Current = rand.Intn(2)

	var spectators []*netconn.Conn
	for _, s := range game.Spectators {
		if s != nil {
			spectators = append(spectators, s)
		}
	}
	players := [2]*netconn.Conn{game.Players[0].Conn, game.Players[1].Conn}

	for _, c := range players {
		delete(l.conns, c.ID())
	}
	for _, c := range spectators {
		delete(l.conns, c.ID())
	}

	wk := match.New(l.cfg.Log, game, l.games, l.workers, l.players, l.released, l.events, players, spectators)
	l.workers.Add(&registry.Worker{GameID: id, Control: wk.Control()})
	l.matches[id] = wk

	for _, c := range players {
		c.SetTarget(wk.Events())
	}
	for _, c := range spectators {
		c.SetTarget(wk.Events())
	}

	l.cfg.Debug.Printf("game %d: started, %d spectator(s)", id, len(spectators))
	respond(conn, wire.CONNECTGAMERsp, wire.NONE, nil)
	go wk.Run()
}

func (l *Lobby) handleConnectSpectator(conn *netconn.Conn, player *registry.Player, payload []byte) {
	id, err := strconv.Atoi(string(payload))
	if err != nil {
		respond(conn, wire.CONNECTSPECTATORRsp, wire.WRONGGAMEID, nil)
		return
	}
	game := l.games.Lookup(id)
	if game == nil {
		respond(conn, wire.CONNECTSPECTATORRsp, wire.WRONGGAMEID, nil)
		return
	}

	game.Mu.Lock()
	if game.NumSpectators >= registry.MaxSpectators {
		game.Mu.Unlock()
		respond(conn, wire.CONNECTSPECTATORRsp, wire.TOOMANYSPECTATORS, nil)
		return
	}
	slot := -1
	for i, s := range game.Spectators {
		if s == nil {
			slot = i
			break
		}
	}
	game.Spectators[slot] = conn
	game.NumSpectators++
	started := game.State == registry.Started
	game.Mu.Unlock()

	player.GameID = id
	respond(conn, wire.CONNECTSPECTATORRsp, wire.NONE, nil)

	if !started {
		// The match is still WAITING; the descriptor stays in the
		// lobby's own set until CONNECT_GAME hands it to a worker.
		return
	}

	delete(l.conns, conn.ID())
	wk := l.matches[id]
	conn.SetTarget(wk.Events())
	select {
	case wk.Control() <- struct{}{}:
	default:
		// Control is already pending a scan; the worker will pick
		// this spectator up on that pass.
	}
}

func (l *Lobby) handleLobbyLeave(conn *netconn.Conn, player *registry.Player, game *registry.Game) {
	if game.Players[0] != player || game.Players[1] != nil {
		// Only the creator of a still-WAITING match may delete it this
		// way (e.g. a spectator who joined before it started cannot);
		// every command still owes exactly one response frame.
		respond(conn, wire.LEAVERsp, wire.WRONGGAMEID, nil)
		return
	}
	l.games.Remove(game.ID)
	player.GameID = 0
	respond(conn, wire.LEAVERsp, wire.NONE, nil)
}

func (l *Lobby) handleLobbyBackToMenu(conn *netconn.Conn, player *registry.Player, game *registry.Game) {
	game.Mu.Lock()
	idx := -1
	for i, s := range game.Spectators {
		if s == conn {
			idx = i
			break
		}
	}
	if idx < 0 {
		game.Mu.Unlock()
		return
	}
	game.Spectators[idx] = nil
	game.NumSpectators--
	game.Mu.Unlock()

	player.GameID = 0
	respond(conn, wire.BACKTOMENURsp, wire.NONE, nil)
}

// onDisconnect handles a read error/EOF on a connection the lobby
// still owns directly (i.e. not yet handed to a worker).
func (l *Lobby) onDisconnect(conn *netconn.Conn) {
	if player := l.players.ByConn(conn); player != nil {
		if player.GameID != 0 {
			if game := l.games.Lookup(player.GameID); game != nil {
				if game.Players[0] == player && game.Players[1] == nil {
					l.games.Remove(game.ID)
				} else {
					game.Mu.Lock()
					for i, s := range game.Spectators {
						if s == conn {
							game.Spectators[i] = nil
							game.NumSpectators--
						}
					}
					game.Mu.Unlock()
				}
			}
		}
		l.players.Remove(conn)
	}
	delete(l.conns, conn.ID())
	conn.Close()
}
