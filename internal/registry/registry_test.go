// Registry tests
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
	"net"
	"sync"
	"testing"

	"go-fourline/internal/netconn"
)

func fakeConn(t *testing.T) *netconn.Conn {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close(); server.Close() })
	return netconn.New(server, make(chan netconn.Event, 8))
}

func TestPlayersUniqueness(t *testing.T) {
	players := NewPlayers()
	c1, c2 := fakeConn(t), fakeConn(t)

	if _, ok := players.AddIfAbsent("alice", c1); !ok {
		t.Fatal("first login for a nickname must succeed")
	}
	if _, ok := players.AddIfAbsent("alice", c2); ok {
		t.Fatal("second login for the same nickname must fail")
	}
	if players.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", players.Len())
	}

	players.Remove(c1)
	if players.ByNick("alice") != nil {
		t.Fatal("removed player must no longer be found by nickname")
	}
	if _, ok := players.AddIfAbsent("alice", c2); !ok {
		t.Fatal("nickname must be reusable once freed")
	}
}

func TestPlayersConcurrentLogins(t *testing.T) {
	players := NewPlayers()
	var wg sync.WaitGroup
	successes := make([]bool, 16)

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, ok := players.AddIfAbsent("shared", fakeConn(t))
			successes[i] = ok
		}(i)
	}
	wg.Wait()

	count := 0
	for _, ok := range successes {
		if ok {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("exactly one concurrent login should win, got %d", count)
	}
}

func TestGamesLifecycle(t *testing.T) {
	games := NewGames()
	g := &Game{ID: 1, Size: 4}
	games.Add(g)

	if games.Lookup(1) != g {
		t.Fatal("expected to find the added game")
	}
	games.Remove(1)
	if games.Lookup(1) != nil {
		t.Fatal("removed game must no longer be found")
	}
}

func TestGamesNewIDWithinRange(t *testing.T) {
	games := NewGames()
	for i := 0; i < 50; i++ {
		id, err := games.NewID()
		if err != nil {
			t.Fatalf("NewID: %v", err)
		}
		if id < MinGameID || id > MaxGameID {
			t.Fatalf("id %d out of range [%d,%d]", id, MinGameID, MaxGameID)
		}
		games.Add(&Game{ID: id})
	}
}

func TestGamesNewIDExhaustion(t *testing.T) {
	games := NewGames()
	for id := MinGameID; id <= MaxGameID; id++ {
		games.Add(&Game{ID: id})
	}
	if _, err := games.NewID(); err != ErrIDSpaceExhausted {
		t.Fatalf("expected ErrIDSpaceExhausted, got %v", err)
	}
}

func TestWorkersLifecycle(t *testing.T) {
	workers := NewWorkers()
	rec := &Worker{GameID: 7, Control: make(chan struct{}, 1)}
	workers.Add(rec)

	if workers.Lookup(7) != rec {
		t.Fatal("expected to find the added worker")
	}
	workers.Remove(7)
	if workers.Lookup(7) != nil {
		t.Fatal("removed worker must no longer be found")
	}
}
