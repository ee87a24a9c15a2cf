// Worker registry
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

import "sync"

// Workers is the thread-safe collection mapping a started match's id
// to the record of the goroutine running it.
type Workers struct {
	mu   sync.Mutex
	byID map[int]*Worker
}

// NewWorkers returns an empty worker registry.
func NewWorkers() *Workers {
	return &Workers{byID: make(map[int]*Worker)}
}

// Add registers REC under its GameID.
func (w *Workers) Add(rec *Worker) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.byID[rec.GameID] = rec
}

// Lookup returns the worker record for GAMEID, or nil.
func (w *Workers) Lookup(gameID int) *Worker {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.byID[gameID]
}

// Remove deletes the worker record for GAMEID.
func (w *Workers) Remove(gameID int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.byID, gameID)
}
