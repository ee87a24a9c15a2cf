// Listening socket setup
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
	"fmt"
	"net"
	"os"
	"syscall"
)

// listenTCP opens the server's listening socket by hand: the standard
// library's net.Listen always asks the kernel for its own idea of the
// maximum backlog and gives callers no way to pass a smaller one, so
// spec.md §6's "TCP/IPv4, INADDR_ANY, SO_REUSEADDR, backlog 10" has to
// be assembled from the raw syscalls instead.
func listenTCP(host string, port uint, backlog int) (net.Listener, error) {
	fd, err := syscall.Socket(syscall.AF_INET, syscall.SOCK_STREAM, syscall.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("lobby: socket: %w", err)
	}

	if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("lobby: setsockopt SO_REUSEADDR: %w", err)
	}

	sa := &syscall.SockaddrInet4{Port: int(port)}
	if ip := net.ParseIP(host).To4(); ip != nil && host != "" {
		copy(sa.Addr[:], ip)
	}
	// A zero sa.Addr is INADDR_ANY, matching an empty/unspecified host.

	if err := syscall.Bind(fd, sa); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("lobby: bind: %w", err)
	}
	if err := syscall.Listen(fd, backlog); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("lobby: listen: %w", err)
	}

	file := os.NewFile(uintptr(fd), fmt.Sprintf("fourline-listener-:%d", port))
	defer file.Close() // net.FileListener dup()s the descriptor

	ln, err := net.FileListener(file)
	if err != nil {
		return nil, fmt.Errorf("lobby: FileListener: %w", err)
	}
	return ln, nil
}
