// Entry point
//
// Copyright (c) 2021, 2022  Philip Kaludercic
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

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"go-fourline/internal/config"
	"go-fourline/internal/lobby"
	"go-fourline/internal/registry"
)

// Default file name for the configuration file.
const defconf = "server.toml"

func main() {
	var (
		confFile = flag.String("conf", defconf, "Name of configuration file")
		dumpConf = flag.Bool("dump-config", false, "Dump default configuration")
		debug    = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <port>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*confFile)
	if err != nil {
		if !os.IsNotExist(err) || *confFile != defconf {
			log.Fatal(err)
		}
		cfg = config.Default()
	}
	if *debug {
		cfg.EnableDebug()
	}

	if *dumpConf {
		if err := cfg.Dump(os.Stdout); err != nil {
			log.Fatalln("failed to dump configuration:", err)
		}
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	port, err := strconv.ParseUint(flag.Arg(0), 10, 16)
	if err != nil || port == 0 {
		fmt.Fprintf(os.Stderr, "%s: invalid port %q\n", os.Args[0], flag.Arg(0))
		os.Exit(1)
	}
	cfg.Port = uint(port)

	players := registry.NewPlayers()
	games := registry.NewGames()
	workers := registry.NewWorkers()

	l := lobby.New(cfg, players, games, workers)
	if err := l.Run(); err != nil {
		log.Fatal(err)
	}
}
