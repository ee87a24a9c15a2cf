// Configuration specification and management
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

// Package config loads the server's optional TOML configuration file
// and carries the process-wide loggers, mirroring the teacher's own
// conf package.
package config

import (
	"io"
	"log"
	"os"

	"github.com/BurntSushi/toml"
)

// fileConf is the on-disk representation.
type fileConf struct {
	Debug   bool   `toml:"debug"`
	Host    string `toml:"host"`
	Port    uint   `toml:"port"`
	Backlog int    `toml:"backlog"`
}

// Conf is the server's resolved, in-memory configuration.
type Conf struct {
	Log   *log.Logger
	Debug *log.Logger

	Host    string
	Port    uint
	Backlog int
}

// Default returns the configuration used when no file is supplied.
func Default() *Conf {
	return &Conf{
		Log:     log.Default(),
		Debug:   log.New(io.Discard, "[debug] ", log.Ltime|log.Lshortfile|log.Lmicroseconds),
		Host:    "0.0.0.0",
		Port:    4000,
		Backlog: 10,
	}
}

// Load reads NAME as a TOML file and overlays it on Default(). A
// missing file is returned as the os.Open error (os.IsNotExist holds
// for it); the caller decides (as cmd/server does) whether a missing
// default configuration file is acceptable.
func Load(name string) (*Conf, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var data fileConf
	if _, err := toml.NewDecoder(file).Decode(&data); err != nil {
		return nil, err
	}

	c := Default()
	if data.Host != "" {
		c.Host = data.Host
	}
	if data.Port != 0 {
		c.Port = data.Port
	}
	if data.Backlog != 0 {
		c.Backlog = data.Backlog
	}
	if data.Debug {
		c.Debug.SetOutput(os.Stderr)
	}
	return c, nil
}

// Dump serializes C back into its TOML representation, mirroring the
// teacher's -dump-config flag.
func (c *Conf) Dump(w io.Writer) error {
	data := fileConf{
		Debug:   c.Debug.Writer() != io.Discard,
		Host:    c.Host,
		Port:    c.Port,
		Backlog: c.Backlog,
	}
	return toml.NewEncoder(w).Encode(data)
}

// EnableDebug switches Debug output on, matching the teacher's
// -debug flag handling in conf/io.go.
func (c *Conf) EnableDebug() {
	c.Debug.SetOutput(os.Stderr)
}
