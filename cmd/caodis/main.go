// Copyright 2024 The Cao-Lang Authors
// This file is part of Cao-Lang.
//
// Cao-Lang is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Cao-Lang is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Cao-Lang. If not, see <http://www.gnu.org/licenses/>.

// Command caodis disassembles a compiled Cao-Lang program. It reads a
// YAML-enveloped bytecode.CompiledProgram from stdin and writes one
// "<offset>: <mnemonic> <operands>" line per instruction to stdout, exiting
// 0 on success or 1 if the envelope fails to deserialize.
//
// Usage:
//
//	caodis < program.yaml
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/cao-lang/cao-lang-go/bytecode"
)

func main() {
	app := cli.NewApp()
	app.Name = "caodis"
	app.Usage = "disassemble a compiled Cao-Lang program read from stdin"
	v := bytecode.CurrentVersion
	app.Version = fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "caodis: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}

	prog := bytecode.NewCompiledProgram()
	if err := yaml.Unmarshal(raw, prog); err != nil {
		return fmt.Errorf("decoding program: %w", err)
	}

	useColor := isatty.IsTerminal(os.Stdout.Fd())
	return disassemble(prog, os.Stdout, useColor)
}
