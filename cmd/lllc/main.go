// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

// Command lllc compiles LLL source into EVM bytecode.
//
// Usage:
//
//	lllc compile [--out <file>] [--gas] [--config <file.toml>] <source.lll>
//	lllc gas <source.lll>
//	lllc opcodes
//	lllc repl
package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/naoina/toml"
	"github.com/olekukonko/tablewriter"
	"github.com/peterh/liner"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/probechain/lllc/lang/asm"
	"github.com/probechain/lllc/lang/gas"
	"github.com/probechain/lllc/lang/link"
	"github.com/probechain/lllc/lang/opcodes"
	"github.com/probechain/lllc/lang/parser"
)

const version = "0.1.0"

// config mirrors the open behavioral knob spec.md §9 leaves to the caller:
// whether a literal-zero repeat count is the reference implementation's
// quirk or a hard error. Loaded from an optional TOML file so it can be
// pinned per project rather than passed on every invocation.
type config struct {
	RejectZeroTripRepeat bool `toml:"reject_zero_trip_repeat"`
	Color                bool `toml:"color"`
}

func defaultConfig() config {
	return config{RejectZeroTripRepeat: false, Color: true}
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// out is the CLI's stdout, wrapped so that color escapes degrade cleanly
// when stdout isn't a terminal (for example, when piped into another
// tool), matching the rest of the teacher's cmd/ tree.
var out = colorable.NewColorableStdout()

func main() {
	logger := log.New(os.Stderr, "lllc: ", 0)

	app := cli.NewApp()
	app.Name = "lllc"
	app.Usage = "compile LLL to EVM bytecode"
	app.Version = version
	app.Commands = []cli.Command{
		compileCommand(logger),
		gasCommand(logger),
		opcodesCommand(),
		replCommand(logger),
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(out, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

func compileCommand(logger *log.Logger) cli.Command {
	return cli.Command{
		Name:      "compile",
		Usage:     "compile an LLL source file to bytecode",
		ArgsUsage: "<source.lll>",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "out", Usage: "write bytecode to this file instead of stdout"},
			cli.StringFlag{Name: "config", Usage: "path to a TOML config file"},
			cli.BoolFlag{Name: "gas", Usage: "also print the static gas estimate"},
			cli.BoolFlag{Name: "emit-tree", Usage: "dump the parsed tree instead of compiling"},
			cli.BoolFlag{Name: "verbose", Usage: "log a run id to stderr"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.NewExitError("expected exactly one source file", 1)
			}
			runID := uuid.New()
			if c.Bool("verbose") {
				logger.Printf("run %s: compiling %s", runID, c.Args().Get(0))
			}

			cfg, err := loadConfig(c.String("config"))
			if err != nil {
				return cli.NewExitError(err.Error(), 1)
			}
			if !cfg.Color {
				color.NoColor = true
			}

			src, err := ioutil.ReadFile(c.Args().Get(0))
			if err != nil {
				return cli.NewExitError(err.Error(), 1)
			}

			tree, err := parser.Parse(c.Args().Get(0), string(src))
			if err != nil {
				return cli.NewExitError(err.Error(), 1)
			}

			if c.Bool("emit-tree") {
				spew.Fdump(out, tree)
				return nil
			}

			gen := asm.NewGeneratorWithOptions(asm.Options{RejectZeroTripRepeat: cfg.RejectZeroTripRepeat})
			toks, err := gen.Compile(tree)
			if err != nil {
				return cli.NewExitError(err.Error(), 1)
			}

			bytecode, err := link.New().Encode(toks)
			if err != nil {
				return cli.NewExitError(err.Error(), 1)
			}

			if c.Bool("gas") {
				cost, err := gas.Estimate(tree, 0)
				if err != nil {
					return cli.NewExitError(err.Error(), 1)
				}
				fmt.Fprintln(out, color.YellowString("estimated gas: %d", cost))
			}

			encoded := hex.EncodeToString(bytecode)
			if dest := c.String("out"); dest != "" {
				return ioutil.WriteFile(dest, []byte(encoded+"\n"), 0644)
			}
			fmt.Fprintln(out, encoded)
			return nil
		},
	}
}

func gasCommand(logger *log.Logger) cli.Command {
	return cli.Command{
		Name:      "gas",
		Usage:     "print the static gas estimate for an LLL source file",
		ArgsUsage: "<source.lll>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.NewExitError("expected exactly one source file", 1)
			}
			src, err := ioutil.ReadFile(c.Args().Get(0))
			if err != nil {
				return cli.NewExitError(err.Error(), 1)
			}
			tree, err := parser.Parse(c.Args().Get(0), string(src))
			if err != nil {
				return cli.NewExitError(err.Error(), 1)
			}
			cost, err := gas.Estimate(tree, 0)
			if err != nil {
				return cli.NewExitError(err.Error(), 1)
			}
			fmt.Fprintln(out, cost)
			return nil
		},
	}
}

func opcodesCommand() cli.Command {
	return cli.Command{
		Name:  "opcodes",
		Usage: "print the opcode table",
		Action: func(c *cli.Context) error {
			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"Mnemonic", "Byte", "In", "Out", "Gas"})
			for _, n := range opcodes.All() {
				table.Append([]string{
					n.Mnemonic,
					fmt.Sprintf("0x%02x", n.Info.Byte),
					fmt.Sprintf("%d", n.Info.InArity),
					fmt.Sprintf("%d", n.Info.OutArity),
					fmt.Sprintf("%d", n.Info.Gas),
				})
			}
			table.Render()
			return nil
		},
	}
}

func replCommand(logger *log.Logger) cli.Command {
	return cli.Command{
		Name:  "repl",
		Usage: "interactively compile one form at a time",
		Action: func(c *cli.Context) error {
			line := liner.NewLiner()
			defer line.Close()
			line.SetCtrlCAborts(true)

			prompt := "lllc> "
			if !isatty.IsTerminal(os.Stdout.Fd()) {
				prompt = ""
			}

			gen := asm.NewGenerator()
			for {
				input, err := line.Prompt(prompt)
				if err != nil {
					if err == liner.ErrPromptAborted || err == io.EOF {
						return nil
					}
					return cli.NewExitError(err.Error(), 1)
				}
				line.AppendHistory(input)

				tree, err := parser.Parse("<repl>", input)
				if err != nil {
					fmt.Fprintln(out, color.RedString("%v", err))
					continue
				}
				toks, err := gen.Compile(tree)
				if err != nil {
					fmt.Fprintln(out, color.RedString("%v", err))
					continue
				}
				bytecode, err := link.New().Encode(toks)
				if err != nil {
					fmt.Fprintln(out, color.RedString("%v", err))
					continue
				}
				fmt.Fprintln(out, hex.EncodeToString(bytecode))
			}
		},
	}
}
