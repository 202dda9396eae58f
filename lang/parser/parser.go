// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

// Package parser reads the s-expression surface syntax into lang/lll trees.
// A program is a single form: either an integer literal or a parenthesized
// list whose head is the operator symbol and whose remaining elements are
// its arguments.
package parser

import (
	"math/big"

	"github.com/probechain/lllc/lang/lexer"
	"github.com/probechain/lllc/lang/lll"
	"github.com/probechain/lllc/lang/lllerr"
	"github.com/probechain/lllc/lang/opcodes"
	"github.com/probechain/lllc/lang/token"
)

// Parser turns one token stream into one lll.Node tree.
type Parser struct {
	lex *lexer.Lexer
	cur token.Token
}

// Parse reads filename's contents (already loaded into src) and returns the
// top-level LLL tree.
func Parse(filename, src string) (*lll.Node, error) {
	p := &Parser{lex: lexer.New(filename, src)}
	p.next()
	node, err := p.parseForm()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != token.EOF {
		return nil, lllerr.At(pos(p.cur), lllerr.MalformedNode, "trailing input after the top-level form: %q", p.cur.Literal)
	}
	return node, nil
}

func (p *Parser) next() {
	p.cur = p.lex.Next()
}

func pos(t token.Token) lllerr.Pos {
	return lllerr.Pos{File: t.Pos.File, Line: t.Pos.Line, Column: t.Pos.Column}
}

func (p *Parser) parseForm() (*lll.Node, error) {
	switch p.cur.Type {
	case token.INT:
		v, ok := new(big.Int).SetString(p.cur.Literal, 0)
		if !ok {
			return nil, lllerr.At(pos(p.cur), lllerr.MalformedNode, "invalid integer literal %q", p.cur.Literal)
		}
		tok := p.cur
		p.next()
		n := lll.Int(v)
		n.Pos = pos(tok)
		return n, nil

	case token.SYMBOL:
		tok := p.cur
		p.next()
		return &lll.Node{Symbol: tok.Literal, Valency: 1, Pos: pos(tok)}, nil

	case token.LPAREN:
		return p.parseList()

	default:
		return nil, lllerr.At(pos(p.cur), lllerr.MalformedNode, "expected a form, got %s", p.cur.Type)
	}
}

func (p *Parser) parseList() (*lll.Node, error) {
	openPos := pos(p.cur)
	p.next() // consume '('

	if p.cur.Type != token.SYMBOL {
		return nil, lllerr.At(openPos, lllerr.MalformedNode, "a list's first element must be a symbol naming the operator")
	}
	head := p.cur
	p.next()

	node := &lll.Node{Symbol: head.Literal, Pos: pos(head)}
	for p.cur.Type != token.RPAREN {
		if p.cur.Type == token.EOF {
			return nil, lllerr.At(openPos, lllerr.MalformedNode, "unterminated list")
		}
		child, err := p.parseForm()
		if err != nil {
			return nil, err
		}
		node.Args = append(node.Args, child)
	}
	p.next() // consume ')'
	node.Valency = operatorValency(node)
	return node, nil
}

// operatorValency derives a form's valency from its operator and, where the
// operator's own result tracks a particular child's, that child's already-
// resolved valency. A real or pseudo opcode takes its declared out-arity;
// everything else (clamps, derived comparisons, a user's own macro-like
// forms) defaults to 1, matching lang/lll.FromList.
func operatorValency(n *lll.Node) int {
	switch n.Symbol {
	case "set", "pass", "repeat", "break", "assert":
		return 0
	case "seq":
		if len(n.Args) == 0 {
			return 0
		}
		return n.Args[len(n.Args)-1].Valency
	case "if":
		if len(n.Args) >= 2 {
			return n.Args[1].Valency
		}
		return 1
	case "with":
		if len(n.Args) == 3 {
			return n.Args[2].Valency
		}
		return 1
	case "lll":
		return 1
	default:
		// A real or pseudo opcode's valency is its declared out-arity
		// (spec.md §3's invariant), not a blanket 1 — MSTORE, POP, JUMP,
		// SSTORE, and friends leave nothing on the stack, and a `seq` or
		// `with` that assumed otherwise would emit a POP past the real
		// top of stack. Anything else (clamps, derived comparisons,
		// bound-variable references, user macro-like forms) does leave a
		// single word, matching lang/lll.FromList's own default.
		if info, ok := opcodes.Lookup(n.Symbol); ok {
			return info.OutArity
		}
		return 1
	}
}
