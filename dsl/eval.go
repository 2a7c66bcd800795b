/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package dsl

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// EvalExpr evaluates a restricted literal expression: JSON-shaped numbers,
// strings, booleans, null, lists ("[...]"), dicts ("{...}"), and
// Python-style tuples ("(...)"). There are no bindings and no side effects;
// property values are literals, never evaluated through a real language
// interpreter.
func EvalExpr(expr string) (interface{}, error) {
	p := &exprParser{s: strings.TrimSpace(expr)}
	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, errors.Errorf("dsl: trailing garbage in expression %q", expr)
	}
	return v, nil
}

type exprParser struct {
	s   string
	pos int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.s) && unicode.IsSpace(rune(p.s[p.pos])) {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *exprParser) parseValue() (interface{}, error) {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return nil, errors.New("dsl: empty expression")
	}
	switch c := p.peek(); {
	case c == '"' || c == '\'':
		return p.parseString()
	case c == '[':
		return p.parseList()
	case c == '(':
		return p.parseTuple()
	case c == '{':
		return p.parseDict()
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return p.parseKeyword()
	}
}

func (p *exprParser) parseString() (string, error) {
	quote := p.s[p.pos]
	p.pos++
	var sb strings.Builder
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if c == quote {
			p.pos++
			return sb.String(), nil
		}
		if c == '\\' && p.pos+1 < len(p.s) {
			p.pos++
			sb.WriteByte(unescape(p.s[p.pos]))
			p.pos++
			continue
		}
		sb.WriteByte(c)
		p.pos++
	}
	return "", errors.Errorf("dsl: unterminated string in %q", p.s)
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	default:
		return c
	}
}

func (p *exprParser) parseNumber() (interface{}, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	isFloat := false
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		if c == '.' && !isFloat {
			isFloat = true
			p.pos++
			continue
		}
		break
	}
	text := p.s[start:p.pos]
	if text == "" || text == "-" {
		return nil, errors.Errorf("dsl: bad number at %d in %q", start, p.s)
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "dsl: bad number %q", text)
	}
	return f, nil
}

func (p *exprParser) parseKeyword() (interface{}, error) {
	start := p.pos
	for p.pos < len(p.s) && (unicode.IsLetter(rune(p.s[p.pos])) || p.s[p.pos] == '_') {
		p.pos++
	}
	word := p.s[start:p.pos]
	switch word {
	case "true", "True":
		return true, nil
	case "false", "False":
		return false, nil
	case "null", "None", "nil":
		return nil, nil
	default:
		return nil, errors.Errorf("dsl: unrecognized literal %q", word)
	}
}

// parseSequence parses a comma-separated run of values between open/close,
// tolerating a trailing comma and an empty sequence.
func (p *exprParser) parseSequence(open, close byte) ([]interface{}, error) {
	if p.peek() != open {
		return nil, errors.Errorf("dsl: expected %q", open)
	}
	p.pos++
	var out []interface{}
	p.skipSpace()
	for p.peek() != close {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
			p.skipSpace()
			continue
		}
		break
	}
	if p.peek() != close {
		return nil, errors.Errorf("dsl: expected closing %q in %q", close, p.s)
	}
	p.pos++
	return out, nil
}

func (p *exprParser) parseList() (interface{}, error) {
	vals, err := p.parseSequence('[', ']')
	if err != nil {
		return nil, err
	}
	if vals == nil {
		vals = []interface{}{}
	}
	return vals, nil
}

func (p *exprParser) parseTuple() (interface{}, error) {
	vals, err := p.parseSequence('(', ')')
	if err != nil {
		return nil, err
	}
	return Tuple(vals), nil
}

func (p *exprParser) parseDict() (interface{}, error) {
	if p.peek() != '{' {
		return nil, errors.New("dsl: expected '{'")
	}
	p.pos++
	out := map[string]interface{}{}
	p.skipSpace()
	for p.peek() != '}' {
		key, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		keyStr, ok := key.(string)
		if !ok {
			return nil, errors.Errorf("dsl: dict keys must be strings, got %T", key)
		}
		p.skipSpace()
		if p.peek() != ':' {
			return nil, errors.Errorf("dsl: expected ':' in dict at %q", p.s[p.pos:])
		}
		p.pos++
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		out[keyStr] = val
		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
			p.skipSpace()
			continue
		}
		break
	}
	if p.peek() != '}' {
		return nil, errors.Errorf("dsl: expected closing '}' in %q", p.s)
	}
	p.pos++
	return out, nil
}
