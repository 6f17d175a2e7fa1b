package schema

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenNumber
	tokenString
	tokenPunct
)

type token struct {
	kind   tokenKind
	text   string
	quoted bool
}

func (t token) String() string {
	switch t.kind {
	case tokenEOF:
		return "end of statement"
	case tokenString:
		return "'" + t.text + "'"
	case tokenIdent:
		if t.quoted {
			return `"` + t.text + `"`
		}
	}
	return t.text
}

// tokenize splits a SQL script into tokens. Comments are dropped, unquoted
// identifiers and keywords are lowercased.
func tokenize(script string) ([]token, error) {
	tokens := make([]token, 0, len(script)/4)
	for i := 0; i < len(script); {
		c := script[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			i++
		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			end := strings.IndexByte(script[i:], '\n')
			if end < 0 {
				return tokens, nil
			}
			i += end + 1
		case c == '/' && i+1 < len(script) && script[i+1] == '*':
			end := strings.Index(script[i+2:], "*/")
			if end < 0 {
				return nil, fmt.Errorf("unterminated block comment at offset %d", i)
			}
			i += end + 4
		case c == '\'':
			text, next, err := readQuoted(script, i, '\'')
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenString, text: text})
			i = next
		case c == '"':
			text, next, err := readQuoted(script, i, '"')
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenIdent, text: text, quoted: true})
			i = next
		case c == '$':
			return nil, fmt.Errorf("dollar-quoted bodies are not supported (offset %d)", i)
		case isIdentStart(c):
			start := i
			for i < len(script) && isIdentPart(script[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokenIdent, text: strings.ToLower(script[start:i])})
		case c >= '0' && c <= '9':
			start := i
			for i < len(script) && (script[i] >= '0' && script[i] <= '9' || script[i] == '.') {
				i++
			}
			tokens = append(tokens, token{kind: tokenNumber, text: script[start:i]})
		default:
			tokens = append(tokens, token{kind: tokenPunct, text: string(c)})
			i++
		}
	}
	return tokens, nil
}

func readQuoted(script string, start int, quote byte) (string, int, error) {
	var b strings.Builder
	for i := start + 1; i < len(script); i++ {
		if script[i] != quote {
			b.WriteByte(script[i])
			continue
		}
		if i+1 < len(script) && script[i+1] == quote {
			b.WriteByte(quote)
			i++
			continue
		}
		return b.String(), i + 1, nil
	}
	return "", 0, fmt.Errorf("unterminated %c-quoted text at offset %d", quote, start)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '$'
}

// splitStatements groups tokens on top-level semicolons and drops empty groups.
func splitStatements(tokens []token) [][]token {
	var (
		out     [][]token
		current []token
	)
	for _, tok := range tokens {
		if tok.kind == tokenPunct && tok.text == ";" {
			if len(current) > 0 {
				out = append(out, current)
			}
			current = nil
			continue
		}
		current = append(current, tok)
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}

func joinTokens(tokens []token) string {
	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		parts = append(parts, tok.String())
	}
	return strings.Join(parts, " ")
}
