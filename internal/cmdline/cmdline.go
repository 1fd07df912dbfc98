// Package cmdline encodes and decodes single command-line strings.
//
// Process creation here takes one flat command string rather than an
// argument vector, so discrete argument tokens must be re-quoted such
// that the child's own argument parser recovers them unchanged. Quote
// implements the classic backslash-run escaping discipline for the
// CommandLineToArgvW recovery rule; Split implements the recovery rule
// itself, which both closes the round-trip for testing and lets the
// POSIX spawn path re-derive the argv from the assembled string.
package cmdline

import "strings"

// metachars are the characters that force a token to be quoted.
const metachars = " \t\n\v\""

// Quote appends-style encodes a single argument token. When force is
// false and the token is non-empty and free of whitespace and quote
// characters, it is returned unmodified; some programs mis-parse quotes
// they did not need, so quoting overhead is avoided where possible.
//
// Otherwise the token is wrapped in double quotes and rewritten run by
// run: a maximal run of backslashes is doubled when the closing quote
// follows (the added quote must stay a metacharacter), doubled plus one
// when an embedded quote follows (so the quote survives as a literal),
// and emitted unchanged before any other character.
func Quote(token string, force bool) string {
	if !force && token != "" && !strings.ContainsAny(token, metachars) {
		return token
	}

	var b strings.Builder
	b.Grow(len(token) + 2)
	b.WriteByte('"')

	for i := 0; i < len(token); {
		backslashes := 0
		for i < len(token) && token[i] == '\\' {
			backslashes++
			i++
		}

		switch {
		case i == len(token):
			b.WriteString(strings.Repeat(`\`, backslashes*2))
		case token[i] == '"':
			b.WriteString(strings.Repeat(`\`, backslashes*2+1))
			b.WriteByte('"')
			i++
		default:
			b.WriteString(strings.Repeat(`\`, backslashes))
			b.WriteByte(token[i])
			i++
		}
	}

	b.WriteByte('"')

	return b.String()
}

// Join builds a full command line from ordered argument tokens. Joining
// with plain spaces is correct only because every token is independently
// escaped by Quote; no cross-token escaping exists in the target rule.
func Join(tokens []string) string {
	quoted := make([]string, len(tokens))
	for i, token := range tokens {
		quoted[i] = Quote(token, false)
	}

	return strings.Join(quoted, " ")
}

// Split recovers the argument tokens from a command line using the
// canonical rule Quote targets: unquoted whitespace separates tokens;
// 2n backslashes before a quote yield n backslashes and toggle quoting;
// 2n+1 backslashes before a quote yield n backslashes and a literal
// quote; backslashes are literal everywhere else; a doubled quote
// inside a quoted span yields one literal quote.
//
// Every token, including the first, is parsed with the same rule.
func Split(commandLine string) []string {
	var tokens []string

	s := commandLine
	for {
		s = strings.TrimLeft(s, " \t")
		if s == "" {
			return tokens
		}

		var token string
		token, s = readToken(s)
		tokens = append(tokens, token)
	}
}

// readToken consumes one argument token and returns it with the
// unconsumed remainder of the command line.
func readToken(s string) (string, string) {
	var b []byte

	backslashes := 0
	inQuote := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			backslashes++
		case c == '"':
			b = appendBackslashes(b, backslashes/2)
			if backslashes%2 == 1 {
				b = append(b, '"')
			} else {
				if inQuote && i+1 < len(s) && s[i+1] == '"' {
					b = append(b, '"')
					i++
				}
				inQuote = !inQuote
			}
			backslashes = 0
		case (c == ' ' || c == '\t') && !inQuote:
			b = appendBackslashes(b, backslashes)
			return string(b), s[i:]
		default:
			b = appendBackslashes(b, backslashes)
			backslashes = 0
			b = append(b, c)
		}
	}

	b = appendBackslashes(b, backslashes)

	return string(b), ""
}

func appendBackslashes(b []byte, n int) []byte {
	for ; n > 0; n-- {
		b = append(b, '\\')
	}

	return b
}
