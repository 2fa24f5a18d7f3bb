// Package sqlguard gates execution behind a conservative read-only check.
// It is a keyword scan with string-literal awareness, not a SQL parser:
// anything it cannot confidently classify as a pure read query is rejected,
// trading false rejections for zero false acceptances. Keywords hidden in
// vendor-specific quoting it does not strip can still cause false rejections.
package sqlguard

import (
	"strings"
	"unicode"

	"github.com/tablescout/tablescout/internal/errors"
)

// blockedKeywords are statement kinds that can mutate data or schema, plus
// engine escape hatches. Matched at the top level only, never inside string
// literals or quoted identifiers.
var blockedKeywords = map[string]bool{
	"INSERT":   true,
	"UPDATE":   true,
	"DELETE":   true,
	"DROP":     true,
	"CREATE":   true,
	"ALTER":    true,
	"TRUNCATE": true,
	"ATTACH":   true,
	"PRAGMA":   true,
	"GRANT":    true,
	"REVOKE":   true,
}

// Validate accepts a statement only if it is a single read-only query: the
// first keyword is SELECT (or WITH ... SELECT) and no blocked keyword appears
// at the top level. The reason in the returned error names the rule that
// triggered. The caller executes the original, unmodified text; normalization
// here is for comparison only.
func Validate(statement string) error {
	trimmed := strings.TrimSpace(statement)
	if trimmed == "" {
		return errors.New(errors.ErrTypeSqlRejected, "statement is empty")
	}

	tokens, extraStatement, err := scan(trimmed)
	if err != nil {
		return err
	}

	if extraStatement {
		return errors.New(errors.ErrTypeSqlRejected,
			"multiple statements are not allowed (statement separator found)")
	}

	if len(tokens) == 0 {
		return errors.New(errors.ErrTypeSqlRejected, "statement contains no SQL keywords")
	}

	first := tokens[0]
	if first != "SELECT" && first != "WITH" {
		return errors.Newf(errors.ErrTypeSqlRejected,
			"only SELECT statements are allowed (first keyword is %s)", first)
	}

	if first == "WITH" && !contains(tokens, "SELECT") {
		return errors.New(errors.ErrTypeSqlRejected,
			"WITH clause must be followed by a SELECT")
	}

	for _, token := range tokens {
		if blockedKeywords[token] {
			return errors.Newf(errors.ErrTypeSqlRejected,
				"statement contains forbidden keyword %s", token)
		}
	}

	return nil
}

// scan tokenizes the statement, skipping string literals and quoted
// identifiers. It reports whether a statement separator is followed by more
// SQL, and rejects comment syntax outright since commented-out text cannot be
// confidently classified.
func scan(statement string) ([]string, bool, error) {
	var tokens []string

	var word strings.Builder

	extraStatement := false
	runes := []rune(statement)

	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, strings.ToUpper(word.String()))
			word.Reset()
		}
	}

	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		switch {
		case ch == '\'':
			flush()

			// Single-quoted literal; '' escapes a quote.
			i++
			for i < len(runes) {
				if runes[i] == '\'' {
					if i+1 < len(runes) && runes[i+1] == '\'' {
						i += 2
						continue
					}

					break
				}
				i++
			}

			if i >= len(runes) {
				return nil, false, errors.New(errors.ErrTypeSqlRejected,
					"unterminated string literal")
			}
		case ch == '"':
			flush()

			// Double-quoted identifier.
			i++
			for i < len(runes) && runes[i] != '"' {
				i++
			}

			if i >= len(runes) {
				return nil, false, errors.New(errors.ErrTypeSqlRejected,
					"unterminated quoted identifier")
			}
		case ch == ';':
			flush()

			// A trailing separator is tolerated; anything after it is a
			// second statement.
			if strings.TrimSpace(string(runes[i+1:])) != "" {
				extraStatement = true
			}
		case ch == '-' && i+1 < len(runes) && runes[i+1] == '-':
			return nil, false, errors.New(errors.ErrTypeSqlRejected,
				"comments are not allowed")
		case ch == '/' && i+1 < len(runes) && runes[i+1] == '*':
			return nil, false, errors.New(errors.ErrTypeSqlRejected,
				"comments are not allowed")
		case unicode.IsLetter(ch) || ch == '_' || (word.Len() > 0 && unicode.IsDigit(ch)):
			word.WriteRune(ch)
		default:
			flush()
		}
	}

	flush()

	return tokens, extraStatement, nil
}

func contains(tokens []string, keyword string) bool {
	for _, token := range tokens {
		if token == keyword {
			return true
		}
	}

	return false
}
