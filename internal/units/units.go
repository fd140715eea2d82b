// Package units provides the opaque unit capability consumed by the field
// engine: parsing a unit string, checking dimensionlessness, and formatting
// for display. It is not a unit algebra; powers are carried verbatim and no
// conversions are performed.
package units

import (
	"fmt"
	"strconv"
	"strings"
)

// Term is a single symbol raised to a power, e.g. cm**-3.
type Term struct {
	Symbol string
	Power  int
}

// Unit is a lazily parsed unit expression. The zero value is dimensionless.
//
// Accepted syntax: symbols joined by "*" or "/", each optionally raised with
// "**" to an integer power, e.g. "g/cm**3", "cm/s", "erg*s", "".
type Unit struct {
	expr   string
	parsed bool
	terms  []Term
	err    error
}

// New creates a unit from its text form without parsing it. The expression is
// validated on first use.
func New(expr string) Unit {
	return Unit{expr: strings.TrimSpace(expr)}
}

// Parse creates a unit and validates it eagerly.
func Parse(expr string) (Unit, error) {
	u := New(expr)
	if err := u.ensure(); err != nil {
		return Unit{}, err
	}
	return u, nil
}

// Expr returns the original text form.
func (u Unit) Expr() string { return u.expr }

// IsDimensionless reports whether the unit carries no symbols.
func (u Unit) IsDimensionless() bool {
	return u.expr == "" || u.expr == "1"
}

// Terms returns the parsed symbol/power pairs.
func (u *Unit) Terms() ([]Term, error) {
	if err := u.ensure(); err != nil {
		return nil, err
	}
	return u.terms, nil
}

// Validate parses the expression if it has not been parsed yet.
func (u *Unit) Validate() error { return u.ensure() }

// String formats the unit for display, normalizing powers to "**" form.
func (u Unit) String() string {
	if u.IsDimensionless() {
		return "dimensionless"
	}
	return u.expr
}

// Label returns the unit text suitable for axis/plot labels, or "" when
// dimensionless.
func (u Unit) Label() string {
	if u.IsDimensionless() {
		return ""
	}
	return u.expr
}

func (u *Unit) ensure() error {
	if u.parsed {
		return u.err
	}
	u.parsed = true
	u.terms, u.err = parseExpr(u.expr)
	return u.err
}

// parseExpr splits a unit expression into terms. Division flips the sign of
// the following term's power.
func parseExpr(expr string) ([]Term, error) {
	if expr == "" || expr == "1" {
		return nil, nil
	}

	var terms []Term
	sign := 1
	rest := expr
	for {
		idx := strings.IndexAny(rest, "*/")
		// "**" belongs to the current term, not to the separator.
		for idx >= 0 && idx+1 < len(rest) && rest[idx] == '*' && rest[idx+1] == '*' {
			next := strings.IndexAny(rest[idx+2:], "*/")
			if next < 0 {
				idx = -1
			} else {
				idx = idx + 2 + next
			}
		}

		var tok string
		if idx < 0 {
			tok = rest
		} else {
			tok = rest[:idx]
		}

		t, err := parseTerm(tok)
		if err != nil {
			return nil, fmt.Errorf("unit %q: %w", expr, err)
		}
		t.Power *= sign
		terms = append(terms, t)

		if idx < 0 {
			return terms, nil
		}
		switch rest[idx] {
		case '*':
			sign = 1
		case '/':
			sign = -1
		}
		rest = rest[idx+1:]
		if rest == "" {
			return nil, fmt.Errorf("unit %q: trailing operator", expr)
		}
	}
}

func parseTerm(tok string) (Term, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return Term{}, fmt.Errorf("empty term")
	}

	sym := tok
	power := 1
	if i := strings.Index(tok, "**"); i >= 0 {
		sym = strings.TrimSpace(tok[:i])
		p, err := strconv.Atoi(strings.TrimSpace(tok[i+2:]))
		if err != nil {
			return Term{}, fmt.Errorf("bad power in %q", tok)
		}
		power = p
	}

	if sym == "" {
		return Term{}, fmt.Errorf("missing symbol in %q", tok)
	}
	for _, r := range sym {
		if !isSymbolRune(r) {
			return Term{}, fmt.Errorf("bad symbol %q", sym)
		}
	}
	return Term{Symbol: sym, Power: power}, nil
}

func isSymbolRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r == '_':
		return true
	}
	return false
}
