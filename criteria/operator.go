package criteria

import (
	"sort"
	"strings"
)

// Arity describes how many bind parameters an operator consumes.
type Arity int

const (
	// ArityOne binds a single value: col > :p
	ArityOne Arity = iota
	// ArityNone binds nothing: col IS NULL
	ArityNone
	// ArityList binds a collection: col IN (:p)
	ArityList
	// ArityRange binds a lower and an upper bound: col BETWEEN :p_from AND :p_to
	ArityRange
)

// Wildcard controls where LIKE wildcards are placed around a bound value.
type Wildcard int

const (
	WildcardNone Wildcard = iota
	WildcardTrailing
	WildcardLeading
	WildcardBoth
)

// Apply wraps v with the wildcard placement.
func (w Wildcard) Apply(v string) string {
	switch w {
	case WildcardTrailing:
		return v + "%"
	case WildcardLeading:
		return "%" + v
	case WildcardBoth:
		return "%" + v + "%"
	default:
		return v
	}
}

// Token is one immutable entry of the operator keyword table. Suffix is
// matched case sensitively against the end of a property name.
type Token struct {
	Suffix   string
	Operator string
	Arity    Arity
	Wildcard Wildcard
	// Fixed, when non nil, replaces the request value (IsTrue, IsFalse).
	Fixed any
}

func (t Token) acceptsBool() bool {
	if t.Arity == ArityNone || t.Fixed != nil {
		return true
	}
	return t.Arity == ArityOne && (t.Operator == "=" || t.Operator == "<>")
}

// IsLike reports whether the token renders a LIKE family comparison.
func (t Token) IsLike() bool {
	return strings.HasSuffix(t.Operator, "LIKE")
}

// DefaultTokens returns a fresh copy of the keyword table used by
// NewDefaultResolver.
func DefaultTokens() []Token {
	return []Token{
		{Suffix: "GreaterThanEqual", Operator: ">="},
		{Suffix: "GreaterThan", Operator: ">"},
		{Suffix: "LessThanEqual", Operator: "<="},
		{Suffix: "LessThan", Operator: "<"},
		{Suffix: "After", Operator: ">"},
		{Suffix: "Before", Operator: "<"},
		{Suffix: "Between", Operator: "BETWEEN", Arity: ArityRange},
		{Suffix: "NotBetween", Operator: "NOT BETWEEN", Arity: ArityRange},
		{Suffix: "In", Operator: "IN", Arity: ArityList},
		{Suffix: "NotIn", Operator: "NOT IN", Arity: ArityList},
		{Suffix: "IsNull", Operator: "IS NULL", Arity: ArityNone},
		{Suffix: "IsNotNull", Operator: "IS NOT NULL", Arity: ArityNone},
		{Suffix: "NotNull", Operator: "IS NOT NULL", Arity: ArityNone},
		{Suffix: "Like", Operator: "LIKE"},
		{Suffix: "NotLike", Operator: "NOT LIKE"},
		{Suffix: "StartingWith", Operator: "LIKE", Wildcard: WildcardTrailing},
		{Suffix: "EndingWith", Operator: "LIKE", Wildcard: WildcardLeading},
		{Suffix: "Containing", Operator: "LIKE", Wildcard: WildcardBoth},
		{Suffix: "NotContaining", Operator: "NOT LIKE", Wildcard: WildcardBoth},
		{Suffix: "Not", Operator: "<>"},
		{Suffix: "IsTrue", Operator: "=", Fixed: true},
		{Suffix: "IsFalse", Operator: "=", Fixed: false},
	}
}

// Resolver detects a trailing operator keyword on a property name.
type Resolver struct {
	// ordered longest suffix first so the first hit is the longest match
	tokens []Token
}

// NewResolver builds a Resolver over tokens. Two tokens with the same suffix
// would make resolution ambiguous and are rejected.
func NewResolver(tokens ...Token) (*Resolver, error) {
	seen := make(map[string]struct{}, len(tokens))
	ordered := make([]Token, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Suffix == "" {
			return nil, &ConfigError{Field: "Token.Suffix", Message: "must not be empty"}
		}
		if tok.Operator == "" {
			return nil, &ConfigError{Field: "Token.Operator", Message: "must not be empty for suffix " + tok.Suffix}
		}
		if _, dup := seen[tok.Suffix]; dup {
			return nil, &ConfigError{Field: "Token.Suffix", Message: "ambiguous suffix " + tok.Suffix}
		}
		seen[tok.Suffix] = struct{}{}
		ordered = append(ordered, tok)
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].Suffix) > len(ordered[j].Suffix)
	})

	return &Resolver{tokens: ordered}, nil
}

// NewDefaultResolver returns a Resolver over DefaultTokens.
func NewDefaultResolver() *Resolver {
	r, err := NewResolver(DefaultTokens()...)
	if err != nil {
		// the built-in table is suffix-unambiguous
		panic(err)
	}
	return r
}

// Resolve returns the base name and token for the longest suffix that name
// ends with. A suffix that would leave an empty base name does not match.
func (r *Resolver) Resolve(name string) (string, Token, bool) {
	for _, tok := range r.tokens {
		if len(name) > len(tok.Suffix) && strings.HasSuffix(name, tok.Suffix) {
			return strings.TrimSuffix(name, tok.Suffix), tok, true
		}
	}
	return "", Token{}, false
}

// Tokens returns the table in resolution order.
func (r *Resolver) Tokens() []Token {
	return append([]Token(nil), r.tokens...)
}
