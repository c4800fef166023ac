package criteria

import (
	"strings"
)

// DefaultSortProperty is the stable tiebreak used when a pageable carries
// no sort terms.
const DefaultSortProperty = "id"

// Direction of a sort term.
type Direction string

const (
	ASC  Direction = "ASC"
	DESC Direction = "DESC"
)

// Order is one requested sort term, named by property (not column).
type Order struct {
	Property   string
	Direction  Direction
	IgnoreCase bool
}

// Asc sorts property ascending.
func Asc(property string) Order {
	return Order{Property: property, Direction: ASC}
}

// Desc sorts property descending.
func Desc(property string) Order {
	return Order{Property: property, Direction: DESC}
}

// Pageable is a page request: zero based page number, page size and sort.
// A Size of zero means unpaged.
type Pageable struct {
	Page int
	Size int
	Sort []Order
}

// PageOf builds a Pageable.
func PageOf(page, size int, sort ...Order) Pageable {
	return Pageable{Page: page, Size: size, Sort: sort}
}

// Unpaged returns a Pageable without limit or offset.
func Unpaged(sort ...Order) Pageable {
	return Pageable{Sort: sort}
}

// IsPaged reports whether a limit applies.
func (p Pageable) IsPaged() bool {
	return p.Size > 0
}

// Offset is Page * Size.
func (p Pageable) Offset() int {
	return p.Page * p.Size
}

// Validate rejects negative page numbers and sizes and sort properties that
// are not bare identifiers.
func (p Pageable) Validate() error {
	if p.Page < 0 {
		return &ConfigError{Field: "Pageable.Page", Message: "must not be negative"}
	}
	if p.Size < 0 {
		return &ConfigError{Field: "Pageable.Size", Message: "must not be negative"}
	}
	for _, o := range p.Sort {
		if !isIdentifier(o.Property) {
			return &ConfigError{Field: "Pageable.Sort", Message: "invalid property " + o.Property}
		}
		if o.Direction != "" && o.Direction != ASC && o.Direction != DESC {
			return &ConfigError{Field: "Pageable.Sort", Message: "invalid direction " + string(o.Direction)}
		}
	}
	return nil
}

// OrderTerms maps the sort to column order terms. Unsorted pageables yield
// the default term on DefaultSortProperty.
func (p Pageable) OrderTerms(tablePrefix string) []OrderTerm {
	if len(p.Sort) == 0 {
		return []OrderTerm{{Column: qualify(tablePrefix, DefaultSortProperty), Ascending: true}}
	}
	terms := make([]OrderTerm, 0, len(p.Sort))
	for _, o := range p.Sort {
		terms = append(terms, OrderTerm{
			Column:          qualify(tablePrefix, ToSnake(o.Property)),
			Ascending:       o.Direction != DESC,
			CaseInsensitive: o.IgnoreCase,
		})
	}
	return terms
}

// ParseOrder parses "property", "property,asc", "property,desc,ignorecase"
// and "-property".
func ParseOrder(s string) (Order, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		s = strings.TrimPrefix(s, "-") + ",desc"
	} else {
		s = strings.TrimPrefix(s, "+")
	}

	parts := strings.Split(s, ",")
	o := Order{Property: strings.TrimSpace(parts[0]), Direction: ASC}
	for _, part := range parts[1:] {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "asc":
			o.Direction = ASC
		case "desc":
			o.Direction = DESC
		case "ignorecase":
			o.IgnoreCase = true
		case "":
		default:
			return Order{}, &ConfigError{Field: "Pageable.Sort", Message: "invalid sort modifier " + part}
		}
	}

	if !isIdentifier(o.Property) {
		return Order{}, &ConfigError{Field: "Pageable.Sort", Message: "invalid property " + o.Property}
	}
	return o, nil
}

// ParsePageable builds and validates a Pageable from request parameters.
func ParsePageable(page, size int, sort ...string) (Pageable, error) {
	p := Pageable{Page: page, Size: size}
	for _, s := range sort {
		if strings.TrimSpace(s) == "" {
			continue
		}
		o, err := ParseOrder(s)
		if err != nil {
			return Pageable{}, err
		}
		p.Sort = append(p.Sort, o)
	}
	return p, p.Validate()
}
