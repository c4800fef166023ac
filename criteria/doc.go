// Package criteria turns loosely typed search requests into parameterized SQL.
//
// # Pipeline
//
//	Mapper      request object -> []Field (name, column, value)
//	Resolver    trailing operator keyword -> base name + SQL operator
//	Synthesizer []Field -> []Predicate
//	Fragment    predicates + source + order + page -> query SQL and count SQL
//
// Predicates are always AND combined. Parameters use the :name placeholder
// form and are unique within one Fragment.
//
// # Value shapes
//
// Without an operator keyword a field is classified by its value:
//
//	{"status": []string{"active", "pending"}}  status IN (:status)
//	{"name": "john"}                           name LIKE :name        (john%)
//	{"age": 30}                                age = :age
//
// Tenant scoping properties (tenantCode, securityCode) always use a prefix
// LIKE so hierarchical codes match their descendants.
//
// # Operator keywords
//
// A property ending in a keyword from the Resolver table compares its base
// column: "ageGreaterThanEqual" renders age >= :ageGreaterThanEqual. The
// longest matching keyword wins, so "GreaterThanEqual" beats "GreaterThan".
//
// # JSON containers
//
// A map valued property, or a property routed as "container.key", targets a
// key inside a JSON column:
//
//	{"attrs": {"ageGreaterThan": 18}}  CAST(attrs->>'age' AS NUMERIC) > :attrs_ageGreaterThan
//
// # Example
//
//	synth := criteria.NewSynthesizer(nil, nil)
//	frag := criteria.NewFragment().
//		From("se_menus").
//		Where(synth.Predicates(map[string]any{"name": "系统", "tenantCode": "0"}, "")...).
//		Pageable(criteria.PageOf(0, 10, criteria.Asc("sort")))
//
//	sql, _ := frag.QuerySQL()
//	// SELECT * FROM se_menus WHERE tenant_code LIKE :tenantCode AND name LIKE :name
//	//   ORDER BY sort ASC LIMIT 10 OFFSET 0
package criteria
