package core

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderBy renders orderings as ORDER BY expressions.
func OrderBy(orderings ...DBOrdering) []string {
	exprs := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		exprs = append(exprs, ord.String())
	}
	return exprs
}
