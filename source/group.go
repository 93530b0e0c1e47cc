package source

// Group is the set of rows sharing one key value, in source order.
type Group struct {
	Key  string
	Rows []Row
}

// GroupBy drains the table and groups rows by the trimmed value of field.
// Groups appear in order of first occurrence, so rows for one key need not
// be contiguous in the source. Rows with a blank key form a group with an
// empty Key; callers decide whether to skip them.
//
// The table is not closed.
func GroupBy(t Table, field string) ([]Group, error) {
	index := make(map[string]int)
	var groups []Group
	for t.Next() {
		row := t.Row()
		key := row.Text(field)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Rows = append(groups[i].Rows, row)
	}
	if err := t.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}
