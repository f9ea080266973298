package ir

// BuildValueSets resolves every value_set-typed object into the
// name -> set-of-values form parser.New expects.
//
// The original Python's value-set handling (self.iri_value_set[name] =
// []) is never actually filled in from the IR; it is dead code in the
// source this config format was distilled from. Since parser graph edges
// reference value sets by name (in_value_set/not_in_value_set), this
// package introduces the convention the original never finished: a
// value_set-typed object declares its members directly via a "values"
// attribute, a list of integer literals.
func BuildValueSets(doc *Document) (map[string]map[int64]bool, error) {
	sets := make(map[string]map[int64]bool)

	for _, obj := range doc.ObjectsOfType("value_set") {
		raw, ok := obj.Attrs["values"]
		if !ok {
			return nil, configError(obj.Name, "value_set requires a \"values\" attribute")
		}
		list, ok := raw.([]any)
		if !ok {
			return nil, configError(obj.Name, "values must be a list")
		}

		members := make(map[int64]bool, len(list))
		for _, v := range list {
			n, err := toInt64(v)
			if err != nil {
				return nil, configError(obj.Name, "values: %v", err)
			}
			members[n] = true
		}
		sets[obj.Name] = members
	}

	return sets, nil
}
