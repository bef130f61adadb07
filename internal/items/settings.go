package items

// MergeSettings layers per-item overrides on top of processing defaults.
// For every default key present in overrides: when both values are tables
// the merge recurses key-by-key, otherwise the override wins. Keys present
// only in overrides are added as-is. Neither input is mutated.
func MergeSettings(defaults, overrides map[string]any) map[string]any {
	if overrides == nil {
		return cloneMap(defaults)
	}

	result := make(map[string]any, len(defaults)+len(overrides))
	for key, defaultValue := range defaults {
		overrideValue, present := overrides[key]
		if !present {
			result[key] = cloneValue(defaultValue)
			continue
		}
		defaultTable, defaultIsTable := defaultValue.(map[string]any)
		overrideTable, overrideIsTable := overrideValue.(map[string]any)
		if defaultIsTable && overrideIsTable {
			result[key] = MergeSettings(defaultTable, overrideTable)
		} else {
			result[key] = cloneValue(overrideValue)
		}
	}
	for key, overrideValue := range overrides {
		if _, present := result[key]; !present {
			result[key] = cloneValue(overrideValue)
		}
	}
	return result
}

func cloneMap(source map[string]any) map[string]any {
	clone := make(map[string]any, len(source))
	for key, value := range source {
		clone[key] = cloneValue(value)
	}
	return clone
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return cloneMap(typed)
	case []any:
		clone := make([]any, len(typed))
		for i, element := range typed {
			clone[i] = cloneValue(element)
		}
		return clone
	default:
		return value
	}
}
