// Package items normalizes the configured image list into typed ItemSpec
// values and owns the settings merge policy applied before transformation.
//
// Configuration accepts two shapes per item: a bare locator string, or a
// table with url (or the alternate source key), an optional filename, and
// optional per-item settings. Anything else is a validation error that
// skips only that item.
package items
