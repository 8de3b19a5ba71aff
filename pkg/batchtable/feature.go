package batchtable

import "github.com/Faultbox/tilebatch/pkg/color"

// Feature is a handle to one feature of a batch table. It holds no state of
// its own; every call goes through the owning table, so a handle becomes
// unusable when the table is destroyed.
type Feature struct {
	table   *BatchTable
	batchID int
}

// BatchID returns the feature's batch id.
func (f *Feature) BatchID() int { return f.batchID }

// Show reports whether the feature is visible.
func (f *Feature) Show() (bool, error) { return f.table.Show(f.batchID) }

// SetShow sets the feature's visibility.
func (f *Feature) SetShow(show bool) error { return f.table.SetShow(f.batchID, show) }

// Color returns the feature's color.
func (f *Feature) Color() (color.Color, error) { return f.table.Color(f.batchID) }

// SetColor sets the feature's color.
func (f *Feature) SetColor(c color.Color) error { return f.table.SetColor(f.batchID, c) }

// Property returns the feature's value of the named property.
func (f *Feature) Property(name string) (any, error) { return f.table.Property(f.batchID, name) }

// SetProperty sets the feature's value of the named property.
func (f *Feature) SetProperty(name string, value any) error {
	return f.table.SetProperty(f.batchID, name, value)
}

// PropertyNames returns the names of the owning table's properties.
func (f *Feature) PropertyNames() []string { return f.table.PropertyNames() }
