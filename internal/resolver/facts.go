package resolver

// NotAvailable is shown for unresolved slots.
const NotAvailable = "N/A"

// Presentation caps. The facts keep every value; only rendering is capped.
const (
	MaxDisplayColors = 12
	MaxDisplaySizes  = 6
)

// Facts is the canonical, sanitized fact set handed to presentation.
// Empty strings mean the slot is unresolved.
type Facts struct {
	VendorStyle    string   `json:"vendor_style"`
	Colors         []string `json:"colors"`
	Sizes          []string `json:"sizes"`
	TotalUnits     string   `json:"total_units"`
	UnitsPerCarton string   `json:"units_per_carton"`
	TotalCartons   string   `json:"total_cartons"`
	PrepackRatio   string   `json:"prepack_ratio"`
	RedactedFields []string `json:"redacted_fields"`
}

// Slot names a value position inside Facts.
type Slot string

const (
	SlotVendorStyle    Slot = "vendor_style"
	SlotColor          Slot = "color"
	SlotSize           Slot = "size"
	SlotTotalUnits     Slot = "total_units"
	SlotUnitsPerCarton Slot = "units_per_carton"
	SlotTotalCartons   Slot = "total_cartons"
	SlotPrepackRatio   Slot = "prepack_ratio"
	SlotRedactedField  Slot = "redacted_field"
)

// SlotValue is one string embedded in Facts.
type SlotValue struct {
	Slot  Slot
	Value string
}

// Values lists every non-empty fact string except the redacted labels.
func (f *Facts) Values() []SlotValue {
	var out []SlotValue
	add := func(s Slot, v string) {
		if v != "" {
			out = append(out, SlotValue{Slot: s, Value: v})
		}
	}

	add(SlotVendorStyle, f.VendorStyle)
	for _, c := range f.Colors {
		add(SlotColor, c)
	}
	for _, s := range f.Sizes {
		add(SlotSize, s)
	}
	add(SlotTotalUnits, f.TotalUnits)
	add(SlotUnitsPerCarton, f.UnitsPerCarton)
	add(SlotTotalCartons, f.TotalCartons)
	add(SlotPrepackRatio, f.PrepackRatio)
	return out
}

// Display returns v, or NotAvailable when v is unresolved.
func Display(v string) string {
	if v == "" {
		return NotAvailable
	}
	return v
}

// DisplayColors returns at most MaxDisplayColors colors.
func (f *Facts) DisplayColors() []string {
	return capped(f.Colors, MaxDisplayColors)
}

// DisplaySizes returns at most MaxDisplaySizes sizes.
func (f *Facts) DisplaySizes() []string {
	return capped(f.Sizes, MaxDisplaySizes)
}

func capped(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}
