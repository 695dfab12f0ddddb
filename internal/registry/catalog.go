package registry

// Confidential field names
const (
	FieldCustomerPO   = "customer_po"
	FieldCustomerName = "customer_name"
	FieldCustomerSKU  = "customer_sku"
	FieldPricing      = "pricing"
	FieldShipSplit    = "ship_split"
	FieldAddresses    = "addresses"
	FieldContactInfo  = "contact_info"
	FieldBlockout     = "blockout"
)

// Keep field names
const (
	FieldVendorStyle    = "vendor_style"
	FieldColors         = "colors"
	FieldSizes          = "sizes"
	FieldTotalUnits     = "total_units"
	FieldUnitsPerCarton = "units_per_carton"
	FieldTotalCartons   = "total_cartons"
	FieldPackConfig     = "pack_config"
)

// whole, group and groups build document rules: every catalog rule is
// case-insensitive and line-anchored.
func whole(pattern string) MatchRule {
	return MatchRule{Pattern: pattern, CaseInsensitive: true, MultiLine: true, Yield: YieldWhole}
}

func group(pattern string) MatchRule {
	return MatchRule{Pattern: pattern, CaseInsensitive: true, MultiLine: true, Yield: YieldGroup}
}

// knownColors is the closed list of color phrases printed on customer
// packing lists. Each phrase is its own rule.
var knownColors = []string{
	`(BLACK\s*(?:DOT)?\s*(?:STAR)?)`,
	`(CLOUD\s*H\.?GREY\s*(?:DOT)?\s*(?:CHERRY)?)`,
	`(WHITE/?NAVY\s*STRIPE\s*(?:HEART)?)`,
	`(GARDENIA\s*(?:STAR)?)`,
	`(BROWN\s*STRIPE\s*(?:CHERRY)?)`,
	`(NAVY\s*STRIPE\s*(?:STAR)?)`,
	`(NAVAL\s*ACADEMY\s*(?:CHERRY)?)`,
	`(BLUE\s*STRIPE\s*(?:STAR)?)`,
	`(BALLERINA\s*(?:HEART)?)`,
	`(BURG(?:UNDY)?\s*DOTS?\s*(?:HEART)?)`,
	`(PINK)`,
	`(GREY|GRAY)`,
	`(BURGUNDY)`,
}

// DefaultDefinitions returns the build-time field catalog.
func DefaultDefinitions() []FieldDefinition {
	colorRules := make([]MatchRule, 0, len(knownColors))
	for _, c := range knownColors {
		colorRules = append(colorRules, group(c))
	}

	return []FieldDefinition{
		{
			Name:     FieldCustomerPO,
			Category: Confidential,
			Rules: []MatchRule{
				group(`PURCHASE ORDER(?:\s+NO\.?)?\s*[:#]?\s*(\d{7,})`),
				group(`PO\s*(?:Number|#|No\.?)?\s*[:#]?\s*(\d{7,})`),
			},
		},
		{
			Name:     FieldCustomerName,
			Category: Confidential,
			Rules: []MatchRule{
				group(`^([A-Z][A-Z\s&\(\)0-9]+(?:LLC|INC|CORP|LTD))`),
				group(`Customer[:\s]+([A-Z][A-Za-z\s&\(\)0-9]+(?:LLC|INC|CORP|LTD)?)`),
			},
		},
		{
			Name:     FieldCustomerSKU,
			Category: Confidential,
			Rules: []MatchRule{
				whole(`\d{4}-\d{5}-\d{4}-\d{3}-\d{4}`),
			},
		},
		{
			Name:     FieldPricing,
			Category: Confidential,
			Rules: []MatchRule{
				whole(`\$[\d,]+\.?\d*`),
				whole(`COST\s+PER\s+CARTON`),
				whole(`TOTAL\s+CARTONS?\s+COST`),
			},
		},
		{
			Name:     FieldShipSplit,
			Category: Confidential,
			Rules: []MatchRule{
				whole(`SHIP\s+\d+\s+TO\s+\w+`),
				whole(`\*+\s*SHIP\s+\d+.*?\*+`),
			},
		},
		{
			Name:     FieldAddresses,
			Category: Confidential,
			Rules: []MatchRule{
				whole(`\d+\s+[\w\s]+(?:STREET|ST|AVE|AVENUE|ROAD|RD|BLVD|DRIVE|DR)[,\s]+[\w\s]+,?\s*[A-Z]{2}\s*\d{5}`),
			},
		},
		{
			Name:     FieldContactInfo,
			Category: Confidential,
			Rules: []MatchRule{
				whole(`[\w.-]+@[\w.-]+\.\w+`),
				whole(`E-MAIL[:\s]*[\w.-]+@[\w.-]+`),
			},
		},
		{
			Name:     FieldBlockout,
			Category: Confidential,
			Rules: []MatchRule{
				whole(`BLOCKOUT\s+NO\.?\s*\d+`),
			},
		},

		{
			Name:     FieldVendorStyle,
			Category: Keep,
			Rules: []MatchRule{
				group(`(?:^|\s)(\d{5}[A-Z]-?\w*)`),
			},
		},
		{
			Name:     FieldColors,
			Category: Keep,
			Rules:    colorRules,
		},
		{
			Name:     FieldSizes,
			Category: Keep,
			Rules: []MatchRule{
				// Longer tokens first, otherwise "S" wins over "S/P".
				group(`\b(XL/TG|XXL|XL|S/P|M/M|L/G|S|M|L)\b`),
			},
		},
		{
			Name:     FieldTotalUnits,
			Category: Keep,
			Rules: []MatchRule{
				group(`TOTAL\s+UNITS\s+FOR\s+\d+\s+CARTONS?\s+(\d[\d,]*)`),
				group(`Total\s+Quantity\s+of\s+Units[:\s]*(\d[\d,]*)`),
			},
		},
		{
			Name:     FieldUnitsPerCarton,
			Category: Keep,
			Rules: []MatchRule{
				group(`TOTAL\s+UNITS\s+FOR\s+1\s+CARTON\s+(\d+)`),
			},
		},
		{
			Name:     FieldTotalCartons,
			Category: Keep,
			Rules: []MatchRule{
				group(`FOR\s+(\d+)\s+CARTONS`),
				group(`(\d+)\s+CARTONS`),
			},
		},
		{
			Name:     FieldPackConfig,
			Category: Keep,
			Rules: []MatchRule{
				group(`PREPACK[:\s]*(\d+(?:-\d+)+)`),
			},
		},
	}
}

var defaultRegistry = MustNew(DefaultDefinitions()...)

// Default returns the shared build-time registry.
func Default() *Registry {
	return defaultRegistry
}
