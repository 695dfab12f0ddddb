package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raaihank/packlist-sanitizer/internal/registry"
)

const samplePackingList = `ACME APPAREL LLC
PURCHASE ORDER NO: 8841223
Ship to: 1200 Harbor Blvd, Long Beach, CA 90802
E-MAIL: buyer@acme-apparel.com
CUSTOMER SKU 1234-56789-0123-456-7890
COST PER CARTON $42.50
****** SHIP 200 TO DALLAS ******
BLOCKOUT NO. 17
VENDOR STYLE 23456B-TOP
COLORS: BLACK DOT STAR, NAVY STRIPE, PINK
SIZES S M L XL
PREPACK: 2-2-1-1
TOTAL UNITS FOR 1 CARTON 12
TOTAL UNITS FOR 50 CARTONS 600
--- PAGE BREAK ---
`

func TestClassifyDefaultCatalog(t *testing.T) {
	c := New(registry.Default())
	info := c.Classify(samplePackingList)

	t.Run("confidential fields", func(t *testing.T) {
		assert.Equal(t, []string{"8841223"}, info.Confidential.Get(registry.FieldCustomerPO))
		assert.Contains(t, info.Confidential.Get(registry.FieldCustomerName), "ACME APPAREL LLC")
		assert.Equal(t, []string{"1234-56789-0123-456-7890"}, info.Confidential.Get(registry.FieldCustomerSKU))
		assert.Contains(t, info.Confidential.Get(registry.FieldPricing), "$42.50")
		assert.Contains(t, info.Confidential.Get(registry.FieldPricing), "COST PER CARTON")
		assert.True(t, info.Confidential.Has(registry.FieldShipSplit))
		assert.True(t, info.Confidential.Has(registry.FieldAddresses))
		assert.Contains(t, info.Confidential.Get(registry.FieldContactInfo), "buyer@acme-apparel.com")
		assert.Equal(t, []string{"BLOCKOUT NO. 17"}, info.Confidential.Get(registry.FieldBlockout))
	})

	t.Run("keep fields", func(t *testing.T) {
		assert.Equal(t, []string{"23456B-TOP"}, info.Keep.Get(registry.FieldVendorStyle))
		assert.Equal(t, []string{"S", "M", "L", "XL"}, info.Keep.Get(registry.FieldSizes))
		assert.Equal(t, []string{"2-2-1-1"}, info.Keep.Get(registry.FieldPackConfig))
		assert.Equal(t, []string{"12"}, info.Keep.Get(registry.FieldUnitsPerCarton))
		assert.ElementsMatch(t, []string{"12", "600"}, info.Keep.Get(registry.FieldTotalUnits))
		assert.Equal(t, []string{"50"}, info.Keep.Get(registry.FieldTotalCartons))
		assert.True(t, info.Keep.Has(registry.FieldColors))
	})

	t.Run("categories are disjoint", func(t *testing.T) {
		for _, f := range info.Confidential.Fields() {
			assert.False(t, info.Keep.Has(f), "field %s in both mappings", f)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		again := c.Classify(samplePackingList)
		assert.Equal(t, info.Confidential.Fields(), again.Confidential.Fields())
		assert.Equal(t, info.Keep.Fields(), again.Keep.Fields())
		assert.Equal(t, info.Keep.All(), again.Keep.All())
		assert.Equal(t, info.Confidential.All(), again.Confidential.All())
	})
}

func TestClassifyEdgeCases(t *testing.T) {
	c := New(registry.Default())

	t.Run("empty text populates nothing", func(t *testing.T) {
		info := c.Classify("")
		assert.Equal(t, 0, info.Confidential.Len())
		assert.Equal(t, 0, info.Keep.Len())
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		info := c.Classify("PO# 1234567\nPO# 1234567\nPURCHASE ORDER 1234567")
		assert.Equal(t, []string{"1234567"}, info.Confidential.Get(registry.FieldCustomerPO))
	})

	t.Run("short numbers are not purchase orders", func(t *testing.T) {
		info := c.Classify("PO# 123456")
		assert.False(t, info.Confidential.Has(registry.FieldCustomerPO))
	})

	t.Run("compound sizes", func(t *testing.T) {
		info := c.Classify("SIZES S/P M/M L/G XL/TG XXL")
		assert.Equal(t, []string{"S/P", "M/M", "L/G", "XL/TG", "XXL"}, info.Keep.Get(registry.FieldSizes))
	})

	t.Run("both carton rules feed one field", func(t *testing.T) {
		info := c.Classify("TOTAL UNITS FOR 10 CARTONS 2400\nPACKED 12 CARTONS")
		assert.Equal(t, []string{"10", "12"}, info.Keep.Get(registry.FieldTotalCartons))
	})
}

func TestGroupFlattening(t *testing.T) {
	reg, err := registry.New(
		registry.FieldDefinition{
			Name:     "color",
			Category: registry.Keep,
			Rules: []registry.MatchRule{
				{Pattern: `(NAVY)\s*(STRIPE)?\s*(STAR)?`, CaseInsensitive: true, Yield: registry.YieldGroups},
			},
		},
		registry.FieldDefinition{
			Name:     "secret",
			Category: registry.Confidential,
			Rules: []registry.MatchRule{
				{Pattern: `(A+)?(B+)`, Yield: registry.YieldGroups},
			},
		},
	)
	require.NoError(t, err)
	c := New(reg)

	t.Run("keep takes every matched group", func(t *testing.T) {
		info := c.Classify("navy star")
		assert.Equal(t, []string{"navy", "star"}, info.Keep.Get("color"))
	})

	t.Run("unmatched groups are dropped", func(t *testing.T) {
		results := c.Matches(reg.Keep()[0], "NAVY")
		require.Len(t, results, 1)
		gm, ok := results[0].(GroupMatch)
		require.True(t, ok)
		require.Len(t, gm.Groups, 3)
		assert.True(t, gm.Groups[0].Matched)
		assert.False(t, gm.Groups[1].Matched)
		assert.False(t, gm.Groups[2].Matched)
	})

	t.Run("confidential takes first participating group", func(t *testing.T) {
		info := c.Classify("BB AABB")
		assert.Equal(t, []string{"BB", "AA"}, info.Confidential.Get("secret"))
	})
}

func TestValues(t *testing.T) {
	v := NewValues()
	v.Add("b", "2")
	v.Add("a", "1")
	v.Add("b", "2")
	v.Add("b", "3")

	assert.Equal(t, []string{"b", "a"}, v.Fields())
	assert.Equal(t, []string{"2", "3"}, v.Get("b"))
	assert.Equal(t, []string{"2", "3", "1"}, v.All())
	assert.Nil(t, v.Get("missing"))
	assert.Equal(t, 2, v.Len())

	var empty *Values
	assert.Nil(t, empty.Get("x"))
	assert.Equal(t, 0, empty.Len())
}
