package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	reg := Default()

	t.Run("confidential catalog order", func(t *testing.T) {
		var names []string
		for _, f := range reg.Confidential() {
			names = append(names, f.Name)
			assert.Equal(t, Confidential, f.Category)
		}
		assert.Equal(t, []string{
			FieldCustomerPO, FieldCustomerName, FieldCustomerSKU, FieldPricing,
			FieldShipSplit, FieldAddresses, FieldContactInfo, FieldBlockout,
		}, names)
	})

	t.Run("keep catalog order", func(t *testing.T) {
		var names []string
		for _, f := range reg.Keep() {
			names = append(names, f.Name)
			assert.Equal(t, Keep, f.Category)
		}
		assert.Equal(t, []string{
			FieldVendorStyle, FieldColors, FieldSizes, FieldTotalUnits,
			FieldUnitsPerCarton, FieldTotalCartons, FieldPackConfig,
		}, names)
	})

	t.Run("colors has one rule per phrase", func(t *testing.T) {
		f, ok := reg.Lookup(Keep, FieldColors)
		require.True(t, ok)
		assert.Len(t, f.Rules, len(knownColors))
	})

	t.Run("lookup respects category", func(t *testing.T) {
		_, ok := reg.Lookup(Keep, FieldCustomerPO)
		assert.False(t, ok)
		f, ok := reg.Lookup(Confidential, FieldCustomerPO)
		require.True(t, ok)
		assert.Equal(t, FieldCustomerPO, f.Name)
	})

	t.Run("rules are case insensitive and multiline", func(t *testing.T) {
		f, _ := reg.Lookup(Confidential, FieldBlockout)
		assert.True(t, f.Rules[0].Regexp().MatchString("blockout no. 7"))

		name, _ := reg.Lookup(Confidential, FieldCustomerName)
		assert.True(t, name.Rules[0].Regexp().MatchString("po: 1\nACME APPAREL LLC"))
	})
}

func TestNew(t *testing.T) {
	t.Run("duplicate name across categories", func(t *testing.T) {
		_, err := New(
			FieldDefinition{Name: "x", Category: Confidential, Rules: []MatchRule{{Pattern: `a`}}},
			FieldDefinition{Name: "x", Category: Keep, Rules: []MatchRule{{Pattern: `b`}}},
		)
		assert.Error(t, err)
	})

	t.Run("missing rules", func(t *testing.T) {
		_, err := New(FieldDefinition{Name: "x", Category: Keep})
		assert.Error(t, err)
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := New(FieldDefinition{Name: "x", Category: Keep, Rules: []MatchRule{{Pattern: `[bad`}}})
		assert.Error(t, err)
	})

	t.Run("yield must agree with groups", func(t *testing.T) {
		_, err := New(FieldDefinition{Name: "x", Category: Keep, Rules: []MatchRule{{Pattern: `(a)`, Yield: YieldWhole}}})
		assert.Error(t, err)

		_, err = New(FieldDefinition{Name: "x", Category: Keep, Rules: []MatchRule{{Pattern: `a`, Yield: YieldGroup}}})
		assert.Error(t, err)

		_, err = New(FieldDefinition{Name: "x", Category: Keep, Rules: []MatchRule{{Pattern: `(a)(b)?`, Yield: YieldGroups}}})
		assert.NoError(t, err)
	})

	t.Run("flags are applied", func(t *testing.T) {
		reg, err := New(FieldDefinition{Name: "x", Category: Keep, Rules: []MatchRule{
			{Pattern: `^abc`, CaseInsensitive: true, MultiLine: true},
		}})
		require.NoError(t, err)
		assert.True(t, reg.Keep()[0].Rules[0].Regexp().MatchString("zzz\nABC"))
	})
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Customer Po", Label("customer_po"))
	assert.Equal(t, "Contact Info", Label("contact_info"))
	assert.Equal(t, "Blockout", Label("blockout"))
	assert.Equal(t, []string{
		"Customer Po", "Customer Name", "Customer Sku", "Pricing",
		"Ship Split", "Addresses", "Contact Info", "Blockout",
	}, Default().ConfidentialLabels())
}
