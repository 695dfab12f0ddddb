package sanitizer

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raaihank/packlist-sanitizer/internal/guard"
	"github.com/raaihank/packlist-sanitizer/internal/logger"
	"github.com/raaihank/packlist-sanitizer/internal/registry"
	"github.com/raaihank/packlist-sanitizer/internal/resolver"
)

const shortList = "PACKING LIST\n" +
	"PURCHASE ORDER NO: 8841223\n" +
	"CONTACT customer@buyer.com\n" +
	"COLOR BLACK\n" +
	"SIZES S M\n" +
	"TOTAL UNITS FOR 10 CARTONS 2400"

func TestSanitizeShortList(t *testing.T) {
	s := New(nil, logger.NewNop())

	res, err := s.Sanitize(shortList)
	require.NoError(t, err)

	assert.Equal(t, []string{registry.FieldCustomerPO, registry.FieldContactInfo}, res.Redacted)
	assert.Equal(t, []string{
		registry.FieldColors,
		registry.FieldSizes,
		registry.FieldTotalUnits,
		registry.FieldTotalCartons,
	}, res.Kept)

	f := res.Facts
	assert.Equal(t, "", f.VendorStyle)
	assert.Equal(t, []string{"BLACK"}, f.Colors)
	assert.Equal(t, []string{"S", "M"}, f.Sizes)
	assert.Equal(t, "2400", f.TotalUnits)
	assert.Equal(t, "10", f.TotalCartons)
	assert.Equal(t, "", f.UnitsPerCarton)
	assert.Equal(t, "", f.PrepackRatio)
	assert.Equal(t, []string{"Customer Po", "Contact Info"}, f.RedactedFields)

	conf := res.ConfidentialFindings()
	require.Len(t, conf, 2)
	assert.Equal(t, Finding{
		Field:    registry.FieldCustomerPO,
		Label:    "Customer Po",
		Category: registry.Confidential,
		Kind:     "confidential",
		Count:    1,
	}, conf[0])
}

func TestSanitizeEmpty(t *testing.T) {
	s := New(registry.Default(), logger.NewNop())

	for _, text := range []string{"", "   \n\t", "nothing to see here"} {
		res, err := s.Sanitize(text)
		require.NoError(t, err)
		assert.Empty(t, res.Redacted)
		assert.NotNil(t, res.Redacted)
		assert.NotNil(t, res.Kept)
		assert.Equal(t, resolver.NotAvailable, resolver.Display(res.Facts.TotalUnits))
	}
}

// Every combination of confidential fixtures interleaved with shipment
// lines must either come out clean or be withheld.
func TestSanitizeNeverLeaks(t *testing.T) {
	secrets := []struct{ line, needle string }{
		{"PO# 99887766", "99887766"},
		{"ACME APPAREL LLC", "ACME"},
		{"SKU 1234-56789-0123-456-7890", "1234-56789"},
		{"UNIT PRICE $12.50", "$12.50"},
		{"SHIP 20 TO DALLAS", "DALLAS"},
		{"123 MAIN STREET, DALLAS, TX 75001", "75001"},
		{"E-MAIL: orders@acme.com", "acme.com"},
		{"BLOCKOUT NO 7", "BLOCKOUT"},
	}
	shipment := []string{
		"STYLE 23456B-TOP",
		"PINK GARDENIA STAR",
		"SIZES S M L XL",
		"TOTAL UNITS FOR 1 CARTON 24",
		"TOTAL UNITS FOR 100 CARTONS 2,400",
		"PREPACK: 2-2-1-1",
	}

	s := New(nil, logger.NewNop())

	for mask := 1; mask < 1<<len(secrets); mask++ {
		var lines, needles []string
		for i, sec := range secrets {
			if mask&(1<<i) == 0 {
				continue
			}
			lines = append(lines, sec.line, shipment[i%len(shipment)])
			needles = append(needles, sec.needle)
		}

		res, err := s.Sanitize(strings.Join(lines, "\n"))
		if err != nil {
			require.ErrorIs(t, err, guard.ErrLeakageDetected)
			continue
		}

		for _, sv := range res.Facts.Values() {
			for _, n := range needles {
				assert.NotContains(t, strings.ToUpper(sv.Value), strings.ToUpper(n), "mask %b slot %s", mask, sv.Slot)
			}
		}
		for _, label := range res.Facts.RedactedFields {
			assert.Contains(t, registry.Default().ConfidentialLabels(), label)
		}
	}
}

func TestSanitizeDeterministicAndConcurrent(t *testing.T) {
	s := New(nil, logger.NewNop())

	want, err := s.Sanitize(shortList)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*Result, 32)
	errs := make([]error, len(results))
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.Sanitize(shortList)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, want, results[i])
	}
}

func TestSanitizeWithholdsLeak(t *testing.T) {
	// A keep rule that captures an email forces the guard to refuse.
	defs := registry.DefaultDefinitions()
	for i := range defs {
		if defs[i].Name == registry.FieldVendorStyle {
			defs[i].Rules = []registry.MatchRule{{Pattern: `STYLE\s+(\S+)`, CaseInsensitive: true, Yield: registry.YieldGroup}}
		}
	}
	reg, err := registry.New(defs...)
	require.NoError(t, err)

	s := New(reg, logger.NewNop())
	res, err := s.Sanitize("STYLE buyer@acme.com")
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, guard.ErrLeakageDetected))
	assert.NotContains(t, err.Error(), "buyer@acme.com")
}
