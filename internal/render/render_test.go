package render

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/raaihank/packlist-sanitizer/internal/resolver"
)

func sampleDoc() Document {
	colors := make([]string, 14)
	for i := range colors {
		colors[i] = fmt.Sprintf("COLOR %02d", i)
	}
	return Document{
		InternalPO:  "ME-4411",
		CompanyName: "Acme Sourcing",
		GeneratedAt: time.Date(2026, 3, 4, 15, 4, 5, 0, time.UTC),
		Facts: &resolver.Facts{
			VendorStyle:    "23456B-TOP",
			Colors:         colors,
			Sizes:          []string{"S", "S/P", "M", "M/M", "L", "L/G", "XL"},
			TotalUnits:     "2,400",
			TotalCartons:   "100",
			RedactedFields: []string{"Customer Po", "Contact Info"},
		},
	}
}

func TestDocumentHelpers(t *testing.T) {
	doc := sampleDoc()
	assert.Equal(t, DefaultFactory, doc.Factory())
	assert.Equal(t, "PO# ME-4411", doc.CartonMarking())
	assert.Equal(t, "Customer Po, Contact Info", doc.RedactionNotice())

	doc.FactoryName = "Factory 7"
	assert.Equal(t, "Factory 7", doc.Factory())

	doc.Facts = &resolver.Facts{}
	assert.Equal(t, NoneDetected, doc.RedactionNotice())
}

func TestHTML(t *testing.T) {
	out, err := HTML{}.Render(sampleDoc())
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, "Factory Packing Instructions - PO ME-4411")
	assert.Contains(t, page, "As Assigned")
	assert.Contains(t, page, "2026-03-04")
	assert.Contains(t, page, "Colors (14 variants)")
	assert.Contains(t, page, "COLOR 11")
	assert.NotContains(t, page, "COLOR 12")
	assert.Contains(t, page, `<span class="size-tag">L/G</span>`)
	assert.NotContains(t, page, `<span class="size-tag">XL</span>`)
	assert.Contains(t, page, "PO# ME-4411")
	assert.Contains(t, page, "Customer Po, Contact Info")
	assert.Equal(t, 2, strings.Count(page, resolver.NotAvailable), "units per carton and prepack")
	assert.Contains(t, page, "Acme Sourcing Packing List Sanitizer")
}

func TestHTMLEscapesInput(t *testing.T) {
	doc := sampleDoc()
	doc.InternalPO = "<script>x</script>"
	out, err := HTML{}.Render(doc)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>x</script>")
}

func TestXLSX(t *testing.T) {
	out, err := XLSX{}.Render(sampleDoc())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)

	values := map[string]string{}
	for _, r := range rows {
		if len(r) == 2 {
			values[r[0]] = r[1]
		}
	}
	assert.Equal(t, "ME-4411", values["Internal PO Number"])
	assert.Equal(t, DefaultFactory, values["Factory"])
	assert.Equal(t, "S, S/P, M, M/M, L, L/G", values["Sizes"])
	assert.Equal(t, resolver.NotAvailable, values["Units Per Carton"])
	assert.Equal(t, "PO# ME-4411", values["Carton Marking"])
	assert.Contains(t, values, "Colors (14 variants)")
}

func TestForFormat(t *testing.T) {
	r, err := ForFormat("")
	require.NoError(t, err)
	assert.Equal(t, "html", r.Extension())

	r, err = ForFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, "xlsx", r.Extension())

	_, err = ForFormat("pdf")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "factory_packing_ME-4411_abc.html", Filename("ME-4411", "abc", HTML{}))
	assert.Equal(t, "factory_packing_a_b_abc.xlsx", Filename("a/b", "abc", XLSX{}))
	assert.Equal(t, "factory_packing_po_abc.xlsx", Filename("", "abc", XLSX{}))
}
