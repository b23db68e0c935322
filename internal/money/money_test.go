package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestTotal(t *testing.T) {
	tests := []struct {
		name      string
		subtotal  string
		isCompany bool
		want      string
	}{
		{name: "private keeps subtotal", subtotal: "55.00", isCompany: false, want: "55.00"},
		{name: "company 5 percent", subtotal: "55.00", isCompany: true, want: "52.25"},
		{name: "company half cent up", subtotal: "0.10", isCompany: true, want: "0.10"},
		{name: "company rounds up", subtotal: "10.01", isCompany: true, want: "9.51"},
		{name: "company rounds down", subtotal: "1.12", isCompany: true, want: "1.06"},
		{name: "company half cent", subtotal: "0.30", isCompany: true, want: "0.29"},
		{name: "zero", subtotal: "0", isCompany: true, want: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Total(d(tt.subtotal), tt.isCompany)
			assert.Equal(t, tt.want, Format(got))
		})
	}
}

func TestDiscount_NoResidue(t *testing.T) {
	subtotal := d("55.00")
	total := Total(subtotal, true)

	assert.Equal(t, "2.75", Format(Discount(subtotal, total)))
	assert.True(t, subtotal.Equal(total.Add(Discount(subtotal, total))))
}

func TestLineTotal(t *testing.T) {
	assert.Equal(t, "30.00", Format(LineTotal(d("10.00"), 3)))
	assert.Equal(t, "0.00", Format(LineTotal(d("19.99"), 0)))
}

func TestParsePrice(t *testing.T) {
	p, err := ParsePrice("12.50")
	require.NoError(t, err)
	assert.Equal(t, "12.50", Format(p))

	for _, bad := range []string{"abc", "-1", "1.005"} {
		_, err := ParsePrice(bad)
		assert.Error(t, err, bad)
	}
}
