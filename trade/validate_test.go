package trade

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViolations_FirstPerFieldWinsAndSorted(t *testing.T) {
	v := Violations{}
	assert.NoError(t, v.Err("ok"))

	v.add("netWeight", CodeMustBePositive)
	v.add("netWeight", CodeNetExceedsGross)
	v.add("grossWeight", CodeMustBePositive)

	err := v.Err("invalid ticket")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "invalid ticket", verr.Error())
	assert.Equal(t, []FieldViolation{
		{Field: "grossWeight", Code: CodeMustBePositive},
		{Field: "netWeight", Code: CodeMustBePositive},
	}, verr.Details)
	assert.True(t, IsInvalidInput(err))
	assert.True(t, IsClientError(err))
}

func TestValidUUID(t *testing.T) {
	v := Violations{}
	ValidUUID("a", "", v)
	ValidUUID("b", "abc", v)
	ValidUUID("c", "4f8a1c2e-7b3d-4e5f-9a6b-0c1d2e3f4a5b", v)
	assert.Equal(t, Violations{"a": CodeRequired, "b": CodeInvalidUUID}, v)
}

func TestOneOf(t *testing.T) {
	v := Violations{}
	OneOf("method", PaymentMethod(""), PaymentMethods, v)
	OneOf("method2", MethodPix, PaymentMethods, v)
	assert.True(t, v.Empty())

	OneOf("method", PaymentMethod("pix"), PaymentMethods, v)
	assert.Equal(t, CodeInvalidEnum, v["method"], "enum values are case sensitive")
}

func TestMaxLen_CountsRunes(t *testing.T) {
	v := Violations{}
	MaxLen("notes", strings.Repeat("é", 10), 10, v)
	assert.True(t, v.Empty())
	MaxLen("notes", strings.Repeat("é", 11), 10, v)
	assert.Equal(t, CodeTooLong, v["notes"])
}

func TestTaxDocument(t *testing.T) {
	tests := []struct {
		doc  string
		want string
	}{
		{"123.456.789-01", ""},
		{"12.345.678/0001-90", ""},
		{"", CodeRequired},
		{"abc", CodeRequired},
		{"1234567890", CodeInvalidDocument},
		{"٣٣٣12345", CodeInvalidDocument},
		{"١٢٣45678901", CodeInvalidDocument},
	}
	for _, tt := range tests {
		v := Violations{}
		TaxDocument("taxDocument", tt.doc, v)
		assert.Equal(t, tt.want, v["taxDocument"], "doc %q", tt.doc)
	}
	assert.Equal(t, "12345678000190", NormalizeDocument("12.345.678/0001-90"))
	assert.Equal(t, "12345", NormalizeDocument("٣٣٣12345"))
}

func TestCents(t *testing.T) {
	v := Violations{}
	Cents("amount", decimal.RequireFromString("10.50"), v)
	Cents("amount", decimal.RequireFromString("10.500"), v)
	assert.True(t, v.Empty())

	Cents("amount", decimal.RequireFromString("10.505"), v)
	assert.Equal(t, CodeTooManyDecimals, v["amount"])
}

func TestWeightPair(t *testing.T) {
	v := Violations{}
	WeightPair(decimal.NewFromInt(100), decimal.NewFromInt(100), v)
	assert.True(t, v.Empty())

	WeightPair(decimal.NewFromInt(100), decimal.RequireFromString("100.001"), v)
	assert.Equal(t, CodeNetExceedsGross, v["netWeight"])
}

func TestPageRequest(t *testing.T) {
	p := PageRequest{}.Normalize()
	assert.Equal(t, PageRequest{Page: 1, Limit: DefaultPageLimit}, p)
	assert.Equal(t, 0, p.Offset())

	p = PageRequest{Page: 3, Limit: 500}.Normalize()
	assert.Equal(t, MaxPageLimit, p.Limit)
	assert.Equal(t, 200, p.Offset())

	page := NewPage(PageRequest{Page: 1, Limit: 10}, 21)
	assert.Equal(t, 3, page.TotalPages)
}

func TestErrorKinds(t *testing.T) {
	nf := notFound("purchase", "p-1")
	assert.Equal(t, "purchase not found: p-1", nf.Error())
	assert.True(t, IsNotFound(nf))
	assert.False(t, IsConflict(nf))

	c := conflict("ticket", "t-1", "ticket already converted")
	assert.True(t, errors.Is(c, ErrConflict))
	assert.True(t, IsClientError(c))

	assert.False(t, IsClientError(errors.New("disk full")))
}
