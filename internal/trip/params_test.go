package trip

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() Params {
	return Params{Category: Beaches, Budget: 5000, Headcount: 2, Type: Couples, Month: time.June}
}

func TestParams_Validate_AcceptsValidParams(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validParams().Validate())
}

func TestParams_Validate_ReportsEveryProblem(t *testing.T) {
	t.Parallel()

	p := Params{Category: "Desert", Budget: 2999, Headcount: 0, Type: "Pets", Month: 13}
	err := p.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidParams))
	for _, want := range []string{"Desert", "2999", "headcount", "Pets", "month 13"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestParams_Validate_AcceptsMinimumBudget(t *testing.T) {
	t.Parallel()
	p := validParams()
	p.Budget = MinBudget
	assert.NoError(t, p.Validate())
}

func TestParseCategory_NormalisesCaseAndSpacing(t *testing.T) {
	t.Parallel()

	tests := map[string]Category{
		"beaches":      Beaches,
		"  ROAD   trip": RoadTrip,
		"Heritage":     Heritage,
	}
	for in, want := range tests {
		got, err := ParseCategory(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseCategory("desert")
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestParseType(t *testing.T) {
	t.Parallel()
	got, err := ParseType("couples")
	require.NoError(t, err)
	assert.Equal(t, Couples, got)

	_, err = ParseType("pets")
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestParseMonth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    time.Month
		wantErr bool
	}{
		{in: "June", want: time.June},
		{in: "june", want: time.June},
		{in: "SEP", want: time.September},
		{in: "12", want: time.December},
		{in: "0", wantErr: true},
		{in: "Smarch", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseMonth(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidParams, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParse_BuildsParamsFromStrings(t *testing.T) {
	t.Parallel()

	got, err := Parse("beaches", "5000", "2", "couples", "june")
	require.NoError(t, err)
	assert.Equal(t, validParams(), got)
}

func TestParse_RejectsBudgetBelowFloor(t *testing.T) {
	t.Parallel()

	_, err := Parse("Beaches", "2500", "2", "Couples", "June")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.Contains(t, err.Error(), "below the minimum")
}

func TestParse_RejectsNonNumericFields(t *testing.T) {
	t.Parallel()

	_, err := Parse("Beaches", "lots", "two", "Couples", "June")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `budget "lots"`)
	assert.Contains(t, err.Error(), `headcount "two"`)
}

func TestParams_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Beaches · ₹5000 · 2 people · Couples · June", validParams().String())
}
