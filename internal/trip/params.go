// Package trip defines the five trip-preference parameters and their validation.
package trip

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MinBudget is the lowest accepted net budget.
const MinBudget = 3000

// ErrInvalidParams is wrapped by every validation failure.
var ErrInvalidParams = errors.New("invalid trip parameters")

// Category is the kind of destination.
type Category string

const (
	Mountains  Category = "Mountains"
	Beaches    Category = "Beaches"
	Heritage   Category = "Heritage"
	Pilgrimage Category = "Pilgrimage"
	RoadTrip   Category = "Road Trip"
)

// Categories lists every category in display order.
var Categories = []Category{Mountains, Beaches, Heritage, Pilgrimage, RoadTrip}

// Type is who is travelling.
type Type string

const (
	Family  Type = "Family"
	Friends Type = "Friends"
	Couples Type = "Couples"
	Solo    Type = "Solo"
)

// Types lists every trip type in display order.
var Types = []Type{Family, Friends, Couples, Solo}

// Params are the user's trip preferences.
type Params struct {
	Category  Category   `json:"category" yaml:"category"`
	Budget    int        `json:"budget" yaml:"budget"`
	Headcount int        `json:"headcount" yaml:"headcount"`
	Type      Type       `json:"trip_type" yaml:"trip_type"`
	Month     time.Month `json:"month" yaml:"month"`
}

// Validate reports every problem with p, joined, each wrapping ErrInvalidParams.
func (p Params) Validate() error {
	var errs []error
	if !validCategory(p.Category) {
		errs = append(errs, fmt.Errorf("%w: unknown category %q", ErrInvalidParams, p.Category))
	}
	if p.Budget < MinBudget {
		errs = append(errs, fmt.Errorf("%w: budget %d is below the minimum of %d", ErrInvalidParams, p.Budget, MinBudget))
	}
	if p.Headcount < 1 {
		errs = append(errs, fmt.Errorf("%w: headcount must be at least 1, got %d", ErrInvalidParams, p.Headcount))
	}
	if !validType(p.Type) {
		errs = append(errs, fmt.Errorf("%w: unknown trip type %q", ErrInvalidParams, p.Type))
	}
	if p.Month < time.January || p.Month > time.December {
		errs = append(errs, fmt.Errorf("%w: month %d out of range", ErrInvalidParams, int(p.Month)))
	}
	return errors.Join(errs...)
}

// String renders p as a single summary line.
func (p Params) String() string {
	return fmt.Sprintf("%s · ₹%d · %d people · %s · %s", p.Category, p.Budget, p.Headcount, p.Type, p.Month)
}

// normalize folds user input to the canonical title-cased spelling.
// Casers are stateful, so each call gets its own.
func normalize(s string) string {
	return cases.Title(language.English).String(strings.ToLower(strings.Join(strings.Fields(s), " ")))
}

// ParseCategory accepts any casing or spacing of a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(normalize(s))
	if !validCategory(c) {
		return "", fmt.Errorf("%w: unknown category %q (want one of %s)", ErrInvalidParams, s, joinNames(Categories))
	}
	return c, nil
}

// ParseType accepts any casing of a trip type.
func ParseType(s string) (Type, error) {
	t := Type(normalize(s))
	if !validType(t) {
		return "", fmt.Errorf("%w: unknown trip type %q (want one of %s)", ErrInvalidParams, s, joinNames(Types))
	}
	return t, nil
}

// ParseMonth accepts a full or three-letter English month name, or 1-12.
func ParseMonth(s string) (time.Month, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= 12 {
			return time.Month(n), nil
		}
		return 0, fmt.Errorf("%w: month %d out of range", ErrInvalidParams, n)
	}
	name := normalize(s)
	for m := time.January; m <= time.December; m++ {
		full := m.String()
		if name == full || (len(name) == 3 && name == full[:3]) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown month %q", ErrInvalidParams, s)
}

// Parse builds Params from raw strings, as submitted by a form or flags.
func Parse(category, budget, headcount, tripType, month string) (Params, error) {
	var (
		p    Params
		errs []error
		err  error
	)
	if p.Category, err = ParseCategory(category); err != nil {
		errs = append(errs, err)
	}
	if p.Budget, err = strconv.Atoi(strings.TrimSpace(budget)); err != nil {
		errs = append(errs, fmt.Errorf("%w: budget %q is not a whole number", ErrInvalidParams, budget))
	}
	if p.Headcount, err = strconv.Atoi(strings.TrimSpace(headcount)); err != nil {
		errs = append(errs, fmt.Errorf("%w: headcount %q is not a whole number", ErrInvalidParams, headcount))
	}
	if p.Type, err = ParseType(tripType); err != nil {
		errs = append(errs, err)
	}
	if p.Month, err = ParseMonth(month); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return Params{}, errors.Join(errs...)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func validCategory(c Category) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

func validType(t Type) bool {
	for _, v := range Types {
		if v == t {
			return true
		}
	}
	return false
}

func joinNames[T ~string](vs []T) string {
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}
