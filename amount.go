package bookkeeping

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a locale agnostic decimal number.
//
// Surrounding blanks are ignored. The number is an optional sign, digits
// optionally grouped by thousands with ',' and an optional '.' followed by the
// fractional digits: "-1,234.50". Anything else is a *ParseError.
func ParseAmount(text string) (decimal.Decimal, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return decimal.Zero, parseError(text, "empty amount")
	}
	var clean strings.Builder
	i := 0
	if s[0] == '+' || s[0] == '-' {
		if s[0] == '-' {
			clean.WriteByte('-')
		}
		i++
	}
	intStart := i
	group := -1 // length of the current thousands group, -1 before the first ','
	for ; i < len(s); i++ {
		c := s[i]
		if c == ',' {
			if i == intStart || (group >= 0 && group != 3) || (group < 0 && i-intStart > 3) {
				return decimal.Zero, parseError(text, "misplaced thousands separator at %d", i)
			}
			group = 0
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		clean.WriteByte(c)
		if group >= 0 {
			group++
		}
	}
	if group >= 0 && group != 3 {
		return decimal.Zero, parseError(text, "misplaced thousands separator")
	}
	digits := i - intStart
	if i < len(s) && s[i] == '.' {
		if digits == 0 {
			clean.WriteByte('0')
		}
		clean.WriteByte('.')
		i++
		fracStart := i
		for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
			clean.WriteByte(s[i])
		}
		if i == fracStart && digits == 0 {
			return decimal.Zero, parseError(text, "no digits")
		}
		digits += i - fracStart
	}
	if digits == 0 {
		return decimal.Zero, parseError(text, "no digits")
	}
	if i < len(s) {
		return decimal.Zero, parseError(text, "unexpected %q", s[i:])
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(clean.String(), "."))
	if err != nil {
		return decimal.Zero, parseError(text, "%v", err)
	}
	return d, nil
}

// MustParseAmount is like ParseAmount but panics on error.
func MustParseAmount(text string) decimal.Decimal {
	d, err := ParseAmount(text)
	if err != nil {
		panic(err.Error())
	}
	return d
}
