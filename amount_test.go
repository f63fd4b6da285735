package bookkeeping

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	testCases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "123.45", want: "123.45"},
		{in: "  123.45\t", want: "123.45"},
		{in: "-7", want: "-7"},
		{in: "+7.5", want: "7.5"},
		{in: "1,234,567.89", want: "1234567.89"},
		{in: ".5", want: "0.5"},
		{in: "12.", want: "12"},
		{in: "123.45asdf", wantErr: true},
		{in: "", wantErr: true},
		{in: "   ", wantErr: true},
		{in: "-", wantErr: true},
		{in: ".", wantErr: true},
		{in: "12,34", wantErr: true},
		{in: "1234,567", wantErr: true},
		{in: ",123", wantErr: true},
		{in: "1.2.3", wantErr: true},
		{in: "1 000", wantErr: true},
		{in: "1e5", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseAmount(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrParse) {
					t.Errorf("ParseAmount(%q) error = %v, want a parse error", tc.in, err)
				}
				var perr *ParseError
				if !errors.As(err, &perr) || perr.Input != tc.in {
					t.Errorf("ParseAmount(%q) error = %#v, want *ParseError with the input", tc.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) unexpected error: %v", tc.in, err)
			}
			if got.String() != tc.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tc.in, got, tc.want)
			}
		})
	}
}
