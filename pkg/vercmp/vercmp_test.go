package vercmp

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		// equality
		{"1.0", "1.0", 0},
		{"1.0-1", "1.0-1", 0},
		{"1.01", "1.1", 0},
		{"2.0_1", "2.0.1", 0},

		// plain numeric segments
		{"1.0", "1.1", -1},
		{"1.1", "1.0", 1},
		{"1.10", "1.9", 1},
		{"1.5.1", "1.5", 1},
		{"1.0.0", "1.0", 1},

		// pkgrel
		{"1.5.0-1", "1.5.0-2", -1},
		{"1.5.0-2", "1.5.1-1", -1},
		{"1.0-1", "1.0-1.1", -1},
		{"1.5-1", "1.5", 0},
		{"1.0", "1.0-3", 0},

		// alpha segments
		{"1.5b", "1.5", -1},
		{"1.0a", "1.0alpha", -1},
		{"1.0alpha", "1.0b", -1},
		{"1.0beta", "1.0rc", -1},
		{"1.0rc1", "1.0", -1},
		{"1.0", "1.0a", 1},
		{"1.a", "1.1", -1},

		// separators
		{"2.0__1", "2.0.1", 1},
		{"1.0a", "1.0.a", -1},

		// epoch
		{"1:1.0", "2.0", 1},
		{"1:1.0", "1:2.0", -1},
		{"0:1.0", "1.0", 0},
		{":1.0", "1.0", 0},
		{"2:0.1-1", "1:9.9-9", 1},

		// vcs-style pkgver
		{"r123.abc1234-1", "r124.def5678-1", -1},
		{"0.1.r10.gdeadbee-1", "0.1.r9.gcafebab-1", 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_vs_%s", tt.a, tt.b), func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := Compare(tt.b, tt.a); got != -tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.b, tt.a, got, -tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  Version
	}{
		{"1.5", Version{Epoch: "0", Pkgver: "1.5"}},
		{"1.5-3", Version{Epoch: "0", Pkgver: "1.5", Pkgrel: "3"}},
		{"2:1.5-3", Version{Epoch: "2", Pkgver: "1.5", Pkgrel: "3"}},
		{"12-3", Version{Epoch: "0", Pkgver: "12", Pkgrel: "3"}},
		{":1.0", Version{Epoch: "0", Pkgver: "1.0"}},
		{"1:foo-bar-1", Version{Epoch: "1", Pkgver: "foo-bar", Pkgrel: "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Parse(tt.input)
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestVersionString(t *testing.T) {
	tests := []struct {
		v    Version
		want string
	}{
		{Version{Epoch: "0", Pkgver: "1.0", Pkgrel: "1"}, "1.0-1"},
		{Version{Epoch: "3", Pkgver: "1.0", Pkgrel: "1"}, "3:1.0-1"},
		{Version{Pkgver: "1.0"}, "1.0"},
	}

	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestNewer(t *testing.T) {
	if !Newer("1.1-1", "1.0-1") {
		t.Error("expected 1.1-1 to be newer than 1.0-1")
	}
	if Newer("1.0-1", "1.0-1") {
		t.Error("equal versions must not be newer")
	}
	if Newer("1.0-1", "1:0.1-1") {
		t.Error("epoch must dominate")
	}
	if Compare("1.0", "1.0-7") != 0 {
		t.Error("missing pkgrel should compare equal")
	}
}

func genVersionish() gopter.Gen {
	return gen.OneGenOf(
		gen.RegexMatch(`[0-9]{1,3}(\.[0-9]{1,3}){0,3}`),
		gen.RegexMatch(`[0-9]{1,2}:[0-9a-z.]{1,8}-[0-9]{1,2}`),
		gen.RegexMatch(`[0-9a-z._+]{0,10}`),
		gen.RegexMatch(`r[0-9]{1,4}\.g[0-9a-f]{7}`),
	)
}

func genPkgver() gopter.Gen {
	return gen.RegexMatch(`[0-9][0-9a-z._+]{0,10}`)
}

func TestCompareProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("reflexive", prop.ForAll(
		func(v string) bool {
			return Compare(v, v) == 0
		},
		genVersionish(),
	))

	properties.Property("antisymmetric", prop.ForAll(
		func(a, b string) bool {
			return Compare(a, b) == -Compare(b, a)
		},
		genVersionish(),
		genVersionish(),
	))

	properties.Property("pkgrel decides identical pkgver", prop.ForAll(
		func(epoch int, pkgver string, r1, r2 int) bool {
			a := fmt.Sprintf("%d:%s-%d", epoch, pkgver, r1)
			b := fmt.Sprintf("%d:%s-%d", epoch, pkgver, r2)
			return Compare(a, b) == sign(r1-r2)
		},
		gen.IntRange(0, 5),
		genPkgver(),
		gen.IntRange(1, 200),
		gen.IntRange(1, 200),
	))

	properties.Property("epoch dominates pkgver", prop.ForAll(
		func(e1, e2 int, v1, v2 string) bool {
			if e1 == e2 {
				return true
			}
			a := fmt.Sprintf("%d:%s-1", e1, v1)
			b := fmt.Sprintf("%d:%s-1", e2, v2)
			return Compare(a, b) == sign(e1-e2)
		},
		gen.IntRange(0, 9),
		gen.IntRange(0, 9),
		genPkgver(),
		genPkgver(),
	))

	properties.TestingRun(t)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

func FuzzCompare(f *testing.F) {
	seeds := [][2]string{
		{"1.0", "1.0-1"},
		{"1:1.0", "2.0"},
		{"1.0a", "1.0.a"},
		{"r10.gabc", "r9.gdef"},
		{"", "0"},
	}
	for _, s := range seeds {
		f.Add(s[0], s[1])
	}

	f.Fuzz(func(t *testing.T, a, b string) {
		ab := Compare(a, b)
		if ab < -1 || ab > 1 {
			t.Fatalf("Compare(%q, %q) = %d out of range", a, b, ab)
		}
		if ba := Compare(b, a); ab != -ba {
			t.Fatalf("Compare not antisymmetric for %q, %q: %d vs %d", a, b, ab, ba)
		}
		if Compare(a, a) != 0 {
			t.Fatalf("Compare(%q, %q) != 0", a, a)
		}
	})
}
