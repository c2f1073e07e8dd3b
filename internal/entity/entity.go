package entity

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Strategy selects how a locator is resolved against the DOM.
type Strategy string

const (
	ByID          Strategy = "id"
	ByClassName   Strategy = "class name"
	ByCSSSelector Strategy = "css selector"
	ByXPath       Strategy = "xpath"
)

// Locator identifies zero or more DOM nodes. It carries no element
// reference of its own and is re-resolved on every query; a match obtained
// earlier may already be stale.
type Locator struct {
	Strategy Strategy
	Value    string
}

func ID(value string) Locator        { return Locator{Strategy: ByID, Value: value} }
func ClassName(value string) Locator { return Locator{Strategy: ByClassName, Value: value} }
func CSS(value string) Locator       { return Locator{Strategy: ByCSSSelector, Value: value} }
func XPath(value string) Locator     { return Locator{Strategy: ByXPath, Value: value} }

// Condition is the closed set of wait predicates. Each variant is evaluated
// as a pure function of the current page state; there is no reflective
// condition lookup.
type Condition int

const (
	// Present holds when at least one element matches the locator.
	Present Condition = iota
	// Visible holds when a matching element is displayed or its CSS
	// "display" is not "none".
	Visible
	// NotVisible holds when no matching element is displayed.
	NotVisible
	// FrameSwitch holds when a matching frame exists; on success the
	// session's element lookups move into that frame.
	FrameSwitch
	// AttributeEquals holds when the named attribute equals the expected value.
	AttributeEquals
	// PropertyEquals holds when the named property equals the expected value.
	PropertyEquals
	// TitleContains holds when the page title contains the expected value,
	// case-insensitively. It matches without a concrete element.
	TitleContains
)

func (c Condition) String() string {
	switch c {
	case Present:
		return "present"
	case Visible:
		return "visible"
	case NotVisible:
		return "not_visible"
	case FrameSwitch:
		return "frame_switch"
	case AttributeEquals:
		return "attribute_equals"
	case PropertyEquals:
		return "property_equals"
	case TitleContains:
		return "title_contains"
	}

	return "unknown"
}

// Version is a fixed 4-field executable version. Missing trailing fields
// and non-digit fields parse as 0. Never mutated after construction.
type Version struct {
	Major   int
	Minor   int
	Release int
	Build   int
}

// ParseVersion parses a dot-separated version string such as "114.0.5735.90".
func ParseVersion(s string) Version {
	var fields [4]int

	for i, part := range strings.Split(strings.TrimSpace(s), ".") {
		if i >= len(fields) {
			break
		}

		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			n = 0
		}

		fields[i] = n
	}

	return Version{Major: fields[0], Minor: fields[1], Release: fields[2], Build: fields[3]}
}

func (v Version) String() string {
	return strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor) + "." +
		strconv.Itoa(v.Release) + "." + strconv.Itoa(v.Build)
}

// ReleasePrefix returns "major.minor.release", the form the chromedriver
// release index keys its LATEST_RELEASE lookups by.
func (v Version) ReleasePrefix() string {
	return strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor) + "." + strconv.Itoa(v.Release)
}

func (v Version) IsZero() bool {
	return v == Version{}
}

// Compare returns -1, 0 or 1 ordering v against other field by field.
func (v Version) Compare(other Version) int {
	a := [4]int{v.Major, v.Minor, v.Release, v.Build}
	b := [4]int{other.Major, other.Minor, other.Release, other.Build}

	for i := range a {
		if a[i] < b[i] {
			return -1
		}

		if a[i] > b[i] {
			return 1
		}
	}

	return 0
}

// BonusCategory names one of the site's bonus tables.
type BonusCategory string

const (
	BonusBTC BonusCategory = "btc"
	BonusLT  BonusCategory = "lt"
	BonusWOF BonusCategory = "wof"
)

func (c BonusCategory) Valid() bool {
	switch c {
	case BonusBTC, BonusLT, BonusWOF:
		return true
	}

	return false
}

// ActiveBonus is the key of the currently active bonus in one category.
// Zero means no bonus is active. ActiveBonusUnknown means a bonus is active
// but its key could not be matched against the scraped key table - a
// data-consistency fault, kept distinct from "nothing active".
type ActiveBonus int

const (
	ActiveBonusNone    ActiveBonus = 0
	ActiveBonusUnknown ActiveBonus = -1
)

func (a ActiveBonus) String() string {
	if a == ActiveBonusUnknown {
		return "unknown"
	}

	return strconv.Itoa(int(a))
}

// BonusEntry pairs a redemption key with its reward-point cost.
type BonusEntry struct {
	Key  int
	Cost int
}

// BonusTable is the per-category key->cost mapping scraped from the page,
// in page order. It is rebuilt on every read.
type BonusTable struct {
	Entries []BonusEntry
}

func (t BonusTable) Len() int {
	return len(t.Entries)
}

func (t BonusTable) Keys() []int {
	keys := make([]int, 0, len(t.Entries))
	for _, e := range t.Entries {
		keys = append(keys, e.Key)
	}

	return keys
}

func (t BonusTable) Cost(key int) (int, bool) {
	for _, e := range t.Entries {
		if e.Key == key {
			return e.Cost, true
		}
	}

	return 0, false
}

// BonusRequest asks for one bonus key to be activated in one category.
// Requests are processed in slice order and stop being attempted after the
// first category that fails to activate.
type BonusRequest struct {
	Category BonusCategory
	Key      int
}

// BonusOutcome records the state of one category after an activation pass.
// Attempted is false for categories skipped because an earlier one failed.
type BonusOutcome struct {
	Category  BonusCategory
	Requested int
	Current   ActiveBonus
	Attempted bool
}

// Activated reports whether this category ended the pass with any bonus
// active and identified.
func (o BonusOutcome) Activated() bool {
	return o.Current != ActiveBonusNone && o.Current != ActiveBonusUnknown
}

// Balances is a point-in-time projection of the account balances. No copy
// is cached; two consecutive reads may legitimately differ.
type Balances struct {
	BTC            decimal.Decimal
	RewardPoints   int
	LotteryTickets int
}

// Winnings is the result of one free play round as shown on the page.
type Winnings struct {
	BTC            decimal.Decimal
	RewardPoints   int
	LotteryTickets int
	WheelSpins     int
}
