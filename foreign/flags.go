package foreign

import (
	"fmt"
	"strings"

	"github.com/wippyai/ndbridge/errors"
)

// IterFlags selects iterator behavior.
type IterFlags uint32

const (
	IterDontNegateStrides IterFlags = 1 << iota
	IterRefsOK
	IterZeroSizeOK
	IterBuffered
	IterDelayBufAlloc

	// Always set by the cursor.
	IterReadOnly
	IterCIndex
	IterMultiIndex
)

// IterForced is OR-ed into every caller-supplied flag set.
const IterForced = IterReadOnly | IterCIndex | IterMultiIndex

var iterFlagNames = []struct {
	flag IterFlags
	name string
}{
	{IterDontNegateStrides, "dont_negate_strides"},
	{IterRefsOK, "refs_ok"},
	{IterZeroSizeOK, "zerosize_ok"},
	{IterBuffered, "buffered"},
	{IterDelayBufAlloc, "delay_bufalloc"},
	{IterReadOnly, "readonly"},
	{IterCIndex, "c_index"},
	{IterMultiIndex, "multi_index"},
}

// Has reports whether all bits of x are set.
func (f IterFlags) Has(x IterFlags) bool {
	return f&x == x
}

func (f IterFlags) String() string {
	var names []string
	for _, n := range iterFlagNames {
		if f.Has(n.flag) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// ParseIterFlags maps flag names to IterFlags. Only the caller-selectable
// flags are accepted.
func ParseIterFlags(names []string) (IterFlags, error) {
	var f IterFlags
	for _, name := range names {
		found := false
		for _, n := range iterFlagNames[:5] {
			if strings.EqualFold(name, n.name) {
				f |= n.flag
				found = true
				break
			}
		}
		if !found {
			return 0, errors.InvalidInput(errors.PhaseCursor, fmt.Sprintf("unknown iterator flag %q", name))
		}
	}
	return f, nil
}

// Casting is the rule for converting operand data during iteration.
type Casting uint8

const (
	CastNo Casting = iota
	CastEquiv
	CastSafe
	CastSameKind
	CastUnsafe
)

var castingNames = [...]string{
	CastNo:       "no",
	CastEquiv:    "equiv",
	CastSafe:     "safe",
	CastSameKind: "same_kind",
	CastUnsafe:   "unsafe",
}

func (c Casting) String() string {
	if int(c) < len(castingNames) {
		return castingNames[c]
	}
	return "unknown"
}

// ParseCasting accepts exactly no, equiv, safe, same_kind and unsafe.
func ParseCasting(s string) (Casting, bool) {
	for i, n := range castingNames {
		if n == s {
			return Casting(i), true
		}
	}
	return 0, false
}
