package host

import "fmt"

// Char is a single UTF-16 code unit.
type Char uint16

func (c Char) String() string {
	return DecodeUTF16([]uint16{uint16(c)})
}

// Pair is a two-element host value. It crosses the bridge as a 2-tuple.
type Pair struct {
	First  any
	Second any
}

func (p Pair) String() string {
	return fmt.Sprintf("(%v, %v)", p.First, p.Second)
}

// Slice is a start/stop/step triple. Nil bounds mean "absent".
type Slice struct {
	Start *int
	Stop  *int
	Step  *int
}

// Span returns the slice [start:stop].
func Span(start, stop int) Slice {
	return Slice{Start: &start, Stop: &stop}
}

// Stepped returns the slice [start:stop:step].
func Stepped(start, stop, step int) Slice {
	return Slice{Start: &start, Stop: &stop, Step: &step}
}

// All returns the slice [:].
func All() Slice {
	return Slice{}
}

func (s Slice) String() string {
	return fmt.Sprintf("%s:%s:%s", bound(s.Start), bound(s.Stop), bound(s.Step))
}

func bound(p *int) string {
	if p == nil {
		return ""
	}
	return fmt.Sprint(*p)
}

// NoneType is the type of None.
type NoneType struct{}

func (NoneType) String() string { return "None" }

// None is the host rendering of the foreign none value.
var None = NoneType{}
