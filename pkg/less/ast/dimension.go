package ast

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	lesserrors "mercator-hq/cascade/pkg/less/errors"
)

type conversionGroup struct {
	name  string
	units map[string]float64
}

// unitConversions lists the convertible unit groups. Order matters: it is the
// order in which groups are applied when unifying.
var unitConversions = []conversionGroup{
	{"length", map[string]float64{
		"m":  1,
		"cm": 0.01,
		"mm": 0.001,
		"in": 0.0254,
		"px": 0.0254 / 96,
		"pt": 0.0254 / 72,
		"pc": 0.0254 / 72 * 12,
	}},
	{"duration", map[string]float64{
		"s":  1,
		"ms": 0.001,
	}},
	{"angle", map[string]float64{
		"rad":  1 / (2 * math.Pi),
		"deg":  1.0 / 360,
		"grad": 1.0 / 400,
		"turn": 1,
	}},
}

func conversionGroupOf(unit string) (conversionGroup, bool) {
	for _, g := range unitConversions {
		if _, ok := g.units[unit]; ok {
			return g, true
		}
	}
	return conversionGroup{}, false
}

var lengthUnit = regexp.MustCompile(`(?i)^(px|em|ex|ch|rem|in|cm|mm|pc|pt|vw|vh|vmin|vmax)$`)

// Unit is a possibly compound unit such as px, px*px or px/s.
type Unit struct {
	Numerator   []string
	Denominator []string
	BackupUnit  string
}

// NewUnit returns a unit from sorted copies of numerator and denominator.
func NewUnit(numerator, denominator []string, backup string) Unit {
	u := Unit{
		Numerator:   append([]string(nil), numerator...),
		Denominator: append([]string(nil), denominator...),
		BackupUnit:  backup,
	}
	sort.Strings(u.Numerator)
	sort.Strings(u.Denominator)
	if u.BackupUnit == "" && len(u.Numerator) > 0 {
		u.BackupUnit = u.Numerator[0]
	}
	return u
}

// ParseUnit returns the unit for a simple suffix such as "px" or "%".
func ParseUnit(s string) Unit {
	if s == "" {
		return Unit{}
	}
	return NewUnit([]string{s}, nil, "")
}

// Clone returns a deep copy.
func (u Unit) Clone() Unit {
	return Unit{
		Numerator:   append([]string(nil), u.Numerator...),
		Denominator: append([]string(nil), u.Denominator...),
		BackupUnit:  u.BackupUnit,
	}
}

// IsEmpty reports whether the unit has no parts.
func (u Unit) IsEmpty() bool {
	return len(u.Numerator) == 0 && len(u.Denominator) == 0
}

// IsSingular reports whether the unit is at most one plain unit.
func (u Unit) IsSingular() bool {
	return len(u.Numerator) <= 1 && len(u.Denominator) == 0
}

// IsLength reports whether the unit is a CSS length.
func (u Unit) IsLength() bool {
	return lengthUnit.MatchString(u.CSS(false))
}

// Is reports whether the unit is written as s, ignoring case.
func (u Unit) Is(s string) bool {
	return strings.EqualFold(u.String(), s)
}

// String returns the full unit, e.g. "px*px/s".
func (u Unit) String() string {
	s := strings.Join(u.Numerator, "*")
	for _, d := range u.Denominator {
		s += "/" + d
	}
	return s
}

// CSS returns the unit as emitted in CSS: only the first part is kept.
func (u Unit) CSS(strictUnits bool) string {
	switch {
	case len(u.Numerator) >= 1:
		return u.Numerator[0]
	case len(u.Denominator) >= 1:
		return u.Denominator[0]
	case !strictUnits && u.BackupUnit != "":
		return u.BackupUnit
	}
	return ""
}

func (u *Unit) mapUnits(fn func(unit string, denominator bool) string) {
	for i, n := range u.Numerator {
		u.Numerator[i] = fn(n, false)
	}
	for i, d := range u.Denominator {
		u.Denominator[i] = fn(d, true)
	}
}

// UsedUnits returns, per conversion group, the first unit of that group in use.
func (u Unit) UsedUnits() map[string]string {
	result := map[string]string{}
	for _, g := range unitConversions {
		for _, part := range append(append([]string(nil), u.Numerator...), u.Denominator...) {
			if _, ok := g.units[part]; ok {
				if _, seen := result[g.name]; !seen {
					result[g.name] = part
				}
			}
		}
	}
	return result
}

// Cancel removes parts that appear in both numerator and denominator.
func (u *Unit) Cancel() {
	counter := map[string]int{}
	var order []string
	for _, n := range u.Numerator {
		if _, ok := counter[n]; !ok {
			order = append(order, n)
		}
		counter[n]++
	}
	for _, d := range u.Denominator {
		if _, ok := counter[d]; !ok {
			order = append(order, d)
		}
		counter[d]--
	}
	u.Numerator = nil
	u.Denominator = nil
	for _, part := range order {
		count := counter[part]
		for i := 0; i < count; i++ {
			u.Numerator = append(u.Numerator, part)
		}
		for i := 0; i < -count; i++ {
			u.Denominator = append(u.Denominator, part)
		}
	}
	sort.Strings(u.Numerator)
	sort.Strings(u.Denominator)
}

// Dimension is a number with an optional unit.
type Dimension struct {
	Meta
	Value float64
	Unit  Unit
}

// NewDimension returns a number node.
func NewDimension(value float64, unit Unit, index int, file *FileInfo) *Dimension {
	return &Dimension{Meta: Pos(index, file), Value: value, Unit: unit}
}

func (d *Dimension) Kind() Kind        { return KindDimension }
func (d *Dimension) Accept(v *Visitor) {}

// FormatNumber rounds v to precision decimals and prints it the way CSS expects.
func FormatNumber(v float64, precision int) string {
	v = RoundNumber(v, precision)
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RoundNumber rounds v to precision decimals.
func RoundNumber(v float64, precision int) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	p := math.Pow(10, float64(precision))
	return math.Round((v+2e-16)*p) / p
}

func (d *Dimension) GenCSS(ctx *GenContext, out Output) {
	if ctx.StrictUnits && !d.Unit.IsSingular() {
		ctx.Fail(d.Errorf(lesserrors.ErrorTypeRuntime,
			"Multiple units in dimension. Correct the units or use the unit function. Bad unit: %s", d.Unit.String()))
		return
	}
	value := RoundNumber(d.Value, ctx.precision())
	str := FormatNumber(value, ctx.precision())

	if ctx.Compress {
		if value == 0 && d.Unit.IsLength() {
			out.Add(str, d.File, d.Index)
			return
		}
		if value > 0 && value < 1 {
			str = str[1:]
		}
	}
	out.Add(str, d.File, d.Index)
	out.Add(d.Unit.CSS(ctx.StrictUnits), nil, -1)
}

// ToColor converts the number into a grey color.
func (d *Dimension) ToColor() *Color {
	return NewColor([3]float64{d.Value, d.Value, d.Value}, 1, "", d.Index, d.File)
}

// Operate applies a binary operator to two dimensions, combining units.
func (d *Dimension) Operate(op string, other *Dimension, strictUnits bool) (*Dimension, error) {
	value := operate(op, d.Value, other.Value)
	unit := d.Unit.Clone()

	switch op {
	case "+", "-":
		switch {
		case len(unit.Numerator) == 0 && len(unit.Denominator) == 0:
			unit = other.Unit.Clone()
			if d.Unit.BackupUnit != "" {
				unit.BackupUnit = d.Unit.BackupUnit
			}
		case len(other.Unit.Numerator) == 0 && len(unit.Denominator) == 0:
		default:
			converted := other.ConvertTo(d.Unit.UsedUnits())
			if strictUnits && converted.Unit.String() != unit.String() {
				return nil, lesserrors.Newf(lesserrors.ErrorTypeRuntime,
					"Incompatible units. Change the units or use the unit function. Bad units: '%s' and '%s'.",
					unit.String(), converted.Unit.String())
			}
			value = operate(op, d.Value, converted.Value)
		}
	case "*":
		unit.Numerator = append(unit.Numerator, other.Unit.Numerator...)
		unit.Denominator = append(unit.Denominator, other.Unit.Denominator...)
		sort.Strings(unit.Numerator)
		sort.Strings(unit.Denominator)
		unit.Cancel()
	case "/":
		unit.Numerator = append(unit.Numerator, other.Unit.Denominator...)
		unit.Denominator = append(unit.Denominator, other.Unit.Numerator...)
		sort.Strings(unit.Numerator)
		sort.Strings(unit.Denominator)
		unit.Cancel()
	}
	return NewDimension(value, unit, d.Index, d.File), nil
}

func operate(op string, a, b float64) float64 {
	switch op {
	case "+":
		return a + b
	case "-":
		return a - b
	case "*":
		return a * b
	case "/":
		return a / b
	}
	return a
}

// Unify converts the dimension to the canonical unit of each group (px, s, rad).
func (d *Dimension) Unify() *Dimension {
	return d.ConvertTo(map[string]string{"length": "px", "duration": "s", "angle": "rad"})
}

// ConvertTo converts units group-wise. conversions maps a group name to the target unit.
func (d *Dimension) ConvertTo(conversions map[string]string) *Dimension {
	value := d.Value
	unit := d.Unit.Clone()

	for _, g := range unitConversions {
		target, ok := conversions[g.name]
		if !ok {
			continue
		}
		unit.mapUnits(func(atomic string, denominator bool) string {
			factor, ok := g.units[atomic]
			if !ok {
				return atomic
			}
			if denominator {
				value = value / (factor / g.units[target])
			} else {
				value = value * (factor / g.units[target])
			}
			return target
		})
	}
	unit.Cancel()
	return NewDimension(value, unit, d.Index, d.File)
}

// ConvertToUnit converts to a single target unit such as "ms". Units of other
// groups are left untouched.
func (d *Dimension) ConvertToUnit(target string) *Dimension {
	g, ok := conversionGroupOf(target)
	if !ok {
		return d.ConvertTo(nil)
	}
	return d.ConvertTo(map[string]string{g.name: target})
}

// Compare compares two dimensions after unifying units. ok is false when the
// units are incompatible or other is not a dimension.
func (d *Dimension) Compare(other Node) (int, bool) {
	o, isDim := other.(*Dimension)
	if !isDim {
		return 0, false
	}
	a, b := d, o
	if !d.Unit.IsEmpty() && !o.Unit.IsEmpty() {
		a, b = d.Unify(), o.Unify()
		if !a.Unit.Is(b.Unit.String()) {
			return 0, false
		}
	}
	return numericCompare(a.Value, b.Value), true
}

func numericCompare(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
