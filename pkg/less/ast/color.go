package ast

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Color is an RGB color with alpha. Value keeps the original spelling (a
// keyword or hex literal) so unmodified colors are emitted as written.
type Color struct {
	Meta
	RGB   [3]float64
	Alpha float64
	Value string
}

// NewColor returns a color node.
func NewColor(rgb [3]float64, alpha float64, value string, index int, file *FileInfo) *Color {
	return &Color{Meta: Pos(index, file), RGB: rgb, Alpha: alpha, Value: value}
}

// ParseHexColor parses #rgb, #rgba, #rrggbb and #rrggbbaa.
func ParseHexColor(s string, index int, file *FileInfo) (*Color, bool) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == len(s) {
		return nil, false
	}
	for _, r := range hex {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return nil, false
		}
	}
	var parts []string
	switch len(hex) {
	case 3, 4:
		for _, r := range hex {
			parts = append(parts, string(r)+string(r))
		}
	case 6, 8:
		for i := 0; i < len(hex); i += 2 {
			parts = append(parts, hex[i:i+2])
		}
	default:
		return nil, false
	}
	c := NewColor([3]float64{}, 1, s, index, file)
	for i, p := range parts {
		n, _ := strconv.ParseUint(p, 16, 8)
		if i < 3 {
			c.RGB[i] = float64(n)
		} else {
			c.Alpha = float64(n) / 255
		}
	}
	return c, true
}

// ColorFromKeyword returns the color named by a CSS color keyword.
func ColorFromKeyword(name string, index int, file *FileInfo) (*Color, bool) {
	lower := strings.ToLower(name)
	if lower == "transparent" {
		return NewColor([3]float64{0, 0, 0}, 0, name, index, file), true
	}
	hex, ok := namedColors[lower]
	if !ok {
		return nil, false
	}
	c, _ := ParseHexColor(hex, index, file)
	c.Value = name
	return c, true
}

func (c *Color) Kind() Kind        { return KindColor }
func (c *Color) Accept(v *Visitor) {}

func (c *Color) GenCSS(ctx *GenContext, out Output) {
	out.Add(c.ToCSS(ctx), c.File, c.Index)
}

// ToCSS renders the color, shortening hex notation when compressing.
func (c *Color) ToCSS(ctx *GenContext) string {
	compress := ctx != nil && ctx.Compress
	alpha := RoundNumber(c.Alpha, ctx.precision())
	sep := ", "
	if compress {
		sep = ","
	}

	fn := ""
	if c.Value != "" {
		switch {
		case strings.HasPrefix(c.Value, "rgb"):
			if alpha < 1 {
				fn = "rgba"
			}
		case strings.HasPrefix(c.Value, "hsl"):
			if alpha < 1 {
				fn = "hsla"
			} else {
				fn = "hsl"
			}
		default:
			return c.Value
		}
	} else if alpha < 1 {
		fn = "rgba"
	}

	switch fn {
	case "rgba":
		args := make([]string, 0, 4)
		for _, v := range c.RGB {
			args = append(args, FormatNumber(clamp(math.Round(v), 255), 0))
		}
		args = append(args, FormatNumber(clamp(alpha, 1), ctx.precision()))
		return fn + "(" + strings.Join(args, sep) + ")"
	case "hsl", "hsla":
		h, s, l, _ := c.ToHSL()
		args := []string{
			FormatNumber(h, ctx.precision()),
			FormatNumber(s*100, ctx.precision()) + "%",
			FormatNumber(l*100, ctx.precision()) + "%",
		}
		if fn == "hsla" {
			args = append(args, FormatNumber(clamp(alpha, 1), ctx.precision()))
		}
		return fn + "(" + strings.Join(args, sep) + ")"
	}

	hex := c.ToHex()
	if compress && hex[1] == hex[2] && hex[3] == hex[4] && hex[5] == hex[6] {
		hex = "#" + hex[1:2] + hex[3:4] + hex[5:6]
	}
	return hex
}

// ToHex returns the #rrggbb form of the color.
func (c *Color) ToHex() string {
	var sb strings.Builder
	sb.WriteByte('#')
	for _, v := range c.RGB {
		sb.WriteString(fmt.Sprintf("%02x", int(clamp(math.Round(v), 255))))
	}
	return sb.String()
}

// ToHSL returns hue in degrees, saturation and lightness in [0,1] and alpha.
func (c *Color) ToHSL() (h, s, l, a float64) {
	r, g, b := c.RGB[0]/255, c.RGB[1]/255, c.RGB[2]/255
	a = c.Alpha
	maxV := math.Max(r, math.Max(g, b))
	minV := math.Min(r, math.Min(g, b))
	l = (maxV + minV) / 2
	d := maxV - minV

	if maxV == minV {
		return 0, 0, l, a
	}
	if l > 0.5 {
		s = d / (2 - maxV - minV)
	} else {
		s = d / (maxV + minV)
	}
	switch maxV {
	case r:
		h = (g - b) / d
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/d + 2
	case b:
		h = (r-g)/d + 4
	}
	h /= 6
	return h * 360, s, l, a
}

// ColorFromHSL builds a color from hue in degrees and saturation/lightness in [0,1].
func ColorFromHSL(h, s, l, a float64) *Color {
	h = math.Mod(h, 360) / 360
	if h < 0 {
		h++
	}
	s = clamp(s, 1)
	l = clamp(l, 1)
	a = clamp(a, 1)

	var m2 float64
	if l <= 0.5 {
		m2 = l * (s + 1)
	} else {
		m2 = l + s - l*s
	}
	m1 := l*2 - m2

	hue := func(h float64) float64 {
		switch {
		case h < 0:
			h++
		case h > 1:
			h--
		}
		switch {
		case h*6 < 1:
			return m1 + (m2-m1)*h*6
		case h*2 < 1:
			return m2
		case h*3 < 2:
			return m1 + (m2-m1)*(2.0/3-h)*6
		}
		return m1
	}
	return NewColor([3]float64{hue(h+1.0/3) * 255, hue(h) * 255, hue(h-1.0/3) * 255}, a, "", -1, nil)
}

// Luma returns the relative luminance of the color.
func (c *Color) Luma() float64 {
	ch := func(v float64) float64 {
		v /= 255
		if v <= 0.03928 {
			return v / 12.92
		}
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return 0.2126*ch(c.RGB[0]) + 0.7152*ch(c.RGB[1]) + 0.0722*ch(c.RGB[2])
}

// Operate applies an arithmetic operator channel-wise.
func (c *Color) Operate(op string, other *Color) *Color {
	var rgb [3]float64
	for i := range rgb {
		rgb[i] = operate(op, c.RGB[i], other.RGB[i])
	}
	alpha := c.Alpha*(1-other.Alpha) + other.Alpha
	return NewColor(rgb, alpha, "", c.Index, c.File)
}

// Compare reports equality with another color.
func (c *Color) Compare(other Node) (int, bool) {
	o, ok := other.(*Color)
	if !ok {
		return 0, false
	}
	if o.RGB == c.RGB && o.Alpha == c.Alpha {
		return 0, true
	}
	return 0, false
}

func clamp(v, maxV float64) float64 {
	return math.Min(math.Max(v, 0), maxV)
}

var namedColors = map[string]string{
	"aliceblue": "#f0f8ff", "antiquewhite": "#faebd7", "aqua": "#00ffff", "aquamarine": "#7fffd4",
	"azure": "#f0ffff", "beige": "#f5f5dc", "bisque": "#ffe4c4", "black": "#000000",
	"blanchedalmond": "#ffebcd", "blue": "#0000ff", "blueviolet": "#8a2be2", "brown": "#a52a2a",
	"burlywood": "#deb887", "cadetblue": "#5f9ea0", "chartreuse": "#7fff00", "chocolate": "#d2691e",
	"coral": "#ff7f50", "cornflowerblue": "#6495ed", "cornsilk": "#fff8dc", "crimson": "#dc143c",
	"cyan": "#00ffff", "darkblue": "#00008b", "darkcyan": "#008b8b", "darkgoldenrod": "#b8860b",
	"darkgray": "#a9a9a9", "darkgrey": "#a9a9a9", "darkgreen": "#006400", "darkkhaki": "#bdb76b",
	"darkmagenta": "#8b008b", "darkolivegreen": "#556b2f", "darkorange": "#ff8c00", "darkorchid": "#9932cc",
	"darkred": "#8b0000", "darksalmon": "#e9967a", "darkseagreen": "#8fbc8f", "darkslateblue": "#483d8b",
	"darkslategray": "#2f4f4f", "darkslategrey": "#2f4f4f", "darkturquoise": "#00ced1", "darkviolet": "#9400d3",
	"deeppink": "#ff1493", "deepskyblue": "#00bfff", "dimgray": "#696969", "dimgrey": "#696969",
	"dodgerblue": "#1e90ff", "firebrick": "#b22222", "floralwhite": "#fffaf0", "forestgreen": "#228b22",
	"fuchsia": "#ff00ff", "gainsboro": "#dcdcdc", "ghostwhite": "#f8f8ff", "gold": "#ffd700",
	"goldenrod": "#daa520", "gray": "#808080", "grey": "#808080", "green": "#008000",
	"greenyellow": "#adff2f", "honeydew": "#f0fff0", "hotpink": "#ff69b4", "indianred": "#cd5c5c",
	"indigo": "#4b0082", "ivory": "#fffff0", "khaki": "#f0e68c", "lavender": "#e6e6fa",
	"lavenderblush": "#fff0f5", "lawngreen": "#7cfc00", "lemonchiffon": "#fffacd", "lightblue": "#add8e6",
	"lightcoral": "#f08080", "lightcyan": "#e0ffff", "lightgoldenrodyellow": "#fafad2", "lightgray": "#d3d3d3",
	"lightgrey": "#d3d3d3", "lightgreen": "#90ee90", "lightpink": "#ffb6c1", "lightsalmon": "#ffa07a",
	"lightseagreen": "#20b2aa", "lightskyblue": "#87cefa", "lightslategray": "#778899", "lightslategrey": "#778899",
	"lightsteelblue": "#b0c4de", "lightyellow": "#ffffe0", "lime": "#00ff00", "limegreen": "#32cd32",
	"linen": "#faf0e6", "magenta": "#ff00ff", "maroon": "#800000", "mediumaquamarine": "#66cdaa",
	"mediumblue": "#0000cd", "mediumorchid": "#ba55d3", "mediumpurple": "#9370d8", "mediumseagreen": "#3cb371",
	"mediumslateblue": "#7b68ee", "mediumspringgreen": "#00fa9a", "mediumturquoise": "#48d1cc", "mediumvioletred": "#c71585",
	"midnightblue": "#191970", "mintcream": "#f5fffa", "mistyrose": "#ffe4e1", "moccasin": "#ffe4b5",
	"navajowhite": "#ffdead", "navy": "#000080", "oldlace": "#fdf5e6", "olive": "#808000",
	"olivedrab": "#6b8e23", "orange": "#ffa500", "orangered": "#ff4500", "orchid": "#da70d6",
	"palegoldenrod": "#eee8aa", "palegreen": "#98fb98", "paleturquoise": "#afeeee", "palevioletred": "#d87093",
	"papayawhip": "#ffefd5", "peachpuff": "#ffdab9", "peru": "#cd853f", "pink": "#ffc0cb",
	"plum": "#dda0dd", "powderblue": "#b0e0e6", "purple": "#800080", "rebeccapurple": "#663399",
	"red": "#ff0000", "rosybrown": "#bc8f8f", "royalblue": "#4169e1", "saddlebrown": "#8b4513",
	"salmon": "#fa8072", "sandybrown": "#f4a460", "seagreen": "#2e8b57", "seashell": "#fff5ee",
	"sienna": "#a0522d", "silver": "#c0c0c0", "skyblue": "#87ceeb", "slateblue": "#6a5acd",
	"slategray": "#708090", "slategrey": "#708090", "snow": "#fffafa", "springgreen": "#00ff7f",
	"steelblue": "#4682b4", "tan": "#d2b48c", "teal": "#008080", "thistle": "#d8bfd8",
	"tomato": "#ff6347", "turquoise": "#40e0d0", "violet": "#ee82ee", "wheat": "#f5deb3",
	"white": "#ffffff", "whitesmoke": "#f5f5f5", "yellow": "#ffff00", "yellowgreen": "#9acd32",
}
