package functions

import (
	"math"

	"mercator-hq/cascade/pkg/less/ast"
)

type hsla struct {
	h, s, l, a float64
}

func toHSLA(c *ast.Color) hsla {
	h, s, l, a := c.ToHSL()
	return hsla{h, s, l, a}
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

// fromHSLA builds the color for hsl, keeping the function notation of orig
// when it was written as rgb() or hsl().
func fromHSLA(orig *ast.Color, hsl hsla) *ast.Color {
	out := ast.ColorFromHSL(hsl.h, hsl.s, hsl.l, hsl.a)
	if len(orig.Value) >= 3 && (orig.Value[:3] == "rgb" || orig.Value[:3] == "hsl") {
		out.Value = orig.Value
	} else {
		out.Value = "rgb"
	}
	return out
}

func registerColor(r *Registry) {
	r.Add("rgb", func(c *Call, args []ast.Node) (any, error) {
		args, alpha := splitSlashAlpha(args)
		if alpha == nil {
			alpha = ast.NewDimension(1, ast.Unit{}, -1, nil)
		}
		col := rgba(append(args[:min(len(args), 3):min(len(args), 3)], alpha))
		if col == nil {
			return nil, nil
		}
		col.Value = "rgb"
		return col, nil
	})
	r.Add("rgba", func(c *Call, args []ast.Node) (any, error) {
		col := rgba(args)
		if col == nil {
			return nil, nil
		}
		return col, nil
	})
	r.Add("hsl", func(c *Call, args []ast.Node) (any, error) {
		args, alpha := splitSlashAlpha(args)
		if alpha == nil {
			alpha = ast.NewDimension(1, ast.Unit{}, -1, nil)
		}
		col := hslaColor(append(args[:min(len(args), 3):min(len(args), 3)], alpha))
		if col == nil {
			return nil, nil
		}
		col.Value = "hsl"
		return col, nil
	})
	r.Add("hsla", func(c *Call, args []ast.Node) (any, error) {
		col := hslaColor(args)
		if col == nil {
			return nil, nil
		}
		return col, nil
	})

	channel := func(get func(*ast.Color) (float64, string)) Func {
		return func(c *Call, args []ast.Node) (any, error) {
			if err := requireArgs(args, 1, c.Name); err != nil {
				return nil, err
			}
			col, err := color(args[0])
			if err != nil {
				return nil, err
			}
			v, unit := get(col)
			return ast.NewDimension(v, ast.ParseUnit(unit), c.Index, c.File), nil
		}
	}
	r.Add("red", channel(func(c *ast.Color) (float64, string) { return c.RGB[0], "" }))
	r.Add("green", channel(func(c *ast.Color) (float64, string) { return c.RGB[1], "" }))
	r.Add("blue", channel(func(c *ast.Color) (float64, string) { return c.RGB[2], "" }))
	r.Add("alpha", channel(func(c *ast.Color) (float64, string) { return c.Alpha, "" }))
	r.Add("hue", channel(func(c *ast.Color) (float64, string) { return toHSLA(c).h, "" }))
	r.Add("saturation", channel(func(c *ast.Color) (float64, string) { return toHSLA(c).s * 100, "%" }))
	r.Add("lightness", channel(func(c *ast.Color) (float64, string) { return toHSLA(c).l * 100, "%" }))
	r.Add("luma", channel(func(c *ast.Color) (float64, string) { return c.Luma() * c.Alpha * 100, "%" }))

	// adjust registers a function shifting one HSL channel by an amount in
	// percent, optionally relative to the current value.
	adjust := func(field func(*hsla) *float64, sign float64) Func {
		return func(c *Call, args []ast.Node) (any, error) {
			if err := requireArgs(args, 2, c.Name); err != nil {
				return nil, err
			}
			col, err := color(args[0])
			if err != nil {
				return nil, err
			}
			amount, err := dimension(args[1], c.Name)
			if err != nil {
				return nil, err
			}
			hsl := toHSLA(col)
			v := field(&hsl)
			if m := arg(args, 2); m != nil && stringValue(m) == "relative" {
				*v += sign * *v * amount.Value / 100
			} else {
				*v += sign * amount.Value / 100
			}
			*v = clamp01(*v)
			return fromHSLA(col, hsl), nil
		}
	}
	sat := func(h *hsla) *float64 { return &h.s }
	light := func(h *hsla) *float64 { return &h.l }
	alpha := func(h *hsla) *float64 { return &h.a }
	r.Add("saturate", adjust(sat, 1))
	r.Add("desaturate", adjust(sat, -1))
	r.Add("lighten", adjust(light, 1))
	r.Add("darken", adjust(light, -1))
	r.Add("fadein", adjust(alpha, 1))
	r.Add("fadeout", adjust(alpha, -1))

	r.Add("fade", func(c *Call, args []ast.Node) (any, error) {
		if err := requireArgs(args, 2, "fade"); err != nil {
			return nil, err
		}
		col, err := color(args[0])
		if err != nil {
			return nil, err
		}
		amount, err := dimension(args[1], "fade")
		if err != nil {
			return nil, err
		}
		hsl := toHSLA(col)
		hsl.a = clamp01(amount.Value / 100)
		return fromHSLA(col, hsl), nil
	})

	r.Add("spin", func(c *Call, args []ast.Node) (any, error) {
		if err := requireArgs(args, 2, "spin"); err != nil {
			return nil, err
		}
		col, err := color(args[0])
		if err != nil {
			return nil, err
		}
		amount, err := dimension(args[1], "spin")
		if err != nil {
			return nil, err
		}
		hsl := toHSLA(col)
		h := math.Mod(hsl.h+amount.Value, 360)
		if h < 0 {
			h += 360
		}
		hsl.h = h
		return fromHSLA(col, hsl), nil
	})

	r.Add("mix", func(c *Call, args []ast.Node) (any, error) {
		if err := requireArgs(args, 2, "mix"); err != nil {
			return nil, err
		}
		a, err := color(args[0])
		if err != nil {
			return nil, err
		}
		b, err := color(args[1])
		if err != nil {
			return nil, err
		}
		weight := 50.0
		if w := arg(args, 2); w != nil {
			d, err := dimension(w, "mix")
			if err != nil {
				return nil, err
			}
			weight = d.Value
		}
		return mix(a, b, weight), nil
	})

	tintShade := func(base float64) Func {
		return func(c *Call, args []ast.Node) (any, error) {
			if err := requireArgs(args, 1, c.Name); err != nil {
				return nil, err
			}
			col, err := color(args[0])
			if err != nil {
				return nil, err
			}
			weight := 50.0
			if w := arg(args, 1); w != nil {
				d, err := dimension(w, c.Name)
				if err != nil {
					return nil, err
				}
				weight = d.Value
			}
			return mix(ast.NewColor([3]float64{base, base, base}, 1, "rgb", -1, nil), col, weight), nil
		}
	}
	r.Add("tint", tintShade(255))
	r.Add("shade", tintShade(0))

	r.Add("greyscale", func(c *Call, args []ast.Node) (any, error) {
		if err := requireArgs(args, 1, "greyscale"); err != nil {
			return nil, err
		}
		col, err := color(args[0])
		if err != nil {
			return nil, err
		}
		hsl := toHSLA(col)
		hsl.s = 0
		return fromHSLA(col, hsl), nil
	})

	r.Add("contrast", func(c *Call, args []ast.Node) (any, error) {
		if err := requireArgs(args, 1, "contrast"); err != nil {
			return nil, err
		}
		col, ok := args[0].(*ast.Color)
		if !ok {
			return nil, nil
		}
		dark := ast.NewColor([3]float64{0, 0, 0}, 1, "", -1, nil)
		light := ast.NewColor([3]float64{255, 255, 255}, 1, "", -1, nil)
		if d, ok := arg(args, 1).(*ast.Color); ok {
			dark = d
		}
		if l, ok := arg(args, 2).(*ast.Color); ok {
			light = l
		}
		if dark.Luma() > light.Luma() {
			dark, light = light, dark
		}
		threshold := 0.43
		if t := arg(args, 3); t != nil {
			v, err := number(t)
			if err != nil {
				return nil, err
			}
			threshold = v
		}
		if col.Luma() < threshold {
			return light, nil
		}
		return dark, nil
	})
}

// splitSlashAlpha handles the space separated form rgb(r g b / a).
func splitSlashAlpha(args []ast.Node) ([]ast.Node, ast.Node) {
	if len(args) != 1 {
		return args, nil
	}
	expr, ok := args[0].(*ast.Expression)
	if !ok || len(expr.Value) != 3 {
		return args, nil
	}
	parts := append([]ast.Node(nil), expr.Value...)
	if op, ok := parts[2].(*ast.Operation); ok && op.Op == "/" {
		parts[2] = op.Operands[0]
		return parts, op.Operands[1]
	}
	return parts, nil
}

func rgba(args []ast.Node) *ast.Color {
	if len(args) == 0 {
		return nil
	}
	if c, ok := args[0].(*ast.Color); ok {
		alpha := c.Alpha
		if len(args) > 1 {
			a, err := number(args[1])
			if err != nil {
				return nil
			}
			alpha = a
		}
		return ast.NewColor(c.RGB, alpha, "rgba", -1, nil)
	}
	if len(args) < 4 {
		return nil
	}
	var rgb [3]float64
	for i := range rgb {
		v, err := scaled(args[i], 255)
		if err != nil {
			return nil
		}
		rgb[i] = v
	}
	a, err := number(args[3])
	if err != nil {
		return nil
	}
	return ast.NewColor(rgb, a, "rgba", -1, nil)
}

func hslaColor(args []ast.Node) *ast.Color {
	if len(args) == 0 {
		return nil
	}
	if c, ok := args[0].(*ast.Color); ok {
		alpha := c.Alpha
		if len(args) > 1 {
			a, err := number(args[1])
			if err != nil {
				return nil
			}
			alpha = a
		}
		return ast.NewColor(c.RGB, alpha, "hsla", -1, nil)
	}
	if len(args) < 4 {
		return nil
	}
	var vals [4]float64
	for i := range vals {
		v, err := number(args[i])
		if err != nil {
			return nil
		}
		vals[i] = v
	}
	out := ast.ColorFromHSL(vals[0], vals[1], vals[2], vals[3])
	out.Value = "hsla"
	return out
}

func mix(a, b *ast.Color, weight float64) *ast.Color {
	p := weight / 100
	w := p*2 - 1
	da := a.Alpha - b.Alpha

	var w1 float64
	if w*da == -1 {
		w1 = (w + 1) / 2
	} else {
		w1 = ((w+da)/(1+w*da) + 1) / 2
	}
	w2 := 1 - w1

	var rgb [3]float64
	for i := range rgb {
		rgb[i] = a.RGB[i]*w1 + b.RGB[i]*w2
	}
	alpha := a.Alpha*p + b.Alpha*(1-p)
	return ast.NewColor(rgb, alpha, "", -1, nil)
}
