package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Faultbox/tilebatch/pkg/batchtable"
	"github.com/Faultbox/tilebatch/pkg/color"
)

var namedColors = map[string]color.Color{
	"white":       color.White,
	"black":       color.Black,
	"red":         color.Red,
	"green":       color.Green,
	"blue":        color.Blue,
	"yellow":      color.Yellow,
	"transparent": color.Transparent,
}

// parseColor accepts "name[,a]" or "r,g,b[,a]" with components in [0,1].
func parseColor(s string) (color.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	if name, alpha, ok := strings.Cut(s, ","); ok {
		if c, named := namedColors[strings.TrimSpace(name)]; named {
			a, err := parseComponent(s, alpha)
			if err != nil {
				return color.Color{}, err
			}
			return c.WithAlpha(a), nil
		}
	}

	parts := strings.Split(s, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return color.Color{}, fmt.Errorf("invalid color %q: want a name or r,g,b[,a]", s)
	}
	v := [4]float64{1, 1, 1, 1}
	for i, p := range parts {
		f, err := parseComponent(s, p)
		if err != nil {
			return color.Color{}, err
		}
		v[i] = f
	}
	return color.Color{R: v[0], G: v[1], B: v[2], A: v[3]}, nil
}

func parseComponent(s, p string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	if f < 0 || f > 1 {
		return 0, fmt.Errorf("invalid color %q: component %v outside [0,1]", s, f)
	}
	return f, nil
}

// parseIDs parses a comma separated list of batch ids and ranges ("1,4-6").
func parseIDs(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("invalid batch id %q", part)
		}
		to := from
		if isRange {
			if to, err = strconv.Atoi(hi); err != nil || to < from {
				return nil, fmt.Errorf("invalid batch id range %q", part)
			}
		}
		for id := from; id <= to; id++ {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// style is a set of overrides applied to a batch table.
type style struct {
	color    *color.Color
	colorIDs []int
	hide     []int
}

// parseStyle builds a style from the -color, -ids and -hide flag values.
// Without ids the color applies to every feature.
func parseStyle(colorFlag, idsFlag, hideFlag string) (*style, error) {
	st := &style{}
	if colorFlag != "" {
		c, err := parseColor(colorFlag)
		if err != nil {
			return nil, err
		}
		st.color = &c
	}
	var err error
	if st.colorIDs, err = parseIDs(idsFlag); err != nil {
		return nil, err
	}
	if st.hide, err = parseIDs(hideFlag); err != nil {
		return nil, err
	}
	return st, nil
}

func (st *style) apply(bt *batchtable.BatchTable) error {
	if st.color != nil {
		if st.colorIDs == nil {
			if err := bt.SetAllColor(*st.color); err != nil {
				return err
			}
		}
		for _, id := range st.colorIDs {
			if err := bt.SetColor(id, *st.color); err != nil {
				return err
			}
		}
	}
	for _, id := range st.hide {
		if err := bt.SetShow(id, false); err != nil {
			return err
		}
	}
	return nil
}
