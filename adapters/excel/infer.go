package excel

import (
	"math"
	"strconv"

	"trgemu/domain/dataset"
)

// InferColumn picks the narrowest kind every non-empty cell parses as:
// int, then float, then bool, else string. Empty cells force numeric
// columns to float and read as NaN.
func InferColumn(name string, cells []string) *dataset.Column {
	isInt, isFloat, isBool := true, true, true
	empty := 0
	for _, c := range cells {
		if c == "" {
			empty++
			continue
		}
		if isInt {
			if _, err := strconv.ParseInt(c, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(c, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			if _, err := strconv.ParseBool(c); err != nil {
				isBool = false
			}
		}
		if !isInt && !isFloat && !isBool {
			break
		}
	}

	switch {
	case isInt && empty == 0 && len(cells) > 0:
		values := make([]int64, len(cells))
		for i, c := range cells {
			values[i], _ = strconv.ParseInt(c, 10, 64)
		}
		return dataset.NewIntColumn(name, values)
	case isFloat:
		values := make([]float64, len(cells))
		for i, c := range cells {
			if c == "" {
				values[i] = math.NaN()
				continue
			}
			values[i], _ = strconv.ParseFloat(c, 64)
		}
		return dataset.NewFloatColumn(name, values)
	case isBool && empty == 0:
		values := make([]bool, len(cells))
		for i, c := range cells {
			values[i], _ = strconv.ParseBool(c)
		}
		return dataset.NewBoolColumn(name, values)
	}
	values := make([]string, len(cells))
	copy(values, cells)
	return dataset.NewStringColumn(name, values)
}
