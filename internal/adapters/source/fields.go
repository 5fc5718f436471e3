package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// list accepts a JSON string, number, array of those, or null.
type list []string

func (l *list) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	if b[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		out := make(list, 0, len(raw))
		for _, r := range raw {
			v, err := scalar(r)
			if err != nil {
				return err
			}
			if v != "" {
				out = append(out, v)
			}
		}
		*l = out
		return nil
	}
	v, err := scalar(b)
	if err != nil {
		return err
	}
	if v == "" {
		*l = nil
		return nil
	}
	*l = list{v}
	return nil
}

// first returns the first value or "".
func (l list) first() string {
	if len(l) == 0 {
		return ""
	}
	return l[0]
}

func scalar(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0, bytes.Equal(b, []byte("null")):
		return "", nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	case bytes.Equal(b, []byte("true")), bytes.Equal(b, []byte("false")):
		return string(b), nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return "", fmt.Errorf("unsupported value %s", b)
	}
	// Spreadsheet exports write years as 1893.0.
	if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10), nil
	}
	return n.String(), nil
}

// century maps a year such as "1893" or "c. 1890-95" to "19th century".
func century(year string) string {
	digits := 0
	start := -1
	for i, r := range year {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			digits++
			if digits == 4 {
				break
			}
			continue
		}
		start, digits = -1, 0
	}
	if digits < 3 {
		return ""
	}
	y, err := strconv.Atoi(year[start : start+digits])
	if err != nil || y <= 0 {
		return ""
	}
	c := (y-1)/100 + 1
	return ordinal(c) + " century"
}

func ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}
