package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

type ScalarKind int

const (
	KindAbsent ScalarKind = iota
	KindNull
	KindString
	KindNumber
	KindBool
	KindOther
)

// Scalar is one value of a submission as it arrived on the wire.
// The zero value is an absent key.
type Scalar struct {
	kind ScalarKind
	str  string
	num  float64
	raw  string
}

func String(s string) Scalar { return Scalar{kind: KindString, str: s} }

func Number(n float64) Scalar {
	return Scalar{kind: KindNumber, num: n, raw: strconv.FormatFloat(n, 'g', -1, 64)}
}

func Bool(b bool) Scalar {
	return Scalar{kind: KindBool, raw: strconv.FormatBool(b)}
}

func Null() Scalar { return Scalar{kind: KindNull} }

func (s Scalar) Kind() ScalarKind { return s.kind }

// IsNil is true for absent keys and JSON nulls.
func (s Scalar) IsNil() bool {
	return s.kind == KindAbsent || s.kind == KindNull
}

func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || string(data) == "null":
		*s = Null()
	case data[0] == '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = String(str)
	case string(data) == "true" || string(data) == "false":
		*s = Bool(data[0] == 't')
	case data[0] == '{' || data[0] == '[':
		var compact bytes.Buffer
		if err := json.Compact(&compact, data); err != nil {
			return err
		}
		*s = Scalar{kind: KindOther, raw: compact.String()}
	default:
		// out of range numbers keep the ±Inf ParseFloat returns
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return err
		}
		*s = Number(n)
	}
	return nil
}

func (s Scalar) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case KindAbsent, KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(s.str)
	case KindNumber:
		if math.IsInf(s.num, 0) || math.IsNaN(s.num) {
			return []byte("null"), nil
		}
		return json.Marshal(s.num)
	default:
		return []byte(s.raw), nil
	}
}

// String renders the value the way a form input would hold it, untrimmed.
// Absent and null values render as "".
func (s Scalar) String() string {
	switch s.kind {
	case KindAbsent, KindNull:
		return ""
	case KindString:
		return s.str
	case KindNumber:
		return formatNumber(s.num)
	default:
		return s.raw
	}
}

// Trimmed is String with surrounding whitespace removed.
func (s Scalar) Trimmed() string {
	return strings.TrimSpace(s.String())
}

// Int interprets the value as an integer id. Numbers must be integral;
// strings are read up to the first non-digit, so "7th" is 7.
func (s Scalar) Int() (int, bool) {
	switch s.kind {
	case KindNumber:
		if s.num != math.Trunc(s.num) || math.IsInf(s.num, 0) || s.num > math.MaxInt32 || s.num < math.MinInt32 {
			return 0, false
		}
		return int(s.num), true
	case KindString:
		return leadingInt(s.str)
	}
	return 0, false
}

func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

func formatNumber(n float64) string {
	switch {
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	}
	if math.Abs(n) < 1e21 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
