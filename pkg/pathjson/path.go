package pathjson

import (
	"strconv"
	"strings"
)

// Path is a location in a JSON document. Object members are their key,
// array elements are "[i]".
type Path []string

// Key returns p extended by an object member.
func (p Path) Key(k string) Path {
	return append(p[:len(p):len(p)], k)
}

// Index returns p extended by an array element.
func (p Path) Index(i int) Path {
	return append(p[:len(p):len(p)], "["+strconv.Itoa(i)+"]")
}

// String joins segments with "."; the root renders as ".".
func (p Path) String() string {
	if len(p) == 0 {
		return "."
	}
	return strings.Join(p, ".")
}

// ParsePath splits a rendered path back into segments.
func ParsePath(s string) Path {
	if s == "" || s == "." {
		return nil
	}
	return strings.Split(s, ".")
}

// IndexOf reports the element index held by an "[i]" segment.
func IndexOf(segment string) (int, bool) {
	if len(segment) < 3 || segment[0] != '[' || segment[len(segment)-1] != ']' {
		return 0, false
	}
	n, err := strconv.Atoi(segment[1 : len(segment)-1])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
