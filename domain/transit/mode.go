package transit

import "strings"

// Mode is a transport mode accepted by the disruption endpoints.
type Mode string

const (
	ModeTube          Mode = "tube"
	ModeOverground    Mode = "overground"
	ModeDLR           Mode = "dlr"
	ModeElizabethLine Mode = "elizabeth-line"
)

// DisruptionModes lists the modes disruptions can be queried for, in
// canonical order.
func DisruptionModes() []Mode {
	return []Mode{ModeTube, ModeOverground, ModeDLR, ModeElizabethLine}
}

// OneOfTag renders the modes as a validator "oneof" parameter list.
func OneOfTag() string {
	modes := DisruptionModes()
	parts := make([]string, len(modes))
	for i, m := range modes {
		parts[i] = string(m)
	}
	return "oneof=" + strings.Join(parts, " ")
}

// SplitList splits a comma-separated identifier list, trimming each entry.
// Empty entries are kept so callers can reject them.
func SplitList(list string) []string {
	parts := strings.Split(list, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
