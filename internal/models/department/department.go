package department

import "regexp"

type Department struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Color string `json:"depcolor" db:"color"`
}

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ValidColor accepts #RGB and #RRGGBB hex colours.
func ValidColor(color string) bool {
	return colorPattern.MatchString(color)
}
