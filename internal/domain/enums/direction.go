package enums

import "strings"

type Direction string

const (
	DirectionLike      Direction = "like"
	DirectionDislike   Direction = "dislike"
	DirectionSuperLike Direction = "super_like"
)

func ParseDirection(raw string) (Direction, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.ReplaceAll(value, "-", "_")
	switch Direction(value) {
	case DirectionLike, DirectionDislike, DirectionSuperLike:
		return Direction(value), true
	case "superlike":
		return DirectionSuperLike, true
	default:
		return "", false
	}
}

// Positive reports whether the direction counts toward a mutual match.
func (d Direction) Positive() bool {
	return d == DirectionLike || d == DirectionSuperLike
}

func (d Direction) String() string {
	return string(d)
}
