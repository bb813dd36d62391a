package engine

import (
	"strings"

	pstackerrors "stackit.dev/pstack/internal/errors"
)

// PopPolicy decides what popping a patch that is not on top does to the patches above it
type PopPolicy string

const (
	// PopCascade pops the patches above along with the requested one
	PopCascade PopPolicy = "cascade"
	// PopReorder pops only the requested patch and pushes the ones above back
	PopReorder PopPolicy = "reorder"
	// PopReject refuses to pop anything but the topmost patches
	PopReject PopPolicy = "reject"
)

// DefaultPopPolicy is used when nothing is configured
const DefaultPopPolicy = PopCascade

// ParsePopPolicy parses a configured pop policy; the empty string selects the default
func ParsePopPolicy(s string) (PopPolicy, error) {
	switch p := PopPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return DefaultPopPolicy, nil
	case PopCascade, PopReorder, PopReject:
		return p, nil
	default:
		return "", pstackerrors.NewUsageError("unknown pop policy %q (expected cascade, reorder or reject)", s)
	}
}

func (p PopPolicy) String() string {
	return string(p)
}

// Set implements pflag.Value so the policy can be a command-line flag
func (p *PopPolicy) Set(s string) error {
	parsed, err := ParsePopPolicy(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Type implements pflag.Value
func (p *PopPolicy) Type() string {
	return "policy"
}
