package engine

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	pstackerrors "stackit.dev/pstack/internal/errors"
)

// DefaultNameLength caps names generated from commit subjects
const DefaultNameLength = 30

const maxNameLength = 100

// Patch is one named entry of a stack. Patches are values: changing a patch
// produces a new commit that replaces it in its slot.
type Patch struct {
	Name      string
	Commit    plumbing.Hash
	Message   string
	Author    object.Signature
	Committer object.Signature
	// Conflict is set on the top patch after a push that did not merge cleanly
	Conflict bool
}

// Subject returns the first line of the patch message
func (p Patch) Subject() string {
	subject, _, _ := strings.Cut(strings.TrimSpace(p.Message), "\n")
	return strings.TrimSpace(subject)
}

// ValidatePatchName checks that name can be used as a patch name
func ValidatePatchName(name string) error {
	invalid := func(reason string) error {
		return pstackerrors.NewPatchError("", name, fmt.Errorf("%w: %s", pstackerrors.ErrInvalidName, reason))
	}
	switch {
	case name == "":
		return invalid("empty name")
	case len(name) > maxNameLength:
		return invalid("name too long")
	case strings.HasPrefix(name, "-"), strings.HasPrefix(name, "."):
		return invalid("name must not start with '-' or '.'")
	case strings.HasSuffix(name, ".lock"):
		return invalid("name must not end in .lock")
	case strings.Contains(name, ".."):
		return invalid("name must not contain '..'")
	}
	for _, r := range name {
		if r <= ' ' || r == 0x7f || strings.ContainsRune("/\\~^:?*[@{", r) {
			return invalid(fmt.Sprintf("name must not contain %q", r))
		}
	}
	return nil
}

// MakePatchName derives a patch name from a commit message
func MakePatchName(message string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultNameLength
	}
	subject, _, _ := strings.Cut(strings.TrimSpace(message), "\n")

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(subject) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}

	name := b.String()
	if len(name) > maxLen {
		name = name[:maxLen]
		// Prefer cutting at a word boundary
		if i := strings.LastIndexByte(name, '-'); i > maxLen/2 {
			name = name[:i]
		}
		name = strings.TrimRight(name, "-")
	}
	if name == "" {
		return "patch"
	}
	return name
}

// Uniquify appends -1, -2, ... to name until taken reports it as free
func Uniquify(name string, taken func(string) bool) string {
	if !taken(name) {
		return name
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d", name, i)
		if !taken(candidate) {
			return candidate
		}
	}
}
