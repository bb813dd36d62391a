package git

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// ParseIdent parses an identity line as printed by `git var`, e.g.
// "Jane Doe <jane@example.com> 1700000000 +0100".
func ParseIdent(line string) (object.Signature, error) {
	line = strings.TrimSpace(line)
	open := strings.LastIndex(line, "<")
	closing := strings.LastIndex(line, ">")
	if open < 0 || closing < open {
		return object.Signature{}, fmt.Errorf("malformed identity %q", line)
	}

	sig := object.Signature{
		Name:  strings.TrimSpace(line[:open]),
		Email: line[open+1 : closing],
	}

	fields := strings.Fields(line[closing+1:])
	if len(fields) != 2 {
		return object.Signature{}, fmt.Errorf("malformed identity timestamp %q", line)
	}
	seconds, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return object.Signature{}, fmt.Errorf("malformed identity timestamp %q: %w", line, err)
	}
	loc, err := parseTimezone(fields[1])
	if err != nil {
		return object.Signature{}, fmt.Errorf("malformed identity timezone %q: %w", line, err)
	}
	sig.When = time.Unix(seconds, 0).In(loc)
	return sig, nil
}

func parseTimezone(tz string) (*time.Location, error) {
	if len(tz) != 5 || (tz[0] != '+' && tz[0] != '-') {
		return nil, fmt.Errorf("expected +hhmm, got %q", tz)
	}
	hours, err := strconv.Atoi(tz[1:3])
	if err != nil {
		return nil, err
	}
	minutes, err := strconv.Atoi(tz[3:])
	if err != nil {
		return nil, err
	}
	offset := hours*3600 + minutes*60
	if tz[0] == '-' {
		offset = -offset
	}
	return time.FixedZone("", offset), nil
}
