// Package draftpath maps a pull request's source branch to the draft directory
// that keys its preview deployment, and derives every remote location of a draft
// from that directory.
package draftpath

import (
	"regexp"
	"strings"

	derrors "git.home.luguber.info/inful/docdraft/internal/foundation/errors"
)

const (
	// RefPrefix is stripped from fully qualified branch references.
	RefPrefix = "refs/heads/"
	// Separator is replaced by Substitute so the directory is a single path segment.
	Separator  = "/"
	Substitute = "-"
)

var validRef = regexp.MustCompile(`^[A-Za-z0-9/_.-]+$`)

// Directory is a validated, normalized draft directory name.
type Directory string

func (d Directory) String() string { return string(d) }

// Validate reports whether ref only uses the allowed character class.
func Validate(ref string) error {
	if !validRef.MatchString(ref) {
		return derrors.ValidationError("branch name contains invalid characters").
			WithContext("ref", ref).
			WithContext("allowed", validRef.String()).
			Build()
	}
	return nil
}

// Resolve validates ref and converts it into a draft directory.
//
// Distinct refs differing only in '/' versus '-' map to the same directory.
func Resolve(ref string) (Directory, error) {
	if err := Validate(ref); err != nil {
		return "", err
	}
	name := strings.TrimPrefix(ref, RefPrefix)
	if name == "" {
		return "", derrors.ValidationError("branch name is empty after prefix removal").
			WithContext("ref", ref).
			Build()
	}
	dir := strings.ReplaceAll(name, Separator, Substitute)
	if dir == "." || dir == ".." {
		return "", derrors.ValidationError("branch name is not a valid directory name").
			WithContext("ref", ref).
			Build()
	}
	return Directory(dir), nil
}

// Valid reports whether d names a single directory below the drafts root.
func (d Directory) Valid() bool {
	return d != "" && d != "." && d != ".." && !strings.ContainsAny(string(d), `/\`)
}
