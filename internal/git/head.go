package git

import (
	"errors"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	derrors "git.home.luguber.info/inful/docdraft/internal/foundation/errors"
)

// ErrDetachedHead is returned when the checkout is not on a branch. CI systems
// check out pull requests detached, so callers fall back to an explicit ref.
var ErrDetachedHead = derrors.ValidationError("checkout is on a detached HEAD; pass --ref").Build()

// Head describes the current checkout.
type Head struct {
	Ref    string // full reference name, e.g. refs/heads/docs/update-api
	Commit string
}

// Branch returns the short branch name.
func (h Head) Branch() string {
	return strings.TrimPrefix(h.Ref, "refs/heads/")
}

// ReadHead opens the repository at (or above) repoPath and returns its HEAD.
func ReadHead(repoPath string) (Head, error) {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return Head{}, derrors.WrapError(err, derrors.CategoryConfig, "open git repository").
			WithContext("path", repoPath).Build()
	}
	ref, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return Head{}, derrors.WrapError(err, derrors.CategoryValidation, "repository has no commits").
				WithContext("path", repoPath).Build()
		}
		return Head{}, derrors.WrapError(err, derrors.CategoryConfig, "read HEAD").Build()
	}
	if !ref.Name().IsBranch() {
		return Head{Commit: ref.Hash().String()}, ErrDetachedHead
	}
	return Head{Ref: ref.Name().String(), Commit: ref.Hash().String()}, nil
}
