package config

import (
	"git.home.luguber.info/inful/docdraft/internal/foundation/errors"
	"git.home.luguber.info/inful/docdraft/internal/git"
)

// ResolveRef picks the branch reference for a run: an explicit value first,
// then the CI environment, then the branch checked out in repoDir.
func ResolveRef(explicit string, getenv func(string) string, repoDir string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if ref := RefFromEnv(getenv); ref != "" {
		return ref, nil
	}
	head, err := git.ReadHead(repoDir)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryValidation, "no branch reference available").
			WithContext("hint", "pass --ref or set "+EnvHeadRef).Build()
	}
	return head.Ref, nil
}
