package forge

import (
	"git.home.luguber.info/inful/docdraft/internal/foundation/errors"
)

var (
	// ErrAuthRequired signals that no token was configured for the forge client.
	ErrAuthRequired = errors.AuthError("authentication required for forge client").Build()

	// ErrInvalidRepository signals a repository identifier not in owner/name form.
	ErrInvalidRepository = errors.ValidationError("repository must be in owner/name form").Build()

	// ErrInvalidPayload signals that an event payload could not be decoded.
	ErrInvalidPayload = errors.ForgeError("invalid event payload").Build()

	// ErrForkNotAllowed signals a pull request opened from a fork.
	ErrForkNotAllowed = errors.ValidationError("pull requests from forks cannot publish drafts").Build()
)
