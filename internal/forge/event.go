package forge

import (
	"encoding/json"
	"os"

	"git.home.luguber.info/inful/docdraft/internal/foundation/errors"
)

// PullRequestEvent is the subset of a GitHub Actions pull_request payload a
// publish run needs.
type PullRequestEvent struct {
	Number      int `json:"number"`
	PullRequest struct {
		Number int `json:"number"`
		Head   struct {
			Ref  string `json:"ref"`
			Repo struct {
				FullName string `json:"full_name"`
				Fork     bool   `json:"fork"`
			} `json:"repo"`
		} `json:"head"`
		Base struct {
			Repo struct {
				FullName string `json:"full_name"`
			} `json:"repo"`
		} `json:"base"`
	} `json:"pull_request"`
}

// ParseEvent decodes a pull-request event payload.
func ParseEvent(payload []byte) (*PullRequestEvent, error) {
	var ev PullRequestEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, errors.WrapError(err, errors.CategoryForge, "invalid event payload").Build()
	}
	if ev.PullRequest.Number == 0 && ev.Number == 0 {
		return nil, ErrInvalidPayload.WithContext("reason", "not a pull_request event")
	}
	return &ev, nil
}

// ReadEvent loads the event payload file named by GITHUB_EVENT_PATH.
func ReadEvent(path string) (*PullRequestEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read event payload").
			WithContext("path", path).Build()
	}
	return ParseEvent(data)
}

// PRNumber returns the pull-request number.
func (e *PullRequestEvent) PRNumber() int {
	if e.PullRequest.Number != 0 {
		return e.PullRequest.Number
	}
	return e.Number
}

// HeadRepository is the repository the changes come from.
func (e *PullRequestEvent) HeadRepository() string { return e.PullRequest.Head.Repo.FullName }

// BaseRepository is the repository the pull request targets.
func (e *PullRequestEvent) BaseRepository() string { return e.PullRequest.Base.Repo.FullName }

// IsFork reports whether the pull request originates from another repository.
func (e *PullRequestEvent) IsFork() bool {
	head, base := e.HeadRepository(), e.BaseRepository()
	if head == "" || base == "" {
		return e.PullRequest.Head.Repo.Fork
	}
	return head != base
}
