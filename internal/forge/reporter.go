package forge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/docdraft/internal/logfields"
)

// Hidden markers that identify the two status comments.
const (
	SuccessMarker = "<!-- docdraft:success -->"
	FailureMarker = "<!-- docdraft:failure -->"
)

// Reporter keeps exactly one status comment on a pull request. A success
// report replaces any earlier failure comment and vice versa; repeated
// reports of the same outcome edit the existing comment in place.
type Reporter struct {
	commenter Commenter
	repo      string
}

// NewReporter returns a reporter writing to repo (owner/name).
func NewReporter(c Commenter, repo string) *Reporter {
	return &Reporter{commenter: c, repo: repo}
}

// ReportSuccess posts the draft link.
func (r *Reporter) ReportSuccess(ctx context.Context, pr int, draftURL string) error {
	body := SuccessMarker + "\n" + SuccessBody(draftURL)
	return r.report(ctx, pr, SuccessMarker, FailureMarker, body)
}

// ReportFailure posts the captured build log tail.
func (r *Reporter) ReportFailure(ctx context.Context, pr int, logTail string) error {
	body := FailureMarker + "\n" + FailureBody(logTail)
	return r.report(ctx, pr, FailureMarker, SuccessMarker, body)
}

// SuccessBody renders the visible part of a success comment.
func SuccessBody(draftURL string) string {
	return fmt.Sprintf("### :rocket: Docs draft published\n\nPreview the documentation for this pull request at %s\n", draftURL)
}

// FailureBody renders the visible part of a failure comment.
func FailureBody(logTail string) string {
	var b strings.Builder
	b.WriteString("### :x: Docs draft build failed\n\n")
	b.WriteString("The documentation site could not be built. Last lines of the build log:\n\n")
	b.WriteString("```\n")
	b.WriteString(strings.TrimRight(logTail, "\n"))
	b.WriteString("\n```\n")
	return b.String()
}

func (r *Reporter) report(ctx context.Context, pr int, own, opposite, body string) error {
	comments, err := r.commenter.ListComments(ctx, r.repo, pr)
	if err != nil {
		return err
	}

	var existing *Comment
	for i := range comments {
		c := comments[i]
		switch {
		case strings.Contains(c.Body, own):
			if existing == nil {
				existing = &c
				continue
			}
			// Duplicates from earlier racing runs collapse into the first one.
			if err := r.commenter.DeleteComment(ctx, r.repo, c.ID); err != nil {
				return err
			}
		case strings.Contains(c.Body, opposite):
			slog.Debug("Removing opposite status comment", logfields.PullRequest(pr), slog.Int64("comment_id", c.ID))
			if err := r.commenter.DeleteComment(ctx, r.repo, c.ID); err != nil {
				return err
			}
		}
	}

	if existing != nil {
		if existing.Body == body {
			return nil
		}
		_, err := r.commenter.UpdateComment(ctx, r.repo, existing.ID, body)
		return err
	}
	_, err = r.commenter.CreateComment(ctx, r.repo, pr, body)
	return err
}
