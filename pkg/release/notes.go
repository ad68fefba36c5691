// Package release collects merged pull requests into release notes and
// sets up the release project in Linear.
package release

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/ethpandaops/testnetoor/pkg/github"
)

// PullRequestSource fetches pull request metadata. *github.Client
// satisfies it.
type PullRequestSource interface {
	GetPullRequest(ctx context.Context, number int) (*github.PullRequest, error)
	ListPullRequestCommits(ctx context.Context, number int) ([]github.Commit, error)
}

var _ PullRequestSource = (*github.Client)(nil)

// NotMergedError is returned when a pull request in the batch was closed
// without merging or is still open.
type NotMergedError struct {
	Number int
	State  string
}

func (e *NotMergedError) Error() string {
	return fmt.Sprintf("pull request #%d is not merged (state %s)", e.Number, e.State)
}

// PullRequest is a merged pull request as it appears in the notes.
type PullRequest struct {
	Number   int
	Title    string
	Author   string
	URL      string
	ClosedAt time.Time
	Breaking bool
}

// Collect fetches each pull request and its commits in order. The whole
// batch fails if any of them is not closed and merged.
func Collect(ctx context.Context, source PullRequestSource, numbers []int) ([]PullRequest, error) {
	prs := make([]PullRequest, 0, len(numbers))

	for _, number := range numbers {
		pr, err := source.GetPullRequest(ctx, number)
		if err != nil {
			return nil, fmt.Errorf("fetching pull request #%d: %w", number, err)
		}

		if pr.State != "closed" || !pr.Merged || pr.ClosedAt == nil {
			return nil, &NotMergedError{Number: number, State: pr.State}
		}

		commits, err := source.ListPullRequestCommits(ctx, number)
		if err != nil {
			return nil, fmt.Errorf("fetching commits of pull request #%d: %w", number, err)
		}

		messages := lo.Map(commits, func(c github.Commit, _ int) string {
			return c.Commit.Message
		})

		prs = append(prs, PullRequest{
			Number:   pr.Number,
			Title:    pr.Title,
			Author:   pr.User.Login,
			URL:      pr.HTMLURL,
			ClosedAt: *pr.ClosedAt,
			Breaking: IsBreaking(append(messages, pr.Title)),
		})
	}

	return prs, nil
}

// IsBreaking reports whether any conventional commit message marks a
// breaking change, either with "!:" in its subject or a BREAKING CHANGE
// footer.
func IsBreaking(messages []string) bool {
	return lo.SomeBy(messages, func(msg string) bool {
		subject, _, _ := strings.Cut(msg, "\n")

		return strings.Contains(subject, "!:") || strings.Contains(msg, "BREAKING CHANGE")
	})
}

// BuildNotes renders Markdown release notes. Pull requests are ordered by
// the time they were closed and grouped by author, with authors in order
// of their first merged pull request.
func BuildNotes(prs []PullRequest) string {
	sorted := slices.Clone(prs)
	slices.SortStableFunc(sorted, func(a, b PullRequest) int {
		return cmp.Compare(a.ClosedAt.UnixNano(), b.ClosedAt.UnixNano())
	})

	var b strings.Builder

	breaking := lo.Filter(sorted, func(pr PullRequest, _ int) bool { return pr.Breaking })
	if len(breaking) > 0 {
		b.WriteString("## Breaking Changes\n\n")

		for _, pr := range breaking {
			fmt.Fprintf(&b, "- %s (@%s)\n", entry(pr), pr.Author)
		}

		b.WriteString("\n")
	}

	b.WriteString("## Merged Pull Requests\n")

	if len(sorted) == 0 {
		b.WriteString("\n_No pull requests_\n")

		return b.String()
	}

	authors := lo.Uniq(lo.Map(sorted, func(pr PullRequest, _ int) string { return pr.Author }))
	byAuthor := lo.GroupBy(sorted, func(pr PullRequest) string { return pr.Author })

	for _, author := range authors {
		fmt.Fprintf(&b, "\n### @%s\n\n", author)

		for _, pr := range byAuthor[author] {
			fmt.Fprintf(&b, "- %s\n", entry(pr))
		}
	}

	return b.String()
}

func entry(pr PullRequest) string {
	if pr.URL == "" {
		return fmt.Sprintf("#%d %s", pr.Number, pr.Title)
	}

	return fmt.Sprintf("[#%d](%s) %s", pr.Number, pr.URL, pr.Title)
}
