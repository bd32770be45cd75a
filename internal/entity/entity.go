// Package entity defines the repository metadata records that repoback saves and restores.
package entity

// Entity type names. These are the keys used for ordering, storage and lookup.
const (
	Labels                    = "labels"
	Milestones                = "milestones"
	Issues                    = "issues"
	Comments                  = "comments"
	PullRequests              = "pull_requests"
	PullRequestComments       = "pr_comments"
	PullRequestReviews        = "pr_reviews"
	PullRequestReviewComments = "pr_review_comments"
	SubIssues                 = "sub_issues"
	GitRepository             = "git_repository"
)

// All lists every entity type in canonical order.
var All = []string{
	Labels,
	Milestones,
	Issues,
	Comments,
	PullRequests,
	PullRequestComments,
	PullRequestReviews,
	PullRequestReviewComments,
	SubIssues,
	GitRepository,
}

// Dependencies is the fixed dependency table: entity name -> names that must run first.
var Dependencies = map[string][]string{
	Labels:                    nil,
	Milestones:                nil,
	Issues:                    {Labels, Milestones},
	Comments:                  {Issues},
	PullRequests:              {Labels, Milestones},
	PullRequestComments:       {PullRequests},
	PullRequestReviews:        {PullRequests},
	PullRequestReviewComments: {PullRequestReviews},
	SubIssues:                 {Issues},
	GitRepository:             nil,
}

// IsKnown reports whether name is a valid entity type.
func IsKnown(name string) bool {
	_, ok := Dependencies[name]
	return ok
}

// Record is any persisted entity value. Kind returns the entity type name.
type Record interface {
	Kind() string
}

// Numbered is implemented by records identified by a service-assigned number.
type Numbered interface {
	Record
	GetNumber() int
}

// ToRecords converts a typed slice to a slice of Record.
func ToRecords[T Record](items []T) []Record {
	out := make([]Record, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}

// FromRecords converts records back to a typed slice, dropping values of another type.
func FromRecords[T Record](records []Record) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if v, ok := r.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
