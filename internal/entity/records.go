package entity

import "time"

// Label is a repository label. Labels are keyed by name.
type Label struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description,omitempty"`
}

func (*Label) Kind() string { return Labels }

// Milestone is a repository milestone.
type Milestone struct {
	ID           int64      `json:"id,omitempty"`
	Number       int        `json:"number"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	State        string     `json:"state"`
	DueOn        *time.Time `json:"due_on,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	OpenIssues   int        `json:"open_issues"`
	ClosedIssues int        `json:"closed_issues"`
	Author       string     `json:"author,omitempty"`
}

func (*Milestone) Kind() string { return Milestones }
func (m *Milestone) GetNumber() int { return m.Number }

// SubIssueRef is a child issue attached to an issue record during save.
type SubIssueRef struct {
	Number   int `json:"number"`
	Position int `json:"position"`
}

// Issue is a repository issue. Milestone holds the milestone number, not its ID.
type Issue struct {
	ID           int64         `json:"id,omitempty"`
	Number       int           `json:"number"`
	Title        string        `json:"title"`
	Body         string        `json:"body"`
	State        string        `json:"state"`
	StateReason  string        `json:"state_reason,omitempty"`
	Labels       []string      `json:"labels"`
	Milestone    *int          `json:"milestone,omitempty"`
	Author       string        `json:"author"`
	Assignees    []string      `json:"assignees,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	ClosedAt     *time.Time    `json:"closed_at,omitempty"`
	CommentCount int           `json:"comments"`
	SubIssues    []SubIssueRef `json:"sub_issues,omitempty"`
	ParentNumber *int          `json:"parent_issue,omitempty"`
}

func (*Issue) Kind() string { return Issues }
func (i *Issue) GetNumber() int { return i.Number }

// Comment is a comment on an issue.
type Comment struct {
	ID          int64     `json:"id"`
	IssueNumber int       `json:"issue_number"`
	Body        string    `json:"body"`
	Author      string    `json:"author"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (*Comment) Kind() string { return Comments }

// PullRequest is a repository pull request.
type PullRequest struct {
	ID        int64      `json:"id,omitempty"`
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	State     string     `json:"state"`
	Head      string     `json:"head_ref"`
	Base      string     `json:"base_ref"`
	Merged    bool       `json:"merged"`
	Draft     bool       `json:"draft"`
	Labels    []string   `json:"labels"`
	Milestone *int       `json:"milestone,omitempty"`
	Author    string     `json:"author"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	MergedAt  *time.Time `json:"merged_at,omitempty"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

func (*PullRequest) Kind() string { return PullRequests }
func (p *PullRequest) GetNumber() int { return p.Number }

// PullRequestComment is a conversation comment on a pull request.
type PullRequestComment struct {
	ID                int64     `json:"id"`
	PullRequestNumber int       `json:"pull_request_number"`
	Body              string    `json:"body"`
	Author            string    `json:"author"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (*PullRequestComment) Kind() string { return PullRequestComments }

// PullRequestReview is a submitted review on a pull request.
type PullRequestReview struct {
	ID                int64      `json:"id"`
	PullRequestNumber int        `json:"pull_request_number"`
	Body              string     `json:"body"`
	State             string     `json:"state"`
	Author            string     `json:"author"`
	CommitID          string     `json:"commit_id,omitempty"`
	SubmittedAt       *time.Time `json:"submitted_at,omitempty"`
}

func (*PullRequestReview) Kind() string { return PullRequestReviews }

// PullRequestReviewComment is an inline diff comment belonging to a review.
type PullRequestReviewComment struct {
	ID                int64     `json:"id"`
	ReviewID          int64     `json:"review_id"`
	PullRequestNumber int       `json:"pull_request_number"`
	Body              string    `json:"body"`
	Path              string    `json:"path"`
	Line              int       `json:"line,omitempty"`
	Side              string    `json:"side,omitempty"`
	InReplyTo         int64     `json:"in_reply_to,omitempty"`
	CommitID          string    `json:"commit_id,omitempty"`
	DiffHunk          string    `json:"diff_hunk,omitempty"`
	Author            string    `json:"author"`
	CreatedAt         time.Time `json:"created_at"`
}

func (*PullRequestReviewComment) Kind() string { return PullRequestReviewComments }

// SubIssue is a parent/child relation between two issues.
type SubIssue struct {
	ParentNumber int `json:"parent_number"`
	ChildNumber  int `json:"child_number"`
	Position     int `json:"position"`
}

func (*SubIssue) Kind() string { return SubIssues }

// GitMirror describes a mirrored git repository backup.
type GitMirror struct {
	Repository string `json:"repository"`
	URL        string `json:"url"`
	Format     string `json:"format"`
	Path       string `json:"path"`
	SizeBytes  int64  `json:"size_bytes"`
}

func (*GitMirror) Kind() string { return GitRepository }
