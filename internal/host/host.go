// Package host publishes file changes to a repository host as branches,
// commits, and merge requests.
package host

import (
	"context"
	"errors"
)

// ErrHostAPI indicates the repository host rejected or failed an operation.
// Recovered at the batch level: the run continues to report generation.
var ErrHostAPI = errors.New("host api error")

// Action is the kind of change a file carries into a commit.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// File is one file change queued for commit.
type File struct {
	Path    string
	Content []byte
	Action  Action
}

// Host is the narrow interface the publisher and orchestrator need from a
// repository host.
type Host interface {
	// CreateBranch creates branch name from ref.
	CreateBranch(ctx context.Context, name, ref string) error
	// Commit writes all files as one commit on branch and returns the
	// commit identifier.
	Commit(ctx context.Context, branch string, files []File, message string) (string, error)
	// CreateMergeRequest opens a merge/pull request and returns its
	// reference (URL or id).
	CreateMergeRequest(ctx context.Context, source, target, title, body string) (string, error)
}
