package host

import (
	"context"
	"fmt"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// GitHubClient implements Host against the GitHub API using the git-data
// endpoints, so a batch of files lands as one commit.
type GitHubClient struct {
	gh    *github.Client
	owner string
	repo  string
}

// NewGitHubClient creates a client for one GitHub repository. baseURL may be
// empty for github.com or point at a GitHub Enterprise instance.
func NewGitHubClient(ctx context.Context, baseURL, token, owner, repo string) (*GitHubClient, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)

	gh := github.NewClient(tc)
	if baseURL != "" && baseURL != "https://api.github.com" {
		var err error
		gh, err = gh.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("configure enterprise URL: %w", err)
		}
	}
	return &GitHubClient{gh: gh, owner: owner, repo: repo}, nil
}

// CreateBranch creates a branch from ref.
func (c *GitHubClient) CreateBranch(ctx context.Context, name, ref string) error {
	base, _, err := c.gh.Git.GetRef(ctx, c.owner, c.repo, "refs/heads/"+ref)
	if err != nil {
		return fmt.Errorf("resolve base ref %s: %v: %w", ref, err, ErrHostAPI)
	}

	_, _, err = c.gh.Git.CreateRef(ctx, c.owner, c.repo, &github.Reference{
		Ref:    github.String("refs/heads/" + name),
		Object: &github.GitObject{SHA: base.Object.SHA},
	})
	if err != nil {
		return fmt.Errorf("create branch %s: %v: %w", name, err, ErrHostAPI)
	}
	return nil
}

// Commit builds a tree from the files, commits it on branch, and advances
// the branch ref. Returns the new commit SHA.
func (c *GitHubClient) Commit(ctx context.Context, branch string, files []File, message string) (string, error) {
	ref, _, err := c.gh.Git.GetRef(ctx, c.owner, c.repo, "refs/heads/"+branch)
	if err != nil {
		return "", fmt.Errorf("resolve branch %s: %v: %w", branch, err, ErrHostAPI)
	}

	parent, _, err := c.gh.Git.GetCommit(ctx, c.owner, c.repo, *ref.Object.SHA)
	if err != nil {
		return "", fmt.Errorf("resolve parent commit: %v: %w", err, ErrHostAPI)
	}

	entries := make([]*github.TreeEntry, 0, len(files))
	for _, f := range files {
		entry := &github.TreeEntry{
			Path: github.String(f.Path),
			Mode: github.String("100644"),
			Type: github.String("blob"),
		}
		// A tree entry with neither content nor SHA deletes the path.
		if f.Action != ActionDelete {
			entry.Content = github.String(string(f.Content))
		}
		entries = append(entries, entry)
	}

	tree, _, err := c.gh.Git.CreateTree(ctx, c.owner, c.repo, *parent.Tree.SHA, entries)
	if err != nil {
		return "", fmt.Errorf("create tree: %v: %w", err, ErrHostAPI)
	}

	commit, _, err := c.gh.Git.CreateCommit(ctx, c.owner, c.repo, &github.Commit{
		Message: github.String(message),
		Tree:    tree,
		Parents: []*github.Commit{{SHA: parent.SHA}},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("create commit: %v: %w", err, ErrHostAPI)
	}

	ref.Object.SHA = commit.SHA
	if _, _, err := c.gh.Git.UpdateRef(ctx, c.owner, c.repo, ref, false); err != nil {
		return "", fmt.Errorf("advance branch %s: %v: %w", branch, err, ErrHostAPI)
	}
	return commit.GetSHA(), nil
}

// CreateMergeRequest opens a pull request and returns its HTML URL.
func (c *GitHubClient) CreateMergeRequest(ctx context.Context, source, target, title, body string) (string, error) {
	pr, _, err := c.gh.PullRequests.Create(ctx, c.owner, c.repo, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(source),
		Base:  github.String(target),
		Body:  github.String(body),
	})
	if err != nil {
		return "", fmt.Errorf("create pull request %s -> %s: %v: %w", source, target, err, ErrHostAPI)
	}
	return pr.GetHTMLURL(), nil
}
