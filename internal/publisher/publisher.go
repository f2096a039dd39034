// Package publisher groups fixed files into size-bounded commit batches.
package publisher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jfenske/sonarfix/internal/host"
)

// CommitResult is the outcome of one publish attempt. Immutable once created.
type CommitResult struct {
	OK       bool   `json:"ok"`
	CommitID string `json:"commit_id,omitempty"`
	Error    string `json:"error,omitempty"`
	Files    int    `json:"files"`
	Batch    int    `json:"batch"`
}

// Publisher accumulates pending files and commits them in batches of
// batchSize. The queue is drained on every commit attempt, success or
// failure: a failed batch is surfaced as a CommitResult and never silently
// retried here, so the publisher can not deadlock on a broken remote.
type Publisher struct {
	host      host.Host
	branch    string
	batchSize int

	queue       []host.File
	results     []CommitResult
	commitCount int
}

// New creates a Publisher committing to branch in batches of batchSize.
func New(h host.Host, branch string, batchSize int) *Publisher {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Publisher{host: h, branch: branch, batchSize: batchSize}
}

// Enqueue adds a file to the pending queue. When the queue reaches the batch
// size the batch is committed and its result returned; otherwise nil.
func (p *Publisher) Enqueue(ctx context.Context, f host.File) *CommitResult {
	p.queue = append(p.queue, f)
	if len(p.queue) >= p.batchSize {
		return p.commit(ctx)
	}
	return nil
}

// Flush commits whatever is queued, regardless of the batch threshold.
// Returns nil when the queue is empty. Called once at run end so no file is
// silently dropped.
func (p *Publisher) Flush(ctx context.Context) *CommitResult {
	if len(p.queue) == 0 {
		return nil
	}
	return p.commit(ctx)
}

// commit publishes the whole queue as one commit and clears it.
func (p *Publisher) commit(ctx context.Context) *CommitResult {
	p.commitCount++
	files := p.queue
	p.queue = nil

	message := commitMessage(files, p.commitCount)
	result := CommitResult{Files: len(files), Batch: p.commitCount}

	id, err := p.host.Commit(ctx, p.branch, files, message)
	if err != nil {
		result.Error = err.Error()
	} else {
		result.OK = true
		result.CommitID = id
	}

	p.results = append(p.results, result)
	return &result
}

// Pending returns the number of queued, uncommitted files.
func (p *Publisher) Pending() int {
	return len(p.queue)
}

// Results returns every commit result so far, in attempt order.
func (p *Publisher) Results() []CommitResult {
	out := make([]CommitResult, len(p.results))
	copy(out, p.results)
	return out
}

// CommitCount returns the number of commit attempts made.
func (p *Publisher) CommitCount() int {
	return p.commitCount
}

// commitMessage builds the batch commit message with a bounded file list.
func commitMessage(files []host.File, batch int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "sonarfix: fix %d code smell(s) (batch #%d) - %s\n\nFiles modified:\n",
		len(files), batch, time.Now().Format("2006-01-02 15:04:05"))

	shown := len(files)
	if shown > 5 {
		shown = 5
	}
	for _, f := range files[:shown] {
		fmt.Fprintf(&b, "- %s\n", f.Path)
	}
	if len(files) > shown {
		fmt.Fprintf(&b, "- ... and %d more files\n", len(files)-shown)
	}
	return b.String()
}
