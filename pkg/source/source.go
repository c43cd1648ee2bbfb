// Package source materializes the sources a pipeline run builds from.
package source

import (
	"context"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	xe "github.com/cardops/shiplane/pkg/errors"
)

// Fetcher checks out the sources of a ref into a local directory.
type Fetcher interface {
	// Fetch clones repoURL at ref into dir, then moves to commit.
	//
	// An empty commit stays at the head of ref. Returns the hash the
	// worktree ends up at.
	Fetch(ctx context.Context, repoURL string, ref string, commit string, dir string) (string, error)
}

type gitFetcher struct{}

// NewGit returns a Fetcher backed by git.
func NewGit() Fetcher {
	return gitFetcher{}
}

func (gitFetcher) Fetch(ctx context.Context, repoURL string, ref string, commit string, dir string) (string, error) {
	refName := plumbing.ReferenceName(ref)
	if !refName.IsBranch() && !refName.IsTag() {
		refName = plumbing.NewBranchReferenceName(ref)
	}

	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           repoURL,
		ReferenceName: refName,
		SingleBranch:  true,
	})
	if err != nil {
		return "", xe.Wrap(err)
	}

	if commit != "" {
		wt, err := repo.Worktree()
		if err != nil {
			return "", xe.Wrap(err)
		}
		if err := wt.Checkout(&git.CheckoutOptions{
			Hash: plumbing.NewHash(commit),
		}); err != nil {
			return "", xe.Wrap(err)
		}
	}

	head, err := repo.Head()
	if err != nil {
		return "", xe.Wrap(err)
	}
	return head.Hash().String(), nil
}
