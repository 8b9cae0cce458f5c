package gitops

import (
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/pipewright/pipewright/internal/errors"
)

// VerifyLanded confirms that the branch's tip commit is reachable from
// base, i.e. the merge actually landed. History is read in-process so the
// check cannot be fooled by a stale shell-level exit code.
func (s *CLIService) VerifyLanded(dir, branch, base string) error {
	landed, err := IsAncestor(dir, branch, base)
	if err != nil {
		return err
	}
	if !landed {
		return errors.NewMergeLandingError(branch, base)
	}
	return nil
}

// IsAncestor reports whether revision rev is an ancestor of revision base
// in the repository containing dir. Worktree directories are supported.
func IsAncestor(dir, rev, base string) (bool, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return false, errors.Wrapf(err, "failed to open repository at %s", dir)
	}

	revHash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return false, errors.Wrapf(err, "failed to resolve %s", rev)
	}
	baseHash, err := repo.ResolveRevision(plumbing.Revision(base))
	if err != nil {
		return false, errors.Wrapf(err, "failed to resolve %s", base)
	}

	revCommit, err := repo.CommitObject(*revHash)
	if err != nil {
		return false, errors.Wrapf(err, "failed to load commit %s", revHash)
	}
	baseCommit, err := repo.CommitObject(*baseHash)
	if err != nil {
		return false, errors.Wrapf(err, "failed to load commit %s", baseHash)
	}

	return revCommit.IsAncestor(baseCommit)
}
