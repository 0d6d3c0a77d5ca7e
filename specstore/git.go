package specstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// GitConfig configures a git-backed spec store.
type GitConfig struct {
	RepoURL   string `json:"repo_url" yaml:"repo_url"`
	Branch    string `json:"branch" yaml:"branch"`
	LocalPath string `json:"local_path" yaml:"local_path"`
	SpecsPath string `json:"specs_path" yaml:"specs_path"`
}

// CommitInfo describes the commit a GitStore is currently serving from.
type CommitInfo struct {
	Hash      string    `json:"hash"`
	Author    string    `json:"author"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Branch    string    `json:"branch"`
}

// GitStore serves chain specs from a cloned git repository. Loads read the
// local checkout; Refresh pulls the remote.
type GitStore struct {
	repo   *git.Repository
	config *GitConfig
	fs     *FSStore
}

// NewGitStore clones the repository if the local path is empty, opens it
// otherwise, and serves specs from the configured subdirectory.
func NewGitStore(config *GitConfig) (*GitStore, error) {
	if config.RepoURL == "" {
		return nil, fmt.Errorf("repo_url is required")
	}
	if config.Branch == "" {
		config.Branch = "main"
	}
	if config.LocalPath == "" {
		return nil, fmt.Errorf("local_path is required")
	}

	if _, err := os.Stat(filepath.Join(config.LocalPath, ".git")); os.IsNotExist(err) {
		if err := os.MkdirAll(config.LocalPath, 0o755); err != nil {
			return nil, fmt.Errorf("creating local path: %w", err)
		}
		_, err := git.PlainClone(config.LocalPath, false, &git.CloneOptions{
			URL:           config.RepoURL,
			ReferenceName: plumbing.ReferenceName(fmt.Sprintf("refs/heads/%s", config.Branch)),
			SingleBranch:  true,
		})
		if err != nil {
			return nil, fmt.Errorf("cloning repository: %w", err)
		}
	}

	repo, err := git.PlainOpen(config.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}

	fs, err := NewFSStore(filepath.Join(config.LocalPath, config.SpecsPath))
	if err != nil {
		return nil, err
	}

	return &GitStore{repo: repo, config: config, fs: fs}, nil
}

// Load reads a spec from the local checkout.
func (s *GitStore) Load(ctx context.Context, name string) ([]byte, error) {
	return s.fs.Load(ctx, name)
}

// List returns spec names in the local checkout.
func (s *GitStore) List(ctx context.Context) ([]string, error) {
	return s.fs.List(ctx)
}

// Refresh pulls the remote branch and returns the HEAD commit.
func (s *GitStore) Refresh(ctx context.Context) (*CommitInfo, error) {
	workTree, err := s.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}

	err = workTree.PullContext(ctx, &git.PullOptions{
		ReferenceName: plumbing.ReferenceName(fmt.Sprintf("refs/heads/%s", s.config.Branch)),
		SingleBranch:  true,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return nil, fmt.Errorf("pulling: %w", err)
	}

	return s.Head()
}

// Head returns the current HEAD commit of the local checkout.
func (s *GitStore) Head() (*CommitInfo, error) {
	ref, err := s.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("getting HEAD: %w", err)
	}
	commit, err := s.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("getting commit: %w", err)
	}
	return &CommitInfo{
		Hash:      ref.Hash().String(),
		Author:    commit.Author.Email,
		Message:   commit.Message,
		Timestamp: commit.Author.When,
		Branch:    s.config.Branch,
	}, nil
}

// Close is a no-op.
func (s *GitStore) Close() error {
	return nil
}
