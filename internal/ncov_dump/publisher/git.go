package publisher

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"go.uber.org/zap"
)

var (
	ErrOpenRepo = errors.New("failed to open git repository")
	ErrStage    = errors.New("failed to stage file")
	ErrCommit   = errors.New("failed to commit")
	ErrPush     = errors.New("failed to push")
)

// GitPublisher 暂存、提交并推送变化的文件
type GitPublisher struct {
	Log    *zap.Logger
	Repo   *git.Repository
	Prefix string // 输出目录相对仓库根目录的路径
	Remote string
	Push   bool
	Author object.Signature
	Auth   transport.AuthMethod
	Now    func() time.Time
}

// NewGitPublisher 打开 GitDir 处的仓库。OutputDir 必须位于仓库内
func NewGitPublisher(log *zap.Logger, cfg Config) (*GitPublisher, error) {
	gitDir := cfg.GitDir
	if gitDir == "" {
		gitDir = cfg.OutputDir
	}
	repo, err := git.PlainOpenWithOptions(gitDir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpenRepo, gitDir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenRepo, err)
	}
	prefix, err := relativeTo(wt.Filesystem.Root(), cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenRepo, err)
	}

	p := &GitPublisher{
		Log:    log,
		Repo:   repo,
		Prefix: prefix,
		Remote: cfg.GitRemote,
		Push:   cfg.GitPush,
		Author: object.Signature{Name: cfg.GitAuthorName, Email: cfg.GitAuthorEmail},
		Now:    time.Now,
	}
	if p.Remote == "" {
		p.Remote = git.DefaultRemoteName
	}
	if cfg.GitToken != "" {
		p.Auth = &githttp.BasicAuth{Username: cfg.GitUsername, Password: cfg.GitToken}
	}
	return p, nil
}

func relativeTo(root, dir string) (string, error) {
	if dir == "" {
		return "", nil
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absRoot, absDir)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return "", nil
	}
	if rel == ".." || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator) {
		return "", fmt.Errorf("output dir %s is outside repository %s", dir, root)
	}
	return filepath.ToSlash(rel), nil
}

// CommitMessage 与历史提交保持同样的格式
func CommitMessage(now time.Time) string {
	return now.Format("2006-01-02 15:04:05.000000") + " - Change detected!"
}

func (p *GitPublisher) Publish(ctx context.Context, paths []string) error {
	wt, err := p.Repo.Worktree()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOpenRepo, err)
	}
	for _, rel := range paths {
		if _, err := wt.Add(path.Join(p.Prefix, rel)); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrStage, rel, err)
		}
	}

	now := p.Now()
	author := p.Author
	author.When = now
	hash, err := wt.Commit(CommitMessage(now), &git.CommitOptions{Author: &author})
	if errors.Is(err, git.ErrEmptyCommit) {
		p.Log.Info("Nothing to commit", zap.Strings("paths", paths))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCommit, err)
	}
	p.Log.Info("Committed changes",
		zap.String("commit", hash.String()),
		zap.Strings("paths", paths),
	)

	if !p.Push {
		return nil
	}
	err = p.Repo.PushContext(ctx, &git.PushOptions{RemoteName: p.Remote, Auth: p.Auth})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("%w: %s: %v", ErrPush, p.Remote, err)
	}
	p.Log.Info("Pushed changes", zap.String("remote", p.Remote))
	return nil
}
