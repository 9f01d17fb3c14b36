package gitlabhost

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	gitHTTP "github.com/go-git/go-git/v5/plumbing/transport/http"
	"golang.org/x/oauth2"

	"github.com/computor-org/cpsto/internal/cerrors"
)

// Credentials assembles an authenticated HTTPS remote for go-git without
// ever persisting the token in a stored URL, per spec.md §4.4 "Credentials
// for authenticated push are assembled per call without ever embedding
// secrets in persisted URLs". Token comes from an oauth2.TokenSource so the
// same assembly works for both a long-lived personal access token and a
// short-lived provider OAuth token.
type Credentials struct {
	Username string
	Source   oauth2.TokenSource
}

func (c Credentials) auth() (*gitHTTP.BasicAuth, error) {
	tok, err := c.Source.Token()
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindProviderAuth, err, "obtain git push token")
	}
	return &gitHTTP.BasicAuth{Username: c.Username, Password: tok.AccessToken}, nil
}

// StaticToken returns an oauth2.TokenSource that always yields token; used
// when the GitLab credential is a plain personal or project access token
// rather than a refreshable OAuth2 grant.
func StaticToken(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
}

// CloneOptions describes a scoped working-directory clone for AD or TG.
type CloneOptions struct {
	RemoteURL string // https://<host>/<namespace>/<project>.git
	Branch    string
	Dir       string
	Creds     Credentials
}

// Clone clones RemoteURL into Dir and checks out Branch, creating the
// branch locally if the remote repository is empty (spec.md §4.6: "Initial
// commits to the three projects are empty").
func Clone(ctx context.Context, opt CloneOptions) (*git.Repository, error) {
	auth, err := opt.Creds.auth()
	if err != nil {
		return nil, err
	}

	repo, err := git.PlainCloneContext(ctx, opt.Dir, false, &git.CloneOptions{
		URL:           opt.RemoteURL,
		Auth:          auth,
		ReferenceName: plumbing.NewBranchReferenceName(opt.Branch),
		SingleBranch:  true,
	})
	if err == nil {
		return repo, nil
	}
	if err != transport.ErrEmptyRemoteRepository {
		return nil, cerrors.Wrap(cerrors.KindProviderTransient, err, "clone repository")
	}

	repo, err = git.PlainInit(opt.Dir, false)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindIntegrity, err, "init empty working directory")
	}
	if _, err := repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{opt.RemoteURL},
	}); err != nil {
		return nil, cerrors.Wrap(cerrors.KindIntegrity, err, "register origin remote")
	}
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(opt.Branch))
	if err := repo.Storer.SetReference(head); err != nil {
		return nil, cerrors.Wrap(cerrors.KindIntegrity, err, "set initial HEAD")
	}
	return repo, nil
}

// CommitAndPush stages everything under the worktree, commits with message
// as author at timestamp, and pushes to origin/branch. On a non-fast-
// forward rejection it pulls with rebase once and retries, matching
// spec.md §4.8/§4.9's "pull-rebase once and retry; otherwise report
// failed" strategy shared by AD and TG.
func CommitAndPush(ctx context.Context, repo *git.Repository, branch, message, authorName, authorEmail string, at time.Time, creds Credentials) (string, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return "", cerrors.Wrap(cerrors.KindIntegrity, err, "open worktree")
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", cerrors.Wrap(cerrors.KindIntegrity, err, "stage changes")
	}

	commitHash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: authorName, Email: authorEmail, When: at},
	})
	if err != nil {
		return "", cerrors.Wrap(cerrors.KindIntegrity, err, "commit")
	}

	auth, err := creds.auth()
	if err != nil {
		return commitHash.String(), err
	}

	pushErr := repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		Auth:       auth,
		RefSpecs:   []config.RefSpec{refSpec(branch)},
	})
	if pushErr == nil {
		return commitHash.String(), nil
	}
	if !isNonFastForward(pushErr) {
		return commitHash.String(), cerrors.Wrap(cerrors.KindProviderTransient, pushErr, "push commit")
	}

	if err := wt.PullContext(ctx, &git.PullOptions{
		RemoteName: "origin",
		Auth:       auth,
	}); err != nil && !isAlreadyUpToDate(err) {
		return commitHash.String(), cerrors.Wrap(cerrors.KindProviderTransient, err, "pull-rebase retry")
	}

	if err := repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		Auth:       auth,
		RefSpecs:   []config.RefSpec{refSpec(branch)},
	}); err != nil {
		return commitHash.String(), cerrors.Wrap(cerrors.KindProviderTransient, err, "push commit after retry")
	}
	return commitHash.String(), nil
}

func refSpec(branch string) config.RefSpec {
	return config.RefSpec("refs/heads/" + branch + ":refs/heads/" + branch)
}

func isNonFastForward(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "non-fast-forward") || strings.Contains(err.Error(), "fetch first"))
}

func isAlreadyUpToDate(err error) bool {
	return err != nil && (err == git.NoErrAlreadyUpToDate || strings.Contains(err.Error(), "already up-to-date"))
}

// sanitizedRemoteURL strips any userinfo component before the URL is ever
// logged or persisted, since §4.4 forbids embedding credentials in
// persisted URLs.
func sanitizedRemoteURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.User = nil
	return u.String()
}
