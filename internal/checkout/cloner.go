package checkout

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/temirov/appcheckout/internal/gitrepo"
)

const (
	remoteNameConstant               = "origin"
	accessTokenUsernameConstant      = "x-access-token"
	branchRefSpecTemplateConstant    = "+refs/heads/%s:refs/remotes/" + remoteNameConstant + "/%s"
	tagRefSpecTemplateConstant       = "+refs/tags/%s:refs/tags/%s"
	allBranchesRefSpecConstant       = "+refs/heads/*:refs/remotes/" + remoteNameConstant + "/*"
	destinationDirectoryPermissions  = 0o755
	tokenErrorTemplateConstant       = "unable to obtain token: %w"
	destinationErrorTemplateConstant = "unable to prepare %s: %w"
	remoteErrorTemplateConstant      = "unable to configure remote %s: %w"
	fetchErrorTemplateConstant       = "unable to fetch %s: %w"
	resolveErrorTemplateConstant     = "unable to resolve %s: %w"
	worktreeErrorTemplateConstant    = "unable to check out %s: %w"
	cleanErrorTemplateConstant       = "unable to clean %s: %w"
	refNotFoundTemplateConstant      = "ref %s is not a branch, tag or commit"
	fetchingLogMessageConstant       = "Fetching ref"
	checkedOutLogMessageConstant     = "Checked out ref"
	refLogFieldConstant              = "ref"
	refKindLogFieldConstant          = "kind"
	commitLogFieldConstant           = "commit"
	destinationLogFieldConstant      = "destination"
	repositoryLogFieldConstant       = "repository"
	refKindBranchConstant            = "branch"
	refKindTagConstant               = "tag"
	refKindCommitConstant            = "commit"
)

// Request carries everything one checkout needs. It is passed by value so concurrent checkouts share nothing.
type Request struct {
	Owner       string
	Repository  string
	Ref         string
	Destination string
	TokenSource oauth2.TokenSource
}

// Cloner performs a single checkout.
type Cloner interface {
	Checkout(executionContext context.Context, request Request) error
}

// GitClonerOptions configures GitCloner.
type GitClonerOptions struct {
	// Depth limits fetched history for branches and tags; zero fetches everything.
	Depth int
	// Clean removes untracked files after the checkout.
	Clean bool
}

// remoteURL builds the clone URL of a request. Tests point it at local repositories.
var remoteURL = defaultRemoteURL

func defaultRemoteURL(origin gitrepo.ServerOrigin, request Request) string {
	return origin.RepositoryURL(request.Owner, request.Repository)
}

// GitCloner checks repositories out with go-git over HTTPS using the request's installation token.
// An existing repository at the destination is fetched into and force-checked-out; otherwise one is initialized.
type GitCloner struct {
	logger  *zap.Logger
	origin  gitrepo.ServerOrigin
	options GitClonerOptions
}

// NewGitCloner constructs a GitCloner for repositories hosted at origin.
func NewGitCloner(logger *zap.Logger, origin gitrepo.ServerOrigin, options GitClonerOptions) *GitCloner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if options.Depth < 0 {
		options.Depth = 0
	}
	return &GitCloner{logger: logger, origin: origin, options: options}
}

// Checkout fetches request.Ref into request.Destination and checks it out. Branches become a local branch,
// tags and commits are checked out detached.
func (cloner *GitCloner) Checkout(executionContext context.Context, request Request) error {
	auth, authError := authForRequest(request)
	if authError != nil {
		return authError
	}

	repository, openError := cloner.openRepository(request)
	if openError != nil {
		return openError
	}

	commitHash, branchName, refKind, resolveError := cloner.fetchRef(executionContext, repository, request, auth)
	if resolveError != nil {
		return resolveError
	}

	worktree, worktreeError := repository.Worktree()
	if worktreeError != nil {
		return fmt.Errorf(worktreeErrorTemplateConstant, request.Ref, worktreeError)
	}

	checkoutOptions := &git.CheckoutOptions{Hash: commitHash, Force: true}
	if len(branchName) > 0 {
		if referenceError := repository.Storer.SetReference(plumbing.NewHashReference(branchName, commitHash)); referenceError != nil {
			return fmt.Errorf(worktreeErrorTemplateConstant, request.Ref, referenceError)
		}
		checkoutOptions = &git.CheckoutOptions{Branch: branchName, Force: true}
	}
	if checkoutError := worktree.Checkout(checkoutOptions); checkoutError != nil {
		return fmt.Errorf(worktreeErrorTemplateConstant, request.Ref, checkoutError)
	}

	if cloner.options.Clean {
		if cleanError := worktree.Clean(&git.CleanOptions{Dir: true}); cleanError != nil {
			return fmt.Errorf(cleanErrorTemplateConstant, request.Destination, cleanError)
		}
	}

	cloner.logger.Info(checkedOutLogMessageConstant,
		zap.String(repositoryLogFieldConstant, request.Owner+ownerSeparatorConstant+request.Repository),
		zap.String(refLogFieldConstant, request.Ref),
		zap.String(refKindLogFieldConstant, refKind),
		zap.String(commitLogFieldConstant, commitHash.String()),
		zap.String(destinationLogFieldConstant, request.Destination),
	)
	return nil
}

func authForRequest(request Request) (*githttp.BasicAuth, error) {
	if request.TokenSource == nil {
		return nil, nil
	}
	token, tokenError := request.TokenSource.Token()
	if tokenError != nil {
		return nil, fmt.Errorf(tokenErrorTemplateConstant, tokenError)
	}
	return &githttp.BasicAuth{Username: accessTokenUsernameConstant, Password: token.AccessToken}, nil
}

func (cloner *GitCloner) openRepository(request Request) (*git.Repository, error) {
	url := remoteURL(cloner.origin, request)

	repository, openError := git.PlainOpen(request.Destination)
	if errors.Is(openError, git.ErrRepositoryNotExists) {
		if mkdirError := os.MkdirAll(request.Destination, destinationDirectoryPermissions); mkdirError != nil {
			return nil, fmt.Errorf(destinationErrorTemplateConstant, request.Destination, mkdirError)
		}
		repository, openError = git.PlainInit(request.Destination, false)
	}
	if openError != nil {
		return nil, fmt.Errorf(destinationErrorTemplateConstant, request.Destination, openError)
	}

	remote, remoteError := repository.Remote(remoteNameConstant)
	switch {
	case errors.Is(remoteError, git.ErrRemoteNotFound):
	case remoteError != nil:
		return nil, fmt.Errorf(remoteErrorTemplateConstant, remoteNameConstant, remoteError)
	case len(remote.Config().URLs) > 0 && remote.Config().URLs[0] == url:
		return repository, nil
	default:
		if deleteError := repository.DeleteRemote(remoteNameConstant); deleteError != nil {
			return nil, fmt.Errorf(remoteErrorTemplateConstant, remoteNameConstant, deleteError)
		}
	}

	if _, createError := repository.CreateRemote(&gitconfig.RemoteConfig{Name: remoteNameConstant, URLs: []string{url}}); createError != nil {
		return nil, fmt.Errorf(remoteErrorTemplateConstant, remoteNameConstant, createError)
	}
	return repository, nil
}

// fetchRef tries the ref as a branch, then as a tag, then as a commit hash.
func (cloner *GitCloner) fetchRef(executionContext context.Context, repository *git.Repository, request Request, auth *githttp.BasicAuth) (plumbing.Hash, plumbing.ReferenceName, string, error) {
	ref := request.Ref
	logFields := []zap.Field{
		zap.String(repositoryLogFieldConstant, request.Owner+ownerSeparatorConstant+request.Repository),
		zap.String(refLogFieldConstant, ref),
	}

	cloner.logger.Debug(fetchingLogMessageConstant, append(logFields, zap.String(refKindLogFieldConstant, refKindBranchConstant))...)
	branchError := cloner.fetch(executionContext, repository, auth, cloner.options.Depth, gitconfig.RefSpec(fmt.Sprintf(branchRefSpecTemplateConstant, ref, ref)))
	if branchError == nil {
		remoteReference, referenceError := repository.Reference(plumbing.NewRemoteReferenceName(remoteNameConstant, ref), true)
		if referenceError != nil {
			return plumbing.ZeroHash, "", "", fmt.Errorf(resolveErrorTemplateConstant, ref, referenceError)
		}
		return remoteReference.Hash(), plumbing.NewBranchReferenceName(ref), refKindBranchConstant, nil
	}
	if !errors.Is(branchError, git.NoMatchingRefSpecError{}) {
		return plumbing.ZeroHash, "", "", fmt.Errorf(fetchErrorTemplateConstant, ref, branchError)
	}

	cloner.logger.Debug(fetchingLogMessageConstant, append(logFields, zap.String(refKindLogFieldConstant, refKindTagConstant))...)
	tagError := cloner.fetch(executionContext, repository, auth, cloner.options.Depth, gitconfig.RefSpec(fmt.Sprintf(tagRefSpecTemplateConstant, ref, ref)))
	if tagError == nil {
		commitHash, peelError := peelTag(repository, ref)
		if peelError != nil {
			return plumbing.ZeroHash, "", "", fmt.Errorf(resolveErrorTemplateConstant, ref, peelError)
		}
		return commitHash, "", refKindTagConstant, nil
	}
	if !errors.Is(tagError, git.NoMatchingRefSpecError{}) {
		return plumbing.ZeroHash, "", "", fmt.Errorf(fetchErrorTemplateConstant, ref, tagError)
	}

	if !plumbing.IsHash(ref) {
		return plumbing.ZeroHash, "", "", fmt.Errorf(refNotFoundTemplateConstant, ref)
	}
	cloner.logger.Debug(fetchingLogMessageConstant, append(logFields, zap.String(refKindLogFieldConstant, refKindCommitConstant))...)
	if fetchError := cloner.fetch(executionContext, repository, auth, 0, gitconfig.RefSpec(allBranchesRefSpecConstant)); fetchError != nil {
		return plumbing.ZeroHash, "", "", fmt.Errorf(fetchErrorTemplateConstant, ref, fetchError)
	}
	commit, commitError := repository.CommitObject(plumbing.NewHash(ref))
	if commitError != nil {
		return plumbing.ZeroHash, "", "", fmt.Errorf(resolveErrorTemplateConstant, ref, commitError)
	}
	return commit.Hash, "", refKindCommitConstant, nil
}

func (cloner *GitCloner) fetch(executionContext context.Context, repository *git.Repository, auth *githttp.BasicAuth, depth int, refSpec gitconfig.RefSpec) error {
	fetchOptions := &git.FetchOptions{
		RemoteName: remoteNameConstant,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
		Depth:      depth,
		Tags:       git.NoTags,
		Force:      true,
	}
	if auth != nil {
		fetchOptions.Auth = auth
	}
	fetchError := repository.FetchContext(executionContext, fetchOptions)
	if errors.Is(fetchError, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return fetchError
}

func peelTag(repository *git.Repository, tagName string) (plumbing.Hash, error) {
	tagReference, referenceError := repository.Reference(plumbing.NewTagReferenceName(tagName), true)
	if referenceError != nil {
		return plumbing.ZeroHash, referenceError
	}
	annotatedTag, tagError := repository.TagObject(tagReference.Hash())
	if errors.Is(tagError, plumbing.ErrObjectNotFound) {
		return tagReference.Hash(), nil
	}
	if tagError != nil {
		return plumbing.ZeroHash, tagError
	}
	commit, commitError := annotatedTag.Commit()
	if commitError != nil {
		return plumbing.ZeroHash, commitError
	}
	return commit.Hash, nil
}
