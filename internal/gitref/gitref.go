// Package gitref derives release trigger information from a local git
// repository.
package gitref

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/xrel-dev/xrel/internal/release"
)

// Head describes the checked out state of a repository
type Head struct {
	Commit string `json:"commit" yaml:"commit"`
	Branch string `json:"branch,omitempty" yaml:"branch,omitempty"`
	Tag    string `json:"tag,omitempty" yaml:"tag,omitempty"`
}

// Detached reports whether HEAD points at a commit rather than a branch
func (h *Head) Detached() bool {
	return h.Branch == ""
}

// Ref returns the most specific ref HEAD can be named by. A tag pointing at
// HEAD wins over the branch.
func (h *Head) Ref() string {
	switch {
	case h.Tag != "":
		return plumbing.NewTagReferenceName(h.Tag).String()
	case h.Branch != "":
		return plumbing.NewBranchReferenceName(h.Branch).String()
	default:
		return plumbing.HEAD.String()
	}
}

// Open finds the repository containing dir
func Open(dir string) (*git.Repository, error) {
	return git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
}

// Inspect reads HEAD of the repository containing dir
func Inspect(dir string) (*Head, error) {
	repo, err := Open(dir)
	if err != nil {
		return nil, err
	}
	return InspectRepository(repo)
}

// InspectRepository reads HEAD of repo and finds the tags pointing at it.
// When several tags point at HEAD the last one in name order is used.
func InspectRepository(repo *git.Repository) (*Head, error) {
	ref, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("reading HEAD: %w", err)
	}

	head := &Head{Commit: ref.Hash().String()}
	if ref.Name().IsBranch() {
		head.Branch = ref.Name().Short()
	}

	tags, err := tagsAt(repo, ref.Hash())
	if err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		head.Tag = tags[len(tags)-1]
	}
	return head, nil
}

func tagsAt(repo *git.Repository, commit plumbing.Hash) ([]string, error) {
	iter, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer iter.Close()

	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		target := ref.Hash()
		// annotated tags point at a tag object, lightweight ones at the commit
		tagObj, err := repo.TagObject(target)
		switch {
		case err == nil:
			c, err := tagObj.Commit()
			if err != nil {
				// tags of trees or blobs never name a commit
				return nil
			}
			target = c.Hash
		case !errors.Is(err, plumbing.ErrObjectNotFound):
			return err
		}

		if target == commit {
			names = append(names, ref.Name().Short())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("resolving tags: %w", err)
	}

	sort.Strings(names)
	return names, nil
}

// Trigger builds the trigger context of a push of the current HEAD
func Trigger(dir string) (release.TriggerContext, error) {
	head, err := Inspect(dir)
	if err != nil {
		return release.TriggerContext{}, err
	}
	return release.TriggerContext{Event: release.EventPush, Ref: head.Ref()}, nil
}

// HeadCommit returns the HEAD commit of the repository containing dir, or ""
// when dir is not inside a repository
func HeadCommit(dir string) (string, error) {
	repo, err := Open(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	ref, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		// no commits yet
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return ref.Hash().String(), nil
}
