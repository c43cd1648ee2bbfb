// Package workspace manages the scratch area owned by one pipeline run.
//
// Everything a run writes locally (checked out sources, downloaded model
// artifacts, temporary credential material, the model env file) lives
// under a single directory, so reclaiming it is one removal.
package workspace

import (
	"os"
	"path/filepath"

	xe "github.com/cardops/shiplane/pkg/errors"
)

// EnvFilename carries the resolved model identity between stages.
const EnvFilename = "model.env"

type Workspace struct {
	root  string
	runId string
}

// Under scopes a workspace for the run below root.
func Under(root string, runId string) Workspace {
	return Workspace{root: root, runId: runId}
}

func (w Workspace) Dir() string {
	return filepath.Join(w.root, w.runId)
}

func (w Workspace) SrcDir() string {
	return filepath.Join(w.Dir(), "src")
}

func (w Workspace) ArtifactsDir() string {
	return filepath.Join(w.Dir(), "artifacts")
}

func (w Workspace) CredsDir() string {
	return filepath.Join(w.Dir(), "creds")
}

func (w Workspace) EnvFile() string {
	return filepath.Join(w.Dir(), EnvFilename)
}

// Ensure creates the workspace directories, private to this process.
func (w Workspace) Ensure() error {
	for _, dir := range []string{w.Dir(), w.SrcDir(), w.ArtifactsDir(), w.CredsDir()} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return xe.Wrap(err)
		}
	}
	return nil
}

// Purge removes the workspace and everything under it.
// Purging a workspace that does not exist is not an error.
func (w Workspace) Purge() error {
	if err := os.RemoveAll(w.Dir()); err != nil {
		return xe.Wrap(err)
	}
	return nil
}
