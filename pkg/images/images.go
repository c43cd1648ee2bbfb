// Package images composes container image references for model builds.
package images

import (
	"fmt"

	"github.com/google/go-containerregistry/pkg/name"

	"github.com/cardops/shiplane/pkg/domain"
)

const shortCommitLen = 8

// Tag encodes the provenance of a build: the model version it serves
// and the commit it was built from.
func Tag(modelVersion string, commit string) string {
	short := commit
	if shortCommitLen < len(short) {
		short = short[:shortCommitLen]
	}
	return fmt.Sprintf("v%s-%s", modelVersion, short)
}

// Ref composes the full image reference pushed and deployed by a run.
//
// The repository comes from configuration, so a reference that does not
// parse is a configuration error.
func Ref(repository string, modelVersion string, commit string) (string, error) {
	ref, err := name.NewTag(
		fmt.Sprintf("%s:%s", repository, Tag(modelVersion, commit)),
		name.WithDefaultRegistry(""),
	)
	if err != nil {
		return "", domain.NewConfigurationCausedBy(
			fmt.Sprintf("image repository %s does not make a valid reference", repository),
			err,
		)
	}
	return ref.Name(), nil
}
