package images_test

import (
	"testing"

	"github.com/cardops/shiplane/pkg/domain"
	"github.com/cardops/shiplane/pkg/images"
)

func TestRef(t *testing.T) {
	for name, testcase := range map[string]struct {
		repository   string
		modelVersion string
		commit       string
		expected     string
	}{
		"a long commit id is shortened": {
			repository:   "registry.example.com/cardops/fraud-detector",
			modelVersion: "12",
			commit:       "0011aabbccddeeff0011aabbccddeeff00112233",
			expected:     "registry.example.com/cardops/fraud-detector:v12-0011aabb",
		},
		"a short commit id is kept whole": {
			repository:   "registry.example.com/cardops/fraud-detector",
			modelVersion: "12",
			commit:       "abc123",
			expected:     "registry.example.com/cardops/fraud-detector:v12-abc123",
		},
		"a bare repository needs no registry": {
			repository:   "fraud-detector",
			modelVersion: "3",
			commit:       "deadbeef",
			expected:     "fraud-detector:v3-deadbeef",
		},
	} {
		t.Run(name, func(t *testing.T) {
			actual, err := images.Ref(testcase.repository, testcase.modelVersion, testcase.commit)
			if err != nil {
				t.Fatalf("unexpected error: %+v", err)
			}
			if actual != testcase.expected {
				t.Errorf("(actual, expected) = (%s, %s)", actual, testcase.expected)
			}
		})
	}

	t.Run("a broken repository is a configuration error", func(t *testing.T) {
		for _, repository := range []string{
			"registry.example.com/Cardops/Fraud-Detector",
			"registry.example.com/spaced repo",
			"",
		} {
			_, err := images.Ref(repository, "12", "deadbeef")
			if err == nil {
				t.Errorf("repository %q is accepted unexpectedly", repository)
				continue
			}
			if !domain.AsConfigurationError(err) {
				t.Errorf("not a configuration error: %+v", err)
			}
		}
	})
}
