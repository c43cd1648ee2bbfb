package workspace_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cardops/shiplane/pkg/cmp"
	"github.com/cardops/shiplane/pkg/workspace"
)

func TestWorkspace(t *testing.T) {
	t.Run("Ensure creates private directories", func(t *testing.T) {
		root := t.TempDir()
		testee := workspace.Under(root, "run-1")

		if err := testee.Ensure(); err != nil {
			t.Fatalf("failed to ensure: %+v", err)
		}

		for _, dir := range []string{
			testee.Dir(), testee.SrcDir(), testee.ArtifactsDir(), testee.CredsDir(),
		} {
			stat, err := os.Stat(dir)
			if err != nil {
				t.Fatalf("%s is not created: %+v", dir, err)
			}
			if !stat.IsDir() {
				t.Errorf("%s is not a directory", dir)
			}
			if perm := stat.Mode().Perm(); perm != 0o700 {
				t.Errorf("%s: permission (actual, expected) = (%o, 700)", dir, perm)
			}
			if !strings.HasPrefix(dir, filepath.Join(root, "run-1")) {
				t.Errorf("%s is outside the run directory", dir)
			}
		}
	})

	t.Run("Purge removes everything and tolerates repetition", func(t *testing.T) {
		root := t.TempDir()
		testee := workspace.Under(root, "run-1")
		if err := testee.Ensure(); err != nil {
			t.Fatalf("failed to ensure: %+v", err)
		}
		if err := os.WriteFile(
			filepath.Join(testee.CredsDir(), "docker-token"), []byte("secret"), 0o600,
		); err != nil {
			t.Fatalf("failed to plant a file: %+v", err)
		}

		if err := testee.Purge(); err != nil {
			t.Fatalf("failed to purge: %+v", err)
		}
		if _, err := os.Stat(testee.Dir()); !os.IsNotExist(err) {
			t.Errorf("workspace is left behind: %v", err)
		}

		if err := testee.Purge(); err != nil {
			t.Errorf("second purge fails: %+v", err)
		}
	})

	t.Run("workspaces of different runs do not overlap", func(t *testing.T) {
		root := t.TempDir()
		a := workspace.Under(root, "run-a")
		b := workspace.Under(root, "run-b")
		if a.Dir() == b.Dir() {
			t.Errorf("workspaces collide: %s", a.Dir())
		}
	})
}

func TestEnvFile(t *testing.T) {
	t.Run("written assignments read back", func(t *testing.T) {
		root := t.TempDir()
		testee := workspace.Under(root, "run-1")
		if err := testee.Ensure(); err != nil {
			t.Fatalf("failed to ensure: %+v", err)
		}

		values := map[string]string{
			"MODEL_VERSION": "12",
			"MODEL_RUN_ID":  "run-abc",
			"MODEL_METRIC":  "0.93",
		}
		if err := workspace.WriteEnvFile(testee.EnvFile(), values); err != nil {
			t.Fatalf("failed to write: %+v", err)
		}

		actual, err := workspace.ParseEnvFile(testee.EnvFile())
		if err != nil {
			t.Fatalf("failed to parse: %+v", err)
		}
		if !cmp.MapEq(actual, values) {
			t.Errorf("(actual, expected) = (%v, %v)", actual, values)
		}
	})

	t.Run("keys are written in sorted order", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "model.env")
		if err := workspace.WriteEnvFile(path, map[string]string{
			"MODEL_VERSION": "12",
			"MODEL_METRIC":  "0.93",
			"MODEL_RUN_ID":  "run-abc",
		}); err != nil {
			t.Fatalf("failed to write: %+v", err)
		}

		buf, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read back: %+v", err)
		}
		expected := "MODEL_METRIC=0.93\nMODEL_RUN_ID=run-abc\nMODEL_VERSION=12\n"
		if string(buf) != expected {
			t.Errorf("(actual, expected) = (%q, %q)", buf, expected)
		}
	})
}

func TestParseEnv(t *testing.T) {
	for name, testcase := range map[string]struct {
		content  string
		expected map[string]string
	}{
		"well-formed assignments": {
			content:  "MODEL_VERSION=12\nMODEL_RUN_ID=run-abc\n",
			expected: map[string]string{"MODEL_VERSION": "12", "MODEL_RUN_ID": "run-abc"},
		},
		"malformed lines are ignored": {
			content: strings.Join([]string{
				"MODEL_VERSION=12",
				"this line is not an assignment",
				"1LEADING_DIGIT=nope",
				"SPACED KEY=nope",
				"=nope",
				"MODEL_RUN_ID=run-abc",
			}, "\n"),
			expected: map[string]string{"MODEL_VERSION": "12", "MODEL_RUN_ID": "run-abc"},
		},
		"comments and blank lines are ignored": {
			content:  "# provenance of the model\n\nMODEL_VERSION=12\n",
			expected: map[string]string{"MODEL_VERSION": "12"},
		},
		"values keep their inner characters": {
			content:  "SOURCE=s3://bucket/path?q=1=2\n",
			expected: map[string]string{"SOURCE": "s3://bucket/path?q=1=2"},
		},
		"empty value is kept": {
			content:  "MODEL_METRIC=\n",
			expected: map[string]string{"MODEL_METRIC": ""},
		},
		"last assignment wins": {
			content:  "MODEL_VERSION=1\nMODEL_VERSION=2\n",
			expected: map[string]string{"MODEL_VERSION": "2"},
		},
	} {
		t.Run(name, func(t *testing.T) {
			actual := workspace.ParseEnv(testcase.content)
			if !cmp.MapEq(actual, testcase.expected) {
				t.Errorf("(actual, expected) = (%v, %v)", actual, testcase.expected)
			}
		})
	}
}
