package run_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	testutilctx "github.com/cardops/shiplane/internal/testutils/context"
	"github.com/cardops/shiplane/pkg/domain"
	"github.com/cardops/shiplane/pkg/domain/deploy"
	mockdeploy "github.com/cardops/shiplane/pkg/domain/deploy/mock"
	"github.com/cardops/shiplane/pkg/domain/registry"
	mockregistry "github.com/cardops/shiplane/pkg/domain/registry/mock"
	"github.com/cardops/shiplane/pkg/domain/run"
	"github.com/cardops/shiplane/pkg/domain/trigger"
	"github.com/cardops/shiplane/pkg/extcmd"
	mockcmd "github.com/cardops/shiplane/pkg/extcmd/mock"
)

type fakeFetcher struct {
	commit string
	err    error
	calls  int
	dirs   []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, repoURL string, ref string, commit string, dir string) (string, error) {
	f.calls += 1
	f.dirs = append(f.dirs, dir)
	if f.err != nil {
		return "", f.err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return f.commit, nil
}

type harness struct {
	root     string
	source   *fakeFetcher
	runner   *mockcmd.MockRunner
	registry *mockregistry.MockClient
	deployer *mockdeploy.MockDeployer
	deps     run.Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()

	source := &fakeFetcher{commit: "0011aabbccddeeff0011aabbccddeeff00112233"}
	runner := mockcmd.NewMockRunner()
	runner.Impl.Run = func(ctx context.Context, spec extcmd.Spec) (extcmd.Result, error) {
		return extcmd.Result{}, nil
	}
	registryClient := mockregistry.NewMockClient()
	deployer := mockdeploy.NewMockDeployer()

	return &harness{
		root:     root,
		source:   source,
		runner:   runner,
		registry: registryClient,
		deployer: deployer,
		deps: run.Deps{
			Source:   source,
			Runner:   runner,
			Registry: registryClient,
			Deployer: deployer,

			WorkspaceRoot: root,
			RepositoryURL: "https://git.example.com/cardops/fraud-detector.git",

			ModelName:  "fraud-detector",
			StageLabel: "Production",
			Metric:     "f1_score",
			Threshold:  0.90,

			ImageRepository: "registry.example.com/cardops/fraud-detector",
			Target:          deploy.Target{Namespace: "serving", Name: "fraud-detector"},

			Commands: run.StageCommands{
				Lint:           []string{"ruff", "check", "{src}"},
				StaticAnalysis: []string{"mypy", "{src}"},
				Build:          []string{"docker", "build", "-t", "{image}", "{src}"},
				Scan:           []string{"trivy", "image", "{image}"},
				Push:           []string{"docker", "push", "{image}"},
			},
		},
	}
}

// healthyRegistry serves version 12 of the model with the given metric.
func (h *harness) healthyRegistry(t *testing.T, metricValue float64) {
	t.Helper()
	h.registry.Impl.ResolveProduction = func(ctx context.Context, modelName string) (string, string, error) {
		if modelName != "fraud-detector" {
			t.Errorf("unexpected model: %s", modelName)
		}
		return "12", "mlrun-77", nil
	}
	h.registry.Impl.FetchMetric = func(ctx context.Context, runId string, metricName string) (float64, error) {
		if runId != "mlrun-77" || metricName != "f1_score" {
			t.Errorf("unexpected metric query: %s %s", runId, metricName)
		}
		return metricValue, nil
	}
	h.registry.Impl.DownloadArtifacts = func(ctx context.Context, version string, destination string) (registry.Manifest, error) {
		if err := os.MkdirAll(destination, 0o700); err != nil {
			return registry.Manifest{}, err
		}
		m := registry.Manifest{
			ModelName: "fraud-detector", Version: version, RunId: "mlrun-77",
			Stage: "Production", Metric: "f1_score", MetricValue: metricValue,
			DownloadedAt: time.Now(),
		}
		if err := registry.WriteManifest(destination, m); err != nil {
			return registry.Manifest{}, err
		}
		return m, nil
	}
}

func (h *harness) healthyDeployer() {
	h.deployer.Impl.Deploy = func(ctx context.Context, target deploy.Target, imageRef string, modelVersion string) (deploy.Record, error) {
		return deploy.Record{
			Target: target, ImageRef: imageRef, ModelVersion: modelVersion,
			PreviousRevision: "3", NewRevision: "4", Atomic: true,
		}, nil
	}
}

func (h *harness) run(t *testing.T, ctx context.Context, ref string) domain.PipelineRun {
	t.Helper()
	ctx, cancel := testutilctx.WithTest(ctx, t)
	defer cancel()

	testee := run.New(
		quiet(), domain.NewClassifier(),
		run.DefaultStages(h.deps),
		run.WithFinalCleanup(run.PurgeWorkspace(h.root)),
	)
	return testee.Run(ctx, "run-1", trigger.Event{Ref: ref})
}

func stageByName(t *testing.T, pr domain.PipelineRun, name string) domain.StageResult {
	t.Helper()
	for _, s := range pr.Stages {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("stage %s is not recorded", name)
	return domain.StageResult{}
}

func assertWorkspaceGone(t *testing.T, root string, runId string) {
	t.Helper()
	if _, err := os.Stat(filepath.Join(root, runId)); !os.IsNotExist(err) {
		t.Errorf("workspace should be reclaimed: %v", err)
	}
}

const wantImage = "registry.example.com/cardops/fraud-detector:v12-0011aabb"

func TestPipelineOnReleaseBranch(t *testing.T) {
	h := newHarness(t)
	h.healthyRegistry(t, 0.92)
	h.healthyDeployer()

	actual := h.run(t, context.Background(), "refs/heads/main")

	if actual.Outcome != domain.RunSuccess {
		t.Fatalf("unexpected outcome: %s (%+v)", actual.Outcome, actual.Stages)
	}

	declared := []string{
		run.StageCheckout, run.StageLint, run.StageStaticAnalysis,
		run.StageEvaluateModel, run.StageDownloadArtifacts, run.StageBuildImage,
		run.StageSecurityScan, run.StagePushImage, run.StageDeploy,
	}
	if len(actual.Stages) != len(declared) {
		t.Fatalf("unexpected stage count: %d", len(actual.Stages))
	}
	for i, name := range declared {
		s := actual.Stages[i]
		if s.Name != name {
			t.Errorf("unexpected stage order: (actual, expected) = (%s, %s)", s.Name, name)
		}
		if !s.Executed || s.Outcome != domain.StageOk {
			t.Errorf("stage %s should be executed and ok: %+v", name, s)
		}
	}

	evaluated := stageByName(t, actual, run.StageEvaluateModel)
	expectedOutputs := domain.Outputs{
		domain.KeyModelVersion: "12",
		domain.KeyModelRunId:   "mlrun-77",
		domain.KeyModelMetric:  "0.92",
		domain.KeyGatePassed:   "true",
	}
	if !evaluated.Outputs.Equal(expectedOutputs) {
		t.Errorf(
			"unexpected outputs: (actual, expected) = (%v, %v)",
			evaluated.Outputs, expectedOutputs,
		)
	}

	// the tool argvs get their tokens expanded.
	if len(h.runner.Specs) != 5 {
		t.Fatalf("unexpected tool invocations: %+v", h.runner.Specs)
	}
	srcDir := filepath.Join(h.root, "run-1", "src")
	lint := h.runner.Specs[0]
	if lint.Path != "ruff" || lint.Args[1] != srcDir || lint.Dir != srcDir {
		t.Errorf("unexpected lint spec: %+v", lint)
	}
	build := h.runner.Specs[2]
	if build.Args[2] != wantImage {
		t.Errorf("unexpected build image: %s", build.Args[2])
	}
	push := h.runner.Specs[4]
	if push.Args[1] != wantImage {
		t.Errorf("unexpected push image: %s", push.Args[1])
	}

	deployed := stageByName(t, actual, run.StageDeploy)
	if deployed.Outputs[domain.KeyPreviousRevision] != "3" ||
		deployed.Outputs[domain.KeyNewRevision] != "4" {
		t.Errorf("unexpected deploy outputs: %v", deployed.Outputs)
	}
	if h.deployer.Called.Deploy != 1 {
		t.Errorf("unexpected deploy count: %d", h.deployer.Called.Deploy)
	}

	assertWorkspaceGone(t, h.root, "run-1")
}

func TestPipelineGateRejection(t *testing.T) {
	h := newHarness(t)
	h.healthyRegistry(t, 0.85)
	h.healthyDeployer()

	actual := h.run(t, context.Background(), "refs/heads/main")

	if actual.Outcome != domain.RunFailed {
		t.Fatalf("unexpected outcome: %s", actual.Outcome)
	}

	failure, ok := actual.HaltingFailure()
	if !ok || failure.Name != run.StageEvaluateModel {
		t.Errorf("unexpected first failure: %+v", failure)
	}
	if !failure.Executed {
		t.Errorf("a gate rejection is a failure of an executed stage: %+v", failure)
	}
	if failure.Outputs[domain.KeyGatePassed] != "false" ||
		failure.Outputs[domain.KeyModelVersion] != "12" {
		t.Errorf("the resolved identity should stay recorded: %v", failure.Outputs)
	}

	for _, name := range []string{
		run.StageDownloadArtifacts, run.StageBuildImage,
		run.StageSecurityScan, run.StagePushImage, run.StageDeploy,
	} {
		if s := stageByName(t, actual, name); s.Outcome != domain.StageSkipped {
			t.Errorf("stage %s should be skipped: %+v", name, s)
		}
	}

	if h.registry.Called.DownloadArtifacts != 0 {
		t.Errorf("artifacts should not be downloaded: %d", h.registry.Called.DownloadArtifacts)
	}
	if h.deployer.Called.Deploy != 0 {
		t.Errorf("nothing should be deployed: %d", h.deployer.Called.Deploy)
	}
	if h.runner.Called.Run != 2 {
		t.Errorf("only the check tools should run: %+v", h.runner.Specs)
	}

	assertWorkspaceGone(t, h.root, "run-1")
}

func TestPipelineOnReviewBranch(t *testing.T) {
	h := newHarness(t)

	actual := h.run(t, context.Background(), "feature/streaming-features")

	if actual.Outcome != domain.RunSuccess {
		t.Fatalf("unexpected outcome: %s (%+v)", actual.Outcome, actual.Stages)
	}

	for _, name := range []string{run.StageCheckout, run.StageLint, run.StageStaticAnalysis} {
		if s := stageByName(t, actual, name); !s.Executed || s.Outcome != domain.StageOk {
			t.Errorf("stage %s should run for review branches: %+v", name, s)
		}
	}
	for _, name := range []string{
		run.StageEvaluateModel, run.StageDownloadArtifacts, run.StageBuildImage,
		run.StageSecurityScan, run.StagePushImage, run.StageDeploy,
	} {
		if s := stageByName(t, actual, name); s.Outcome != domain.StageSkipped {
			t.Errorf("stage %s should be skipped for review branches: %+v", name, s)
		}
	}

	if h.registry.Called.ResolveProduction != 0 ||
		h.registry.Called.FetchMetric != 0 ||
		h.registry.Called.DownloadArtifacts != 0 {
		t.Errorf("the registry should not be consulted: %+v", h.registry.Called)
	}
	if h.deployer.Called.Deploy != 0 {
		t.Errorf("nothing should be deployed: %d", h.deployer.Called.Deploy)
	}

	assertWorkspaceGone(t, h.root, "run-1")
}

func TestPipelineScanFailureIsNonFatal(t *testing.T) {
	h := newHarness(t)
	h.healthyRegistry(t, 0.92)
	h.healthyDeployer()
	h.runner.Impl.Run = func(ctx context.Context, spec extcmd.Spec) (extcmd.Result, error) {
		if spec.Path == "trivy" {
			result := extcmd.Result{ExitCode: 1, Stderr: "CRITICAL: CVE-2025-0001"}
			return result, extcmd.ErrExit{Command: spec.String(), Result: result}
		}
		return extcmd.Result{}, nil
	}

	actual := h.run(t, context.Background(), "refs/heads/main")

	if actual.Outcome != domain.RunSuccess {
		t.Fatalf("a scan failure should not fail the run: %s", actual.Outcome)
	}

	scan := stageByName(t, actual, run.StageSecurityScan)
	if !scan.Executed || scan.Outcome != domain.StageFailed {
		t.Errorf("the scan failure should be recorded: %+v", scan)
	}
	if scan.Error == "" {
		t.Errorf("the scan failure detail should be kept")
	}

	for _, name := range []string{run.StagePushImage, run.StageDeploy} {
		if s := stageByName(t, actual, name); !s.Executed || s.Outcome != domain.StageOk {
			t.Errorf("stage %s should still run: %+v", name, s)
		}
	}
	if h.deployer.Called.Deploy != 1 {
		t.Errorf("unexpected deploy count: %d", h.deployer.Called.Deploy)
	}
}

func TestPipelineCheckoutFailure(t *testing.T) {
	h := newHarness(t)
	h.source.err = errors.New("remote hung up")

	actual := h.run(t, context.Background(), "refs/heads/main")

	if actual.Outcome != domain.RunFailed {
		t.Fatalf("unexpected outcome: %s", actual.Outcome)
	}
	if failure, ok := actual.HaltingFailure(); !ok || failure.Name != run.StageCheckout {
		t.Errorf("unexpected first failure: %+v", failure)
	}
	if h.runner.Called.Run != 0 {
		t.Errorf("no tool should run after a checkout failure: %+v", h.runner.Specs)
	}

	// Ensure ran before the failure, so there is a directory to reclaim.
	assertWorkspaceGone(t, h.root, "run-1")
}

func TestPipelineDeployFailure(t *testing.T) {
	h := newHarness(t)
	h.healthyRegistry(t, 0.92)
	h.deployer.Impl.Deploy = func(ctx context.Context, target deploy.Target, imageRef string, modelVersion string) (deploy.Record, error) {
		record := deploy.Record{
			Target: target, ImageRef: imageRef, ModelVersion: modelVersion,
			PreviousRevision: "3", RolledBack: true,
		}
		return record, deploy.Failure{Target: target, Record: record, Mutated: true, Cause: context.DeadlineExceeded}
	}

	actual := h.run(t, context.Background(), "refs/heads/main")

	if actual.Outcome != domain.RunFailed {
		t.Fatalf("unexpected outcome: %s", actual.Outcome)
	}
	deployed := stageByName(t, actual, run.StageDeploy)
	if !deployed.Executed || deployed.Outcome != domain.StageFailed {
		t.Errorf("the deploy failure should be recorded: %+v", deployed)
	}
	if deployed.Outputs[domain.KeyPreviousRevision] != "3" {
		t.Errorf("the captured revision should be recorded: %v", deployed.Outputs)
	}

	assertWorkspaceGone(t, h.root, "run-1")
}
