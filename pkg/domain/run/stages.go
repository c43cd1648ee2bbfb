package run

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cardops/shiplane/pkg/domain"
	"github.com/cardops/shiplane/pkg/domain/deploy"
	"github.com/cardops/shiplane/pkg/domain/gate"
	"github.com/cardops/shiplane/pkg/domain/registry"
	"github.com/cardops/shiplane/pkg/extcmd"
	"github.com/cardops/shiplane/pkg/images"
	"github.com/cardops/shiplane/pkg/source"
	"github.com/cardops/shiplane/pkg/workspace"
)

// Stage names of the default pipeline.
const (
	StageCheckout          = "Checkout"
	StageLint              = "Lint"
	StageStaticAnalysis    = "StaticAnalysis"
	StageEvaluateModel     = "EvaluateModel"
	StageDownloadArtifacts = "DownloadArtifacts"
	StageBuildImage        = "BuildImage"
	StageSecurityScan      = "SecurityScan"
	StagePushImage         = "PushImage"
	StageDeploy            = "Deploy"
)

// StageCommands are the tool argvs the check and image stages invoke.
//
// Tokens {src}, {artifacts}, {env_file} and {image} are expanded
// against the run's workspace and context before invocation.
type StageCommands struct {
	Lint           []string
	StaticAnalysis []string
	Build          []string
	Scan           []string
	Push           []string
}

// Deps are the collaborators and settings the default stage bodies
// close over. One Deps value serves any number of runs. Everything
// run-scoped is derived from the run context.
type Deps struct {
	Source   source.Fetcher
	Runner   extcmd.Runner
	Registry registry.Client
	Deployer deploy.Deployer

	WorkspaceRoot string
	RepositoryURL string

	ModelName  string
	StageLabel string
	Metric     string
	Threshold  float64

	ImageRepository string
	Target          deploy.Target

	Commands StageCommands
}

// DefaultStages builds the pipeline's stage graph:
//
//	Checkout, Lint, StaticAnalysis always run.
//	EvaluateModel runs for release branches.
//	DownloadArtifacts, BuildImage, SecurityScan, PushImage, Deploy run
//	for release branches once the quality gate passed.
//
// SecurityScan is the single non-fatal stage. Its failure is recorded
// but does not halt the run nor fail the terminal outcome.
func DefaultStages(deps Deps) []Stage {
	gated := AllOf(ReleaseOnly, GatePassed)
	return []Stage{
		{Name: StageCheckout, Guard: Always, Body: deps.checkout},
		{Name: StageLint, Guard: Always, Body: deps.lint},
		{Name: StageStaticAnalysis, Guard: Always, Body: deps.staticAnalysis},
		{Name: StageEvaluateModel, Guard: ReleaseOnly, Body: deps.evaluateModel},
		{Name: StageDownloadArtifacts, Guard: gated, Body: deps.downloadArtifacts},
		{Name: StageBuildImage, Guard: gated, Body: deps.buildImage},
		{Name: StageSecurityScan, Guard: gated, Body: deps.securityScan, NonFatal: true},
		{Name: StagePushImage, Guard: gated, Body: deps.pushImage},
		{Name: StageDeploy, Guard: gated, Body: deps.deploy},
	}
}

// PurgeWorkspace reclaims the run's whole workspace. Wire it in with
// WithFinalCleanup so every terminal state leaves no files behind.
func PurgeWorkspace(root string) Cleanup {
	return func(_ context.Context, rc domain.RunContext) error {
		return workspace.Under(root, rc.RunId).Purge()
	}
}

func (d Deps) workspace(rc domain.RunContext) workspace.Workspace {
	return workspace.Under(d.WorkspaceRoot, rc.RunId)
}

// expand substitutes workspace and context tokens in a tool argv.
func (d Deps) expand(rc domain.RunContext, argv []string) []string {
	ws := d.workspace(rc)
	r := strings.NewReplacer(
		"{src}", ws.SrcDir(),
		"{artifacts}", ws.ArtifactsDir(),
		"{env_file}", ws.EnvFile(),
		"{image}", rc.Outputs[domain.KeyImageRef],
	)
	expanded := make([]string, len(argv))
	for i, a := range argv {
		expanded[i] = r.Replace(a)
	}
	return expanded
}

func (d Deps) runTool(ctx context.Context, rc domain.RunContext, argv []string) error {
	if len(argv) == 0 {
		return domain.NewConfiguration("no command configured for this stage")
	}
	expanded := d.expand(rc, argv)
	_, err := d.Runner.Run(ctx, extcmd.Spec{
		Path: expanded[0],
		Args: expanded[1:],
		Dir:  d.workspace(rc).SrcDir(),
	})
	return err
}

func (d Deps) checkout(ctx context.Context, rc domain.RunContext) (domain.Outputs, error) {
	ws := d.workspace(rc)
	if err := ws.Ensure(); err != nil {
		return nil, err
	}
	commit, err := d.Source.Fetch(ctx, d.RepositoryURL, rc.Ref, rc.Commit, ws.SrcDir())
	if err != nil {
		return nil, err
	}
	return domain.Outputs{domain.KeyCommit: commit}, nil
}

func (d Deps) lint(ctx context.Context, rc domain.RunContext) (domain.Outputs, error) {
	return nil, d.runTool(ctx, rc, d.Commands.Lint)
}

func (d Deps) staticAnalysis(ctx context.Context, rc domain.RunContext) (domain.Outputs, error) {
	return nil, d.runTool(ctx, rc, d.Commands.StaticAnalysis)
}

// evaluateModel resolves the promoted model version, reads its metric,
// and asks the quality gate. The resolved identity is written to the
// run's env file and the file is parsed back into the outputs, so the
// context holds exactly what external consumers will read.
//
// A gate rejection is a failure of this stage (executed, negative
// verdict), never a skip. The resolved identity stays recorded in the
// outputs either way.
func (d Deps) evaluateModel(ctx context.Context, rc domain.RunContext) (domain.Outputs, error) {
	version, modelRunId, err := d.Registry.ResolveProduction(ctx, d.ModelName)
	if err != nil {
		return nil, err
	}
	value, err := d.Registry.FetchMetric(ctx, modelRunId, d.Metric)
	if err != nil {
		return nil, err
	}
	evaluation := gate.Assess(
		d.ModelName, d.StageLabel, version, modelRunId, d.Metric, value, d.Threshold,
	)

	ws := d.workspace(rc)
	if err := workspace.WriteEnvFile(ws.EnvFile(), map[string]string{
		"MODEL_VERSION": version,
		"MODEL_RUN_ID":  modelRunId,
		"MODEL_METRIC":  strconv.FormatFloat(value, 'f', -1, 64),
	}); err != nil {
		return nil, err
	}
	resolved, err := workspace.ParseEnvFile(ws.EnvFile())
	if err != nil {
		return nil, err
	}

	outputs := domain.Outputs{
		domain.KeyModelVersion: resolved["MODEL_VERSION"],
		domain.KeyModelRunId:   resolved["MODEL_RUN_ID"],
		domain.KeyModelMetric:  resolved["MODEL_METRIC"],
		domain.KeyGatePassed:   strconv.FormatBool(evaluation.Pass),
	}
	if !evaluation.Pass {
		return outputs, domain.NewGateRejected(evaluation)
	}
	return outputs, nil
}

func (d Deps) downloadArtifacts(ctx context.Context, rc domain.RunContext) (domain.Outputs, error) {
	version, ok := rc.Output(domain.KeyModelVersion)
	if !ok {
		return nil, fmt.Errorf("model version is not in the run context")
	}
	ws := d.workspace(rc)
	if _, err := d.Registry.DownloadArtifacts(ctx, version, ws.ArtifactsDir()); err != nil {
		return nil, err
	}
	return domain.Outputs{domain.KeyArtifactsDir: ws.ArtifactsDir()}, nil
}

func (d Deps) buildImage(ctx context.Context, rc domain.RunContext) (domain.Outputs, error) {
	version, ok := rc.Output(domain.KeyModelVersion)
	if !ok {
		return nil, fmt.Errorf("model version is not in the run context")
	}
	commit := rc.Commit
	if c, ok := rc.Output(domain.KeyCommit); ok {
		commit = c
	}

	imageRef, err := images.Ref(d.ImageRepository, version, commit)
	if err != nil {
		return nil, err
	}

	rc.Outputs = rc.Outputs.Merge(domain.Outputs{domain.KeyImageRef: imageRef})
	if err := d.runTool(ctx, rc, d.Commands.Build); err != nil {
		return nil, domain.NewBuildCausedBy(fmt.Sprintf("building %s failed", imageRef), err)
	}
	return domain.Outputs{domain.KeyImageRef: imageRef}, nil
}

func (d Deps) securityScan(ctx context.Context, rc domain.RunContext) (domain.Outputs, error) {
	if err := d.runTool(ctx, rc, d.Commands.Scan); err != nil {
		return nil, domain.NewScanCausedBy(
			fmt.Sprintf("scanning %s failed", rc.Outputs[domain.KeyImageRef]), err,
		)
	}
	return nil, nil
}

func (d Deps) pushImage(ctx context.Context, rc domain.RunContext) (domain.Outputs, error) {
	if err := d.runTool(ctx, rc, d.Commands.Push); err != nil {
		return nil, domain.NewPushCausedBy(
			fmt.Sprintf("pushing %s failed", rc.Outputs[domain.KeyImageRef]), err,
		)
	}
	return nil, nil
}

func (d Deps) deploy(ctx context.Context, rc domain.RunContext) (domain.Outputs, error) {
	imageRef, ok := rc.Output(domain.KeyImageRef)
	if !ok {
		return nil, fmt.Errorf("image ref is not in the run context")
	}
	version, _ := rc.Output(domain.KeyModelVersion)

	record, err := d.Deployer.Deploy(ctx, d.Target, imageRef, version)

	outputs := domain.Outputs{}
	if record.PreviousRevision != "" {
		outputs[domain.KeyPreviousRevision] = record.PreviousRevision
	}
	if record.NewRevision != "" {
		outputs[domain.KeyNewRevision] = record.NewRevision
	}
	if err != nil {
		return outputs, err
	}
	return outputs, nil
}
