package shiplane

import (
	"github.com/cardops/shiplane/pkg/configs/pipeline"
	"github.com/cardops/shiplane/pkg/domain/deploy"
	"github.com/cardops/shiplane/pkg/domain/registry/mlflow"
	"github.com/cardops/shiplane/pkg/domain/run"
	"github.com/cardops/shiplane/pkg/extcmd"
	"github.com/cardops/shiplane/pkg/source"
)

// AssembleDeps builds the collaborators the stage bodies need, wired
// from conf: git checkouts, locally executed tools, the MLflow
// registry client, and the given deployer.
//
// Both commands share this assembly. Only the deployer differs, since
// the daemon dials the cluster at boot while the one-shot command
// defers it to the first deploy.
func AssembleDeps(conf *pipeline.PipelineConfig, deployer deploy.Deployer) run.Deps {
	return run.Deps{
		Source: source.NewGit(),
		Runner: extcmd.NewLocal(),
		Registry: mlflow.New(
			conf.Registry().Endpoint(), conf.Registry().Model(),
			mlflow.WithStage(conf.Registry().Stage()),
			mlflow.WithMetric(conf.Registry().Metric()),
		),
		Deployer: deployer,

		WorkspaceRoot: conf.Workspace(),
		RepositoryURL: conf.Repository(),

		ModelName:  conf.Registry().Model(),
		StageLabel: conf.Registry().Stage(),
		Metric:     conf.Registry().Metric(),
		Threshold:  conf.Gate().Threshold(),

		ImageRepository: conf.Image().Repository(),
		Target: deploy.Target{
			Namespace: conf.Deploy().Namespace(),
			Name:      conf.Deploy().Name(),
		},

		Commands: run.StageCommands{
			Lint:           conf.Stages().Lint(),
			StaticAnalysis: conf.Stages().StaticAnalysis(),
			Build:          conf.Stages().Build(),
			Scan:           conf.Stages().Scan(),
			Push:           conf.Stages().Push(),
		},
	}
}
