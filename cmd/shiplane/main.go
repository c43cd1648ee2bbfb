package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/cardops/shiplane/cmd/shiplane/report"
	shiplane "github.com/cardops/shiplane/pkg"
	"github.com/cardops/shiplane/pkg/buildtime"
	"github.com/cardops/shiplane/pkg/configs/pipeline"
	"github.com/cardops/shiplane/pkg/domain"
	"github.com/cardops/shiplane/pkg/domain/deploy"
	k8sdeploy "github.com/cardops/shiplane/pkg/domain/deploy/k8s"
	"github.com/cardops/shiplane/pkg/domain/run"
	"github.com/cardops/shiplane/pkg/domain/trigger"
	"github.com/cardops/shiplane/pkg/utils/kubeutil"
	"github.com/cardops/shiplane/pkg/utils/try"
)

func main() {
	logger := log.Default()

	pconfig := flag.String(
		"config", os.Getenv("SHIPLANE_CONFIG"), "path to pipeline config file",
	)
	pref := flag.String("ref", "", "git ref to run the pipeline for")
	pcommit := flag.String("commit", "", "commit pinning the checkout. default: the tip of ref")
	prunId := flag.String("run-id", "", "run identifier. default: generated")
	pversion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *pversion {
		fmt.Println(buildtime.VersionString())
		return
	}

	if *pref == "" {
		logger.Fatal(`flag "-ref" is required`)
	}

	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill, syscall.SIGTERM,
	)
	defer cancel()

	conf := try.To(pipeline.LoadPipelineConfig(*pconfig)).OrFatal(logger)

	// the cluster is dialed only if this run reaches Deploy, so runs
	// on review branches work without a kubeconfig.
	deployer := deploy.Lazy(func() (deploy.Deployer, error) {
		clientset, err := kubeutil.ConnectToK8s()
		if err != nil {
			return nil, err
		}
		return k8sdeploy.New(
			k8sdeploy.WrapClientset(clientset),
			k8sdeploy.WithTimeout(conf.Deploy().Timeout()),
			k8sdeploy.WithPollInterval(conf.Deploy().PollInterval()),
			k8sdeploy.WithContainer(conf.Deploy().Container()),
			k8sdeploy.WithLogger(logger),
		), nil
	})

	deps := shiplane.AssembleDeps(conf, deployer)

	classify := domain.NewClassifier(conf.ProtectedRefs()...)
	executor := run.New(
		logger, classify, run.DefaultStages(deps),
		run.WithFinalCleanup(run.PurgeWorkspace(conf.Workspace())),
	)

	runId := *prunId
	if runId == "" {
		runId = uuid.NewString()
	}

	result := executor.Run(ctx, runId, trigger.Event{
		Ref: *pref, Commit: *pcommit, Requester: os.Getenv("USER"),
	})

	report.Render(os.Stdout, result)
	if result.Outcome != domain.RunSuccess {
		os.Exit(1)
	}
}
