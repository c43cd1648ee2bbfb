package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	shiplane "github.com/cardops/shiplane/pkg"
	"github.com/cardops/shiplane/pkg/buildtime"
	"github.com/cardops/shiplane/pkg/configs/pipeline"
	kpool "github.com/cardops/shiplane/pkg/conn/db/postgres/pool"
	"github.com/cardops/shiplane/pkg/domain"
	k8sdeploy "github.com/cardops/shiplane/pkg/domain/deploy/k8s"
	kpg "github.com/cardops/shiplane/pkg/domain/history/db/postgres"
	"github.com/cardops/shiplane/pkg/domain/run"
	"github.com/cardops/shiplane/pkg/domain/trigger"
	"github.com/cardops/shiplane/pkg/utils/filewatch"
	"github.com/cardops/shiplane/pkg/utils/kubeutil"
	"github.com/cardops/shiplane/pkg/utils/try"
)

func main() {
	logger := log.Default()

	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill, syscall.SIGTERM,
	)
	defer cancel()

	pconfig := flag.String(
		"config", os.Getenv("SHIPLANE_CONFIG"), "path to pipeline config file",
	)
	loglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	pIssueToken := flag.Bool("issue-token", false, "print a fresh trigger token and exit")
	pSubject := flag.String("subject", "ci", "subject claim of the issued token")
	pversion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *pversion {
		fmt.Println(buildtime.VersionString())
		return
	}

	logger.Printf("shiplaned %s", buildtime.VersionString())

	conf := try.To(pipeline.LoadPipelineConfig(*pconfig)).OrFatal(logger)
	server := conf.Server()
	if server == nil {
		logger.Fatal("the config file has no server section")
	}

	issuer := trigger.NewIssuer([]byte(server.TokenSecret()))

	if *pIssueToken {
		token := try.To(issuer.Issue(*pSubject)).OrFatal(logger)
		fmt.Println(token)
		return
	}

	{
		// config updates need a restart. quit and let the
		// supervisor bring the daemon back up.
		wctx, cancel, err := filewatch.UntilModifyContext(ctx, *pconfig)
		if err != nil {
			logger.Fatal(err)
		}
		defer cancel()
		ctx = wctx
	}

	pool := try.To(pgxpool.Connect(ctx, server.Database())).OrFatal(logger)
	defer pool.Close()
	dbHistory := kpg.New(kpool.Wrap(pool))
	if err := dbHistory.Init(ctx); err != nil {
		logger.Fatal(err)
	}

	clientset := try.To(kubeutil.ConnectToK8s()).OrFatal(logger)
	deployer := k8sdeploy.New(
		k8sdeploy.WrapClientset(clientset),
		k8sdeploy.WithTimeout(conf.Deploy().Timeout()),
		k8sdeploy.WithPollInterval(conf.Deploy().PollInterval()),
		k8sdeploy.WithContainer(conf.Deploy().Container()),
		k8sdeploy.WithLogger(logger),
	)

	deps := shiplane.AssembleDeps(conf, deployer)

	classify := domain.NewClassifier(conf.ProtectedRefs()...)

	executor := run.New(
		logger, classify, run.DefaultStages(deps),
		run.WithFinalCleanup(run.PurgeWorkspace(conf.Workspace())),
		run.WithObserver(func(runId string, seq int, result domain.StageResult) {
			rctx, rcancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer rcancel()
			if err := dbHistory.AddStageResult(rctx, runId, seq, result); err != nil {
				logger.Printf(
					"can not record stage %s of run %s: %s", result.Name, runId, err,
				)
			}
		}),
	)

	// start hands a run to the executor. the run shares the daemon
	// context, so shutting down aborts in-flight runs at their next
	// stage boundary. runs are tracked so shutdown can wait for the
	// aborting runs to record their outcome and settle the cluster.
	runs := &runGroup{}
	start := func(runId string, ev trigger.Event) {
		runs.Go(func() {
			result := executor.Run(ctx, runId, ev)

			fctx, fcancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer fcancel()
			if err := dbHistory.Finish(
				fctx, runId, result.Outcome, result.FinishedAt,
			); err != nil {
				logger.Printf("can not finish run %s: %s", runId, err)
			}
		})
	}

	e := BuildServer(dbHistory, issuer, classify, start, *loglevel)
	for _, r := range e.Routes() {
		e.Logger.Debugf("- mount handler: %s %s", strings.ToUpper(r.Method), r.Path)
	}

	ch := make(chan error, 1)
	go func() {
		defer close(ch)
		if err := e.Start(fmt.Sprintf(":%d", server.Port())); err != nil && err != http.ErrServerClosed {
			ch <- err
		}
	}()

	exit := 0
	select {
	case <-ctx.Done(): // wait
		if err := ctx.Err(); err != nil {
			e.Logger.Infof("context has been done: %s, cause: %s", err, context.Cause(ctx))
			exit = 1
		}
	case err := <-ch:
		if err != nil {
			e.Logger.Error("server stops with error:", err)
			exit = 1
		}
	}

	{
		e.Logger.Info("shutting down...")
		qctx, qcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer qcancel()

		if err := e.Shutdown(qctx); err != nil {
			e.Logger.Fatalf("Shutdown with error. %+v", err)
			os.Exit(1)
		}

		// an aborting run may still be rolling back its deploy on a
		// detached context. both the upgrade wait and the rollback get
		// the deploy timeout each, so drain with room for both.
		drainBudget := 2*conf.Deploy().Timeout() + time.Minute
		e.Logger.Infof("waiting for in-flight runs (up to %s)...", drainBudget)
		if !runs.WaitTimeout(drainBudget) {
			e.Logger.Error("in-flight runs did not finish in time")
			os.Exit(1)
		}
		os.Exit(exit)
	}
}
