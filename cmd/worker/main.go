package main

import (
	"context"
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"dev/bravebird/signup-automation-go/pkg/app"
	"dev/bravebird/signup-automation-go/pkg/config"
	"dev/bravebird/signup-automation-go/pkg/llm"
	"dev/bravebird/signup-automation-go/pkg/logger"
	"dev/bravebird/signup-automation-go/pkg/temporal/activities"
	"dev/bravebird/signup-automation-go/pkg/temporal/workflows"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(os.Stderr, "error", "text").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.App.LogLevel, cfg.App.LogFormat)
	slog.SetDefault(log)

	deps, err := app.Build(context.Background(), cfg, log)
	if err != nil {
		log.Error("failed to build services", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	// Create Temporal client
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logger.Temporal(log),
	})
	if err != nil {
		log.Error("failed to create Temporal client", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	acts := activities.NewActivities(deps.Generator, deps.Store, cfg.Output.ScreenshotsDir)
	acts.BrowserBin = cfg.Browser.Bin
	defer func() {
		if err := acts.Pool.CloseAll(); err != nil {
			log.Warn("failed to close browsers", "error", err)
		}
	}()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     5,
		MaxConcurrentWorkflowTaskExecutionSize: 10,
	})

	// Register workflows
	w.RegisterWorkflow(workflows.SignupFlowWorkflow)
	w.RegisterWorkflow(workflows.ParallelSignupWorkflow)
	w.RegisterWorkflow(workflows.ScriptGenerationWorkflow)

	// Register activities
	w.RegisterActivity(acts.InitializeBrowserActivity)
	w.RegisterActivity(acts.CloseBrowserActivity)
	w.RegisterActivity(acts.RunSignupActivity)
	w.RegisterActivity(acts.TakeScreenshotActivity)
	w.RegisterActivity(acts.GenerateScriptActivity)
	w.RegisterActivity(acts.RecordRunResultActivity)

	log.Info("Starting Temporal worker",
		"task_queue", cfg.Temporal.TaskQueue,
		"temporal_host", cfg.Temporal.HostPort,
		"llm_providers", llm.ProviderNames(cfg.LLM.Providers),
	)

	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Error("worker failed", "error", err)
		os.Exit(1)
	}
}
