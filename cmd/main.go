package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"

	"followup-agent/handler"
	"followup-agent/internal/app"
	"followup-agent/internal/config"
	"followup-agent/internal/integrations/paramstore"
	"followup-agent/internal/repository"
	"followup-agent/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load configuration", err)
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		fatal("failed to init logger", err)
	}
	defer func() { _ = zap.L().Sync() }()
	if cfg.StateTable == "" {
		zap.L().Fatal("required environment variable is not set", zap.String("key", "STATE_TABLE"))
	}

	// ---- AWS SDK config ----
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		zap.L().Fatal("failed to load AWS config", zap.Error(err))
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		zap.L().Fatal("failed to create SSM client", zap.Error(err))
	}
	stateClient, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.StateTable)
	if err != nil {
		zap.L().Fatal("failed to create state client", zap.Error(err))
	}
	genClient, err := app.NewGenerationClient(cfg, ssmClient, zap.L())
	if err != nil {
		zap.L().Fatal("failed to create generation client", zap.Error(err))
	}

	// ---- Pipeline ----
	templates, err := app.LoadTemplates(ctx, cfg, ssmClient)
	if err != nil {
		zap.L().Fatal("failed to load keyword templates", zap.Error(err))
	}
	pipeline, err := app.NewPipeline(cfg, genClient, templates, zap.L())
	if err != nil {
		zap.L().Fatal("failed to build pipeline", zap.Error(err))
	}

	// ---- Handler ----
	svc, err := usecase.NewFollowUpService(pipeline, stateClient, cfg.MaxHistoryItems, cfg.MaxQueryLength)
	if err != nil {
		zap.L().Fatal("failed to create follow-up service", zap.Error(err))
	}
	h, err := handler.NewHandler(svc)
	if err != nil {
		zap.L().Fatal("failed to create handler", zap.Error(err))
	}

	zap.L().Info("starting follow-up lambda",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("secondary", cfg.FollowUp.SecondaryStrategy),
	)
	lambda.Start(h.Handle)
}

// fatal is used before the zap logger exists.
func fatal(msg string, err error) {
	l, _ := zap.NewProduction()
	l.Error(msg, zap.Error(err))
	_ = l.Sync()
	os.Exit(1)
}
