package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"pdf-form-filler/handler"
	"pdf-form-filler/internal/integrations/formapi"
	"pdf-form-filler/internal/integrations/paramstore"
	"pdf-form-filler/internal/repository"
	"pdf-form-filler/internal/usecase"
)

const defaultOwner = "api"

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// ---- Configuration (read only here) ----
	serviceURL := os.Getenv("SERVICE_URL")
	paramPrefix := os.Getenv("PARAM_PREFIX")
	if serviceURL == "" && paramPrefix == "" {
		slog.Error("one of SERVICE_URL or PARAM_PREFIX must be set")
		os.Exit(1)
	}
	stateTable := os.Getenv("STATE_TABLE")
	owner := envString("BOOKMARK_OWNER", defaultOwner)
	maxUploadBytes := envInt("MAX_UPLOAD_BYTES", int(formapi.DefaultMaxUploadBytes))
	timeoutSeconds := envInt("REQUEST_TIMEOUT_SECONDS", int(formapi.DefaultTimeout/time.Second))

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	clientOpts := []formapi.Option{
		formapi.WithTimeout(time.Duration(timeoutSeconds) * time.Second),
		formapi.WithMaxUploadBytes(int64(maxUploadBytes)),
		formapi.WithLogger(logger),
	}
	if paramPrefix != "" {
		ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
		if err != nil {
			slog.Error("failed to create SSM client", "err", err)
			os.Exit(1)
		}
		settings, err := paramstore.LoadServiceSettings(ctx, ssmClient, paramPrefix)
		if err != nil {
			slog.Error("failed to load service settings", "err", err)
			os.Exit(1)
		}
		if serviceURL == "" {
			serviceURL = settings.BaseURL
		}
		if settings.APIToken != "" {
			clientOpts = append(clientOpts, formapi.WithAPIToken(settings.APIToken))
		}
	}

	formClient, err := formapi.NewClient(serviceURL, clientOpts...)
	if err != nil {
		slog.Error("failed to create form service client", "err", err)
		os.Exit(1)
	}

	fillOpts := []usecase.FillOption{usecase.WithFillLogger(logger)}
	if stateTable != "" {
		stateClient, err := repository.New(awsdynamodb.NewFromConfig(cfg), stateTable)
		if err != nil {
			slog.Error("failed to create state client", "err", err)
			os.Exit(1)
		}
		fillOpts = append(fillOpts, usecase.WithFillBookmarks(stateClient, owner))
	}

	// ---- Handler ----
	fillService, err := usecase.NewFillService(formClient, fillOpts...)
	if err != nil {
		slog.Error("failed to create fill service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(fillService, handler.WithLogger(logger))
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
