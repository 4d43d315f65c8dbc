package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"pdf-form-filler/internal/config"
	"pdf-form-filler/internal/domain"
	"pdf-form-filler/internal/integrations/formapi"
	"pdf-form-filler/internal/integrations/paramstore"
	"pdf-form-filler/internal/repository"
	"pdf-form-filler/internal/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, huh.ErrUserAborted) && !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, ui.RenderError(domain.Message(err)))
			stop()
			os.Exit(1)
		}
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "formfill",
		Short: "Fill PDF forms by answering one question at a time",
		Long: `formfill uploads a fillable PDF to the form service, asks for each field in
turn, and downloads the completed form.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newFillCmd(),
		newResumeCmd(),
		newStatusCmd(),
		newFieldsCmd(),
		newDownloadCmd(),
		newHealthCmd(),
		newInspectCmd(),
		newSessionsCmd(),
	)
	return root
}

// app holds the clients shared by the commands that talk to the service.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	client *formapi.Client
	store  *repository.Client
}

func newApp(ctx context.Context, flags *pflag.FlagSet) (*app, error) {
	cfg, err := config.Load(flags)
	if err != nil {
		return nil, err
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger}
	clientOpts := []formapi.Option{
		formapi.WithTimeout(cfg.Timeout),
		formapi.WithMaxUploadBytes(cfg.MaxUploadBytes),
		formapi.WithLogger(logger),
	}
	baseURL := cfg.APIURL

	if cfg.ParamPrefix != "" || cfg.StateTable != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		if cfg.ParamPrefix != "" {
			ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
			if err != nil {
				return nil, err
			}
			settings, err := resolveService(ctx, cfg, ssmClient)
			if err != nil {
				return nil, err
			}
			baseURL = settings.BaseURL
			if settings.APIToken != "" {
				clientOpts = append(clientOpts, formapi.WithAPIToken(settings.APIToken))
			}
		}
		if cfg.StateTable != "" {
			store, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.StateTable)
			if err != nil {
				return nil, err
			}
			a.store = store
		}
	}

	client, err := formapi.NewClient(baseURL, clientOpts...)
	if err != nil {
		return nil, err
	}
	a.client = client
	logger.Debug("configuration loaded", "api_url", client.BaseURL(), "bookmarks", a.store != nil)
	return a, nil
}

// resolveService reads the service settings under cfg.ParamPrefix. An
// explicit api_url takes precedence over the stored service_url.
func resolveService(ctx context.Context, cfg *config.Config, getter paramstore.Getter) (paramstore.ServiceSettings, error) {
	settings, err := paramstore.LoadServiceSettings(ctx, getter, cfg.ParamPrefix)
	if err != nil {
		return paramstore.ServiceSettings{}, err
	}
	if cfg.APIURL != "" {
		settings.BaseURL = cfg.APIURL
	}
	return settings, nil
}
