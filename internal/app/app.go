// Package app wires the clients, pipelines and session from a Config. It is
// shared by the Lambda entry point and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"asamanthinks/internal/calllog"
	"asamanthinks/internal/config"
	"asamanthinks/internal/integrations/paramstore"
	"asamanthinks/internal/integrations/prompttools"
	"asamanthinks/internal/session"
	"asamanthinks/internal/tracker"
	"asamanthinks/internal/usecase"
	"asamanthinks/internal/voice"
	"asamanthinks/prompts"
)

type App struct {
	Session  *session.Session
	Recorder *voice.Recorder
	Device   *voice.PushDevice
	Client   *prompttools.Client
	Log      *slog.Logger
}

// Options override pieces of the default wiring.
type Options struct {
	Credentials prompttools.CredentialSource
	HTTPClient  *http.Client
	Device      voice.Device
}

// New builds an App. Credentials come from opts, then SSM when
// cfg.ParamPrefix is set, then the static values in cfg.
func New(ctx context.Context, cfg config.Config, log *slog.Logger, opts Options) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	creds := opts.Credentials
	if creds == nil {
		var err error
		if creds, err = credentialSource(ctx, cfg); err != nil {
			return nil, err
		}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	client, err := prompttools.NewClient(creds,
		prompttools.WithBaseURL(cfg.BaseURL),
		prompttools.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("app: create prompt tools client: %w", err)
	}

	set, err := prompts.Default()
	if err != nil {
		return nil, fmt.Errorf("app: load prompts: %w", err)
	}

	calls := calllog.New(log)
	tr := tracker.New()
	pipelines, err := usecase.NewPipelines(client, calls, tr, set, cfg.MaxInputLength)
	if err != nil {
		return nil, fmt.Errorf("app: create pipelines: %w", err)
	}
	sess, err := session.New(pipelines, calls, tr, client, session.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("app: create session: %w", err)
	}

	push := voice.NewPushDevice()
	var dev voice.Device = push
	if opts.Device != nil {
		dev = opts.Device
	}
	rec, err := voice.NewRecorder(dev, log)
	if err != nil {
		return nil, fmt.Errorf("app: create recorder: %w", err)
	}

	return &App{
		Session:  sess,
		Recorder: rec,
		Device:   push,
		Client:   client,
		Log:      log,
	}, nil
}

func credentialSource(ctx context.Context, cfg config.Config) (prompttools.CredentialSource, error) {
	if !cfg.UseParamStore() {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return prompttools.StaticCredentials{Token: cfg.Token, AppID: cfg.AppID, UsageKey: cfg.UsageKey}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: load AWS config: %w", err)
	}
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("app: create SSM client: %w", err)
	}
	src, err := prompttools.NewParamStoreCredentials(ssmClient, cfg.ParamPrefix)
	if err != nil {
		return nil, fmt.Errorf("app: create credential source: %w", err)
	}
	return src, nil
}
