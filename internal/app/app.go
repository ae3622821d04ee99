// Package app holds the orchestrators: ingestion, chat transactions, deletion
// and account flows. Handlers stay thin; every multi-step workflow and its
// failure ordering lives here.
package app

import (
	"context"
	"errors"

	"docchat/internal/identity"
	"docchat/internal/mailer"
	"docchat/internal/storage"
	"docchat/internal/tasks"
	"docchat/pkg/aigw"
	"docchat/pkg/convert"
	"docchat/pkg/otp"
	"docchat/pkg/store"
)

// AI is the slice of the AI-service client the orchestrators use.
type AI interface {
	Extract(ctx context.Context, req aigw.ExtractRequest) error
	Generate(ctx context.Context, req aigw.GenerateRequest) (aigw.GenerateResult, error)
	GenerateTitle(ctx context.Context, prompt string) (string, error)
	DeleteChunks(ctx context.Context, fileIDs []string) error
}

// Config wires the application's collaborators.
type Config struct {
	Store     store.Store
	OTP       otp.Store
	AI        AI
	Files     *storage.FileStore
	Converter *convert.Converter
	Tasks     tasks.Queue
	Identity  identity.AdminAPI
	Mailer    mailer.Mailer
}

// App exposes the application's workflows to the HTTP layer.
type App struct {
	store     store.Store
	otp       otp.Store
	ai        AI
	files     *storage.FileStore
	converter *convert.Converter
	tasks     tasks.Queue
	identity  identity.AdminAPI
	mailer    mailer.Mailer

	verifyPDF func(path string) error
}

// New validates the wiring and returns the application.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("app requires a store")
	}
	if cfg.OTP == nil {
		return nil, errors.New("app requires an otp store")
	}
	if cfg.AI == nil {
		return nil, errors.New("app requires an ai client")
	}
	if cfg.Files == nil {
		return nil, errors.New("app requires a file store")
	}
	if cfg.Converter == nil {
		return nil, errors.New("app requires a converter")
	}
	if cfg.Tasks == nil {
		return nil, errors.New("app requires a task queue")
	}
	if cfg.Identity == nil {
		return nil, errors.New("app requires an identity admin client")
	}
	if cfg.Mailer == nil {
		return nil, errors.New("app requires a mailer")
	}
	return &App{
		store:     cfg.Store,
		otp:       cfg.OTP,
		ai:        cfg.AI,
		files:     cfg.Files,
		converter: cfg.Converter,
		tasks:     cfg.Tasks,
		identity:  cfg.Identity,
		mailer:    cfg.Mailer,
		verifyPDF: convert.VerifyPDF,
	}, nil
}
