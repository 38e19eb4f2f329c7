package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	sqliteadapter "github.com/ericfisherdev/bbcreds/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/bbcreds/internal/application"
	"github.com/ericfisherdev/bbcreds/internal/config"
	"github.com/ericfisherdev/bbcreds/internal/domain/model"
)

// NewRootCommand creates the bbcredsctl command tree.
func NewRootCommand(ctx context.Context) *cobra.Command {
	opts := &GlobalOptions{}
	cmd := &cobra.Command{
		Use:           "bbcredsctl",
		Short:         "inspect Bitbucket credentials and endpoints",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewLookupCommand(ctx, opts))
	cmd.AddCommand(NewMatcherCommand(ctx, opts))
	cmd.AddCommand(NewValidateCommand())
	return cmd
}

// GlobalOptions are shared by every command that opens the database.
// Unset flags fall back to the BBCREDS_ environment configuration.
type GlobalOptions struct {
	DBPath          string
	SystemPrincipal string
	Verbose         bool

	cfg *config.Config
}

// AddFlags adds flags for the options to a flagset
func (o *GlobalOptions) AddFlags(fs *pflag.FlagSet) {
	if fs == nil {
		fs = pflag.CommandLine
	}

	fs.StringVar(&o.DBPath, "db", "", "path to the credential database (default $BBCREDS_DB_PATH or bbcreds.db)")
	fs.StringVar(&o.SystemPrincipal, "system-principal", "", "name of the system principal (default $BBCREDS_SYSTEM_PRINCIPAL or SYSTEM)")
	fs.BoolVarP(&o.Verbose, "verbose", "v", false, "log at debug level")
}

// Complete loads the environment configuration and applies it to unset flags.
func (o *GlobalOptions) Complete() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	o.cfg = cfg

	if o.DBPath == "" {
		o.DBPath = cfg.DBPath
	}
	if o.SystemPrincipal == "" {
		o.SystemPrincipal = cfg.SystemPrincipal
	}
	return o.Validate()
}

func (o *GlobalOptions) Validate() error {
	if o.DBPath == "" {
		return errors.New("no database path specified")
	}
	if o.SystemPrincipal == "" {
		return errors.New("no system principal specified")
	}
	return nil
}

func (o *GlobalOptions) logger() *slog.Logger {
	level := slog.LevelWarn
	if o.cfg != nil {
		level = max(level, o.cfg.LogLevel)
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// app bundles the adapters and services a command works with.
type app struct {
	db            *sqliteadapter.DB
	credentialSvc *application.CredentialService
	resolver      *application.MatcherResolver
	items         *sqliteadapter.ItemRepo
}

// openApp opens and migrates the database and wires the services against it.
func (o *GlobalOptions) openApp(ctx context.Context) (*app, error) {
	logger := o.logger()

	db, err := sqliteadapter.NewDB(ctx, o.DBPath)
	if err != nil {
		return nil, err
	}
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}

	credentialStore, err := sqliteadapter.NewCredentialRepo(db, o.cfg.SecretKey)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	items := sqliteadapter.NewItemRepo(db)

	return &app{
		db:            db,
		credentialSvc: application.NewCredentialService(credentialStore, items, model.SystemPrincipal(o.SystemPrincipal), logger),
		resolver:      application.NewMatcherResolver(sqliteadapter.NewEndpointRepo(db), nil, logger),
		items:         items,
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}
