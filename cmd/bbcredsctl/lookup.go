package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ericfisherdev/bbcreds/internal/adapter/driven/gitauth"
	"github.com/ericfisherdev/bbcreds/internal/application"
	"github.com/ericfisherdev/bbcreds/internal/domain/model"
)

// errCredentialNotFound is returned when a lookup resolves nothing, so that
// scripts can rely on the exit code.
var errCredentialNotFound = errors.New("credential not found")

func NewLookupCommand(ctx context.Context, global *GlobalOptions) *cobra.Command {
	opts := &LookupOptions{Global: global}
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "resolves a credential id for an item",
		Example: `  bbcredsctl lookup --item team/proj --id bb-creds --url https://bitbucket.example.com
  bbcredsctl lookup --item team/proj/main --item-kind job --id bb-pat --matcher server`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Complete(); err != nil {
				return err
			}
			return opts.Run(ctx, cmd.OutOrStdout())
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

type LookupOptions struct {
	Global *GlobalOptions

	ServerURL string
	Item      string
	ItemKind  string
	ID        string
	Matcher   string
}

// AddFlags adds flags for the options to a flagset
func (o *LookupOptions) AddFlags(fs *pflag.FlagSet) {
	if fs == nil {
		fs = pflag.CommandLine
	}

	fs.StringVar(&o.ServerURL, "url", "", "Bitbucket server URL the credential is used against")
	fs.StringVar(&o.Item, "item", "", "full name of the item requesting the credential")
	fs.StringVar(&o.ItemKind, "item-kind", "", "kind of the item: folder, multibranch or job (ignored for registered items, default job)")
	fs.StringVar(&o.ID, "id", "", "credential id")
	fs.StringVar(&o.Matcher, "matcher", "url", "credential matcher: cloud, server, any or url")
}

func (o *LookupOptions) Complete() error {
	if err := o.Global.Complete(); err != nil {
		return err
	}
	o.Item = strings.Trim(strings.TrimSpace(o.Item), "/")
	return o.Validate()
}

func (o *LookupOptions) Validate() error {
	if o.Item == "" {
		return errors.New("no item specified")
	}
	if strings.TrimSpace(o.ID) == "" {
		return errors.New("no credential id specified")
	}
	switch o.Matcher {
	case "cloud", "server", "any", "url":
	default:
		return fmt.Errorf("unknown matcher %q: expected cloud, server, any or url", o.Matcher)
	}
	switch model.ItemKind(o.ItemKind) {
	case "", model.ItemKindFolder, model.ItemKindMultibranch, model.ItemKindJob:
	default:
		return fmt.Errorf("unknown item kind %q", o.ItemKind)
	}
	return nil
}

func (o *LookupOptions) Run(ctx context.Context, out io.Writer) error {
	a, err := o.Global.openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	item, err := o.item(ctx, a)
	if err != nil {
		return err
	}

	cred := a.credentialSvc.Lookup(ctx, o.ServerURL, item, o.ID, o.matcher(ctx, a))
	if cred == nil {
		return errCredentialNotFound
	}

	fmt.Fprintf(out, "id:          %s\n", cred.ID())
	fmt.Fprintf(out, "kind:        %s\n", cred.Kind())
	fmt.Fprintf(out, "scope:       %s\n", cred.Scope())
	if up, ok := cred.(*model.UsernamePasswordCredential); ok {
		fmt.Fprintf(out, "username:    %s\n", up.Username())
	}
	if d := cred.Description(); d != "" {
		fmt.Fprintf(out, "description: %s\n", d)
	}
	fmt.Fprintf(out, "auth:        %s\n", gitauth.SchemeName(cred))
	return nil
}

// item builds the requesting item. A registered item always keeps its stored
// kind and run_as; --item-kind only applies to unregistered items.
func (o *LookupOptions) item(ctx context.Context, a *app) (*model.Item, error) {
	item := &model.Item{FullName: o.Item, Kind: model.ItemKind(o.ItemKind)}

	stored, err := a.items.GetItem(ctx, o.Item)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		item.Kind = stored.Kind
		item.RunAs = stored.RunAs
	}
	if item.Kind == "" {
		item.Kind = model.ItemKindJob
	}
	return item, nil
}

func (o *LookupOptions) matcher(ctx context.Context, a *app) model.CredentialMatcher {
	switch o.Matcher {
	case "cloud":
		return application.MatcherForCloud()
	case "server":
		return application.MatcherForServer()
	case "any":
		return application.MatcherForAny()
	default:
		return a.resolver.MatcherForURL(ctx, o.ServerURL)
	}
}
