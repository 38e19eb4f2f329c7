package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func NewMatcherCommand(ctx context.Context, global *GlobalOptions) *cobra.Command {
	opts := &MatcherOptions{Global: global}
	cmd := &cobra.Command{
		Use:   "matcher URL",
		Short: "shows which credential matcher applies to a Bitbucket URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ServerURL = args[0]
			if err := opts.Complete(); err != nil {
				return err
			}
			return opts.Run(ctx, cmd.OutOrStdout())
		},
	}
	return cmd
}

type MatcherOptions struct {
	Global *GlobalOptions

	ServerURL string
}

func (o *MatcherOptions) Complete() error {
	if err := o.Global.Complete(); err != nil {
		return err
	}
	return o.Validate()
}

func (o *MatcherOptions) Validate() error {
	if o.ServerURL == "" {
		return errors.New("no URL specified")
	}
	return nil
}

func (o *MatcherOptions) Run(ctx context.Context, out io.Writer) error {
	a, err := o.Global.openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	endpoint := a.resolver.FindEndpoint(ctx, o.ServerURL)
	if endpoint == nil {
		fmt.Fprintf(out, "%s: no endpoint configured, matcher any\n", o.ServerURL)
		return nil
	}

	matcher := "any"
	if _, ok := a.resolver.Descriptor(endpoint.Type); ok {
		matcher = string(endpoint.Type)
	}
	fmt.Fprintf(out, "%s: endpoint %q (%s), matcher %s\n", endpoint.ServerURL, endpoint.DisplayName, endpoint.Type, matcher)
	return nil
}
