package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ericfisherdev/bbcreds/internal/application"
	"github.com/ericfisherdev/bbcreds/internal/domain/model"
)

func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{Registry: application.DefaultCredentialTypeRegistry()}
	cmd := &cobra.Command{
		Use:     "validate",
		Short:   "validates credential form fields without storing them",
		Example: `  bbcredsctl validate --kind personal_access_token --field token=abc`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Complete(); err != nil {
				return err
			}
			return opts.Run(cmd.OutOrStdout())
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

type ValidateOptions struct {
	Registry *application.CredentialTypeRegistry

	Kind   string
	Fields map[string]string
}

// AddFlags adds flags for the options to a flagset
func (o *ValidateOptions) AddFlags(fs *pflag.FlagSet) {
	if fs == nil {
		fs = pflag.CommandLine
	}

	fs.StringVar(&o.Kind, "kind", "", "credential kind: "+o.kinds())
	fs.StringToStringVar(&o.Fields, "field", nil, "form field as name=value, repeatable")
}

func (o *ValidateOptions) Complete() error {
	return o.Validate()
}

func (o *ValidateOptions) Validate() error {
	if o.Kind == "" {
		return errors.New("no credential kind specified")
	}
	if _, ok := o.Registry.Get(model.CredentialKind(o.Kind)); !ok {
		return fmt.Errorf("unknown credential kind %q: expected one of %s", o.Kind, o.kinds())
	}
	return nil
}

func (o *ValidateOptions) Run(out io.Writer) error {
	d, _ := o.Registry.Get(model.CredentialKind(o.Kind))

	res := d.Validate(o.Fields)
	if res.Message == "" {
		fmt.Fprintf(out, "%s: %s\n", d.DisplayName(), res.Kind)
	} else {
		fmt.Fprintf(out, "%s: %s: %s\n", d.DisplayName(), res.Kind, res.Message)
	}

	if !res.OK() {
		return fmt.Errorf("%w: %s", application.ErrInvalidCredential, res.Message)
	}
	return nil
}

func (o *ValidateOptions) kinds() string {
	var kinds []string
	for _, d := range o.Registry.All() {
		kinds = append(kinds, string(d.Kind()))
	}
	return strings.Join(kinds, ", ")
}
