package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ahrav/whisper/internal/infra/classifier/ollama"
)

func newCheckCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and check that the inference endpoint is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			sess, err := newSession(ctx, v, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer sess.close(context.WithoutCancel(ctx))

			ai := sess.cfg.AI
			client := ollama.NewClient(ollama.Config{
				Host:    ai.Host,
				Model:   ai.Model,
				Timeout: ai.Timeout,
			}, nil, sess.log, sess.providers.Tracer.Tracer(serviceName))

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "configuration: ok")

			host := ollama.ResolveHost(ai.Host)
			ver, err := client.Ping(ctx)
			if err != nil {
				fmt.Fprintf(out, "inference endpoint %s: unreachable\n", host)
				return &exitError{code: exitUnreachable, err: err}
			}
			fmt.Fprintf(out, "inference endpoint %s: ok (ollama %s, model %s)\n", host, ver, ai.Model)
			return nil
		},
	}
}
