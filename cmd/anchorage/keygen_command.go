package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"anchorage/internal/swarm"
)

func newKeygenCommand() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:         "keygen",
		Short:       "Generate a new private swarm key",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if raw {
				key, err := swarm.GenerateKey()
				if err != nil {
					return err
				}
				_, err = out.Write(key)
				return err
			}

			encoded, err := swarm.GenerateKeyBase64()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, encoded)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the swarm.key file content instead of base64")
	return cmd
}
