package main

import (
	"encoding/json"

	"github.com/jcooky/go-din"
	"github.com/spf13/cobra"

	"github.com/nadavsuissa/AiChatManager1/errors"
	"github.com/nadavsuissa/AiChatManager1/project"
)

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Short:   "Manage projects",
		Aliases: []string{"projects"},
	}

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project with its assistant and first thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := din.NewContainer(cmd.Context(), din.EnvProd)
			defer c.Close()

			service, err := din.GetT[*project.Service](c)
			if err != nil {
				return err
			}

			p, err := service.CreateProject(c, args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return errors.WithStack(enc.Encode(p))
		},
	}

	cmd.AddCommand(createCmd)

	return cmd
}
