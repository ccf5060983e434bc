package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/nadavsuissa/AiChatManager1/config"
	"github.com/nadavsuissa/AiChatManager1/errors"
)

func newCmd() *cobra.Command {
	flags := &struct {
		configFile string
	}{}

	cmd := &cobra.Command{
		Use:           "aichatmanager",
		Short:         "Project assistant conversation server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.configFile == "" {
				return nil
			}
			if _, err := os.Stat(flags.configFile); err != nil {
				return errors.Wrapf(err, "config file %s", flags.configFile)
			}
			return os.Setenv(config.FileEnv, flags.configFile)
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "Path to the YAML config file")

	cmd.AddCommand(
		newServeCmd(),
		newProjectCmd(),
	)

	return cmd
}
