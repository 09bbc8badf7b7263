package main

import "github.com/spf13/cobra"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "chatverse",
		Short:         "chatverse: realtime presence and message fan-out server",
		Long:          "chatverse keeps track of who is online, which chats each connection is viewing, and pushes new messages, typing indicators and read receipts to connected clients over WebSocket.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newTokenCmd(),
		newVersionCmd(),
	)

	return rootCmd
}
