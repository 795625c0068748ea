package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcconsole/mcconsole-go/internal/config"
	"github.com/mcconsole/mcconsole-go/internal/rcon"
)

var (
	// send flags
	sendAddr    string
	sendTimeout time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send <command...>",
	Short: "Send a console command over RCON",
	Long: `Send one console command to a running server over RCON and print the
reply. The password is read from ` + config.EnvRCONPassword + `.

Examples:
  mcconsole send list
  mcconsole send --rcon mc.example.net:25575 say Restarting in 5 minutes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendAddr, "rcon", "",
		"RCON address host:port (default from rcon.address)")
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 10*time.Second,
		"Overall timeout")
}

func runSend(cmd *cobra.Command, args []string) error {
	addr := sendAddr
	if addr == "" {
		addr = appConfig.RCON.Address
	}
	if addr == "" {
		return errors.New("no RCON address: set --rcon or rcon.address")
	}
	command := strings.TrimSpace(strings.Join(args, " "))
	if command == "" {
		return errors.New("empty command")
	}

	client, err := rcon.New(addr, appConfig.RCON.Password, rcon.WithDeadline(sendTimeout))
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	resp, err := client.Execute(ctx, command)
	if err != nil {
		return err
	}
	if resp != "" {
		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(resp, "\n"))
	}
	return nil
}
