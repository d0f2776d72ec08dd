package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/NotCoffee418/european_smart_meter/pkg/interpreter"
	"github.com/NotCoffee418/european_smart_meter/pkg/logging"
	"github.com/NotCoffee418/european_smart_meter/pkg/types"
)

var watchHost string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow live readings from a running meter_collector",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchHost, "host", "", "meter_collector host:port (default from config, or INTERPRETER_API_HOST)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	host := watchHost
	if host == "" {
		host = os.Getenv("INTERPRETER_API_HOST")
	}
	if host == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		host = fmt.Sprintf("localhost:%d", cfg.Server.ListenPort)
	}

	logger, err := logging.New("info", "text")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	l := &interpreter.Listener{Logger: logger}
	return l.Listen(ctx, host, func(r types.Reading) {
		fmt.Fprintln(out, string(r.ToJsonBytes()))
	})
}
