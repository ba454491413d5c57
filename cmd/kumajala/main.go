package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"codeberg.org/snonux/kumajala/internal/cli"
	"codeberg.org/snonux/kumajala/internal/processor"
)

func main() {
	// klog flags (-v, -logtostderr, ...) ride along on the root command
	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	defer klog.Flush()

	// Create flags instance
	flags := cli.NewFlags()
	proc := processor.NewProcessor(flags)
	defer proc.Close()

	// Create root command
	rootCmd := cli.CreateRootCommand(flags, cli.Handlers{
		Translate: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args, flags, proc)
		},
		Train: func(cmd *cobra.Command, args []string) error {
			_, err := proc.Train(cmd.Context())
			return err
		},
		Import: func(cmd *cobra.Command, args []string) error {
			return proc.Import(cmd.Context())
		},
		Enrich: func(cmd *cobra.Command, args []string) error {
			_, err := proc.Enrich(cmd.Context())
			return err
		},
		Evaluate: func(cmd *cobra.Command, args []string) error {
			_, err := proc.Evaluate(cmd.Context())
			return err
		},
		ListModels: func(cmd *cobra.Command, args []string) error {
			return proc.ListModels(cmd.Context())
		},
	})
	rootCmd.PersistentFlags().AddGoFlagSet(klogFlags)

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
		flags.LoadFromViper()
	})

	// Stop training and batches cleanly on Ctrl-C
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Execute command
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		proc.Close()
		klog.Flush()
		os.Exit(1)
	}
}

func runTranslate(cmd *cobra.Command, args []string, flags *cli.Flags, proc *processor.Processor) error {
	switch {
	case flags.BatchFile != "":
		_, err := proc.TranslateBatch(cmd.Context())
		return err
	case len(args) > 0:
		return proc.TranslatePhrase(cmd.Context(), args[0])
	default:
		return fmt.Errorf("give a phrase to translate or use --batch")
	}
}
