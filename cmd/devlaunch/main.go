package main

import (
	"fmt"
	"os"

	"github.com/fentz26/devlaunch/internal/config"
	"github.com/fentz26/devlaunch/internal/controlplane"
	"github.com/fentz26/devlaunch/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "devlaunch",
	Short: "devlaunch - build one-click launchers for your dev environment",
	Long: `devlaunch keeps a list of development tasks (a name, a working directory and
a command) and compiles it into a Windows batch script that opens each task in
its own PowerShell window.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		apiAddr = cfg.API

		closer, err := logging.Setup(cfg.Log.Level, cfg.Log.File)
		if err != nil {
			return fmt.Errorf("setup logging: %w", err)
		}
		logCloser = closer
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser()
		}
	},
	// No RunE - defaults to showing help when no subcommand is provided
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the devlaunch version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("devlaunch", controlplane.Version)
	},
}

var (
	v         = viper.New()
	cfg       *config.Config
	cfgFile   string
	apiAddr   string
	logCloser func()
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.devlaunch.yaml)")
	rootCmd.PersistentFlags().String("api", "", "API server address (default http://127.0.0.1:7466)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "Write logs to this file instead of stderr")

	_ = v.BindPFlag("api", rootCmd.PersistentFlags().Lookup("api"))
	_ = v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("log.file", rootCmd.PersistentFlags().Lookup("log-file"))

	// Add subcommands
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
