package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "doctreectl",
	Short: "Exercise the doctree collaborative document engine from the command line",
}

// Execute runs the root command, exiting non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Uint64("peer", 1, "peer identity for this invocation")
	rootCmd.PersistentFlags().String("file", "doctree.snapshot", "path to the local document snapshot")
	rootCmd.PersistentFlags().String("room", "", "sync room id (connect)")
	rootCmd.PersistentFlags().String("server", "", "sync server url (connect)")

	viper.SetEnvPrefix("doctreectl")
	viper.AutomaticEnv()
	for _, name := range []string{"peer", "file", "room", "server"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}
}
