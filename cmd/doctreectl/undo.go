package main

import (
	"fmt"

	"github.com/cshekharsharma/doctree/doc"
	"github.com/spf13/cobra"
)

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Undo the most recent local edit group",
	RunE: func(cmd *cobra.Command, args []string) error {
		var ok bool
		if err := runOnDocument(func(d *doc.Document) error {
			ok = d.Undo()
			return nil
		}); err != nil {
			return err
		}
		fmt.Println(ok)
		return nil
	},
}

var redoCmd = &cobra.Command{
	Use:   "redo",
	Short: "Redo the most recently undone edit group",
	RunE: func(cmd *cobra.Command, args []string) error {
		var ok bool
		if err := runOnDocument(func(d *doc.Document) error {
			ok = d.Redo()
			return nil
		}); err != nil {
			return err
		}
		fmt.Println(ok)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(undoCmd, redoCmd)
}
