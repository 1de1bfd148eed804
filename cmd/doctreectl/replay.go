package main

import (
	"fmt"
	"strings"

	"github.com/cshekharsharma/doctree/doc"
	"github.com/spf13/cobra"
)

var replayArgs struct {
	action string
	start  string
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Run --action's recorded patches, binding $0 per its replay mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		actionID, err := parseID(replayArgs.action)
		if err != nil {
			return err
		}
		start, err := parseID(replayArgs.start)
		if err != nil {
			return err
		}

		var created []string
		err = runOnDocument(func(d *doc.Document) error {
			for _, id := range d.RunAction(actionID, start) {
				created = append(created, id.String())
			}
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(created, "\n"))
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayArgs.action, "action", "", "action node id to replay")
	replayCmd.Flags().StringVar(&replayArgs.start, "start", "", "start node id for selected replay mode")
	_ = replayCmd.MarkFlagRequired("action")
	_ = replayCmd.MarkFlagRequired("start")
	rootCmd.AddCommand(replayCmd)
}
