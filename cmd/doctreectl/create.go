package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var createTag string

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new document with a root element and persist its snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		d := newDocument(viper.GetUint64("peer"))
		defer d.Close()

		root := d.Mutate.CreateRoot(createTag)
		if root.IsZero() {
			return fmt.Errorf("doctreectl: invalid root tag %q", createTag)
		}
		if err := saveDocument(viper.GetString("file"), d); err != nil {
			return err
		}
		fmt.Println(root.String())
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createTag, "tag", "root", "root element tag")
	rootCmd.AddCommand(createCmd)
}
