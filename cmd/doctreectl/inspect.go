package main

import (
	"fmt"
	"strings"

	"github.com/cshekharsharma/doctree/index"
	"github.com/cshekharsharma/doctree/schema"
	"github.com/cshekharsharma/doctree/substrate"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Dump the document tree (id, kind, tag, depth) from the Indexed View",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := loadDocument(viper.GetString("file"), viper.GetUint64("peer"))
		if err != nil {
			return err
		}
		defer d.Close()

		root := d.Index.Root()
		if root.IsZero() {
			fmt.Println("(empty document)")
			return nil
		}
		printNode(d.Index, root, 0)
		return nil
	},
}

func printNode(idx *index.Index, id substrate.ID, depth int) {
	n, ok := idx.Get(id)
	if !ok {
		return
	}
	fmt.Printf("%s%s  id=%s kind=%s%s\n", strings.Repeat("  ", depth), label(n), id.String(), n.Kind, detail(n))
	for _, child := range n.Children {
		printNode(idx, child, depth+1)
	}
}

func label(n schema.Node) string {
	switch n.Kind {
	case schema.KindElement:
		return "<" + n.Tag + ">"
	case schema.KindValue:
		return "\"" + n.Text + "\""
	default:
		return string(n.Kind)
	}
}

func detail(n schema.Node) string {
	switch n.Kind {
	case schema.KindRef:
		return " target=" + n.Target.String()
	case schema.KindFormula:
		return " operation=" + n.Operation
	case schema.KindAction:
		return " label=" + n.Label + " replayMode=" + n.ReplayMode
	default:
		return ""
	}
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
