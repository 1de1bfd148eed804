package main

import (
	"fmt"

	"github.com/cshekharsharma/doctree/doc"
	"github.com/cshekharsharma/doctree/mutate"
	"github.com/cshekharsharma/doctree/substrate"
	"github.com/spf13/cobra"
)

var mutateCmd = &cobra.Command{
	Use:   "mutate",
	Short: "Apply one mutation primitive to the local document",
}

func init() {
	rootCmd.AddCommand(mutateCmd)
}

func parseID(s string) (substrate.ID, error) {
	id, ok := substrate.ParseID(s)
	if !ok {
		return substrate.Zero, fmt.Errorf("doctreectl: invalid node id %q", s)
	}
	return id, nil
}

var addChildArgs struct {
	parent    string
	kind      string
	tag       string
	text      string
	target    string
	operation string
	index     int
}

var addChildCmd = &cobra.Command{
	Use:   "add-child",
	Short: "Create a node under --parent",
	RunE: func(cmd *cobra.Command, args []string) error {
		parent, err := parseID(addChildArgs.parent)
		if err != nil {
			return err
		}
		spec := mutate.NodeSpec{Kind: mutate.Kind(addChildArgs.kind), Tag: addChildArgs.tag, Text: addChildArgs.text, Operation: addChildArgs.operation}
		if addChildArgs.target != "" {
			target, err := parseID(addChildArgs.target)
			if err != nil {
				return err
			}
			spec.Target = target
		}

		var created substrate.ID
		err = runOnDocument(func(d *doc.Document) error {
			ids := d.Mutate.AddChildren(parent, []mutate.NodeSpec{spec}, addChildArgs.index)
			if len(ids) == 0 {
				return fmt.Errorf("doctreectl: add-child rejected (see warnings)")
			}
			created = ids[0]
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Println(created.String())
		return nil
	},
}

var setAttrArgs struct {
	target string
	key    string
	value  string
	unset  bool
}

var setAttrCmd = &cobra.Command{
	Use:   "set-attr",
	Short: "Set or delete an attribute on an element",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := parseID(setAttrArgs.target)
		if err != nil {
			return err
		}
		return runOnDocument(func(d *doc.Document) error {
			if setAttrArgs.unset {
				d.Mutate.UpdateAttribute([]substrate.ID{target}, setAttrArgs.key, nil, false)
			} else {
				d.Mutate.UpdateAttribute([]substrate.ID{target}, setAttrArgs.key, setAttrArgs.value, true)
			}
			return nil
		})
	},
}

var moveArgs struct {
	target string
	parent string
	index  int
}

var moveCmd = &cobra.Command{
	Use:   "move",
	Short: "Reparent --target under --parent at --index",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := parseID(moveArgs.target)
		if err != nil {
			return err
		}
		parent, err := parseID(moveArgs.parent)
		if err != nil {
			return err
		}
		return runOnDocument(func(d *doc.Document) error {
			d.Mutate.Move([]substrate.ID{target}, parent, moveArgs.index)
			return nil
		})
	},
}

var deleteArgs struct {
	target string
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Tree-delete --target",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := parseID(deleteArgs.target)
		if err != nil {
			return err
		}
		return runOnDocument(func(d *doc.Document) error {
			d.Mutate.Delete([]substrate.ID{target})
			return nil
		})
	},
}

var spliceArgs struct {
	target string
	index  int
	delete int
	insert string
}

var spliceCmd = &cobra.Command{
	Use:   "splice",
	Short: "Splice a value node's text",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := parseID(spliceArgs.target)
		if err != nil {
			return err
		}
		return runOnDocument(func(d *doc.Document) error {
			d.Mutate.SpliceValue([]substrate.ID{target}, spliceArgs.index, spliceArgs.delete, spliceArgs.insert)
			return nil
		})
	},
}

var copyArgs struct {
	source string
	parent string
	index  int
}

var copyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy --source's current state under --parent",
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := parseID(copyArgs.source)
		if err != nil {
			return err
		}
		parent, err := parseID(copyArgs.parent)
		if err != nil {
			return err
		}
		var created substrate.ID
		err = runOnDocument(func(d *doc.Document) error {
			created = d.Mutate.CopyNode(source, parent, copyArgs.index)
			if created.IsZero() {
				return fmt.Errorf("doctreectl: copy rejected, %s is not live", source.String())
			}
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Println(created.String())
		return nil
	},
}

func init() {
	addChildCmd.Flags().StringVar(&addChildArgs.parent, "parent", "", "parent node id")
	addChildCmd.Flags().StringVar(&addChildArgs.kind, "kind", "element", "node kind: element|value|ref|formula")
	addChildCmd.Flags().StringVar(&addChildArgs.tag, "tag", "", "element tag")
	addChildCmd.Flags().StringVar(&addChildArgs.text, "text", "", "value text")
	addChildCmd.Flags().StringVar(&addChildArgs.target, "target", "", "ref target node id")
	addChildCmd.Flags().StringVar(&addChildArgs.operation, "operation", "", "formula operation name")
	addChildCmd.Flags().IntVar(&addChildArgs.index, "index", -1, "child position, -1 to append")
	_ = addChildCmd.MarkFlagRequired("parent")

	setAttrCmd.Flags().StringVar(&setAttrArgs.target, "target", "", "element node id")
	setAttrCmd.Flags().StringVar(&setAttrArgs.key, "key", "", "attribute key")
	setAttrCmd.Flags().StringVar(&setAttrArgs.value, "value", "", "attribute value")
	setAttrCmd.Flags().BoolVar(&setAttrArgs.unset, "unset", false, "delete the attribute instead of setting it")
	_ = setAttrCmd.MarkFlagRequired("target")
	_ = setAttrCmd.MarkFlagRequired("key")

	moveCmd.Flags().StringVar(&moveArgs.target, "target", "", "node id to move")
	moveCmd.Flags().StringVar(&moveArgs.parent, "parent", "", "new parent node id")
	moveCmd.Flags().IntVar(&moveArgs.index, "index", -1, "position under the new parent, -1 to append")
	_ = moveCmd.MarkFlagRequired("target")
	_ = moveCmd.MarkFlagRequired("parent")

	deleteCmd.Flags().StringVar(&deleteArgs.target, "target", "", "node id to delete")
	_ = deleteCmd.MarkFlagRequired("target")

	spliceCmd.Flags().StringVar(&spliceArgs.target, "target", "", "value node id")
	spliceCmd.Flags().IntVar(&spliceArgs.index, "index", 0, "splice start index")
	spliceCmd.Flags().IntVar(&spliceArgs.delete, "delete", 0, "number of runes to delete")
	spliceCmd.Flags().StringVar(&spliceArgs.insert, "insert", "", "text to insert")
	_ = spliceCmd.MarkFlagRequired("target")

	copyCmd.Flags().StringVar(&copyArgs.source, "source", "", "node id to copy")
	copyCmd.Flags().StringVar(&copyArgs.parent, "parent", "", "parent for the copy")
	copyCmd.Flags().IntVar(&copyArgs.index, "index", -1, "position under the parent, -1 to append")
	_ = copyCmd.MarkFlagRequired("source")
	_ = copyCmd.MarkFlagRequired("parent")

	mutateCmd.AddCommand(addChildCmd, setAttrCmd, moveCmd, deleteCmd, spliceCmd, copyCmd)
}
