package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pagegraph/pagegraph/cmd/pagegraph/client"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check the server connection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api().Ping(); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls [PATH]",
	Short: "List the children of a segment",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLs,
}

func runLs(cmd *cobra.Command, args []string) error {
	path := "/"
	if len(args) > 0 {
		path = args[0]
	}

	listing, err := api().List(path)
	if err != nil {
		return err
	}

	for _, item := range listing.Items {
		marker := ""
		if item.ItemType == "segment" {
			marker = "/"
		}
		fmt.Printf("%-30s %-20s %s\n", item.Name+marker, strings.Join(item.Kinds, ","), item.ID)
	}
	return nil
}

var catCmd = &cobra.Command{
	Use:   "cat PATH",
	Short: "Print the content served at a path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, _, err := api().Cat(args[0])
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
		return nil
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree PATH",
	Short: "Print the subtree under a segment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := api().Tree(args[0])
		if err != nil {
			return err
		}
		printTree(result.Tree, 0)
		return nil
	},
}

func printTree(node *client.TreeNode, depth int) {
	if node == nil {
		return
	}
	marker := ""
	if node.Kind == "segment" {
		marker = "/"
	}
	fmt.Printf("%s%s%s\n", strings.Repeat("  ", depth), node.Name, marker)
	for _, child := range node.Children {
		printTree(child, depth+1)
	}
}

var pathCmd = &cobra.Command{
	Use:   "path ID",
	Short: "Print the display path of a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := api().NodePath(args[0])
		if err != nil {
			return err
		}
		fmt.Println(info.Path)
		if pathShowIDs {
			for _, id := range info.IDs {
				fmt.Println(id)
			}
		}
		return nil
	},
}

var pathShowIDs bool

var (
	mkContent  bool
	mkValue    string
	mkFile     string
	mkTypeCode int
)

var mkCmd = &cobra.Command{
	Use:   "mk NAME",
	Short: "Create a segment or content node",
	Long: `Create a node and print its ID.

Without flags a segment is created. --content creates a content node whose
payload comes from --value, or from --file when the payload is binary.`,
	Args: cobra.ExactArgs(1),
	RunE: runMk,
}

func runMk(cmd *cobra.Command, args []string) error {
	name := args[0]

	if !mkContent {
		node, err := api().CreateSegment(name)
		if err != nil {
			return err
		}
		fmt.Println(node.ID)
		return nil
	}

	var node *client.Node
	var err error
	if mkFile != "" {
		data, readErr := os.ReadFile(mkFile)
		if readErr != nil {
			return readErr
		}
		node, err = api().CreateBinary(name, data, mkTypeCode)
	} else {
		node, err = api().CreateContent(name, mkValue, mkTypeCode)
	}
	if err != nil {
		return err
	}
	fmt.Println(node.ID)
	return nil
}

var renameCmd = &cobra.Command{
	Use:   "rename ID NAME",
	Short: "Rename a node",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return api().Rename(args[0], args[1])
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a node and every relation touching it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return api().DeleteNode(args[0])
	},
}

var linkCmd = &cobra.Command{
	Use:   "link PARENT_ID CHILD_ID [TYPE]",
	Short: "Create a relation between two nodes",
	Long: `Create a relation of the given type (direct, indirect or bind;
default direct). Linking a new direct parent demotes the old one to
indirect; binding replaces the segment's previous bind child.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		relType := "direct"
		if len(args) == 3 {
			relType = args[2]
		}
		return api().Link(args[0], args[1], relType)
	},
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink PARENT_ID CHILD_ID TYPE",
	Short: "Delete a relation",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return api().Unlink(args[0], args[1], args[2])
	},
}

func init() {
	pathCmd.Flags().BoolVar(&pathShowIDs, "ids", false, "Also print the root-to-node ID chain")

	mkCmd.Flags().BoolVar(&mkContent, "content", false, "Create a content node instead of a segment")
	mkCmd.Flags().StringVar(&mkValue, "value", "", "Text payload for the content node")
	mkCmd.Flags().StringVar(&mkFile, "file", "", "File whose bytes become the binary payload")
	mkCmd.Flags().IntVar(&mkTypeCode, "type-code", 0, "Payload type code (defaults to text)")

	rootCmd.AddCommand(pingCmd, lsCmd, catCmd, treeCmd, pathCmd, mkCmd, renameCmd, rmCmd, linkCmd, unlinkCmd)
}
