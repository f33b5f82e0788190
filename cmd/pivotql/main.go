package main

import "github.com/spf13/cobra"

func main() {
	var root = &cobra.Command{Use: "pivotql"}
	root.PersistentFlags().String("config", ".", "directory holding config.yaml")
	addCommands(root)
	_ = root.Execute()
}
