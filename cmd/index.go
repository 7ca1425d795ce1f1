package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/koopa0/ragline/internal/storage"
)

var (
	indexProject string
	indexReset   bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a file or directory into a project",
	Long: `Index splits the given file (or every supported file in the given
directory) into chunks, embeds them and upserts them into the project's
vector collection. Re-indexing the same file replaces its previous chunks.

With --reset the project's collection is destroyed and rebuilt from this
indexing run.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexProject, "project", "p", "", "project identifier (alphanumeric)")
	indexCmd.Flags().BoolVar(&indexReset, "reset", false, "rebuild the collection from scratch")
	_ = indexCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if err := storage.ValidateProjectID(indexProject); err != nil {
		return err
	}

	ctx := context.Background()
	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("inspecting %q: %w", path, err)
	}

	if info.IsDir() {
		count, err := a.ingestor.IngestDir(ctx, indexProject, path, indexReset)
		if err != nil {
			return err
		}
		fmt.Printf("Indexed %d files into project %q\n", count, indexProject)
		return nil
	}

	result, err := a.ingestor.IngestFile(ctx, indexProject, path, indexReset)
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %d chunks from %q into project %q\n", result.Chunks, path, indexProject)
	return nil
}
