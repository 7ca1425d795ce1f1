package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koopa0/ragline/internal/storage"
	"github.com/koopa0/ragline/internal/vectorstore"
)

var (
	resetProject string
	infoProject  string

	projectsPage     int
	projectsPageSize int
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Destroy a project's vector collection",
	Long: `Reset deletes the project's vector collection. Stored chunks are kept;
the next index run recreates the collection from scratch.`,
	RunE: runReset,
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show a project's collection details",
	RunE:  runInfo,
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List known projects",
	RunE:  runProjects,
}

func init() {
	resetCmd.Flags().StringVarP(&resetProject, "project", "p", "", "project identifier (alphanumeric)")
	_ = resetCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(resetCmd)

	infoCmd.Flags().StringVarP(&infoProject, "project", "p", "", "project identifier (alphanumeric)")
	_ = infoCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(infoCmd)

	projectsCmd.Flags().IntVar(&projectsPage, "page", 1, "page number (1-based)")
	projectsCmd.Flags().IntVar(&projectsPageSize, "page-size", storage.DefaultPageSize, "projects per page")
	rootCmd.AddCommand(projectsCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	if err := storage.ValidateProjectID(resetProject); err != nil {
		return err
	}

	ctx := context.Background()
	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := a.system.ResetCollection(ctx, resetProject); err != nil {
		return err
	}
	fmt.Printf("Collection for project %q reset\n", resetProject)
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	if err := storage.ValidateProjectID(infoProject); err != nil {
		return err
	}

	ctx := context.Background()
	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	info, err := a.system.CollectionInfo(ctx, infoProject)
	if errors.Is(err, vectorstore.ErrCollectionNotFound) {
		fmt.Printf("Project %q has no collection yet\n", infoProject)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Project:    %s\n", infoProject)
	fmt.Printf("Collection: %s\n", info.Name)
	fmt.Printf("Dimension:  %d\n", info.Dimension)
	fmt.Printf("Records:    %d\n", info.Records)

	if a.store != nil {
		project, err := a.store.GetProject(ctx, infoProject)
		if err == nil {
			count, err := a.store.CountProjectChunks(ctx, project.ID)
			if err == nil {
				fmt.Printf("Chunks:     %d\n", count)
			}
		}
	}
	return nil
}

func runProjects(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if a.store == nil {
		return fmt.Errorf("project listing needs the pgvector backend (current: %s)", a.cfg.VectorBackend)
	}

	projects, err := a.store.ListProjects(ctx, projectsPage, projectsPageSize)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("No projects")
		return nil
	}

	for _, p := range projects {
		fmt.Printf("%s\t(created %s)\n", p.ProjectID, p.CreatedAt.Format("2006-01-02"))
	}
	return nil
}
