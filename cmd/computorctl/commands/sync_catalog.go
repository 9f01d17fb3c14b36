package commands

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/computor-org/cpsto/internal/objectstore"
	"github.com/computor-org/cpsto/internal/workflows/catalogsync"
	"github.com/computor-org/cpsto/internal/workflows/dwe"
)

var (
	syncRepositoryID int64
	syncBucket       string
	syncUploadRef    string
)

var syncCatalogCmd = &cobra.Command{
	Use:   "sync-catalog <directory>",
	Short: "Stage a local directory of example folders and submit a CatalogSync run",
	Long: `sync-catalog walks directory, where each immediate subdirectory holding
a meta.yaml is one example, stages every file into the object store's
scratch area, and submits CatalogSyncWorkflow to ingest them.`,
	Args: cobra.ExactArgs(1),
	RunE: runSyncCatalog,
}

func init() {
	rootCmd.AddCommand(syncCatalogCmd)
	f := syncCatalogCmd.Flags()
	f.Int64Var(&syncRepositoryID, "repository-id", 0, "example repository id (required)")
	f.StringVar(&syncBucket, "bucket", "", "object store bucket backing the example catalog (required)")
	f.StringVar(&syncUploadRef, "upload-ref", "", "unique reference for this upload, used in the workflow id (defaults to a generated uuid)")
	for _, name := range []string{"repository-id", "bucket"} {
		syncCatalogCmd.MarkFlagRequired(name) //nolint:errcheck
	}
}

func runSyncCatalog(cmd *cobra.Command, args []string) error {
	root := args[0]
	if syncUploadRef == "" {
		syncUploadRef = uuid.NewString()
	}

	objects, err := newObjectStoreClientFromEnv()
	if err != nil {
		return err
	}

	ctx := context.Background()
	var files []catalogsync.UploadFile

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		parts := strings.SplitN(rel, "/", 2)
		if len(parts) != 2 {
			return nil // loose file directly under root, not inside an example directory
		}
		directory, relPath := parts[0], parts[1]

		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		scratchKey := fmt.Sprintf("scratch/%s/%s", syncUploadRef, rel)
		contentType := mime.TypeByExtension(filepath.Ext(p))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if err := objects.PutObject(ctx, syncBucket, scratchKey, data, filepath.Base(p), contentType, nil, objectstore.MaxUploadSize); err != nil {
			return err
		}
		files = append(files, catalogsync.UploadFile{
			Directory:  directory,
			RelPath:    relPath,
			Bucket:     syncBucket,
			ScratchKey: scratchKey,
			Size:       int64(len(data)),
		})
		return nil
	})
	if err != nil {
		return err
	}

	adapter, err := dial()
	if err != nil {
		return err
	}
	defer adapter.Close()

	workflowID := dwe.CatalogSyncWorkflowID(syncRepositoryID, syncUploadRef)
	input := catalogsync.Input{RepositoryID: syncRepositoryID, Files: files}
	run, err := adapter.Submit(ctx, workflowID, catalogsync.CatalogSyncWorkflow, input)
	if err != nil {
		return err
	}

	var results []catalogsync.DirectoryResult
	if err := run.Get(ctx, &results); err != nil {
		return err
	}
	for _, r := range results {
		if r.Error != "" {
			fmt.Printf("%s: FAILED: %s\n", r.Directory, r.Error)
			continue
		}
		fmt.Printf("%s: example_id=%d version_id=%d version_tag=%s\n", r.Directory, r.ExampleID, r.VersionID, r.VersionTag)
	}
	return nil
}
