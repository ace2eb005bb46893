package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ledgerline/finsight/internal/retrieval"
)

var indexDocType string

var indexCmd = &cobra.Command{
	Use:   "index <dir>",
	Short: "Index documents into the vector store",
	Long:  "Walks a directory of text documents, chunks them, and adds them to the embedded vector index. Document type comes from --type, or from the file's parent directory name.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		root := args[0]
		var docs []retrieval.Document

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".txt", ".md":
			default:
				return nil
			}

			raw, err := os.ReadFile(path)
			if err != nil {
				return eris.Wrapf(err, "cmd: read %s", path)
			}

			docType := indexDocType
			if docType == "" {
				if parent := filepath.Base(filepath.Dir(path)); parent != filepath.Base(root) && parent != "." {
					docType = parent
				} else {
					docType = "unknown"
				}
			}

			sourceID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			for i, chunk := range retrieval.ChunkText(string(raw), 0) {
				docs = append(docs, retrieval.Document{
					ID:       fmt.Sprintf("%s-%d", sourceID, i),
					Text:     chunk,
					SourceID: sourceID,
					DocType:  docType,
				})
			}
			return nil
		})
		if err != nil {
			return err
		}

		if len(docs) == 0 {
			return eris.Errorf("cmd: no indexable documents under %s", root)
		}

		if err := env.Index.Add(ctx, docs); err != nil {
			return err
		}

		zap.L().Info("indexing complete",
			zap.Int("chunks", len(docs)),
			zap.Int("total", env.Index.Count()))
		fmt.Printf("indexed %d chunks (%d total in collection)\n", len(docs), env.Index.Count())
		return nil
	},
}

func init() {
	indexCmd.Flags().StringVar(&indexDocType, "type", "", "document type for all indexed files (default: parent directory name)")
	rootCmd.AddCommand(indexCmd)
}
