package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"account-dispenser/services"
)

var ingestFile string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Add credential records from a YAML or JSON file",
	Long: `Add credential records from a file. The file is either a list of entries
or a document with an "entries" key:

  entries:
    - secret: "user:pass"
      categories: ["Portal 2", "Half-Life"]

Malformed entries are skipped and counted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := loadIngestFile(ingestFile)
		if err != nil {
			return err
		}
		res, err := current.d.Ingest(entries)
		if err != nil {
			return err
		}
		current.log.Info("📥 ingest finished", zap.String("file", ingestFile), zap.Int("added", res.Added), zap.Int("skipped", res.Skipped))
		fmt.Fprintf(cmd.OutOrStdout(), "added %d, skipped %d\n", res.Added, res.Skipped)
		return nil
	},
}

var restockCmd = &cobra.Command{
	Use:   "restock",
	Short: "Return every claimed record to the pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		restored, err := current.d.Restock()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "restocked %d records\n", restored)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print pool, ledger and report totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := current.d.GlobalStats()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "YAML or JSON file with entries")
	_ = ingestCmd.MarkFlagRequired("file")
}

type ingestDocument struct {
	Entries []services.IngestEntry `yaml:"entries"`
}

func loadIngestFile(path string) ([]services.IngestEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return parseIngestEntries(raw)
}

// parseIngestEntries accepts a bare list of entries or an {entries: [...]} document.
func parseIngestEntries(raw []byte) ([]services.IngestEntry, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("parse entries: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var entries []services.IngestEntry
		if err := root.Decode(&entries); err != nil {
			return nil, fmt.Errorf("parse entries: %w", err)
		}
		return entries, nil
	}

	var doc ingestDocument
	if err := root.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse entries: %w", err)
	}
	return doc.Entries, nil
}
