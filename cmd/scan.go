package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"torrent-factory/app/config"
	"torrent-factory/app/model"
	"torrent-factory/app/scanner"

	"github.com/spf13/cobra"
)

var scanJSON bool

var scanCmd = &cobra.Command{
	Use:   "scan <series|movies>",
	Short: "扫描媒体库并输出条目",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := model.ParseLibraryKind(args[0])
		if err != nil {
			return err
		}
		cfg, err := config.LoadE()
		if err != nil {
			return err
		}
		settings, err := loadSettings(cfg)
		if err != nil {
			return err
		}
		settings.Normalize()

		result, err := scanner.Scan(context.Background(), settings.Root(kind), kind, settings.Exclude, true)
		if err != nil {
			return err
		}

		if scanJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		for _, item := range result.Items {
			tag := item.DetectedTag
			if tag == "" {
				tag = "-"
			}
			fmt.Printf("%-8s %10s  %s\n", tag, item.Size, item.Name)
		}
		for _, w := range result.Warnings {
			fmt.Fprintf(os.Stderr, "⚠️  %s: %s\n", w.Path, w.Message)
		}
		fmt.Printf("共 %d 个条目\n", len(result.Items))
		return nil
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "以 JSON 格式输出")
	rootCmd.AddCommand(scanCmd)
}
