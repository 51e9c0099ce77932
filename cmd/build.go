package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"torrent-factory/app/config"
	"torrent-factory/app/logger"
	"torrent-factory/app/model"
	"torrent-factory/app/torrent"
	"torrent-factory/app/utils/pathhelper"

	"github.com/spf13/cobra"
)

var buildOpts struct {
	kind string
	mode string
	tag  string
	out  string
}

var buildCmd = &cobra.Command{
	Use:   "build <path>",
	Short: "为单个目录或文件生成种子",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := model.ParseLibraryKind(buildOpts.kind)
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
		if buildOpts.out != "" {
			if kind == model.KindSeries {
				settings.SeriesOut = buildOpts.out
			} else {
				settings.MoviesOut = buildOpts.out
			}
		}
		settings.Normalize()
		if err := settings.Validate(); err != nil {
			return err
		}

		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		item := model.TaskItem{
			Name:    pathhelper.TrimVideoExt(filepath.Base(path)),
			Path:    path,
			LangTag: buildOpts.tag,
		}
		if buildOpts.mode != "" {
			if item.Mode, err = model.ParseMode(buildOpts.mode); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		last := -1
		builder := torrent.NewBuilder(logger.Nop())
		result, err := builder.BuildItem(ctx, kind, item, &settings, func(done, total int64) {
			pct := 100
			if total > 0 {
				pct = int(done * 100 / total)
			}
			if pct != last {
				last = pct
				fmt.Fprintf(os.Stderr, "\r[%3d%%] %s", pct, item.Name)
			}
		})
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}

		for _, u := range result.Units {
			fmt.Printf("✅ %s\n   info hash: %s  分块: %d x %d\n", u.OutputPath, u.InfoHash, u.Pieces, u.PieceLength)
		}
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVarP(&buildOpts.kind, "kind", "k", "movies", "媒体类型 series 或 movies")
	buildCmd.Flags().StringVarP(&buildOpts.mode, "mode", "m", "", "生成模式 complete、season、episode 或 movie")
	buildCmd.Flags().StringVarP(&buildOpts.tag, "tag", "t", "", "语言标签，为空时根据名称识别")
	buildCmd.Flags().StringVarP(&buildOpts.out, "out", "o", "", "输出目录，默认使用配置中的目录")
	rootCmd.AddCommand(buildCmd)
}
