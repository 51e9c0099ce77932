// Package scanner 扫描媒体根目录并将其中的目录和视频文件整理为媒体库条目
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"torrent-factory/app/apperr"
	"torrent-factory/app/model"
	"torrent-factory/app/utils/langtag"
	"torrent-factory/app/utils/pathhelper"

	"golang.org/x/sync/errgroup"
)

// 计算大小时的并发数
const sizeConcurrency = 4

// Result 一次扫描的结果
type Result struct {
	Items    []model.LibraryItem `json:"items"`
	Warnings []model.ScanWarning `json:"warnings"`
}

type candidate struct {
	item model.LibraryItem
	ok   bool
}

// Scan 扫描 root 的直接子项：剧集每个目录为一部剧，电影每个目录或视频文件为一部电影。
// 单个条目的读取错误只记录为警告，不会中断整个扫描
func Scan(ctx context.Context, root string, kind model.LibraryKind, exclude []string, computeSize bool) (*Result, error) {
	if root == "" {
		return nil, apperr.Validation("scan", "未配置 %s 媒体根目录", kind)
	}
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.Validation("scan", "媒体根目录不存在: %s", root)
		}
		return nil, apperr.IO("scan", err)
	}
	if !info.IsDir() {
		return nil, apperr.Validation("scan", "媒体根目录不是目录: %s", root)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, apperr.IO("scan", err)
	}

	result := &Result{Items: []model.LibraryItem{}, Warnings: []model.ScanWarning{}}
	var mu sync.Mutex
	warn := func(path string, err error) {
		mu.Lock()
		defer mu.Unlock()
		result.Warnings = append(result.Warnings, model.ScanWarning{Path: path, Message: err.Error()})
	}

	candidates := make([]candidate, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if pathhelper.IsHidden(name) || pathhelper.MatchAny(exclude, name, name) {
			continue
		}

		full := filepath.Join(root, name)
		fi, err := os.Stat(full)
		if err != nil {
			warn(full, err)
			continue
		}

		var item model.LibraryItem
		switch {
		case fi.IsDir():
			if _, err := os.ReadDir(full); err != nil {
				warn(full, err)
				continue
			}
			item = model.LibraryItem{Name: name, Path: full, Kind: itemKind(kind)}
		case kind == model.KindMovies && pathhelper.IsVideoFile(name):
			item = model.LibraryItem{Name: pathhelper.TrimVideoExt(name), Path: full, Kind: model.ItemMovie}
		default:
			continue
		}
		item.DetectedTag = string(langtag.Detect(item.Name))
		candidates = append(candidates, candidate{item: item, ok: true})
	}

	if computeSize {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(sizeConcurrency)
		for i := range candidates {
			c := &candidates[i]
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				files, err := CollectFiles(c.item.Path, exclude)
				if err != nil {
					warn(c.item.Path, err)
					c.ok = false
					return nil
				}
				size := TotalSize(files)
				c.item.SizeBytes = &size
				c.item.Size = model.HumanSize(size)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("扫描被中断: %w", err)
		}
	}

	for _, c := range candidates {
		if c.ok {
			result.Items = append(result.Items, c.item)
		}
	}
	sort.Slice(result.Items, func(i, j int) bool { return result.Items[i].Name < result.Items[j].Name })
	sort.Slice(result.Warnings, func(i, j int) bool { return result.Warnings[i].Path < result.Warnings[j].Path })

	return result, nil
}

func itemKind(kind model.LibraryKind) model.ItemKind {
	if kind == model.KindSeries {
		return model.ItemSeries
	}
	return model.ItemMovie
}
