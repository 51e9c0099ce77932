package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"torrent-factory/app/apperr"
	"torrent-factory/app/utils/pathhelper"
)

// FileEntry 条目中的一个文件
type FileEntry struct {
	RelPath  string // 相对条目根目录，使用 / 分隔
	FullPath string
	Size     int64
}

// CollectFiles 递归收集 root 下的文件，跳过隐藏文件和排除规则命中的路径，
// 结果按相对路径字典序排列。root 为文件时返回该文件本身
func CollectFiles(root string, exclude []string) ([]FileEntry, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.NotFound("collect", "源路径不存在: %s", root)
		}
		return nil, apperr.IO("collect", err)
	}

	if !info.IsDir() {
		return []FileEntry{{RelPath: filepath.Base(root), FullPath: root, Size: info.Size()}}, nil
	}

	var files []FileEntry
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if pathhelper.IsHidden(d.Name()) || pathhelper.MatchAny(exclude, d.Name(), rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		// 跟随符号链接，损坏的链接按读取错误处理
		fi, err := os.Stat(path)
		if err != nil {
			return err
		}
		if fi.IsDir() || !fi.Mode().IsRegular() {
			return nil
		}

		files = append(files, FileEntry{RelPath: rel, FullPath: path, Size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, apperr.IO("collect", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

// TotalSize 文件总大小
func TotalSize(files []FileEntry) int64 {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total
}
