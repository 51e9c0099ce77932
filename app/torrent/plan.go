package torrent

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"torrent-factory/app/apperr"
	"torrent-factory/app/model"
	"torrent-factory/app/scanner"
	"torrent-factory/app/utils/pathhelper"
)

// Unit 一个输出种子对应的文件集合
type Unit struct {
	Name     string // 输出文件名（不含标签和扩展名）
	InfoName string // info 字典中的 name
	Root     string // 单文件时为文件路径，多文件时为顶层目录
	Single   bool
	Files    []scanner.FileEntry
	Size     int64
}

// Plan 一个条目的构建计划
type Plan struct {
	Kind      model.LibraryKind
	Item      model.TaskItem
	Mode      model.Mode
	Units     []Unit
	TotalSize int64
}

// VideoFiles 返回计划中所有视频文件的完整路径
func (p *Plan) VideoFiles() []string {
	var files []string
	for _, u := range p.Units {
		for _, f := range u.Files {
			if pathhelper.IsVideoFile(f.RelPath) {
				files = append(files, f.FullPath)
			}
		}
	}
	return files
}

var seasonPattern = regexp.MustCompile(`(?i)(?:^|[^a-z])(?:season|saison|s)[ ._-]*0*(\d{1,3})(?:$|[^0-9])`)

// seasonLabel 把季目录名转换为 S01 形式，无法识别时返回原名
func seasonLabel(dir string) string {
	m := seasonPattern.FindStringSubmatch(dir)
	if m == nil {
		return dir
	}
	n, _ := strconv.Atoi(m[1])
	return fmt.Sprintf("S%02d", n)
}

// DefaultMode 条目未指定模式时使用的默认值
func DefaultMode(kind model.LibraryKind) model.Mode {
	if kind == model.KindMovies {
		return model.ModeMovie
	}
	return model.ModeComplete
}

// NewPlan 按生成模式把条目拆分为若干个输出单元
func NewPlan(kind model.LibraryKind, item model.TaskItem, exclude []string) (*Plan, error) {
	info, err := os.Stat(item.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.NotFound("plan", "源路径不存在: %s", item.Path)
		}
		return nil, apperr.IO("plan", err)
	}

	name := item.Name
	if name == "" {
		name = pathhelper.TrimVideoExt(filepath.Base(item.Path))
	}

	mode := item.Mode
	if mode == "" {
		mode = DefaultMode(kind)
	}

	p := &Plan{Kind: kind, Item: item, Mode: mode}
	switch {
	case !info.IsDir():
		p.addFile(name, item.Path, info.Size())
	case mode == model.ModeSeason:
		err = p.planSeasons(name, item.Path, exclude)
	case mode == model.ModeEpisode:
		err = p.planEpisodes(name, item.Path, exclude)
	default:
		err = p.addDir(name, item.Path, exclude)
	}
	if err != nil {
		return nil, err
	}

	if len(p.Units) == 0 {
		return nil, apperr.Validation("plan", "%s 中没有可用的文件", item.Path)
	}
	for _, u := range p.Units {
		if u.Size == 0 {
			return nil, apperr.Validation("plan", "%s 的总大小为 0 字节", u.Root)
		}
		p.TotalSize += u.Size
	}
	return p, nil
}

func (p *Plan) addFile(name, path string, size int64) {
	p.Units = append(p.Units, Unit{
		Name:     name,
		InfoName: filepath.Base(path),
		Root:     path,
		Single:   true,
		Files:    []scanner.FileEntry{{RelPath: filepath.Base(path), FullPath: path, Size: size}},
		Size:     size,
	})
}

func (p *Plan) addDir(name, dir string, exclude []string) error {
	files, err := scanner.CollectFiles(dir, exclude)
	if err != nil {
		return err
	}
	p.addFiles(name, dir, files)
	return nil
}

func (p *Plan) addFiles(name, dir string, files []scanner.FileEntry) {
	if len(files) == 0 {
		return
	}
	p.Units = append(p.Units, Unit{
		Name:     name,
		InfoName: pathhelper.SafeFileName(name),
		Root:     dir,
		Files:    files,
		Size:     scanner.TotalSize(files),
	})
}

// planSeasons 每个一级子目录一个种子，根目录下的散落文件单独成一个种子
func (p *Plan) planSeasons(name, dir string, exclude []string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return apperr.IO("plan", err)
	}

	var seasons []string
	var loose []scanner.FileEntry
	for _, e := range entries {
		if pathhelper.IsHidden(e.Name()) || pathhelper.MatchAny(exclude, e.Name(), e.Name()) {
			continue
		}
		full := filepath.Join(dir, e.Name())
		st, err := os.Stat(full)
		if err != nil {
			return apperr.IO("plan", err)
		}
		if st.IsDir() {
			seasons = append(seasons, e.Name())
			continue
		}
		loose = append(loose, scanner.FileEntry{RelPath: e.Name(), FullPath: full, Size: st.Size()})
	}

	if len(seasons) == 0 {
		return p.addDir(name, dir, exclude)
	}

	sort.Strings(seasons)
	for _, s := range seasons {
		if err := p.addDir(name+" "+seasonLabel(s), filepath.Join(dir, s), exclude); err != nil {
			return err
		}
	}
	sort.Slice(loose, func(i, j int) bool { return loose[i].RelPath < loose[j].RelPath })
	p.addFiles(name, dir, loose)
	return nil
}

// planEpisodes 每个视频文件一个单文件种子
func (p *Plan) planEpisodes(name, dir string, exclude []string) error {
	files, err := scanner.CollectFiles(dir, exclude)
	if err != nil {
		return err
	}
	for _, f := range files {
		if !pathhelper.IsVideoFile(f.RelPath) {
			continue
		}
		p.addFile(episodeName(name, f.RelPath), f.FullPath, f.Size)
	}
	return nil
}

// episodeName 以剧名开头并补上所在目录的季标签，例如 Season 2/E01.mkv -> Show S02 E01。
// 文件名本身已包含的剧名和季标签不再重复
func episodeName(item, relPath string) string {
	base := pathhelper.TrimVideoExt(filepath.Base(relPath))
	rest := base
	if len(base) >= len(item) && strings.EqualFold(base[:len(item)], item) &&
		(len(base) == len(item) || strings.ContainsRune(" ._-", rune(base[len(item)]))) {
		rest = strings.TrimLeft(base[len(item):], " ._-")
	}

	parts := []string{item}
	if parent := filepath.Dir(relPath); parent != "." {
		if label := seasonLabel(filepath.Base(parent)); seasonLabel(rest) != label {
			parts = append(parts, label)
		}
	}
	if rest != "" {
		parts = append(parts, rest)
	}
	return strings.Join(parts, " ")
}
