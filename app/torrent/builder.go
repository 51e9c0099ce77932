package torrent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"torrent-factory/app/apperr"
	"torrent-factory/app/logger"
	"torrent-factory/app/model"
	"torrent-factory/app/utils/langtag"
	"torrent-factory/app/utils/pathhelper"
)

// DefaultCreatedBy 写入种子 created by 字段
const DefaultCreatedBy = "Torrent Factory"

// DefaultComment 未配置备注时写入的 comment
const DefaultComment = "Created with Torrent Factory"

// ProgressFunc 构建进度回调，done 与 total 均为整个条目的字节数
type ProgressFunc func(done, total int64)

// UnitResult 单个种子的构建结果
type UnitResult struct {
	Name        string `json:"name"`
	OutputPath  string `json:"output_path"`
	InfoHash    string `json:"info_hash"`
	PieceLength int64  `json:"piece_length"`
	Pieces      int    `json:"pieces"`
	TotalSize   int64  `json:"total_size"`
	Data        []byte `json:"-"`
}

// Result 一个条目的构建结果
type Result struct {
	Units []UnitResult `json:"units"`
}

// OutputPaths 返回全部输出文件路径
func (r *Result) OutputPaths() []string {
	paths := make([]string, 0, len(r.Units))
	for _, u := range r.Units {
		paths = append(paths, u.OutputPath)
	}
	return paths
}

// Builder 种子生成器，无状态，可并发使用
type Builder struct {
	CreatedBy string
	Now       func() time.Time
	log       *logger.Logger
}

// NewBuilder 创建种子生成器
func NewBuilder(log *logger.Logger) *Builder {
	return &Builder{CreatedBy: DefaultCreatedBy, Now: time.Now, log: log}
}

// OutputName 生成输出文件名：<名称> <标签>.torrent，名称已带标签时不重复添加
func OutputName(name string, tag langtag.Tag) string {
	name = strings.TrimSpace(pathhelper.SafeFileName(name))
	if tag != langtag.Unknown && !langtag.HasSuffix(name, tag) {
		name += " " + string(tag)
	}
	return name + ".torrent"
}

// Plan 生成条目的构建计划
func (b *Builder) Plan(kind model.LibraryKind, item model.TaskItem, exclude []string) (*Plan, error) {
	return NewPlan(kind, item, exclude)
}

// Build 按计划生成全部种子。取消时返回 ErrCancelled，
// 并删除本条目已经写出的种子文件
func (b *Builder) Build(ctx context.Context, plan *Plan, settings *model.Settings, tag langtag.Tag, progress ProgressFunc) (*Result, error) {
	outDir := settings.OutDir(plan.Kind)
	if outDir == "" {
		return nil, apperr.Validation("build", "未配置 %s 的输出目录", plan.Kind)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, apperr.IO("build", err)
	}

	names := outputNames(plan.Units, tag)
	result := &Result{}
	var offset int64
	for i, unit := range plan.Units {
		base := offset
		ur, err := b.buildUnit(ctx, unit, settings, filepath.Join(outDir, names[i]), outDir, func(hashed int64) {
			if progress != nil {
				progress(base+hashed, plan.TotalSize)
			}
		})
		if err != nil {
			if errors.Is(err, ErrCancelled) {
				b.removeOutputs(result.OutputPaths())
			}
			return nil, err
		}
		result.Units = append(result.Units, *ur)
		offset += unit.Size
	}
	return result, nil
}

// BuildItem 规划并构建单个条目，tag 为空时使用条目指定的标签或根据名称识别
func (b *Builder) BuildItem(ctx context.Context, kind model.LibraryKind, item model.TaskItem, settings *model.Settings, progress ProgressFunc) (*Result, error) {
	plan, err := b.Plan(kind, item, settings.Exclude)
	if err != nil {
		return nil, err
	}
	tag := langtag.Normalize(item.LangTag)
	if tag == langtag.Unknown {
		tag = langtag.Detect(plan.Item.Name)
	}
	return b.Build(ctx, plan, settings, tag, progress)
}

// outputNames 为每个单元生成输出文件名，同一条目内重名时依次追加 (2) (3)
func outputNames(units []Unit, tag langtag.Tag) []string {
	names := make([]string, len(units))
	taken := make(map[string]bool, len(units))
	for i, u := range units {
		name := OutputName(u.Name, tag)
		base := strings.TrimSuffix(name, ".torrent")
		for n := 2; taken[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s (%d).torrent", base, n)
		}
		taken[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

func (b *Builder) buildUnit(ctx context.Context, unit Unit, settings *model.Settings, outPath, outDir string, onPiece func(int64)) (*UnitResult, error) {
	tmp, err := os.CreateTemp(outDir, ".tf-*.torrent.part")
	if err != nil {
		return nil, apperr.IO("build", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	pieceLength := int64(1) << PieceExponent(unit.Size, settings.PieceSize)
	pieces, err := hashPieces(ctx, unit.Files, pieceLength, onPiece)
	if err != nil {
		return nil, err
	}

	comment := settings.Comment
	if comment == "" {
		comment = DefaultComment
	}
	data, infoHash, err := encodeTorrent(encodeInput{
		Unit:        unit,
		PieceLength: pieceLength,
		Pieces:      pieces,
		Private:     settings.Private,
		Announce:    settings.TrackerURL,
		Comment:     comment,
		CreatedBy:   b.CreatedBy,
		CreatedAt:   b.now(),
	})
	if err != nil {
		return nil, err
	}

	if _, err := tmp.Write(data); err != nil {
		return nil, apperr.IO("build", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, apperr.IO("build", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return nil, apperr.IO("build", err)
	}
	committed = true

	b.log.Debugf("种子已写入: %s (info hash %s)", outPath, infoHash)
	return &UnitResult{
		Name:        unit.Name,
		OutputPath:  outPath,
		InfoHash:    infoHash,
		PieceLength: pieceLength,
		Pieces:      len(pieces) / HashSize,
		TotalSize:   unit.Size,
		Data:        data,
	}, nil
}

func (b *Builder) now() time.Time {
	if b.Now == nil {
		return time.Now()
	}
	return b.Now()
}

func (b *Builder) removeOutputs(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			b.log.Warnf("删除已取消任务的种子失败: %s, %v", p, err)
		}
	}
}
