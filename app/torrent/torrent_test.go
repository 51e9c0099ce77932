package torrent

import (
	"bytes"
	"context"
	"crypto/sha1"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torrent-factory/app/apperr"
	"torrent-factory/app/logger"
	"torrent-factory/app/model"
	"torrent-factory/app/utils/langtag"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i%251)
	}
	return b
}

func testSettings(t *testing.T) *model.Settings {
	out := t.TempDir()
	return &model.Settings{
		SeriesRoot: t.TempDir(),
		SeriesOut:  filepath.Join(out, "series"),
		MoviesRoot: t.TempDir(),
		MoviesOut:  filepath.Join(out, "movies"),
		TrackerURL: "https://tracker.example/announce",
		PieceSize:  15,
		Private:    true,
		WorkersMax: 1,
		TimeoutSec: 5,
		Comment:    "test",
	}
}

func newTestBuilder() *Builder {
	b := NewBuilder(logger.Nop())
	b.Now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return b
}

func TestPieceExponent(t *testing.T) {
	const gib = int64(1) << 30

	assert.Equal(t, 25, PieceExponent(50*gib, 0))
	assert.Equal(t, MinPieceExp, PieceExponent(1, 0))
	assert.Equal(t, MinPieceExp, PieceExponent(2000<<18, 0))
	assert.Equal(t, MinPieceExp+1, PieceExponent(2000<<18+1, 0))
	assert.Equal(t, MaxPieceExp, PieceExponent(1<<50, 0))
	assert.Equal(t, 20, PieceExponent(50*gib, 20), "显式配置优先")

	// 自动选择的分块数落在 1000-2000 之间
	for size := int64(2000) << 18; size <= int64(2000)<<25; size = size*5/4 + 1 {
		pieces := PieceCount(size, int64(1)<<PieceExponent(size, 0))
		assert.GreaterOrEqual(t, pieces, int64(1000), "size=%d", size)
		assert.LessOrEqual(t, pieces, int64(2000), "size=%d", size)
	}
	assert.Equal(t, int64(2000), PieceCount(int64(2000)<<25, int64(1)<<PieceExponent(int64(2000)<<25, 0)))

	prev := 0
	for size := int64(1); size < 1<<46; size *= 3 {
		exp := PieceExponent(size, 0)
		assert.GreaterOrEqual(t, exp, prev)
		assert.GreaterOrEqual(t, exp, MinPieceExp)
		assert.LessOrEqual(t, exp, MaxPieceExp)
		prev = exp
	}
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "Dune Part Two MULTI.torrent", OutputName("Dune Part Two", langtag.Multi))
	assert.Equal(t, "B MULTI.torrent", OutputName("B MULTI", langtag.Multi))
	assert.Equal(t, "Show.torrent", OutputName("Show", langtag.Unknown))
	assert.Equal(t, "a_b FRENCH.torrent", OutputName("a/b", langtag.French))
}

func TestEpisodeName(t *testing.T) {
	tests := []struct {
		rel  string
		want string
	}{
		{"Season 2/E01.mkv", "Show S02 E01"},
		{"S01/Show S01E02.mkv", "Show S01E02"},
		{"Saison 1/Show - E03.mp4", "Show S01 E03"},
		{"Show.S02E05.mkv", "Show S02E05"},
		{"E04.mkv", "Show E04"},
		{"Showtime 01.mkv", "Show Showtime 01"},
		{"Specials/Pilot.mkv", "Show Specials Pilot"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, episodeName("Show", tt.rel), tt.rel)
	}
}

func TestOutputNamesAreUniqueWithinItem(t *testing.T) {
	units := []Unit{{Name: "Show S01"}, {Name: "show s01"}, {Name: "Show S01"}, {Name: "Show S02"}}
	assert.Equal(t, []string{
		"Show S01 VO.torrent",
		"show s01 VO (2).torrent",
		"Show S01 VO (3).torrent",
		"Show S02 VO.torrent",
	}, outputNames(units, langtag.VO))
}

func TestSeasonLabel(t *testing.T) {
	assert.Equal(t, "S01", seasonLabel("Season 1"))
	assert.Equal(t, "S02", seasonLabel("Saison 02"))
	assert.Equal(t, "S10", seasonLabel("S10"))
	assert.Equal(t, "Specials", seasonLabel("Specials"))
}

func TestBuildSingleFileMovie(t *testing.T) {
	s := testSettings(t)
	content := pattern(100_000, 7)
	src := filepath.Join(s.MoviesRoot, "Dune Part Two.mkv")
	writeFile(t, src, content)

	var last int64
	res, err := newTestBuilder().BuildItem(context.Background(), model.KindMovies,
		model.TaskItem{Name: "Dune Part Two", Path: src, Mode: model.ModeMovie, LangTag: "FRENCH"}, s,
		func(done, total int64) {
			assert.GreaterOrEqual(t, done, last)
			assert.Equal(t, int64(len(content)), total)
			last = done
		})
	require.NoError(t, err)
	require.Len(t, res.Units, 1)
	assert.Equal(t, int64(len(content)), last)

	u := res.Units[0]
	assert.Equal(t, filepath.Join(s.MoviesOut, "Dune Part Two FRENCH.torrent"), u.OutputPath)
	assert.Equal(t, int64(1<<15), u.PieceLength)
	assert.Equal(t, 4, u.Pieces)

	mi, err := metainfo.LoadFromFile(u.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, s.TrackerURL, mi.Announce)
	assert.Equal(t, "test", mi.Comment)
	assert.Equal(t, DefaultCreatedBy, mi.CreatedBy)
	assert.Equal(t, u.InfoHash, mi.HashInfoBytes().HexString())

	info, err := mi.UnmarshalInfo()
	require.NoError(t, err)
	assert.Equal(t, "Dune Part Two.mkv", info.Name)
	assert.Equal(t, int64(len(content)), info.Length)
	assert.Empty(t, info.Files)
	require.NotNil(t, info.Private)
	assert.True(t, *info.Private)

	// 逐块校验哈希
	for i := 0; i < 4; i++ {
		end := (i + 1) << 15
		if end > len(content) {
			end = len(content)
		}
		sum := sha1.Sum(content[i<<15 : end])
		assert.Equal(t, sum[:], info.Pieces[i*HashSize:(i+1)*HashSize])
	}
}

func TestBuildMultiFileOrderAndHashes(t *testing.T) {
	s := testSettings(t)
	dir := filepath.Join(s.SeriesRoot, "Show")
	a := pattern(40_000, 1)
	b := pattern(30_000, 2)
	writeFile(t, filepath.Join(dir, "b.mkv"), b)
	writeFile(t, filepath.Join(dir, "Season 1", "a.mkv"), a)
	writeFile(t, filepath.Join(dir, ".hidden"), []byte("x"))
	writeFile(t, filepath.Join(dir, "notes.nfo"), []byte("skip"))
	s.Exclude = []string{"*.nfo"}

	res, err := newTestBuilder().BuildItem(context.Background(), model.KindSeries,
		model.TaskItem{Name: "Show", Path: dir, Mode: model.ModeComplete, LangTag: "MULTI"}, s, nil)
	require.NoError(t, err)
	require.Len(t, res.Units, 1)

	mi, err := metainfo.LoadFromFile(res.Units[0].OutputPath)
	require.NoError(t, err)
	info, err := mi.UnmarshalInfo()
	require.NoError(t, err)

	require.Len(t, info.Files, 2)
	assert.Equal(t, []string{"Season 1", "a.mkv"}, info.Files[0].Path)
	assert.Equal(t, []string{"b.mkv"}, info.Files[1].Path)
	assert.Equal(t, "Show", info.Name)

	stream := append(append([]byte(nil), a...), b...)
	var expected []byte
	for off := 0; off < len(stream); off += 1 << 15 {
		end := off + 1<<15
		if end > len(stream) {
			end = len(stream)
		}
		sum := sha1.Sum(stream[off:end])
		expected = append(expected, sum[:]...)
	}
	assert.Equal(t, expected, info.Pieces)
}

func TestBuildInfoIsDeterministic(t *testing.T) {
	s := testSettings(t)
	src := filepath.Join(s.MoviesRoot, "Film")
	writeFile(t, filepath.Join(src, "film.mkv"), pattern(50_000, 3))
	writeFile(t, filepath.Join(src, "film.srt"), pattern(500, 4))
	item := model.TaskItem{Name: "Film", Path: src, Mode: model.ModeMovie, LangTag: "VO"}

	b1 := newTestBuilder()
	r1, err := b1.BuildItem(context.Background(), model.KindMovies, item, s, nil)
	require.NoError(t, err)

	b2 := newTestBuilder()
	b2.Now = func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }
	r2, err := b2.BuildItem(context.Background(), model.KindMovies, item, s, nil)
	require.NoError(t, err)

	assert.Equal(t, r1.Units[0].InfoHash, r2.Units[0].InfoHash)
	assert.False(t, bytes.Equal(r1.Units[0].Data, r2.Units[0].Data), "creation date 不同")
}

func TestPlanSeasonMode(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "The Last of Us")
	writeFile(t, filepath.Join(dir, "Season 2", "e1.mkv"), pattern(10, 1))
	writeFile(t, filepath.Join(dir, "Season 1", "e1.mkv"), pattern(10, 1))
	writeFile(t, filepath.Join(dir, "extra.mkv"), pattern(10, 1))

	plan, err := NewPlan(model.KindSeries, model.TaskItem{Name: "The Last of Us", Path: dir, Mode: model.ModeSeason}, nil)
	require.NoError(t, err)
	require.Len(t, plan.Units, 3)
	assert.Equal(t, "The Last of Us S01", plan.Units[0].Name)
	assert.Equal(t, "The Last of Us S02", plan.Units[1].Name)
	assert.Equal(t, "The Last of Us", plan.Units[2].Name)
	assert.Equal(t, int64(30), plan.TotalSize)
	assert.Len(t, plan.VideoFiles(), 3)
}

func TestPlanSeasonWithoutSubdirs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Mini")
	writeFile(t, filepath.Join(dir, "e1.mkv"), pattern(10, 1))
	writeFile(t, filepath.Join(dir, "e2.mkv"), pattern(10, 1))

	plan, err := NewPlan(model.KindSeries, model.TaskItem{Name: "Mini", Path: dir, Mode: model.ModeSeason}, nil)
	require.NoError(t, err)
	require.Len(t, plan.Units, 1)
	assert.Len(t, plan.Units[0].Files, 2)
}

func TestPlanEpisodeMode(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Show")
	writeFile(t, filepath.Join(dir, "S01", "Show S01E01.mkv"), pattern(10, 1))
	writeFile(t, filepath.Join(dir, "S01", "Show S01E02.mkv"), pattern(10, 1))
	writeFile(t, filepath.Join(dir, "S01", "Show S01E02.nfo"), pattern(10, 1))

	plan, err := NewPlan(model.KindSeries, model.TaskItem{Name: "Show", Path: dir, Mode: model.ModeEpisode}, nil)
	require.NoError(t, err)
	require.Len(t, plan.Units, 2)
	assert.Equal(t, "Show S01E01", plan.Units[0].Name)
	assert.True(t, plan.Units[0].Single)
}

func TestBuildEpisodesFromDifferentSeasonsKeepAllOutputs(t *testing.T) {
	s := testSettings(t)
	dir := filepath.Join(s.SeriesRoot, "Show")
	writeFile(t, filepath.Join(dir, "Season 1", "E01.mkv"), pattern(5_000, 1))
	writeFile(t, filepath.Join(dir, "Season 2", "E01.mkv"), pattern(6_000, 2))

	res, err := newTestBuilder().BuildItem(context.Background(), model.KindSeries,
		model.TaskItem{Name: "Show", Path: dir, Mode: model.ModeEpisode, LangTag: "VO"}, s, nil)
	require.NoError(t, err)
	require.Len(t, res.Units, 2)
	assert.Equal(t, filepath.Join(s.SeriesOut, "Show S01 E01 VO.torrent"), res.Units[0].OutputPath)
	assert.Equal(t, filepath.Join(s.SeriesOut, "Show S02 E01 VO.torrent"), res.Units[1].OutputPath)

	entries, err := os.ReadDir(s.SeriesOut)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "每个单元都有独立的输出文件")
}

func TestBuildSeasonFoldersWithSameLabel(t *testing.T) {
	s := testSettings(t)
	s.Comment = ""
	dir := filepath.Join(s.SeriesRoot, "Show")
	writeFile(t, filepath.Join(dir, "S01", "a.mkv"), pattern(5_000, 1))
	writeFile(t, filepath.Join(dir, "Season 1", "b.mkv"), pattern(6_000, 2))

	res, err := newTestBuilder().BuildItem(context.Background(), model.KindSeries,
		model.TaskItem{Name: "Show", Path: dir, Mode: model.ModeSeason, LangTag: "VO"}, s, nil)
	require.NoError(t, err)
	require.Len(t, res.Units, 2)
	assert.Equal(t, filepath.Join(s.SeriesOut, "Show S01 VO.torrent"), res.Units[0].OutputPath)
	assert.Equal(t, filepath.Join(s.SeriesOut, "Show S01 VO (2).torrent"), res.Units[1].OutputPath)
	for _, u := range res.Units {
		assert.FileExists(t, u.OutputPath)
	}

	mi, err := metainfo.LoadFromFile(res.Units[1].OutputPath)
	require.NoError(t, err)
	info, err := mi.UnmarshalInfo()
	require.NoError(t, err)
	assert.Equal(t, "Show S01", info.Name, "info 中使用剧名而不是目录名")
	assert.Equal(t, []string{"b.mkv"}, info.Files[0].Path)
	assert.Equal(t, DefaultComment, mi.Comment, "未配置备注时写入默认 comment")
}

func TestPlanErrors(t *testing.T) {
	root := t.TempDir()

	_, err := NewPlan(model.KindMovies, model.TaskItem{Name: "x", Path: filepath.Join(root, "missing")}, nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	empty := filepath.Join(root, "empty.mkv")
	writeFile(t, empty, nil)
	_, err = NewPlan(model.KindMovies, model.TaskItem{Name: "empty", Path: empty}, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "nothing"), 0o755))
	_, err = NewPlan(model.KindMovies, model.TaskItem{Name: "nothing", Path: filepath.Join(root, "nothing")}, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestBuildCancelledBeforeStart(t *testing.T) {
	s := testSettings(t)
	src := filepath.Join(s.MoviesRoot, "A.mkv")
	writeFile(t, src, pattern(100_000, 5))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestBuilder().BuildItem(ctx, model.KindMovies, model.TaskItem{Name: "A", Path: src}, s, nil)
	assert.True(t, errors.Is(err, ErrCancelled))

	entries, err := os.ReadDir(s.MoviesOut)
	require.NoError(t, err)
	assert.Empty(t, entries, "临时文件已删除")
}

func TestBuildCancelRemovesWrittenUnits(t *testing.T) {
	s := testSettings(t)
	dir := filepath.Join(s.SeriesRoot, "Show")
	writeFile(t, filepath.Join(dir, "Season 1", "e1.mkv"), pattern(40_000, 1))
	writeFile(t, filepath.Join(dir, "Season 2", "e1.mkv"), pattern(100_000, 2))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := newTestBuilder()
	plan, err := b.Plan(model.KindSeries, model.TaskItem{Name: "Show", Path: dir, Mode: model.ModeSeason}, nil)
	require.NoError(t, err)
	first := plan.Units[0].Size

	_, err = b.Build(ctx, plan, s, langtag.Multi, func(done, total int64) {
		if done > first {
			cancel()
		}
	})
	require.ErrorIs(t, err, ErrCancelled)

	entries, err := os.ReadDir(s.SeriesOut)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
