package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torrent-factory/app/apperr"
	"torrent-factory/app/logger"
	"torrent-factory/app/model"
)

func validSettings() model.Settings {
	return model.Settings{
		SeriesRoot:   "/media/series",
		SeriesOut:    "/media/torrents/series",
		MoviesRoot:   "/media/movies",
		MoviesOut:    "/media/torrents/movies",
		TrackerURL:   "https://tracker.example/announce",
		Private:      true,
		ShowSize:     true,
		WorkersMax:   2,
		TimeoutSec:   30,
		Exclude:      []string{"*.nfo"},
		Language:     "fr",
		AnalyzeAudio: false,
	}
}

func TestSettingsDefaultsWithoutRow(t *testing.T) {
	db := openTestDB(t)
	s, err := NewSettingsService(db, validSettings(), logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "/media/series", s.Get().SeriesRoot)
}

func TestSettingsSavePersistsAndNotifies(t *testing.T) {
	db := openTestDB(t)
	s, err := NewSettingsService(db, validSettings(), logger.Nop())
	require.NoError(t, err)

	var gotOld, gotNew *model.Settings
	s.OnChange(func(old, cur *model.Settings) {
		gotOld, gotNew = old, cur
	})

	next := validSettings()
	next.WorkersMax = 4
	next.Exclude = []string{" *.txt ", ""}
	saved, err := s.Save(next)
	require.NoError(t, err)
	assert.Equal(t, []string{"*.txt"}, saved.Exclude)
	assert.Equal(t, 4, s.Get().WorkersMax)
	require.NotNil(t, gotOld)
	assert.Equal(t, 2, gotOld.WorkersMax)
	assert.Equal(t, 4, gotNew.WorkersMax)

	// 重新加载后读取数据库中的值
	reloaded, err := NewSettingsService(db, validSettings(), logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, 4, reloaded.Get().WorkersMax)

	// 再次保存走更新分支
	next.WorkersMax = 3
	_, err = s.Save(next)
	require.NoError(t, err)
	var count int64
	require.NoError(t, db.Model(&model.SystemConfig{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSettingsSaveRejectsInvalid(t *testing.T) {
	s, err := NewSettingsService(nil, validSettings(), logger.Nop())
	require.NoError(t, err)

	cases := map[string]func(*model.Settings){
		"relative root":   func(m *model.Settings) { m.SeriesRoot = "media" },
		"bad tracker":     func(m *model.Settings) { m.TrackerURL = "not a url" },
		"piece too small": func(m *model.Settings) { m.PieceSize = 10 },
		"no workers":      func(m *model.Settings) { m.WorkersMax = 0 },
		"zero timeout":    func(m *model.Settings) { m.TimeoutSec = 0 },
		"bad glob":        func(m *model.Settings) { m.Exclude = []string{"[a-"} },
		"bad cron":        func(m *model.Settings) { m.ScanCron = "every day" },
		"bad notify url":  func(m *model.Settings) { m.NotifyURL = "ftp://x" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			next := validSettings()
			mutate(&next)
			_, err := s.Save(next)
			assert.ErrorIs(t, err, apperr.ErrValidation)
			assert.Equal(t, 2, s.Get().WorkersMax, "校验失败时保留旧配置")
		})
	}
}

func TestSettingsGetReturnsCopy(t *testing.T) {
	s, err := NewSettingsService(nil, validSettings(), logger.Nop())
	require.NoError(t, err)

	got := s.Get()
	got.Exclude[0] = "changed"
	assert.Equal(t, "*.nfo", s.Get().Exclude[0])
}
