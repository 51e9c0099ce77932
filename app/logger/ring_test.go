package logger

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torrent-factory/app/config"
)

func TestRingKeepsNewestEntries(t *testing.T) {
	r := NewRing(3)
	for i := 0; i < 5; i++ {
		r.Append(time.Date(2024, 1, 1, 14, 20, i, 0, time.UTC), fmt.Sprintf("msg %d", i), "info")
	}

	entries := r.Since(0)
	require.Len(t, entries, 3)
	assert.Equal(t, int64(3), entries[0].ID)
	assert.Equal(t, "msg 4", entries[2].Msg)
	assert.Equal(t, "14:20:04", entries[2].Time)
}

func TestRingWrapsAroundManyTimes(t *testing.T) {
	r := NewRing(4)
	for i := 1; i <= 1003; i++ {
		r.Append(time.Now(), fmt.Sprintf("msg %d", i), "info")
	}

	entries := r.Since(0)
	require.Len(t, entries, 4)
	for i, e := range entries {
		assert.Equal(t, int64(1000+i), e.ID)
		assert.Equal(t, fmt.Sprintf("msg %d", 1000+i), e.Msg)
	}

	newer := r.Since(1001)
	require.Len(t, newer, 2)
	assert.Equal(t, int64(1002), newer[0].ID)

	r.Clear()
	r.Append(time.Now(), "after clear", "info")
	entries = r.Since(0)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1004), entries[0].ID)
}

func TestRingSinceAndClear(t *testing.T) {
	r := NewRing(10)
	first := r.Append(time.Now(), "a", "info")
	r.Append(time.Now(), "b", "error")

	entries := r.Since(first)
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].Msg)

	r.Clear()
	assert.Empty(t, r.Since(0))

	id := r.Append(time.Now(), "c", "info")
	assert.Equal(t, int64(3), id, "ID 在清空后继续递增")
}

func TestLoggerFeedsRing(t *testing.T) {
	log := New(config.LogConfig{Level: "info", Format: "text", Output: "stdout", RingSize: 10})

	log.Debugf("不会进入页面日志")
	log.Infof("扫描完成: %d 个条目", 4)
	log.Warnf("跳过 %s", "x")
	log.Errorf("失败: %v", errors.New("boom"))
	log.Successf("种子已创建: %s", "Dune.torrent")

	entries := log.Ring().Since(0)
	require.Len(t, entries, 4)
	assert.Equal(t, "扫描完成: 4 个条目", entries[0].Msg)
	assert.Equal(t, "info", entries[0].Level)
	assert.Equal(t, "warning", entries[1].Level)
	assert.Equal(t, "error", entries[2].Level)
	assert.Equal(t, LevelSuccess, entries[3].Level)
}

func TestNopLoggerStillRecords(t *testing.T) {
	log := Nop()
	log.Infof("hello")
	require.Len(t, log.Ring().Since(0), 1)
}
