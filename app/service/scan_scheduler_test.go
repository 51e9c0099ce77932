package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torrent-factory/app/logger"
)

func TestSchedulerApply(t *testing.T) {
	settings, err := NewSettingsService(nil, validSettings(), logger.Nop())
	require.NoError(t, err)
	s := NewScanScheduler(NewLibraryService(settings, logger.Nop()), logger.Nop())

	require.NoError(t, s.Apply("*/5 * * * *"))
	require.NotNil(t, s.cron)
	assert.Len(t, s.cron.Entries(), 1)

	assert.Error(t, s.Apply("not cron"))
	assert.Nil(t, s.cron, "无效表达式不会保留旧的调度")

	require.NoError(t, s.Apply("0 3 * * *"))
	require.NoError(t, s.Apply(""))
	assert.Nil(t, s.cron)
	s.Stop()
}
