package logger

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	dev, err := New(true)
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zap.DebugLevel))

	prod, err := New(false)
	require.NoError(t, err)
	assert.False(t, prod.Core().Enabled(zap.DebugLevel))
	assert.True(t, prod.Core().Enabled(zap.InfoLevel))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := zap.NewExample()
	assert.Same(t, l, OrNop(l))
}

func TestLevelForStatus(t *testing.T) {
	assert.Equal(t, zap.InfoLevel, LevelForStatus(200))
	assert.Equal(t, zap.WarnLevel, LevelForStatus(404))
	assert.Equal(t, zap.ErrorLevel, LevelForStatus(503))
}

func TestRequestFields(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/staff?locationId=loc", nil)
	fields := RequestFields(r)
	require.Len(t, fields, 4)
	assert.Equal(t, "path", fields[1].Key)
	assert.Equal(t, "/api/staff", fields[1].String)
}
