package version_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bavix/dobson/internal/version"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "dev", version.GetVersion())
	assert.Equal(t, version.Version, version.GetVersion())
	assert.Equal(t, version.BuildTime, version.GetBuildTime())
}

func TestBuildTimeFormat(t *testing.T) {
	t.Parallel()

	buildTime := version.GetBuildTime()
	if buildTime != "" {
		_, err := time.Parse(time.RFC3339, buildTime)
		assert.NoError(t, err, "BuildTime should be in RFC3339 format")
	}
}

func TestString(t *testing.T) {
	t.Parallel()

	s := version.String()
	assert.Contains(t, s, version.Version)

	if version.BuildTime == "" {
		assert.Equal(t, version.Version, s)
	} else {
		assert.Contains(t, s, version.BuildTime)
	}
}
