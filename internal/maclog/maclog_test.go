package maclog_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bavix/dobson/internal/maclog"
)

func TestLine(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, time.March, 5, 9, 7, 42, 123, time.UTC)

	assert.Equal(t,
		"2024-03-05T09:07:00 74:4a:a4:cc:81:a1 00:1a:2b:3c:4d:5e\n",
		maclog.Line(at, []string{"74:4A:A4:CC:81:A1", "00-1a-2b-3c-4d-5e"}))
	assert.Equal(t, "2024-03-05T09:07:00 \n", maclog.Line(at, nil))
}

func TestAppend(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "macs.log")

	clock := time.Date(2024, time.March, 5, 9, 7, 42, 0, time.UTC)
	l := maclog.New(path, func() time.Time { return clock })

	require.NoError(t, l.Append([]string{"aa:bb:cc:dd:ee:ff"}))

	clock = clock.Add(time.Minute)
	require.NoError(t, l.Append([]string{"aa:bb:cc:dd:ee:ff", "11:22:33:44:55:66"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"2024-03-05T09:07:00 aa:bb:cc:dd:ee:ff\n2024-03-05T09:08:00 aa:bb:cc:dd:ee:ff 11:22:33:44:55:66\n",
		string(data))
	assert.Equal(t, path, l.Path())
}
