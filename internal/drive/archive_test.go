package drive_test

import (
	"testing"
	"time"

	"github.com/blackwell-systems/shelfkeep/internal/drive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func size(n int64) *int64 { return &n }

func names(list []drive.Archive) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.Name
	}
	return out
}

func sample() []drive.Archive {
	return []drive.Archive{
		{Name: "b", CreatedTime: "2024-02-01T00:00:00Z", Size: size(300)},
		{Name: "nodate", Size: size(100)},
		{Name: "a", CreatedTime: "2024-01-01T00:00:00Z"},
		{Name: "c", CreatedTime: "2024-03-01T00:00:00Z", Size: size(300)},
	}
}

func TestSortArchives(t *testing.T) {
	t.Parallel()

	cases := []struct {
		mode drive.SortMode
		want []string
	}{
		{drive.SortNewest, []string{"c", "b", "a", "nodate"}},
		{drive.SortOldest, []string{"nodate", "a", "b", "c"}},
		{drive.SortLargest, []string{"b", "c", "nodate", "a"}},
		{drive.SortSmallest, []string{"nodate", "b", "c", "a"}},
	}
	for _, tc := range cases {
		t.Run(tc.mode.String(), func(t *testing.T) {
			in := sample()
			got := drive.SortArchives(in, tc.mode)
			assert.Equal(t, tc.want, names(got))
			assert.Equal(t, names(sample()), names(in), "input is not modified")
		})
	}
}

func TestParseSortMode(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]drive.SortMode{
		"":         drive.SortNewest,
		"newest":   drive.SortNewest,
		"OLDEST":   drive.SortOldest,
		"largest":  drive.SortLargest,
		"smallest": drive.SortSmallest,
	} {
		got, err := drive.ParseSortMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := drive.ParseSortMode("random")
	assert.Error(t, err)
}

func TestBackupName(t *testing.T) {
	t.Parallel()

	ts := time.UnixMilli(1700000000123)
	assert.Equal(t, "books_export_1700000000123.zip", drive.BackupName(ts))
	assert.Equal(t, "mine_1700000000123.zip", drive.BackupNameWithPrefix("mine", ts))
}

func TestArchive_Created(t *testing.T) {
	t.Parallel()

	created, ok := drive.Archive{CreatedTime: "2024-01-02T12:00:00.000Z"}.Created()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC), created.UTC())

	_, ok = drive.Archive{}.Created()
	assert.False(t, ok)
	_, ok = drive.Archive{CreatedTime: "yesterday"}.Created()
	assert.False(t, ok)
}
