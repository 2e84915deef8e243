package locker_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forscht/relock/pkg/locker"
)

func TestPathResolver_Clean(t *testing.T) {
	resolve := locker.PathResolver(afero.NewMemMapFs())

	tt := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Already clean", input: "/data/file", expected: "/data/file"},
		{name: "Dot segments", input: "/data/./x/../file", expected: "/data/file"},
		{name: "Trailing slash", input: "/data/dir/", expected: "/data/dir"},
		{name: "Double slash", input: "//data//file", expected: "/data/file"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, resolve(tc.input))
		})
	}
}

func TestPathResolver_Symlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	require.NoError(t, os.Symlink(target, filepath.Join(dir, "abs")))
	require.NoError(t, os.Symlink("target", filepath.Join(dir, "rel")))
	require.NoError(t, os.Symlink("rel", filepath.Join(dir, "chain")))

	resolve := locker.PathResolver(afero.NewOsFs())
	for _, name := range []string{"target", "abs", "rel", "chain", "./x/../abs"} {
		assert.Equal(t, target, resolve(filepath.Join(dir, name)), name)
	}

	// Equivalent paths share one lock.
	lock := locker.NewKeyed(locker.Mutexes, resolve)
	p1 := lock.Acquire(locker.At(filepath.Join(dir, "abs"), locker.NoArgs{}))
	p2 := lock.Acquire(locker.At(filepath.Join(dir, "chain"), locker.NoArgs{}))
	require.True(t, p1.Granted())
	require.False(t, p2.Granted())
	p1.Wait()()
	p2.Wait()()
}

func TestPathResolver_Loop(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a"), filepath.Join(dir, "b")
	require.NoError(t, os.Symlink(b, a))
	require.NoError(t, os.Symlink(a, b))

	// Resolution gives up instead of spinning forever.
	got := locker.PathResolver(afero.NewOsFs())(a)
	assert.Contains(t, []string{a, b}, got)
}

func TestStriped(t *testing.T) {
	resolve := locker.Striped(4)

	stripes := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		key := "key" + strconv.Itoa(i)
		s := resolve(key)
		require.Equal(t, s, resolve(key), "striping is stable")
		stripes[s] = struct{}{}
	}
	assert.Len(t, stripes, 4)

	lock := locker.NewKeyed(locker.Mutexes, resolve)
	pending := make([]*locker.Pending, 100)
	for i := range pending {
		pending[i] = lock.Acquire(locker.At("key"+strconv.Itoa(i), locker.NoArgs{}))
	}
	require.LessOrEqual(t, lock.Len(), 4)

	// Releasing in issue order frees every stripe in FIFO order.
	for _, p := range pending {
		p.Wait()()
	}
	require.Zero(t, lock.Len())
}

func TestStriped_ZeroStripes(t *testing.T) {
	resolve := locker.Striped(0)
	assert.Equal(t, resolve("a"), resolve("b"))
}
