package locker

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/spaolacci/murmur3"
	"github.com/spf13/afero"
)

// Resolver normalizes a key. Keys resolving to the same value share one
// lock, which makes them mutually exclusive.
type Resolver[K comparable] func(key K) K

// Identity is the Resolver that leaves keys unchanged.
func Identity[K comparable](key K) K { return key }

// maxLinkHops bounds symlink resolution, as the kernel does with MAXSYMLINKS.
const maxLinkHops = 40

// PathResolver returns a Resolver for file paths on fs. Paths are cleaned
// and, when fs supports it, symbolic links are followed, so every path
// naming the same file resolves to the same key. Paths that cannot be
// inspected resolve to their cleaned form.
func PathResolver(fs afero.Fs) Resolver[string] {
	return func(name string) string {
		name = filepath.Clean(name)
		lstater, ok := fs.(afero.Lstater)
		if !ok {
			return name
		}
		reader, ok := fs.(afero.LinkReader)
		if !ok {
			return name
		}
		for i := 0; i < maxLinkHops; i++ {
			fi, lstatCalled, err := lstater.LstatIfPossible(name)
			if err != nil || !lstatCalled || fi.Mode()&os.ModeSymlink == 0 {
				return name
			}
			target, err := reader.ReadlinkIfPossible(name)
			if err != nil {
				return name
			}
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(name), target)
			}
			name = filepath.Clean(target)
		}
		return name
	}
}

// Striped returns a Resolver that hashes keys onto n stripes, bounding
// the number of live locks at the cost of coarser exclusion.
func Striped(n uint64) Resolver[string] {
	if n == 0 {
		n = 1
	}
	return func(key string) string {
		return "stripe-" + strconv.FormatUint(murmur3.Sum64([]byte(key))%n, 10)
	}
}
