package locker

// WithPermissions waits for every pending acquisition, runs fn and then
// releases every permission, whether fn returns, fails or panics.
// The error or panic of fn is propagated unchanged.
func WithPermissions(pending []*Pending, fn func() error) error {
	releasers := make([]Releaser, 0, len(pending))
	defer func() {
		for _, release := range releasers {
			release()
		}
	}()
	for _, p := range pending {
		releasers = append(releasers, p.Wait())
	}
	return fn()
}
