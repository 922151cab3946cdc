//go:build !linux

package xselection

// Open always fails on platforms other than Linux: pclipsync's X11 adapter
// depends on Xlib/XCB protocol semantics (CLIPBOARD/PRIMARY selections,
// XFixes ownership notification) that only apply under X11, mirroring how
// the teacher project's clip_other.go stubs out platforms without a
// corresponding native backend.
func Open(displayName string) (Adapter, error) {
	return nil, ErrUnavailable
}
