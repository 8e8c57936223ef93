//go:build !android && !(darwin && cgo) && !tesseract

package backend

const supported = false

func newDefault() Backend { return unavailable{} }
