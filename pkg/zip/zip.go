// Package zip bundles gallery entries into a downloadable archive.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// Entry is one file in the archive.
type Entry struct {
	Filename string
	Data     []byte
}

// Archive writes entries into a zip and returns its bytes.
func Archive(entries []Entry) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, entry := range entries {
		w, err := zw.Create(entry.Filename)
		if err != nil {
			return nil, fmt.Errorf("create archive entry %s: %w", entry.Filename, err)
		}
		if _, err := w.Write(entry.Data); err != nil {
			return nil, fmt.Errorf("write archive entry %s: %w", entry.Filename, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
