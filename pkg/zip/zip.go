// Package zip bundles session artifacts into a single archive.
package zip

import (
	"archive/zip"
	"fmt"
	"io"
	"time"
)

type Asset struct {
	Filename string
	Data     []byte
}

// WriteAssets streams assets into a zip archive on w. Empty assets are
// skipped.
func WriteAssets(w io.Writer, modified time.Time, assets []Asset) error {
	zw := zip.NewWriter(w)
	for _, asset := range assets {
		if len(asset.Data) == 0 {
			continue
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     asset.Filename,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return fmt.Errorf("zip: create %s: %w", asset.Filename, err)
		}
		if _, err := fw.Write(asset.Data); err != nil {
			return fmt.Errorf("zip: write %s: %w", asset.Filename, err)
		}
	}
	return zw.Close()
}
