package screen

import (
	"os"
	"path/filepath"

	pimage "gscreen/internal/image"
	"gscreen/internal/screenerr"
)

// Discover returns the absolute paths of the files in folder with extension
// ext, sorted by name. Finding none is a configuration error.
func Discover(folder, ext string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, screenerr.Wrap(screenerr.ErrConfig, err, "list images")
	}
	abs, err := filepath.Abs(folder)
	if err != nil {
		return nil, screenerr.Wrap(screenerr.ErrConfig, err, "resolve %s", folder)
	}

	// ReadDir sorts by file name.
	var images []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		images = append(images, filepath.Join(abs, e.Name()))
	}
	if len(images) == 0 {
		return nil, screenerr.Configf("no *%s images in %s", ext, abs)
	}
	return images, nil
}

// PrepareFolders creates the annotated preview folder and replaces the
// annotation folder with an empty one, so every run starts clean.
func PrepareFolders(previewsOut, annotated string) error {
	if err := os.MkdirAll(previewsOut, 0o755); err != nil {
		return screenerr.Wrap(screenerr.ErrIO, err, "create %s", previewsOut)
	}
	if err := os.RemoveAll(annotated); err != nil {
		return screenerr.Wrap(screenerr.ErrIO, err, "remove %s", annotated)
	}
	if err := os.MkdirAll(annotated, 0o755); err != nil {
		return screenerr.Wrap(screenerr.ErrIO, err, "create %s", annotated)
	}
	return nil
}

// MissingPreviews returns the images in the list that have no preview in
// dir.
func MissingPreviews(images []string, dir string) []string {
	var missing []string
	for _, img := range images {
		base := filepath.Base(img)
		base = base[:len(base)-len(filepath.Ext(base))]
		if _, err := pimage.FindPreview(dir, base); err != nil {
			missing = append(missing, img)
		}
	}
	return missing
}
