package convert

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"gscreen/internal/screenerr"
	"gscreen/internal/workpool"
)

// ReadList reads micrograph paths from a file, one per line. Blank lines
// are ignored and relative paths are taken from the current directory.
// Listed files that do not exist are a configuration error unless force is
// set, in which case they are returned separately and left out.
func ReadList(path string, force bool) (images, missing []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, screenerr.Wrap(screenerr.ErrConfig, err, "micrograph list")
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		abs, err := filepath.Abs(line)
		if err != nil {
			return nil, nil, screenerr.Wrap(screenerr.ErrConfig, err, "resolve %s", line)
		}
		if info, err := os.Stat(abs); err != nil || info.IsDir() {
			if !force {
				return nil, nil, screenerr.Configf("%s in %s does not exist, use -f to skip it", line, path)
			}
			missing = append(missing, abs)
			continue
		}
		images = append(images, abs)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, screenerr.Wrap(screenerr.ErrConfig, err, "read %s", path)
	}
	if len(images) == 0 {
		return nil, missing, screenerr.Configf("no micrographs listed in %s", path)
	}
	return images, missing, nil
}

// Summary collects the outcome of a batch, in input order.
type Summary struct {
	Converted []Conversion
	Skipped   []Conversion
	Failed    []error
}

// Batch converts images into outDir on workers goroutines. Failures are
// collected and do not stop the other conversions.
func (conf Config) Batch(ctx context.Context, images []string, outDir string, workers int, logger *log.Logger) Summary {
	if logger == nil {
		logger = log.Default()
	}
	results := workpool.Collect(workpool.Run(ctx, workers, images, func(ctx context.Context, image string) (Conversion, error) {
		return conf.Run(ctx, image, outDir)
	}), len(images))

	var sum Summary
	for _, r := range results {
		switch {
		case r.Err != nil:
			err := r.Err
			var cerr *Error
			if !errors.As(err, &cerr) {
				err = &Error{Image: filepath.Base(r.Item), Err: err}
			}
			logger.Printf("Failed: %v", err)
			sum.Failed = append(sum.Failed, err)
		case r.Value.Skipped:
			logger.Printf("%s exists. Skipped. Use -f to force overwrite", r.Value.Preview)
			sum.Skipped = append(sum.Skipped, r.Value)
		default:
			if r.Value.Flipped {
				logger.Printf("Converted and oriented %s", filepath.Base(r.Value.Preview))
			} else {
				logger.Printf("Converted %s", filepath.Base(r.Value.Preview))
			}
			sum.Converted = append(sum.Converted, r.Value)
		}
	}
	return sum
}

// Print writes a one-line tally, coloured by outcome.
func (s Summary) Print(w io.Writer) {
	col := color.New(color.FgGreen)
	if len(s.Failed) > 0 {
		col = color.New(color.FgRed)
	}
	col.Fprintf(w, "%d converted, %d skipped, %d failed\n", len(s.Converted), len(s.Skipped), len(s.Failed))
	for _, err := range s.Failed {
		fmt.Fprintf(w, "  %v\n", err)
	}
}
