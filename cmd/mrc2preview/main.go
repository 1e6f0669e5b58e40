// Command mrc2preview renders micrographs to preview images with EMAN2's
// e2proc2d, then flips them so their pixel coordinates match the picker's.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"gscreen/internal/config"
	"gscreen/internal/convert"
	pimage "gscreen/internal/image"
	"gscreen/internal/preview"
	"gscreen/internal/screen"
	"gscreen/internal/workpool"
)

func main() {
	in := flag.String("i", "", "The folder with the input .mrc files. Default: current directory")
	out := flag.String("o", "", "The folder where previews are stored. Default: [i]/"+config.DefaultPreviewsDir)
	force := flag.Bool("f", false, "Overwrite existing previews, create -o, skip missing listed files")
	scale := flag.Int("scale", 0, "Shrink factor, e.g. 4 shrinks by 4 times")
	lowpass := flag.String("lowpass", "", "Low-pass resolution in Angstrom, e.g. 20 or 20A")
	invert := flag.Bool("invert", false, "Invert contrast")
	noflip := flag.Bool("noflip", false, "Do not flip the previews to match the picker's coordinates")
	list := flag.String("file", "", "File listing the micrographs to convert, one per line")
	workers := flag.Int("workers", defaultWorkers(), "Number of micrographs converted in parallel")
	exe := flag.String("exec", convert.Default.Exec, "The e2proc2d executable")
	ext := flag.String("ext", convert.Default.Ext, "Preview format extension")
	orientOnly := flag.Bool("orient-only", false, "Only flip the existing previews in -o")
	verbose := flag.Bool("v", false, "Echo e2proc2d output to stderr")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if *in == "" {
		wd, err := os.Getwd()
		if err != nil {
			fatal(err)
		}
		*in = wd
	}
	if info, err := os.Stat(*in); err != nil || !info.IsDir() {
		fatal(fmt.Errorf("the input folder %s does not exist", *in))
	}
	if *out == "" {
		*out = filepath.Join(*in, config.DefaultPreviewsDir)
		if err := os.MkdirAll(*out, 0o755); err != nil {
			fatal(err)
		}
	} else if info, err := os.Stat(*out); err != nil || !info.IsDir() {
		if !*force {
			fatal(fmt.Errorf("the output folder %s does not exist, use -f to create it", *out))
		}
		if err := os.MkdirAll(*out, 0o755); err != nil {
			fatal(err)
		}
	}
	if *workers < 1 || *workers > runtime.NumCPU() {
		fatal(fmt.Errorf("-workers must be between 1 and %d, got %d", runtime.NumCPU(), *workers))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *orientOnly {
		os.Exit(orientAll(ctx, *out, *workers))
	}

	conf := convert.Config{
		Exec:    *exe,
		Ext:     *ext,
		Invert:  *invert,
		Force:   *force,
		Verbose: *verbose,
	}
	if *scale < 0 {
		fatal(fmt.Errorf("%d is not a valid scale factor", *scale))
	}
	conf.Shrink = *scale
	if *lowpass != "" {
		res, err := strconv.ParseFloat(strings.TrimSuffix(*lowpass, "A"), 64)
		if err != nil || res <= 0 {
			fatal(fmt.Errorf("%s is not a valid resolution", *lowpass))
		}
		conf.Lowpass = res
	}
	if !*noflip {
		conf.Orient = preview.Orient
	}

	var images []string
	var err error
	if *list != "" {
		var missing []string
		images, missing, err = convert.ReadList(*list, *force)
		for _, m := range missing {
			log.Printf("Warning: %s does not exist", m)
		}
	} else {
		images, err = screen.Discover(*in, ".mrc")
	}
	if err != nil {
		fatal(err)
	}

	log.Printf("Converting %d micrographs into %s", len(images), *out)
	sum := conf.Batch(ctx, images, *out, *workers, log.Default())
	sum.Print(os.Stdout)
	if len(sum.Failed) > 0 {
		os.Exit(2)
	}
}

// orientAll flips every preview in dir, as a separate step for previews
// that were converted with -noflip.
func orientAll(ctx context.Context, dir string, workers int) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		fatal(err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && pimage.IsSupportedFormat(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		fatal(fmt.Errorf("no previews in %s", dir))
	}

	failed := 0
	for r := range workpool.Run(ctx, workers, paths, func(_ context.Context, path string) (struct{}, error) {
		return struct{}{}, preview.Orient(path)
	}) {
		if r.Err != nil {
			log.Printf("Failed to orient %s: %v", r.Item, r.Err)
			failed++
			continue
		}
		log.Printf("Oriented %s", r.Item)
	}
	fmt.Printf("Oriented %d of %d previews\n", len(paths)-failed, len(paths))
	if failed > 0 {
		return 2
	}
	return 0
}

func defaultWorkers() int {
	if n := runtime.NumCPU() - 1; n > 1 {
		return n
	}
	return 1
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "mrc2preview: %v\n", err)
	os.Exit(1)
}
