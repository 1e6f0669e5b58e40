// Package coords reads particle coordinates written by the picker.
package coords

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gscreen/internal/screenerr"
)

// Coordinate is a particle centre in image pixels.
type Coordinate struct {
	X, Y int
}

// Set is the ordered list of coordinates picked in one run.
type Set []Coordinate

// Read parses the coordinate file at path.
func Read(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, screenerr.Wrap(screenerr.ErrIO, err, "open coordinates")
	}
	defer f.Close()

	set, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// Parse reads whitespace-delimited coordinate records from r.
//
// A line is a record only if its first byte is a decimal digit; headers,
// comments and blank lines are skipped. Records with a negative x start with
// '-' and are therefore skipped too. The first two fields are x and y.
func Parse(r io.Reader) (Set, error) {
	var set Set
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" || line[0] < '0' || line[0] > '9' {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, &screenerr.Error{
				Kind: screenerr.ErrParse,
				Msg:  fmt.Sprintf("line %d: expected at least 2 fields, got %d", lineNo, len(fields)),
			}
		}
		x, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, screenerr.Wrap(screenerr.ErrParse, err, "line %d: x", lineNo)
		}
		y, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, screenerr.Wrap(screenerr.ErrParse, err, "line %d: y", lineNo)
		}
		set = append(set, Coordinate{X: x, Y: y})
	}
	if err := scanner.Err(); err != nil {
		return nil, screenerr.Wrap(screenerr.ErrIO, err, "read coordinates")
	}
	return set, nil
}
