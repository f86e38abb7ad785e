package dataset

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Leaf identifies one (state, year, quarter) source document.
type Leaf struct {
	State   string
	Year    int
	Quarter int
	Path    string
}

// WalkFunc receives one leaf's context and raw document bytes.
type WalkFunc func(leaf Leaf, raw []byte) error

// Walk enumerates every {state}/{year}/{quarter}.json leaf under root in
// directory order and invokes fn once per document. Non-.json entries at the
// leaf level are skipped. A non-numeric year directory or quarter filename is
// a fatal error: the tree is machine-generated, so a malformed name means the
// snapshot is corrupt and the run must not partially commit.
//
// Walk performs no semantic validation of document contents; that is the
// normalizer's job. Each file is read and released before the next leaf is
// visited.
func Walk(root string, fn WalkFunc) error {
	states, err := os.ReadDir(root)
	if err != nil {
		return eris.Wrapf(err, "walker: read state dir %s", root)
	}

	for _, st := range states {
		if !st.IsDir() {
			continue
		}
		statePath := filepath.Join(root, st.Name())

		years, err := os.ReadDir(statePath)
		if err != nil {
			return eris.Wrapf(err, "walker: read year dir %s", statePath)
		}

		for _, yr := range years {
			if !yr.IsDir() {
				continue
			}
			year, err := strconv.Atoi(yr.Name())
			if err != nil {
				return eris.Errorf("walker: non-numeric year directory %q under %s", yr.Name(), statePath)
			}
			yearPath := filepath.Join(statePath, yr.Name())

			files, err := os.ReadDir(yearPath)
			if err != nil {
				return eris.Wrapf(err, "walker: read quarter dir %s", yearPath)
			}

			for _, f := range files {
				if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
					continue
				}
				quarter, err := strconv.Atoi(strings.TrimSuffix(f.Name(), ".json"))
				if err != nil {
					return eris.Errorf("walker: non-numeric quarter file %q under %s", f.Name(), yearPath)
				}

				path := filepath.Join(yearPath, f.Name())
				raw, err := os.ReadFile(path)
				if err != nil {
					return eris.Wrapf(err, "walker: read %s", path)
				}

				leaf := Leaf{State: st.Name(), Year: year, Quarter: quarter, Path: path}
				if err := fn(leaf, raw); err != nil {
					return err
				}
			}
		}
	}

	return nil
}
