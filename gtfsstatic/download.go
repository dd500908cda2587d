package gtfsstatic

import (
	"archive/zip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// docsURL is where the static schedule archives are documented for manual
// download when automatic retrieval fails.
const docsURL = "https://new.mta.info/developers"

var requiredFiles = []string{"stops.txt", "shapes.txt", "stop_times.txt", "trips.txt", "routes.txt"}

// defaultArchiveURLs maps each feed family to its published schedule archive.
var defaultArchiveURLs = map[Family]string{
	FamilySubway: "http://web.mta.info/developers/data/nyct/subway/google_transit.zip",
	FamilyLIRR:   "http://web.mta.info/developers/data/lirr/google_transit.zip",
	FamilyMNR:    "http://web.mta.info/developers/data/mnr/google_transit.zip",
}

// ensureFiles guarantees the five required tables exist under dir, fetching
// and extracting the family archive when any are missing. After extraction a
// re-check failure is fatal and the error names the expected path and the
// documentation URL for obtaining the files by hand.
func (s *Store) ensureFiles(family Family, dir string) error {
	if missingFile(dir) == "" {
		return nil
	}

	url := s.archiveURLs[family]
	if url == "" {
		return fmt.Errorf("no archive URL configured for feed family %q", family)
	}
	if err := downloadAndExtract(url, dir); err != nil {
		return fmt.Errorf("static schedule download for %q failed: %w (place the files under %s manually, see %s)",
			family, err, dir, docsURL)
	}
	if name := missingFile(dir); name != "" {
		return fmt.Errorf("static schedule file %s missing after extracting %s (see %s)",
			filepath.Join(dir, name), url, docsURL)
	}
	return nil
}

// missingFile returns the first required table absent from dir, or "".
func missingFile(dir string) string {
	for _, name := range requiredFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return name
		}
	}
	return ""
}

func downloadAndExtract(url, dir string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	tmp, err := os.CreateTemp("", "gtfs-*.zip")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	zr, err := zip.OpenReader(tmp.Name())
	if err != nil {
		return err
	}
	defer func() { _ = zr.Close() }()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, f := range zr.File {
		name := filepath.Base(f.Name)
		keep := false
		for _, want := range requiredFiles {
			if name == want {
				keep = true
				break
			}
		}
		if !keep {
			continue
		}
		if err := extractFile(f, filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
