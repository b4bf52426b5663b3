// Package render formats a ScanResult for an external consumer. This sits
// outside the core pipeline's contract — it exists to give the reference
// CLI something to print, across text/JSON/CSV/tree output formats.
package render

import (
	"cmp"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/dustin/go-humanize"

	"github.com/user/dupefind/internal/model"
)

// Format selects an output renderer.
type Format string

const (
	Text Format = "text"
	JSON Format = "json"
	CSV  Format = "csv"
	Tree Format = "tree"
)

// Render writes result to w in the requested format. summaryOnly, where
// supported, suppresses the per-group file listing.
func Render(w io.Writer, format Format, result *model.ScanResult, summaryOnly bool) error {
	switch format {
	case Text, "":
		return renderText(w, result, summaryOnly)
	case JSON:
		return renderJSON(w, result)
	case CSV:
		return renderCSV(w, result)
	case Tree:
		return renderTree(w, result, summaryOnly)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func renderText(w io.Writer, r *model.ScanResult, summaryOnly bool) error {
	fmt.Fprintln(w, "=== Duplicate File Scan Results ===")
	fmt.Fprintf(w, "Total files scanned: %d\n", r.TotalFilesScanned)
	fmt.Fprintf(w, "Total size scanned: %s\n", humanize.IBytes(uint64(r.TotalSizeScanned)))
	fmt.Fprintf(w, "Duplicate groups found: %d\n", len(r.Duplicates))
	fmt.Fprintf(w, "Total duplicate files: %d\n", r.TotalDuplicateFiles())
	fmt.Fprintf(w, "Wasted space: %s\n", humanize.IBytes(uint64(r.TotalWastedSpace)))

	if len(r.Duplicates) == 0 {
		fmt.Fprintln(w, "\nNo duplicates found!")
		return nil
	}
	if summaryOnly {
		return nil
	}

	fmt.Fprintln(w, "\n=== Duplicate Groups ===")
	for i, set := range r.Duplicates {
		fmt.Fprintf(w, "\nGroup %d (hash: %s)\n", i+1, shortHash(set.Hash))
		fmt.Fprintf(w, "  Size: %s each\n", humanize.IBytes(uint64(set.Files[0].Size)))
		fmt.Fprintf(w, "  Wasted space: %s\n", humanize.IBytes(uint64(set.WastedSpace())))
		fmt.Fprintln(w, "  Files:")
		for _, f := range set.Files {
			fmt.Fprintf(w, "    %s\n", f.Path)
		}
	}
	return nil
}

func renderJSON(w io.Writer, r *model.ScanResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func renderCSV(w io.Writer, r *model.ScanResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"group_id", "hash", "file_path", "file_size", "group_size", "wasted_space"}); err != nil {
		return err
	}
	for i, set := range r.Duplicates {
		groupSize := fmt.Sprintf("%d", set.TotalSize())
		wasted := fmt.Sprintf("%d", set.WastedSpace())
		for _, f := range set.Files {
			row := []string{
				fmt.Sprintf("%d", i+1),
				set.Hash,
				f.Path,
				fmt.Sprintf("%d", f.Size),
				groupSize,
				wasted,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func renderTree(w io.Writer, r *model.ScanResult, summaryOnly bool) error {
	fmt.Fprintln(w, "=== Duplicate File Tree ===")
	fmt.Fprintf(w, "Total files scanned: %d\n", r.TotalFilesScanned)
	fmt.Fprintf(w, "Total size scanned: %s\n", humanize.IBytes(uint64(r.TotalSizeScanned)))
	fmt.Fprintf(w, "Duplicate groups found: %d\n", len(r.Duplicates))
	fmt.Fprintf(w, "Total duplicate files: %d\n", r.TotalDuplicateFiles())
	fmt.Fprintf(w, "Wasted space: %s\n\n", humanize.IBytes(uint64(r.TotalWastedSpace)))

	if len(r.Duplicates) == 0 {
		fmt.Fprintln(w, "No duplicates found!")
		return nil
	}
	if summaryOnly {
		return nil
	}

	for i, set := range r.Duplicates {
		fmt.Fprintf(w, "Duplicate Group %d [%d files, %s each, %s wasted]\n",
			i+1, len(set.Files), humanize.IBytes(uint64(set.Files[0].Size)), humanize.IBytes(uint64(set.WastedSpace())))
		fmt.Fprintf(w, "|-- Hash: %s\n", shortHash(set.Hash))

		byDir := make(map[string][]*model.FileRecord)
		for _, f := range set.Files {
			dir := filepath.Dir(f.Path)
			byDir[dir] = append(byDir[dir], f)
		}
		dirs := make([]string, 0, len(byDir))
		for d := range byDir {
			dirs = append(dirs, d)
		}
		slices.Sort(dirs)

		for di, dir := range dirs {
			dirPrefix, filePrefix := "|-- ", "|   "
			if di == len(dirs)-1 {
				dirPrefix, filePrefix = "`-- ", "    "
			}
			fmt.Fprintf(w, "%s%s/\n", dirPrefix, dir)

			files := byDir[dir]
			slices.SortFunc(files, func(a, b *model.FileRecord) int { return cmp.Compare(a.Path, b.Path) })
			for fi, f := range files {
				marker := "|-- "
				if fi == len(files)-1 {
					marker = "`-- "
				}
				fmt.Fprintf(w, "%s%s%s\n", filePrefix, marker, filepath.Base(f.Path))
			}
		}

		if i < len(r.Duplicates)-1 {
			fmt.Fprintln(w)
		}
	}
	return nil
}

func shortHash(h string) string {
	const n = 16
	if len(h) <= n {
		return h
	}
	return h[:n]
}
