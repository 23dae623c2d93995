package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"ledgerflow/internal/extract"
	"ledgerflow/internal/reference"
	"ledgerflow/internal/util"
)

type WeekSource string

const (
	WeekFromContent  WeekSource = "content"
	WeekFromFilename WeekSource = "filename"
	WeekGuessed      WeekSource = "guess"
)

var (
	reSalesNameWeek = regexp.MustCompile(`(?i)Weekly Sales - (\w+)\s+Wk(\d+)`)
	reSalesName     = regexp.MustCompile(`(?i)Weekly Sales - (\w+)`)
	reCopyNumber    = regexp.MustCompile(`\((\d+)\)`)
)

type Rename struct {
	Original   string
	Canonical  string
	Locality   string
	Week       string
	WeekSource WeekSource
	Mismatch   string
}

func (r Rename) Resolved() bool {
	return r.Canonical != ""
}

// ReconcileName works out the canonical "Weekly Sales - {Locality} Wk{NN}.pdf"
// name for a sales statement. The week printed in the document beats the one
// in the file name; a disagreement is reported in Mismatch.
func ReconcileName(filename, text string, ref *reference.Table) Rename {
	out := Rename{Original: filename}

	fileWeek := ""
	if m := reSalesNameWeek.FindStringSubmatch(filename); m != nil {
		out.Locality, fileWeek = m[1], m[2]
	} else if m := reSalesName.FindStringSubmatch(filename); m != nil {
		out.Locality = m[1]
		if n := reCopyNumber.FindStringSubmatch(filename); n != nil {
			fileWeek = n[1]
		}
	}
	if out.Locality == "" {
		out.Locality = extract.TextLocality(text).String()
	}

	if r := extract.ContentWeek(text); r.Found() {
		out.Week, out.WeekSource = r.Value, WeekFromContent
		if fileWeek != "" && !sameNumber(fileWeek, r.Value) {
			out.Mismatch = fmt.Sprintf("filename week %s differs from content week %s", fileWeek, r.Value)
		}
	} else if fileWeek != "" {
		out.Week, out.WeekSource = fileWeek, WeekFromFilename
	}

	if out.Locality != "" && out.Week == "" {
		if r := extract.FilenameWeek(filename); r.Found() {
			out.Week, out.WeekSource = r.Value, WeekFromFilename
		} else if r := extract.GuessWeek(filename); r.Found() {
			out.Week, out.WeekSource = r.Value, WeekGuessed
		}
	}

	if out.Locality == "" || out.Week == "" {
		return out
	}
	if ref != nil {
		out.Locality = ref.DisplayName(out.Locality)
	}
	out.Canonical = fmt.Sprintf("Weekly Sales - %s Wk%s.pdf", out.Locality, util.ZeroPad(out.Week, 2))
	return out
}

func sameNumber(a, b string) bool {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return x == y
}

// CopyFile copies src to dst, creating dst's directory. An existing dst is
// replaced.
func CopyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
