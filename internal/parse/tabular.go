package parse

import (
	"archive/zip"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ctxengine/ctxengine/internal/model"
)

// tabularSampleRows is how many data rows (beyond the header) are kept
// in the schema-and-sample chunk; the rest of the file is not indexed.
const tabularSampleRows = 10

var tabularExtensions = map[string]bool{
	".csv":  true,
	".tsv":  true,
	".xlsx": true,
}

// TabularParser produces a single schema-and-sample-rows chunk per
// sheet: column headers plus up to tabularSampleRows rows of data, not
// the full table. Full-table indexing would dominate a project's chunk
// budget for what is usually reference data, not prose to retrieve.
type TabularParser struct{}

func (p *TabularParser) Handles(relPath string) bool {
	return tabularExtensions[ext(relPath)]
}

func (p *TabularParser) Parse(absPath, relPath string) ([]model.Chunk, error) {
	switch ext(relPath) {
	case ".csv":
		return parseDelimited(absPath, relPath, ',')
	case ".tsv":
		return parseDelimited(absPath, relPath, '\t')
	case ".xlsx":
		return parseXLSX(absPath, relPath)
	default:
		return nil, fmt.Errorf("unsupported tabular extension %q", ext(relPath))
	}
}

func parseDelimited(absPath, relPath string, delim rune) ([]model.Chunk, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.Comma = delim
	r.FieldsPerRecord = -1

	var rows [][]string
	for len(rows) < tabularSampleRows+1 {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, rec)
	}

	return []model.Chunk{schemaChunk(relPath, "", rows)}, nil
}

func schemaChunk(relPath, sheet string, rows [][]string) model.Chunk {
	if len(rows) == 0 {
		heading := "Schema"
		if sheet != "" {
			heading = fmt.Sprintf("Schema: %s", sheet)
		}
		return model.Chunk{
			Content:     "Schema: (empty)",
			SourcePath:  relPath,
			StartLine:   1,
			EndLine:     1,
			ContentType: model.ContentTypeData,
			Heading:     heading,
			EmbeddingID: -1,
		}
	}

	header := rows[0]
	samples := rows[1:]
	if len(samples) > tabularSampleRows {
		samples = samples[:tabularSampleRows]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Schema: %s\n", strings.Join(header, ", "))
	fmt.Fprintf(&b, "Columns: %d\n", len(header))
	fmt.Fprintf(&b, "Sample rows (%d):\n", len(samples))
	for _, row := range samples {
		fmt.Fprintf(&b, "  %s\n", strings.Join(row, ", "))
	}

	heading := "Schema"
	if sheet != "" {
		heading = fmt.Sprintf("Schema: %s", sheet)
	}

	return model.Chunk{
		Content:     strings.TrimRight(b.String(), "\n"),
		SourcePath:  relPath,
		StartLine:   1,
		EndLine:     len(rows),
		ContentType: model.ContentTypeData,
		Heading:     heading,
		EmbeddingID: -1,
	}
}

// parseXLSX reads the minimum of the Open Packaging Conventions zip
// container needed to produce schema-and-sample chunks: shared strings
// plus each worksheet's leading rows. There is no third-party xlsx
// reader in the reference corpus, so this is done against the standard
// library's zip and xml packages rather than pulling in an unvetted one.
func parseXLSX(absPath, relPath string) ([]model.Chunk, error) {
	zr, err := zip.OpenReader(absPath)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = zr.Close() }()

	files := map[string]*zip.File{}
	var sheetNames []string
	for _, f := range zr.File {
		files[f.Name] = f
		if strings.HasPrefix(f.Name, "xl/worksheets/sheet") && strings.HasSuffix(f.Name, ".xml") {
			sheetNames = append(sheetNames, f.Name)
		}
	}
	sort.Strings(sheetNames)

	shared, err := readSharedStrings(files["xl/sharedStrings.xml"])
	if err != nil {
		return nil, err
	}

	var chunks []model.Chunk
	for _, name := range sheetNames {
		rows, err := readSheetRows(files[name], shared, tabularSampleRows+1)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		chunks = append(chunks, schemaChunk(relPath, name, rows))
	}
	if len(chunks) == 0 {
		chunks = append(chunks, schemaChunk(relPath, "", nil))
	}
	return chunks, nil
}

type xlsxSST struct {
	SI []struct {
		T string `xml:"t"`
		R []struct {
			T string `xml:"t"`
		} `xml:"r"`
	} `xml:"si"`
}

func readSharedStrings(f *zip.File) ([]string, error) {
	if f == nil {
		return nil, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	var sst xlsxSST
	if err := xml.NewDecoder(rc).Decode(&sst); err != nil {
		return nil, fmt.Errorf("decode shared strings: %w", err)
	}

	out := make([]string, len(sst.SI))
	for i, si := range sst.SI {
		if si.T != "" {
			out[i] = si.T
			continue
		}
		var b strings.Builder
		for _, r := range si.R {
			b.WriteString(r.T)
		}
		out[i] = b.String()
	}
	return out, nil
}

type xlsxRow struct {
	C []struct {
		T string `xml:"t,attr"`
		V string `xml:"v"`
	} `xml:"c"`
}

type xlsxSheetData struct {
	Rows []xlsxRow `xml:"sheetData>row"`
}

func readSheetRows(f *zip.File, shared []string, maxRows int) ([][]string, error) {
	if f == nil {
		return nil, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	var sheet xlsxSheetData
	if err := xml.NewDecoder(rc).Decode(&sheet); err != nil {
		return nil, fmt.Errorf("decode sheet: %w", err)
	}

	rows := make([][]string, 0, maxRows)
	for _, row := range sheet.Rows {
		if len(rows) >= maxRows {
			break
		}
		cells := make([]string, 0, len(row.C))
		for _, c := range row.C {
			v := c.V
			if c.T == "s" {
				if idx, err := strconv.Atoi(v); err == nil && idx >= 0 && idx < len(shared) {
					v = shared[idx]
				}
			}
			cells = append(cells, v)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
