// Package export writes conversion results to disk or any io.Writer.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"imagetodata/internal/models"
	"imagetodata/pkg/pixeldata"
)

// WriteCSV writes the (x, y, class_id) table as CSV. Class ids are written
// as integers; coordinates use the shortest exact representation.
func WriteCSV(w io.Writer, table mat.Matrix, header bool) error {
	cw := csv.NewWriter(w)

	if header {
		if err := cw.Write(models.ColumnNames[:]); err != nil {
			return err
		}
	}

	if table != nil {
		rows, cols := table.Dims()
		if rows > 0 && cols != models.NumColumns {
			return fmt.Errorf("table must have %d columns, got %d", models.NumColumns, cols)
		}
		record := make([]string, models.NumColumns)
		for i := 0; i < rows; i++ {
			record[models.ColumnX] = strconv.FormatFloat(table.At(i, models.ColumnX), 'g', -1, 64)
			record[models.ColumnY] = strconv.FormatFloat(table.At(i, models.ColumnY), 'g', -1, 64)
			record[models.ColumnClass] = strconv.Itoa(int(table.At(i, models.ColumnClass)))
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the table to path, creating parent directories.
func SaveCSV(path string, table mat.Matrix, header bool) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteCSV(w, table, header)
	})
}

// ClassSummary describes one color class.
type ClassSummary struct {
	ID         int    `yaml:"id"`
	Color      string `yaml:"color"`
	Count      int    `yaml:"count"`
	Background bool   `yaml:"background,omitempty"`
}

// Summary describes a conversion run.
type Summary struct {
	Source     string         `yaml:"source,omitempty"`
	Format     string         `yaml:"format,omitempty"`
	Width      int            `yaml:"width"`
	Height     int            `yaml:"height"`
	Background string         `yaml:"background"`
	Points     int            `yaml:"points"`
	Classes    []ClassSummary `yaml:"classes"`
}

// NewSummary collects the reportable facts of a dataset.
func NewSummary(ds *pixeldata.Dataset) Summary {
	s := Summary{
		Source:     ds.Source,
		Format:     ds.Format,
		Width:      ds.Width,
		Height:     ds.Height,
		Background: ds.Background.Hex(),
		Points:     ds.Len(),
		Classes:    make([]ClassSummary, len(ds.Classes)),
	}
	for id, cc := range ds.Classes {
		s.Classes[id] = ClassSummary{
			ID:         id,
			Color:      cc.Color.Hex(),
			Count:      cc.Count,
			Background: cc.Color == ds.Background,
		}
	}
	return s
}

// WriteSummary writes s as YAML.
func WriteSummary(w io.Writer, s Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("error encoding summary: %w", err)
	}
	return enc.Close()
}

// SaveSummary writes s as YAML to path.
func SaveSummary(path string, s Summary) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteSummary(w, s)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
