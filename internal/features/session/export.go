package session

import (
	"go-viz/internal/features/transform"

	"github.com/xuri/excelize/v2"
)

const previewSheet = "Preview"

// previewWorkbook lays the preview out as a two-column sheet: section title
// in column A, one line per row in column B.
func previewWorkbook(p *transform.Preview) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", previewSheet); err != nil {
		return nil, err
	}

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	row := 1
	for _, section := range p.Sections {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		f.SetCellValue(previewSheet, cell, section.Title)
		f.SetCellStyle(previewSheet, cell, cell, titleStyle)
		for _, line := range section.Lines {
			cell, _ := excelize.CoordinatesToCellName(2, row)
			f.SetCellValue(previewSheet, cell, line)
			row++
		}
		if len(section.Lines) == 0 {
			row++
		}
	}

	f.SetColWidth(previewSheet, "A", "A", 20)
	f.SetColWidth(previewSheet, "B", "B", 60)

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
