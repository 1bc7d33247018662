// Package report 活动报表导出（Excel）
package report

import (
	"fmt"
	"io"
	"time"

	"fitness-tracker/internal/models"

	"github.com/xuri/excelize/v2"
)

// 工作表名称
const (
	ActivitySheet = "Activity"
	AlertsSheet   = "Fall Alerts"
)

// ActivityHeader 活动摘要表头
var ActivityHeader = []string{
	"Device ID",
	"Step Count",
	"Activity",
	"Magnitude (m/s²)",
	"Updated At",
}

// AlertsHeader 跌倒告警表头
var AlertsHeader = []string{
	"Alert ID",
	"Device ID",
	"Magnitude (m/s²)",
	"Triggered At",
	"Notified",
}

const timeLayout = "2006-01-02 15:04:05"

// TruncatedNote 告警截断说明
func TruncatedNote(limit int) string {
	return fmt.Sprintf("Showing the latest %d fall alerts; older alerts are omitted", limit)
}

// WriteActivityReport 生成活动报表写入 w（两个工作表：Activity、Fall Alerts）
// alertLimit > 0 且告警条数达到上限时，在告警表末尾注明结果可能被截断
func WriteActivityReport(w io.Writer, summaries []models.ActivitySummary, alerts []models.FallAlert, alertLimit int) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := newHeaderStyle(f)
	if err != nil {
		return err
	}

	activityRows := make([][]interface{}, 0, len(summaries))
	for _, s := range summaries {
		activityRows = append(activityRows, []interface{}{
			s.DeviceID,
			s.StepCount,
			string(s.Activity),
			s.Magnitude,
			s.UpdatedAt.UTC().Format(timeLayout),
		})
	}

	alertRows := make([][]interface{}, 0, len(alerts))
	for _, a := range alerts {
		notified := "No"
		if a.Notified {
			notified = "Yes"
		}
		alertRows = append(alertRows, []interface{}{
			a.AlertID,
			a.DeviceID,
			a.Magnitude,
			a.TriggeredAt.UTC().Format(timeLayout),
			notified,
		})
	}

	if alertLimit > 0 && len(alerts) >= alertLimit {
		alertRows = append(alertRows, []interface{}{}, []interface{}{TruncatedNote(alertLimit)})
	}

	if err := writeSheet(f, ActivitySheet, ActivityHeader, []float64{38, 12, 14, 18, 22}, activityRows, headerStyle); err != nil {
		return err
	}
	if err := writeSheet(f, AlertsSheet, AlertsHeader, []float64{38, 38, 18, 22, 10}, alertRows, headerStyle); err != nil {
		return err
	}

	// 删除默认的 Sheet1
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to delete default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex(ActivitySheet); err == nil {
		f.SetActiveSheet(idx)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func newHeaderStyle(f *excelize.File) (int, error) {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create header style: %w", err)
	}
	return style, nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, widths []float64, rows [][]interface{}, headerStyle int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}

		if col < len(widths) {
			name, err := excelize.ColumnNumberToName(col + 1)
			if err != nil {
				return fmt.Errorf("failed to convert column number: %w", err)
			}
			if err := f.SetColWidth(sheet, name, name, widths[col]); err != nil {
				return fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2) // 第1行是表头
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	return nil
}

// Filename 报表文件名
func Filename(tenantID string, now time.Time) string {
	return fmt.Sprintf("activity_%s_%s.xlsx", tenantID, now.UTC().Format("20060102_150405"))
}
