package controllers

import (
	"fmt"
	"time"

	"github.com/Govind-619/checkout-core/models"
	"github.com/Govind-619/checkout-core/utils"
	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"github.com/tealeg/xlsx"
)

// ExportCouponAbuse downloads the abuse report as an Excel sheet.
func (h *Handler) ExportCouponAbuse(c *gin.Context) {
	findings, err := h.coupons.FindAbuse(c.Request.Context())
	if err != nil {
		respondError(c, "export coupon abuse", err)
		return
	}

	file, err := abuseWorkbook(findings)
	if err != nil {
		utils.LogError("Failed to build abuse workbook: %v", err)
		utils.InternalServerError(c)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=coupon_abuse.xlsx")
	if err := file.Write(c.Writer); err != nil {
		utils.LogError("Failed to write Excel file: %v", err)
		return
	}
	utils.LogInfo("Exported coupon abuse report with %d rows", len(findings))
}

func abuseWorkbook(findings []models.AbuseFinding) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Coupon Abuse")
	if err != nil {
		return nil, err
	}

	bold := xlsx.NewStyle()
	font := xlsx.DefaultFont()
	font.Bold = true
	bold.Font = *font

	headerRow := sheet.AddRow()
	for _, h := range []string{"Coupon ID", "Code", "Holder", "Redemptions", "Per-holder Limit", "Excess"} {
		cell := headerRow.AddCell()
		cell.SetString(h)
		cell.SetStyle(bold)
	}

	total := 0
	for _, f := range findings {
		row := sheet.AddRow()
		row.AddCell().SetInt(int(f.CouponID))
		row.AddCell().SetString(f.Code)
		row.AddCell().SetString(f.HolderID)
		row.AddCell().SetInt(f.Redemptions)
		row.AddCell().SetInt(f.MaxUsesPerUser)
		row.AddCell().SetInt(f.Redemptions - f.MaxUsesPerUser)
		total += f.Redemptions - f.MaxUsesPerUser
	}

	sheet.AddRow() // spacing
	summary := sheet.AddRow()
	summary.AddCell().SetString("Excess redemptions")
	summary.Cells[0].SetStyle(bold)
	summary.AddCell().SetString(fmt.Sprintf("%d", total))
	return file, nil
}

// ExportCouponAbusePDF downloads the abuse report as a landscape PDF table.
func (h *Handler) ExportCouponAbusePDF(c *gin.Context) {
	findings, err := h.coupons.FindAbuse(c.Request.Context())
	if err != nil {
		respondError(c, "export coupon abuse pdf", err)
		return
	}

	pdf := abuseReportPDF(findings, time.Now().UTC())

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", "attachment; filename=coupon_abuse.pdf")
	if err := pdf.Output(c.Writer); err != nil {
		utils.LogError("Failed to write PDF file: %v", err)
		utils.InternalServerError(c)
		return
	}
	utils.LogInfo("Exported coupon abuse PDF with %d rows", len(findings))
}

func abuseReportPDF(findings []models.AbuseFinding, generated time.Time) *gofpdf.Fpdf {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 12, "Coupon Abuse Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 8, "Holders over the per-holder redemption limit")
	pdf.Ln(6)
	pdf.Cell(0, 8, "Generated: "+generated.Format("2006-01-02 15:04 MST"))
	pdf.Ln(10)

	headers := []string{"Coupon ID", "Code", "Holder", "Redemptions", "Per-holder Limit", "Excess"}
	colWidths := []float64{25, 40, 90, 35, 40, 25}
	pdf.SetFont("Arial", "B", 11)
	pdf.SetFillColor(200, 200, 200)
	for i, h := range headers {
		pdf.CellFormat(colWidths[i], 9, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	total := 0
	fill := false
	for _, f := range findings {
		pdf.SetFillColor(245, 245, 245)
		if fill {
			pdf.SetFillColor(230, 240, 255)
		}
		fill = !fill
		excess := f.Redemptions - f.MaxUsesPerUser
		total += excess
		pdf.CellFormat(colWidths[0], 8, fmt.Sprintf("%d", f.CouponID), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(colWidths[1], 8, f.Code, "1", 0, "L", fill, 0, "")
		pdf.CellFormat(colWidths[2], 8, f.HolderID, "1", 0, "L", fill, 0, "")
		pdf.CellFormat(colWidths[3], 8, fmt.Sprintf("%d", f.Redemptions), "1", 0, "R", fill, 0, "")
		pdf.CellFormat(colWidths[4], 8, fmt.Sprintf("%d", f.MaxUsesPerUser), "1", 0, "R", fill, 0, "")
		pdf.CellFormat(colWidths[5], 8, fmt.Sprintf("%d", excess), "1", 0, "R", fill, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(220, 230, 250)
	pdf.CellFormat(70, 10, "Summary", "1", 0, "C", true, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(50, 8, "Flagged holders", "1", 0, "L", false, 0, "")
	pdf.CellFormat(20, 8, fmt.Sprintf("%d", len(findings)), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)
	pdf.CellFormat(50, 8, "Excess redemptions", "1", 0, "L", false, 0, "")
	pdf.CellFormat(20, 8, fmt.Sprintf("%d", total), "1", 0, "R", false, 0, "")
	return pdf
}
