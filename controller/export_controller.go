package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"

	"github.com/lancerdesk/crm/model"
)

// apiExportXLSX streams a workbook with one sheet of invoices and one of
// time entries. Decimals are written as strings so spreadsheet rounding
// cannot distort the figures.
func (ctrl *controller) apiExportXLSX(c echo.Context) error {
	userID := currentUserID(c)

	f := excelize.NewFile()
	defer f.Close()

	if err := ctrl.writeInvoiceSheet(f, userID); err != nil {
		return ErrInternal(err)
	}
	if err := ctrl.writeTimeEntrySheet(f, userID); err != nil {
		return ErrInternal(err)
	}
	f.DeleteSheet("Sheet1")

	filename := fmt.Sprintf("export-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Response().Header().Set(echo.HeaderContentType,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Response().WriteHeader(http.StatusOK)

	if err := f.Write(c.Response()); err != nil {
		return fmt.Errorf("cannot write workbook: %w", err)
	}
	return nil
}

func (ctrl *controller) writeInvoiceSheet(f *excelize.File, userID uint) error {
	const sheet = "Invoices"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("cannot create sheet %s: %w", sheet, err)
	}

	header := []any{"Number", "Project ID", "Issue Date", "Due Date", "Status", "Total", "Notes"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	invs, err := ctrl.model.ListInvoicesForExport(userID)
	if err != nil {
		return fmt.Errorf("cannot load invoices for export: %w", err)
	}
	now := time.Now().UTC()
	for i := range invs {
		inv := &invs[i]
		row := []any{
			inv.InvoiceNumber,
			inv.ProjectID,
			model.FormatDate(inv.IssueDate),
			model.FormatDate(inv.DueDate),
			string(inv.EffectiveStatus(now)),
			inv.TotalAmount().String(),
			inv.Notes,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func (ctrl *controller) writeTimeEntrySheet(f *excelize.File, userID uint) error {
	const sheet = "Time Entries"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("cannot create sheet %s: %w", sheet, err)
	}

	header := []any{"Date", "Project ID", "Description", "Hours", "Billable", "Invoiced"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	es, err := ctrl.model.ListTimeEntries(userID, model.TimeEntryListQuery{})
	if err != nil {
		return fmt.Errorf("cannot load time entries for export: %w", err)
	}
	for i := range es {
		e := &es[i]
		row := []any{
			model.FormatDate(e.Date),
			e.ProjectID,
			e.Description,
			e.Hours.String(),
			e.Billable,
			e.Invoiced,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
