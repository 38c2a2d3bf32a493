package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// SheetName is the name of the transfer sheet.
const SheetName = "이체목록"

var xlsxHeader = []interface{}{
	"은행코드", "계좌번호", "이체금액", "입금통장표시", "출금통장표시", "예금주", "수취인", "검증",
}

// WriteXLSX writes the bank transfer workbook. Invalid rows are included and
// flagged in the last column so operators can fix them before upload.
func WriteXLSX(w io.Writer, tuples []Tuple) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &xlsxHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, t := range tuples {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		status := "OK"
		if !t.IsValid {
			status = "확인 필요"
		}
		row := []interface{}{
			string(t.BankCode),
			t.AccountNumber,
			t.TransferAmount.IntPart(),
			t.DepositDisplay,
			t.WithdrawalDisplay,
			t.AccountHolder,
			t.PayeeName,
			status,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
