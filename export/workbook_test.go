package export

import (
	"bytes"
	"testing"
	"time"

	"bakeslip/model"
	"bakeslip/render"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteWorkbook(t *testing.T) {
	report := render.BuildReport(model.OrderData{
		IssueDate: "Wed 15 Oct 2025",
		Orders: []model.Order{
			{Route: "NAVAN", Product: "Regular", Trays: 125},
			{Route: "IN STOCK", Product: "Regular", Trays: 4},
		},
	}, model.SliceDouble, time.Date(2025, 10, 15, 9, 5, 0, 0, time.UTC))
	report.CompanyName = "Bakery"

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{SummarySheet, SlipsSheet}, f.GetSheetList())

	summary, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	require.Equal(t, []string{"Bakery"}, summary[0])
	require.Equal(t, []string{"Wed 15 Oct 2025", "Time: 09:05 am"}, summary[1])
	require.Equal(t, []string{"Primary product", "Regular"}, summary[2])
	require.Equal(t, []string{"Route / Location", "Product", "In Stock", "Trays"}, summary[4])
	require.Equal(t, []string{"NAVAN", "Regular", "", "125"}, summary[5])
	require.Equal(t, []string{"IN STOCK", "Regular", "In Stock", "4"}, summary[6])
	require.Equal(t, []string{"Total Trays (To Produce)", "", "", "125"}, summary[7])

	slips, err := f.GetRows(SlipsSheet)
	require.NoError(t, err)
	require.Len(t, slips, 4)
	require.Equal(t, []string{"NAVAN", "Regular", "1/3", "60"}, slips[1])
	require.Equal(t, []string{"NAVAN", "Regular", "3/3", "5"}, slips[3])
}
