package ingest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProcess_FiltersAndAggregates(t *testing.T) {
	data := csvFixture(
		`EJECUCION PRESUPUESTAL 2025`,
		csvHeader,
		`NO,Agua,4003 - Subtotal,SGP Agua,"1,000.00",0,0,0,0,"1,000.00",0,,`,
		`SI,Agua,4003018 - Alcantarillados,SGP Agua,"600.00",0,0,0,0,"600.00",100,Planeación,2024000001`,
		`SI,Agua,4003018 - Alcantarillados,SGP Agua,"400.00",0,0,0,0,"400.00",50,Hacienda,2024000002`,
		`SI,,4003019 - Sin sector,SGP Agua,1,0,0,0,0,1,0,,`,
		`SI,Agua,Sin código,SGP Agua,1,0,0,0,0,1,0,,`,
	)
	res, err := Process(data, "ejecucion.csv")
	require.NoError(t, err)
	require.Equal(t, FormatCSV, res.Format)
	require.Equal(t, 2, res.HeaderLine)
	require.Equal(t, 5, res.RowsRead)
	require.Equal(t, 3, res.RowsConsidered)
	require.Len(t, res.Lines, 1)

	l := res.Lines[0]
	require.Equal(t, "4003018", l.ProductCode)
	require.Equal(t, "Planeación", l.Dependency)
	requireAmount(t, "1000", l.FinalBudget)
	requireAmount(t, "150", l.Payments)

	require.Equal(t, []string{"row 7: could not extract product code from 'Sin código'"}, res.ErrorMessages(10))
}

func TestProcess_PropagatesFatalErrors(t *testing.T) {
	_, err := Process([]byte("x"), "ejecucion.txt")
	require.True(t, IsFileFormat(err))

	_, err = Process(csvFixture("a,b,c", "1,2,3"), "ejecucion.csv")
	require.True(t, IsSchemaDetection(err))
}

func TestResult_ErrorMessagesLimit(t *testing.T) {
	res := &Result{}
	for i := 0; i < 15; i++ {
		res.RowErrors = append(res.RowErrors, &RowExtractionError{Line: i + 2, Label: fmt.Sprintf("x%d", i)})
	}
	require.Len(t, res.ErrorMessages(10), 10)
	require.Len(t, res.ErrorMessages(0), 15)
	require.Contains(t, res.ErrorMessages(10)[0], "row 2")
}
