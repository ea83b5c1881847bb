package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractPagination(t *testing.T) {
	p, err := ExtractPagination(httptest.NewRequest("GET", "/pdm/ejecucion", nil))
	require.NoError(t, err)
	require.Equal(t, PaginationParams{Page: 1, Limit: 50}, p)

	p, err = ExtractPagination(httptest.NewRequest("GET", "/pdm/ejecucion?page=3&limit=20", nil))
	require.NoError(t, err)
	require.Equal(t, 40, p.Offset)

	p, err = ExtractPagination(httptest.NewRequest("GET", "/pdm/ejecucion?limit=10000", nil))
	require.NoError(t, err)
	require.Equal(t, MaxLimit, p.Limit)

	_, err = ExtractPagination(httptest.NewRequest("GET", "/pdm/ejecucion?page=0", nil))
	require.Error(t, err)
	_, err = ExtractPagination(httptest.NewRequest("GET", "/pdm/ejecucion?limit=abc", nil))
	require.Error(t, err)
}

func TestSetPaginationStats(t *testing.T) {
	p := PaginationParams{Page: 1, Limit: 20}
	p.SetPaginationStats(41)
	require.Equal(t, 3, p.TotalPages)
	p.SetPaginationStats(0)
	require.Zero(t, p.TotalPages)
}
