package usecase

import (
	"context"
	"testing"

	"idealista-parser-service/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryPage_Execute(t *testing.T) {
	client := &fakeClient{pages: makePages(2, 3)}
	uc := NewQueryPageUseCase(client)

	req := baseRequest()
	req.NumPage = 2
	resp, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.ActualPage)
	assert.Len(t, resp.ElementList, 3)
}

func TestQueryPage_ErrorKeepsType(t *testing.T) {
	client := &fakeClient{failOn: map[int]error{1: &domain.UnsupportedCountryError{Country: "fr"}}}
	uc := NewQueryPageUseCase(client)

	req := baseRequest()
	req.NumPage = 1
	_, err := uc.Execute(context.Background(), req)

	var countryErr *domain.UnsupportedCountryError
	assert.ErrorAs(t, err, &countryErr)
}
