package models

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func TestInvoice_CurrencyColumnIsUnbounded(t *testing.T) {
	s, err := schema.Parse(&Invoice{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	f := s.LookUpField("Currency")
	require.NotNil(t, f)
	assert.Zero(t, f.Size, "extracted currency text is stored as written")
	assert.True(t, f.NotNull)
}
