package repository

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creator-access-gate/internal/credential/domain"
)

type fakeRow struct {
	mode    string
	maxUses sql.NullInt64
}

func (f fakeRow) Scan(dest ...any) error {
	*dest[0].(*string) = "9b2f6c1e-0d3a-4f5b-8c7e-1a2b3c4d5e6f"
	*dest[1].(*string) = "6f1c2a9e-3b7d-4e51-9a0f-2d8c4b6e1a01"
	*dest[2].(*string) = "hash"
	*dest[3].(*string) = f.mode
	*dest[4].(*sql.NullTime) = sql.NullTime{}
	*dest[5].(*sql.NullInt64) = f.maxUses
	*dest[6].(*int) = 0
	*dest[7].(*time.Time) = time.Now()
	return nil
}

func TestScanCredential(t *testing.T) {
	c, err := scanCredential(fakeRow{mode: string(domain.ModeMultiUse), maxUses: sql.NullInt64{Int64: 4, Valid: true}})
	require.NoError(t, err)
	limit, capped := c.Policy.MaxUses()
	assert.True(t, capped)
	assert.Equal(t, 4, limit)
}

func TestScanCredential_CorruptPolicyIsNotInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		row  fakeRow
	}{
		{"unknown mode", fakeRow{mode: "forever"}},
		{"single-use with cap", fakeRow{mode: string(domain.ModeSingleUse), maxUses: sql.NullInt64{Int64: 3, Valid: true}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := scanCredential(tc.row)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCorruptPolicy)
			assert.False(t, errors.Is(err, domain.ErrInvalidInput), "a bad row must not surface as a 400")
		})
	}
}
