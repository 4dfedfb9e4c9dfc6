package events

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresSequencer(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("RETURNING last_sequence")).
		WithArgs("order-1").
		WillReturnRows(mock.NewRows([]string{"last_sequence"}).AddRow(int64(3)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO event_sequence")).
		WithArgs("order-2").
		WillReturnError(errors.New("conn reset"))

	s := NewPostgresSequencer(mock)
	seq, err := s.NextSequence(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), seq)

	_, err = s.NextSequence(context.Background(), "order-2")
	require.ErrorContains(t, err, "order-2")

	_, err = s.NextSequence(context.Background(), "")
	require.ErrorIs(t, err, ErrEmptyPartition)
	require.NoError(t, mock.ExpectationsWereMet())
}
