package searchindex

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReindexer struct {
	batch int
	n     int
	err   error
}

func (s *stubReindexer) Reindex(ctx context.Context, batch int) (int, error) {
	s.batch = batch
	return s.n, s.err
}

func TestReindex(t *testing.T) {
	r := &stubReindexer{n: 7}
	var out bytes.Buffer

	require.NoError(t, Reindex(context.Background(), r, &out, 50))
	assert.Equal(t, 50, r.batch)
	assert.Equal(t, "Indexed 7 posts\n", out.String())
}

func TestReindex_Error(t *testing.T) {
	r := &stubReindexer{n: 3, err: errors.New("index closed")}
	var out bytes.Buffer

	err := Reindex(context.Background(), r, &out, 10)
	assert.ErrorContains(t, err, "reindex stopped after 3 posts: index closed")
	assert.Empty(t, out.String())
}
