package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil piece service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{RAG: &mockRagService{}}, nil)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingPieceService)
	})

	t.Run("nil rag service returns error", func(t *testing.T) {
		_, err := NewServer(&Ports{Pieces: &mockPieceService{}}, nil)
		assert.ErrorIs(t, err, ErrMissingRagService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{Pieces: &mockPieceService{}, RAG: &mockRagService{}}, nil)
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.NotNil(t, server.MCP())
	})
}
