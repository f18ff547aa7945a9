package binary

import (
	"encoding/binary"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeStat(t *testing.T) {
	data, err := EncodeStat(models.StatAttributes{NodeID: 7, Type: models.NodeTypeFile, Length: 42})
	require.NoError(t, err)
	require.Len(t, data, 18)

	assert.Equal(t, uint64(7), binary.LittleEndian.Uint64(data[0:8]))
	assert.Equal(t, uint16(models.NodeTypeFile), binary.LittleEndian.Uint16(data[8:10]))
	assert.Equal(t, uint64(42), binary.LittleEndian.Uint64(data[10:18]))
}

func TestEncodeDirectoryEntry(t *testing.T) {
	data, err := EncodeDirectoryEntry(models.DirectoryEntry{Name: "motd", NodeID: 3, Type: models.NodeTypeFolder})
	require.NoError(t, err)
	require.Len(t, data, NameSize+10)

	assert.Equal(t, "motd", strings.TrimRight(string(data[:NameSize]), "\x00"))
	assert.Equal(t, uint64(3), binary.LittleEndian.Uint64(data[NameSize:NameSize+8]))
	assert.Equal(t, uint16(models.NodeTypeFolder), binary.LittleEndian.Uint16(data[NameSize+8:]))

	_, err = EncodeDirectoryEntry(models.DirectoryEntry{Name: strings.Repeat("x", NameSize)})
	assert.Error(t, err)
}

func TestWriteResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteInt64Response(rec, -2, 99))

	body := rec.Body.Bytes()
	require.Len(t, body, 16)
	assert.Equal(t, "16", rec.Header().Get("Content-Length"))

	code := int64(binary.LittleEndian.Uint64(body[:8]))
	value := int64(binary.LittleEndian.Uint64(body[8:]))
	assert.Equal(t, int64(-2), code)
	assert.Equal(t, int64(99), value)
}
