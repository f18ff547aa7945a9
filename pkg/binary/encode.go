package binary

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net/http"

	"github.com/S1riyS/ghost-vfs/internal/models"
)

// NameSize is the fixed width of an encoded entry name.
const NameSize = 256

func EncodeStat(attrs models.StatAttributes) ([]byte, error) {
	buf := new(bytes.Buffer)

	// node_id (uint64, 8 bytes)
	if err := binary.Write(buf, binary.LittleEndian, uint64(attrs.NodeID)); err != nil {
		return nil, fmt.Errorf("failed to encode node_id: %w", err)
	}

	// type (int16, 2 bytes)
	if err := binary.Write(buf, binary.LittleEndian, int16(attrs.Type)); err != nil {
		return nil, fmt.Errorf("failed to encode type: %w", err)
	}

	// length (int64, 8 bytes)
	if err := binary.Write(buf, binary.LittleEndian, attrs.Length); err != nil {
		return nil, fmt.Errorf("failed to encode length: %w", err)
	}

	return buf.Bytes(), nil
}

func EncodeDirectoryEntry(entry models.DirectoryEntry) ([]byte, error) {
	buf := new(bytes.Buffer)

	// name (char[256], null-terminated, padded with zeros)
	if len(entry.Name) >= NameSize {
		return nil, fmt.Errorf("failed to encode name: %d bytes", len(entry.Name))
	}
	nameBytes := make([]byte, NameSize)
	copy(nameBytes, entry.Name)
	if _, err := buf.Write(nameBytes); err != nil {
		return nil, fmt.Errorf("failed to encode name: %w", err)
	}

	// node_id (uint64, 8 bytes)
	if err := binary.Write(buf, binary.LittleEndian, uint64(entry.NodeID)); err != nil {
		return nil, fmt.Errorf("failed to encode node_id: %w", err)
	}

	// type (int16, 2 bytes)
	if err := binary.Write(buf, binary.LittleEndian, int16(entry.Type)); err != nil {
		return nil, fmt.Errorf("failed to encode type: %w", err)
	}

	return buf.Bytes(), nil
}

func WriteResponse(w http.ResponseWriter, code int64, data []byte) error {
	response := new(bytes.Buffer)

	// return code (int64, 8 bytes)
	if err := binary.Write(response, binary.LittleEndian, code); err != nil {
		return fmt.Errorf("failed to write response code: %w", err)
	}

	if data != nil {
		if _, err := response.Write(data); err != nil {
			return fmt.Errorf("failed to write response data: %w", err)
		}
	}

	body := response.Bytes()

	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(body)))
	w.Header().Set("Connection", "close")
	w.WriteHeader(http.StatusOK)

	_, err := w.Write(body)
	return err
}

func WriteInt64Response(w http.ResponseWriter, code int64, value int64) error {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, value); err != nil {
		return err
	}
	return WriteResponse(w, code, buf.Bytes())
}
