package net

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// maxPayload bounds a decompressed frame.
const maxPayload = 1 << 20

// ReadFrame reads one frame from r and returns the inflated payload.
// Wire format: [2 bytes LE: total length including header][zlib data].
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	totalLen := int(binary.LittleEndian.Uint16(header[:]))
	bodyLen := totalLen - 2
	if bodyLen <= 0 {
		return nil, fmt.Errorf("invalid frame length: %d", totalLen)
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read frame body (%d bytes): %w", bodyLen, err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("inflate frame: %w", err)
	}
	defer zr.Close()
	payload, err := io.ReadAll(io.LimitReader(zr, maxPayload+1))
	if err != nil {
		return nil, fmt.Errorf("inflate frame: %w", err)
	}
	if len(payload) > maxPayload {
		return nil, fmt.Errorf("frame payload exceeds %d bytes", maxPayload)
	}
	return payload, nil
}

// WriteFrame deflates data at the given zlib level and writes one frame.
func WriteFrame(w io.Writer, data []byte, level int) error {
	var body bytes.Buffer
	zw, err := zlib.NewWriterLevel(&body, level)
	if err != nil {
		return fmt.Errorf("deflate frame: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		return fmt.Errorf("deflate frame: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("deflate frame: %w", err)
	}

	totalLen := body.Len() + 2
	if totalLen > 0xFFFF {
		return fmt.Errorf("frame too large: %d bytes compressed", body.Len())
	}
	var header [2]byte
	binary.LittleEndian.PutUint16(header[:], uint16(totalLen))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}
