package pluginsort

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// ReadMasters opens a Bethesda plugin (.esp/.esm/.esl) and returns the
// filenames listed in its TES4 header's MAST subrecords — the plugins it
// depends on having already loaded. This is a deliberately minimal stand-in
// for a real plugin-graph library (see the package doc comment): it reads
// only the header record, not the full form tree, which is all a
// load-order toposort needs.
func ReadMasters(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var recType [4]byte
	if _, err := io.ReadFull(r, recType[:]); err != nil {
		return nil, fmt.Errorf("reading record type of %s: %w", path, err)
	}
	if string(recType[:]) != "TES4" {
		return nil, fmt.Errorf("%s: not a Bethesda plugin (got record %q)", path, recType)
	}

	var dataSize uint32
	if err := binary.Read(r, binary.LittleEndian, &dataSize); err != nil {
		return nil, fmt.Errorf("reading header size of %s: %w", path, err)
	}
	// flags, formID, versionControlInfo: 12 bytes we don't need.
	if _, err := io.CopyN(io.Discard, r, 12); err != nil {
		return nil, fmt.Errorf("skipping header fields of %s: %w", path, err)
	}

	var masters []string
	var consumed uint32
	for consumed < dataSize {
		var subType [4]byte
		if _, err := io.ReadFull(r, subType[:]); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("reading subrecord of %s: %w", path, err)
		}
		var subSize uint16
		if err := binary.Read(r, binary.LittleEndian, &subSize); err != nil {
			return nil, fmt.Errorf("reading subrecord size of %s: %w", path, err)
		}
		consumed += 6 + uint32(subSize)

		payload := make([]byte, subSize)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("reading subrecord payload of %s: %w", path, err)
		}

		if string(subType[:]) == "MAST" {
			masters = append(masters, trimNull(payload))
		}
	}

	return masters, nil
}

func trimNull(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
