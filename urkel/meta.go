package urkel

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// The meta record is the store's single mutable cell: it names the durable
// log length and the latest commit record. It is replaced atomically (write
// temp file, rename) so a crash mid-commit leaves the previous root the only
// visible one.
const (
	metaMagic   = "UMET"
	metaVersion = 1

	// magic(4) version(2) logLen(8) head(8) rootHash(32) checksum(32)
	metaSize        = 4 + 2 + 8 + 8 + HashBytes + HashBytes
	metaChecksumOff = metaSize - HashBytes
)

type metaRecord struct {
	logLen int64
	head   int64 // offset of the latest commit record, 0 when none
	root   Hash
}

func encodeMeta(m metaRecord) []byte {
	buf := make([]byte, metaSize)
	copy(buf[0:4], metaMagic)
	binary.BigEndian.PutUint16(buf[4:6], metaVersion)
	binary.BigEndian.PutUint64(buf[6:14], uint64(m.logLen))
	binary.BigEndian.PutUint64(buf[14:22], uint64(m.head))
	copy(buf[22:22+HashBytes], m.root[:])
	sum := HashValue(buf[:metaChecksumOff])
	copy(buf[metaChecksumOff:], sum[:])
	return buf
}

func decodeMeta(buf []byte) (metaRecord, error) {
	if len(buf) != metaSize {
		return metaRecord{}, fmt.Errorf("%w: meta record is %d bytes, want %d", ErrCorrupt, len(buf), metaSize)
	}
	if string(buf[0:4]) != metaMagic {
		return metaRecord{}, fmt.Errorf("%w: bad meta magic", ErrCorrupt)
	}
	if v := binary.BigEndian.Uint16(buf[4:6]); v != metaVersion {
		return metaRecord{}, fmt.Errorf("%w: unsupported meta version %d", ErrCorrupt, v)
	}
	sum := HashValue(buf[:metaChecksumOff])
	if !bytes.Equal(sum[:], buf[metaChecksumOff:]) {
		return metaRecord{}, fmt.Errorf("%w: meta checksum failed", ErrCorrupt)
	}
	var m metaRecord
	m.logLen = int64(binary.BigEndian.Uint64(buf[6:14]))
	m.head = int64(binary.BigEndian.Uint64(buf[14:22]))
	copy(m.root[:], buf[22:22+HashBytes])
	return m, nil
}

// writeMeta atomically replaces the meta record under dir.
func writeMeta(dir string, m metaRecord) error {
	tmp := filepath.Join(dir, metaTmpName)
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err = f.Write(encodeMeta(m)); err != nil {
		f.Close()
		return err
	}
	if err = f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp, filepath.Join(dir, metaName)); err != nil {
		return err
	}
	return syncDir(dir)
}

func readMeta(dir string) (metaRecord, bool, error) {
	buf, err := os.ReadFile(filepath.Join(dir, metaName))
	if os.IsNotExist(err) {
		return metaRecord{}, false, nil
	}
	if err != nil {
		return metaRecord{}, false, err
	}
	m, err := decodeMeta(buf)
	if err != nil {
		return metaRecord{}, false, err
	}
	return m, true, nil
}

// syncDir flushes directory entries so a rename survives a crash.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	err = d.Sync()
	if cerr := d.Close(); err == nil {
		err = cerr
	}
	return err
}
