package urkel

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// The node log is append-only and position addressed: a node is named by the
// byte offset of its record, so tree growth never rewrites earlier records
// and every historical root stays readable. Layout:
//
//	header:   magic(4) version(2) storeID(16) reserved(10)
//	leaf:     tag(1) key(32) valueHash(32) vsize(2) value[vsize]
//	internal: tag(1) prefixSize(2) prefixBytes leftRef rightRef
//	commit:   tag(1) rootKind(1) rootPos(8) rootHash(32) prev(8) seq(8) checksum(32)
//
// where a child ref is kind(1) pos(8) hash(32). Commit records are
// back-chained through prev, so open recovers the historical root index by
// walking the chain instead of scanning the log.
const (
	logName     = "tree.log"
	metaName    = "meta"
	metaTmpName = "meta.tmp"

	logMagic      = "ULOG"
	logVersion    = 1
	logHeaderSize = 32

	recLeaf     = 0x01
	recInternal = 0x02
	recCommit   = 0x03

	rootNull     = 0x00
	kindLeaf     = 0x01
	kindInternal = 0x02

	leafHdrSize       = 1 + KeyBytes + HashBytes + 2
	childRefSize      = 1 + 8 + HashBytes
	commitSize        = 1 + 1 + 8 + HashBytes + 8 + 8 + HashBytes
	commitChecksumOff = commitSize - HashBytes
)

// rootRef names a committed root: its node kind, log position and hash.
type rootRef struct {
	kind byte
	pos  int64
	h    Hash
}

type store struct {
	dir    string
	id     uuid.UUID
	logger *zap.Logger

	mu      sync.RWMutex
	log     *os.File
	closed  bool
	size    int64 // durable log length
	head    int64 // latest commit record offset, 0 when none
	root    rootRef
	version uint64
	roots   map[Hash]rootRef

	// commitMu serializes commits store-wide; readers are only blocked for
	// the final pointer swap under mu.
	commitMu sync.Mutex
}

func openStore(prefix string, logger *zap.Logger) (*store, error) {
	fi, err := os.Stat(prefix)
	switch {
	case err == nil && !fi.IsDir():
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, prefix)
	case os.IsNotExist(err):
		if err := os.MkdirAll(prefix, 0o755); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	f, err := os.OpenFile(filepath.Join(prefix, logName), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}

	s := &store{
		dir:    prefix,
		logger: logger,
		log:    f,
		roots:  map[Hash]rootRef{ZeroHash: {kind: rootNull}},
		root:   rootRef{kind: rootNull},
	}
	if err := s.recover(); err != nil {
		f.Close()
		return nil, err
	}
	s.logger.Debug("store opened",
		zap.String("prefix", prefix),
		zap.String("id", s.id.String()),
		zap.Uint64("version", s.version),
	)
	return s, nil
}

// recover reads the header and meta record, truncates any torn tail past the
// durable log length, and rebuilds the historical root index from the commit
// chain.
func (s *store) recover() error {
	fi, err := s.log.Stat()
	if err != nil {
		return err
	}

	if fi.Size() == 0 {
		s.id = uuid.New()
		if err := s.writeHeader(); err != nil {
			return err
		}
		s.size = logHeaderSize
		return writeMeta(s.dir, metaRecord{logLen: s.size})
	}

	if err := s.readHeader(); err != nil {
		return err
	}

	m, ok, err := readMeta(s.dir)
	if err != nil {
		return err
	}
	if !ok {
		// A crash between log creation and the first meta write leaves a
		// header-only log, possibly with a partial first commit appended.
		s.size = logHeaderSize
		if fi.Size() > s.size {
			if err := s.log.Truncate(s.size); err != nil {
				return err
			}
		}
		return writeMeta(s.dir, metaRecord{logLen: s.size})
	}

	if m.logLen < logHeaderSize || m.logLen > fi.Size() {
		return fmt.Errorf("%w: meta log length %d outside file of %d bytes", ErrCorrupt, m.logLen, fi.Size())
	}
	if fi.Size() > m.logLen {
		if err := s.log.Truncate(m.logLen); err != nil {
			return err
		}
	}
	s.size = m.logLen
	s.head = m.head

	return s.loadRoots(m)
}

// loadRoots walks the commit chain backwards from the meta head, indexing
// every root the store still retains.
func (s *store) loadRoots(m metaRecord) error {
	pos := m.head
	last := s.size
	for pos != 0 {
		if pos < logHeaderSize || pos+commitSize > last {
			return fmt.Errorf("%w: commit chain offset %d out of bounds", ErrCorrupt, pos)
		}
		buf := make([]byte, commitSize)
		if _, err := s.log.ReadAt(buf, pos); err != nil {
			return err
		}
		if buf[0] != recCommit {
			return fmt.Errorf("%w: expected commit record at offset %d", ErrCorrupt, pos)
		}
		sum := HashValue(buf[:commitChecksumOff])
		if !bytes.Equal(sum[:], buf[commitChecksumOff:]) {
			return fmt.Errorf("%w: commit checksum failed at offset %d", ErrCorrupt, pos)
		}

		ref := rootRef{kind: buf[1], pos: int64(binary.BigEndian.Uint64(buf[2:10]))}
		copy(ref.h[:], buf[10:10+HashBytes])
		prev := int64(binary.BigEndian.Uint64(buf[10+HashBytes : 18+HashBytes]))
		seq := binary.BigEndian.Uint64(buf[18+HashBytes : 26+HashBytes])

		if pos == m.head {
			if ref.h != m.root {
				return fmt.Errorf("%w: meta root does not match head commit", ErrCorrupt)
			}
			s.root = ref
			s.version = seq
		}
		// Earlier commits may republish a root; keep the first (newest) ref.
		if _, dup := s.roots[ref.h]; !dup {
			s.roots[ref.h] = ref
		}

		last = pos // chain offsets strictly decrease
		pos = prev
	}
	return nil
}

func (s *store) writeHeader() error {
	buf := make([]byte, logHeaderSize)
	copy(buf[0:4], logMagic)
	binary.BigEndian.PutUint16(buf[4:6], logVersion)
	copy(buf[6:22], s.id[:])
	if _, err := s.log.WriteAt(buf, 0); err != nil {
		return err
	}
	return s.log.Sync()
}

func (s *store) readHeader() error {
	buf := make([]byte, logHeaderSize)
	if _, err := s.log.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("%w: short log header", ErrCorrupt)
	}
	if string(buf[0:4]) != logMagic {
		return fmt.Errorf("%w: bad log magic", ErrCorrupt)
	}
	if v := binary.BigEndian.Uint16(buf[4:6]); v != logVersion {
		return fmt.Errorf("%w: unsupported log version %d", ErrCorrupt, v)
	}
	copy(s.id[:], buf[6:22])
	return nil
}

func (s *store) file() (*os.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.log, nil
}

// lookupRoot resolves a root hash to its stored reference. The zero hash is
// always known.
func (s *store) lookupRoot(h Hash) (rootRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return rootRef{}, ErrClosed
	}
	ref, ok := s.roots[h]
	if !ok {
		return rootRef{}, fmt.Errorf("%w: unknown root %x", ErrNotFound, h)
	}
	return ref, nil
}

func (s *store) publishedRoot() rootRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// nodeFromRoot returns the overlay anchor for a stored root.
func nodeFromRoot(ref rootRef) node {
	switch ref.kind {
	case rootNull:
		return sharedNull
	case kindLeaf:
		return &hashedNode{h: ref.h, pos: ref.pos, leaf: true}
	default:
		return &hashedNode{h: ref.h, pos: ref.pos}
	}
}

// resolve loads the record behind a hash reference. All other node variants
// pass through untouched.
func (s *store) resolve(n node) (node, error) {
	hn, ok := n.(*hashedNode)
	if !ok {
		return n, nil
	}
	return s.readNode(hn.pos, hn.leaf, hn.h)
}

func (s *store) readNode(pos int64, leaf bool, h Hash) (node, error) {
	f, err := s.file()
	if err != nil {
		return nil, err
	}
	if leaf {
		buf := make([]byte, leafHdrSize)
		if _, err := f.ReadAt(buf, pos); err != nil {
			return nil, fmt.Errorf("%w: short leaf record at %d", ErrCorrupt, pos)
		}
		if buf[0] != recLeaf {
			return nil, fmt.Errorf("%w: expected leaf record at %d", ErrCorrupt, pos)
		}
		n := &leafNode{pos: pos, h: h, hashed: true}
		copy(n.key[:], buf[1:1+KeyBytes])
		copy(n.valueHash[:], buf[1+KeyBytes:1+KeyBytes+HashBytes])
		n.vsize = binary.BigEndian.Uint16(buf[1+KeyBytes+HashBytes:])
		n.vpos = pos + leafHdrSize
		return n, nil
	}

	hdr := make([]byte, 3)
	if _, err := f.ReadAt(hdr, pos); err != nil {
		return nil, fmt.Errorf("%w: short internal record at %d", ErrCorrupt, pos)
	}
	if hdr[0] != recInternal {
		return nil, fmt.Errorf("%w: expected internal record at %d", ErrCorrupt, pos)
	}
	psize := int(binary.BigEndian.Uint16(hdr[1:3]))
	if psize > KeyBits {
		return nil, fmt.Errorf("%w: internal prefix of %d bits at %d", ErrCorrupt, psize, pos)
	}
	pbytes := (psize + 7) / 8
	rest := make([]byte, pbytes+2*childRefSize)
	if _, err := f.ReadAt(rest, pos+3); err != nil {
		return nil, fmt.Errorf("%w: short internal record at %d", ErrCorrupt, pos)
	}

	n := &internalNode{pos: pos, h: h, hashed: true}
	n.prefix = prefix{size: psize, data: append([]byte(nil), rest[:pbytes]...)}
	var cerr error
	n.left, cerr = decodeChildRef(rest[pbytes:])
	if cerr != nil {
		return nil, fmt.Errorf("%w at %d", cerr, pos)
	}
	n.right, cerr = decodeChildRef(rest[pbytes+childRefSize:])
	if cerr != nil {
		return nil, fmt.Errorf("%w at %d", cerr, pos)
	}
	return n, nil
}

func decodeChildRef(buf []byte) (node, error) {
	hn := &hashedNode{pos: int64(binary.BigEndian.Uint64(buf[1:9]))}
	copy(hn.h[:], buf[9:9+HashBytes])
	switch buf[0] {
	case kindLeaf:
		hn.leaf = true
	case kindInternal:
	default:
		return nil, fmt.Errorf("%w: bad child ref kind %#x", ErrCorrupt, buf[0])
	}
	return hn, nil
}

// readValue fetches a persisted leaf value.
func (s *store) readValue(n *leafNode) ([]byte, error) {
	if n.value != nil || n.vsize == 0 {
		v := make([]byte, len(n.value))
		copy(v, n.value)
		return v, nil
	}
	f, err := s.file()
	if err != nil {
		return nil, err
	}
	v := make([]byte, n.vsize)
	if _, err := f.ReadAt(v, n.vpos); err != nil {
		return nil, fmt.Errorf("%w: short value at %d", ErrCorrupt, n.vpos)
	}
	return v, nil
}

// commitBuf accumulates the records of one commit. Node positions are only
// applied after the meta record is durable, so a failed commit leaves every
// overlay node retryable.
type commitBuf struct {
	base   int64
	buf    []byte
	assign []func()
}

func (cb *commitBuf) tell() int64 {
	return cb.base + int64(len(cb.buf))
}

// writeNode appends the dirty subgraph under n in post order and returns the
// reference for n itself.
func (s *store) writeNode(cb *commitBuf, n node) (byte, int64, Hash, error) {
	switch t := n.(type) {
	case *nullNode:
		return rootNull, 0, ZeroHash, nil

	case *hashedNode:
		kind := byte(kindInternal)
		if t.leaf {
			kind = kindLeaf
		}
		return kind, t.pos, t.h, nil

	case *leafNode:
		if t.pos != 0 {
			return kindLeaf, t.pos, t.hash(), nil
		}
		pos := cb.tell()
		rec := make([]byte, leafHdrSize)
		rec[0] = recLeaf
		copy(rec[1:], t.key[:])
		copy(rec[1+KeyBytes:], t.valueHash[:])
		binary.BigEndian.PutUint16(rec[1+KeyBytes+HashBytes:], t.vsize)
		cb.buf = append(cb.buf, rec...)
		cb.buf = append(cb.buf, t.value...)
		cb.assign = append(cb.assign, func() {
			t.pos = pos
			t.vpos = pos + leafHdrSize
		})
		return kindLeaf, pos, t.hash(), nil

	case *internalNode:
		if t.pos != 0 {
			return kindInternal, t.pos, t.hash(), nil
		}
		lk, lp, lh, err := s.writeNode(cb, t.left)
		if err != nil {
			return 0, 0, ZeroHash, err
		}
		rk, rp, rh, err := s.writeNode(cb, t.right)
		if err != nil {
			return 0, 0, ZeroHash, err
		}
		if lk == rootNull || rk == rootNull {
			return 0, 0, ZeroHash, fmt.Errorf("%w: internal node with null child", ErrCorrupt)
		}
		pos := cb.tell()
		rec := make([]byte, 3+t.prefix.byteLen()+2*childRefSize)
		rec[0] = recInternal
		binary.BigEndian.PutUint16(rec[1:3], uint16(t.prefix.size))
		copy(rec[3:], t.prefix.data[:t.prefix.byteLen()])
		encodeChildRef(rec[3+t.prefix.byteLen():], lk, lp, lh)
		encodeChildRef(rec[3+t.prefix.byteLen()+childRefSize:], rk, rp, rh)
		cb.buf = append(cb.buf, rec...)
		cb.assign = append(cb.assign, func() { t.pos = pos })
		return kindInternal, pos, t.hash(), nil
	}
	return 0, 0, ZeroHash, fmt.Errorf("%w: unknown node variant", ErrCorrupt)
}

func encodeChildRef(buf []byte, kind byte, pos int64, h Hash) {
	buf[0] = kind
	binary.BigEndian.PutUint64(buf[1:9], uint64(pos))
	copy(buf[9:9+HashBytes], h[:])
}

// commit makes the overlay rooted at n durable and publishes it as the
// store's root. The caller holds commitMu.
func (s *store) commit(n node) (rootRef, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return rootRef{}, ErrClosed
	}
	base := s.size
	prev := s.head
	seq := s.version + 1
	f := s.log
	s.mu.RUnlock()

	cb := &commitBuf{base: base}
	kind, pos, h, err := s.writeNode(cb, n)
	if err != nil {
		return rootRef{}, err
	}

	head := cb.tell()
	rec := make([]byte, commitSize)
	rec[0] = recCommit
	rec[1] = kind
	binary.BigEndian.PutUint64(rec[2:10], uint64(pos))
	copy(rec[10:10+HashBytes], h[:])
	binary.BigEndian.PutUint64(rec[10+HashBytes:18+HashBytes], uint64(prev))
	binary.BigEndian.PutUint64(rec[18+HashBytes:26+HashBytes], seq)
	sum := HashValue(rec[:commitChecksumOff])
	copy(rec[commitChecksumOff:], sum[:])
	cb.buf = append(cb.buf, rec...)

	if _, err := f.WriteAt(cb.buf, base); err != nil {
		return rootRef{}, err
	}
	if err := f.Sync(); err != nil {
		return rootRef{}, err
	}

	size := base + int64(len(cb.buf))
	if err := writeMeta(s.dir, metaRecord{logLen: size, head: head, root: h}); err != nil {
		return rootRef{}, err
	}

	ref := rootRef{kind: kind, pos: pos, h: h}
	for _, apply := range cb.assign {
		apply()
	}

	s.mu.Lock()
	s.size = size
	s.head = head
	s.root = ref
	s.version = seq
	s.roots[h] = ref
	s.mu.Unlock()

	s.logger.Debug("root committed",
		zap.String("root", fmt.Sprintf("%x", h)),
		zap.Uint64("version", seq),
		zap.Int("bytes", len(cb.buf)),
	)
	return ref, nil
}

func (s *store) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	return s.log.Close()
}

// destroyStore removes the files a store creates under prefix, then the
// directory itself if that leaves it empty. Destroying a prefix with nothing
// persisted is a success.
func destroyStore(prefix string) error {
	fi, err := os.Stat(prefix)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, prefix)
	}
	for _, name := range []string{logName, metaName, metaTmpName} {
		if err := os.Remove(filepath.Join(prefix, name)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if err := os.Remove(prefix); err != nil && !os.IsNotExist(err) {
		// Foreign files keep the directory alive; that is not a fault.
		if pe, ok := err.(*os.PathError); !ok || !isNotEmpty(pe) {
			return err
		}
	}
	return nil
}

func isNotEmpty(pe *os.PathError) bool {
	return pe.Err == syscall.ENOTEMPTY || pe.Err == syscall.EEXIST
}
