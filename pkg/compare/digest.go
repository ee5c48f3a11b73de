package compare

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/text/encoding/unicode"

	"github.com/sdejongh/p4harmonize/pkg/models"
)

// DefaultChunkSize is the read size for streamed digests
const DefaultChunkSize = 64 * 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Digester computes file digests the way the Perforce server does:
// MD5 over the stored form of the file, rendered as uppercase hex.
// Text is stored with LF line endings, and unicode text is stored as UTF-8
// without a byte order mark.
type Digester struct {
	bufferSize int
	bufferPool *sync.Pool
	calls      atomic.Int64
}

// NewDigester creates a digester reading in chunks of bufferSize bytes
func NewDigester(bufferSize int) *Digester {
	if bufferSize < 4096 {
		bufferSize = DefaultChunkSize
	}
	return &Digester{
		bufferSize: bufferSize,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, bufferSize)
				return &buf
			},
		},
	}
}

// Calls returns how many digests have been requested
func (d *Digester) Calls() int64 {
	return d.calls.Load()
}

// Digest returns the uppercase hex MD5 of the file at path, normalized for kind
func (d *Digester) Digest(path string, kind models.ContentKind) (string, error) {
	d.calls.Add(1)

	f, err := os.Open(path)
	if err != nil {
		return "", &models.PathError{Op: "digest", Path: path, Err: err}
	}
	defer f.Close()

	h := md5.New()
	switch kind {
	case models.KindText:
		err = d.digestText(h, f)
	case models.KindUTF8:
		err = d.digestUTF8(h, f)
	case models.KindUTF16:
		err = digestUTF16(h, f)
	default:
		err = d.digestBinary(h, f)
	}
	if err != nil {
		return "", &models.PathError{Op: "digest", Path: path, Err: err}
	}

	return strings.ToUpper(hex.EncodeToString(h.Sum(nil))), nil
}

// DigestLink returns the digest of a symbolic link the way the server stores
// symlink revisions: the MD5 of the link target text. The target itself is
// never opened, so dangling links and links to directories digest normally.
func DigestLink(path string, _ models.ContentKind) (string, error) {
	target, err := os.Readlink(path)
	if err != nil {
		return "", &models.PathError{Op: "digest", Path: path, Err: err}
	}
	sum := md5.Sum([]byte(target))
	return strings.ToUpper(hex.EncodeToString(sum[:])), nil
}

func (d *Digester) digestBinary(h hash.Hash, r io.Reader) error {
	bufPtr := d.bufferPool.Get().(*[]byte)
	defer d.bufferPool.Put(bufPtr)

	_, err := io.CopyBuffer(h, r, *bufPtr)
	return err
}

func (d *Digester) digestText(h hash.Hash, r io.Reader) error {
	bufPtr := d.bufferPool.Get().(*[]byte)
	defer d.bufferPool.Put(bufPtr)

	w := &lineEndingWriter{w: h}
	if _, err := io.CopyBuffer(w, r, *bufPtr); err != nil {
		return err
	}
	return w.Flush()
}

func (d *Digester) digestUTF8(h hash.Hash, r io.Reader) error {
	bufPtr := d.bufferPool.Get().(*[]byte)
	defer d.bufferPool.Put(bufPtr)
	buf := *bufPtr

	// read enough to see the whole BOM even on short reads
	n, err := io.ReadFull(r, buf[:len(utf8BOM)])
	head := buf[:n]
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return err
	}

	w := &lineEndingWriter{w: h}
	if !bytes.Equal(head, utf8BOM) {
		if _, err := w.Write(head); err != nil {
			return err
		}
	}
	if _, err := io.CopyBuffer(w, r, buf); err != nil {
		return err
	}
	return w.Flush()
}

func digestUTF16(h hash.Hash, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	if err := checkUTF16(data); err != nil {
		return err
	}

	// UseBOM honors and strips a leading BOM; without one the data is little endian
	decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(data)
	if err != nil {
		return fmt.Errorf("decode utf16: %w", err)
	}

	w := &lineEndingWriter{w: h}
	if _, err := w.Write(decoded); err != nil {
		return err
	}
	return w.Flush()
}

// checkUTF16 rejects input the decoder would silently repair with U+FFFD:
// a trailing odd byte or an unpaired surrogate
func checkUTF16(data []byte) error {
	var order binary.ByteOrder = binary.LittleEndian
	switch {
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		order = binary.BigEndian
		data = data[2:]
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		data = data[2:]
	}

	if len(data)%2 != 0 {
		return errors.New("invalid utf16: odd number of bytes")
	}
	for i := 0; i < len(data); i += 2 {
		u := order.Uint16(data[i:])
		switch {
		case u >= 0xD800 && u <= 0xDBFF:
			if i+4 > len(data) {
				return fmt.Errorf("invalid utf16: unpaired surrogate at byte %d", i)
			}
			if next := order.Uint16(data[i+2:]); next < 0xDC00 || next > 0xDFFF {
				return fmt.Errorf("invalid utf16: unpaired surrogate at byte %d", i)
			}
			i += 2
		case u >= 0xDC00 && u <= 0xDFFF:
			return fmt.Errorf("invalid utf16: unpaired surrogate at byte %d", i)
		}
	}
	return nil
}

// lineEndingWriter rewrites CRLF and lone CR to LF.
// A CR at the end of one write is held until the next byte is known.
type lineEndingWriter struct {
	w         io.Writer
	pendingCR bool
	out       []byte
}

func (l *lineEndingWriter) Write(p []byte) (int, error) {
	l.out = l.out[:0]
	for _, b := range p {
		if l.pendingCR {
			l.out = append(l.out, '\n')
			l.pendingCR = false
			if b == '\n' {
				continue
			}
		}
		if b == '\r' {
			l.pendingCR = true
			continue
		}
		l.out = append(l.out, b)
	}
	if _, err := l.w.Write(l.out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush emits a trailing CR as LF
func (l *lineEndingWriter) Flush() error {
	if !l.pendingCR {
		return nil
	}
	l.pendingCR = false
	_, err := l.w.Write([]byte{'\n'})
	return err
}
